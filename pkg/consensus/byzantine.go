package consensus

import (
	"encoding/json"
	"fmt"

	"github.com/hypermesh/stoq/pkg/types"
)

type byzantineReportWire struct {
	Term       uint64 `json:"term"`
	ReporterID string `json:"reporter_id"`
	AccusedID  string `json:"accused_id"`
	Evidence   []byte `json:"evidence"`
}

func encodeByzantineReport(r *ByzantineReport) ([]byte, error) {
	raw, err := json.Marshal(byzantineReportWire{
		Term:       uint64(r.Term),
		ReporterID: string(r.ReporterID),
		AccusedID:  string(r.AccusedID),
		Evidence:   r.Evidence,
	})
	if err != nil {
		return nil, fmt.Errorf("consensus: encode byzantine report: %w", err)
	}
	return raw, nil
}

// DecodeByzantineReport decodes a log entry payload previously produced
// by encodeByzantineReport; used by the apply path when Op ==
// "byzantine_report".
func DecodeByzantineReport(payload []byte) (*ByzantineReport, error) {
	var w byzantineReportWire
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, fmt.Errorf("consensus: decode byzantine report: %w", err)
	}
	return &ByzantineReport{
		Term:       types.Term(w.Term),
		ReporterID: types.NodeID(w.ReporterID),
		AccusedID:  types.NodeID(w.AccusedID),
		Evidence:   w.Evidence,
	}, nil
}
