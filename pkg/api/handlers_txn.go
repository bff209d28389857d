package api

import (
	"net/http"

	"github.com/hypermesh/stoq/pkg/types"
)

type beginTxnRequest struct {
	Isolation string `json:"isolation"`
}

type beginTxnResponse struct {
	TxnID string `json:"txn_id"`
}

func (s *Server) handleTxnBegin(w http.ResponseWriter, r *http.Request) {
	var req beginTxnRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	iso := types.IsolationLevel(req.Isolation)
	switch iso {
	case types.ReadCommitted, types.RepeatableRead, types.Serializable:
	default:
		iso = types.Serializable
	}
	id := s.node.Transactions().Begin(iso)
	writeJSON(w, http.StatusOK, beginTxnResponse{TxnID: id.String()})
}

type readTxnRequest struct {
	TxnID string `json:"txn_id"`
	Key   string `json:"key"`
}

type readTxnResponse struct {
	Value []byte `json:"value,omitempty"`
	Found bool   `json:"found"`
}

func (s *Server) handleTxnRead(w http.ResponseWriter, r *http.Request) {
	var req readTxnRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id, err := types.ParseTxnID(req.TxnID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid txn_id")
		return
	}
	value, found, err := s.node.Transactions().Read(id, req.Key)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, readTxnResponse{Value: value, Found: found})
}

type writeTxnRequest struct {
	TxnID string `json:"txn_id"`
	Key   string `json:"key"`
	Value []byte `json:"value"`
}

func (s *Server) handleTxnWrite(w http.ResponseWriter, r *http.Request) {
	var req writeTxnRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id, err := types.ParseTxnID(req.TxnID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid txn_id")
		return
	}
	if err := s.node.Transactions().Write(id, req.Key, req.Value); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

type txnIDRequest struct {
	TxnID string `json:"txn_id"`
}

type commitTxnResponse struct {
	TxnID         string   `json:"txn_id"`
	CommitTs      uint64   `json:"commit_ts,omitempty"`
	CommittedKeys []string `json:"committed_keys,omitempty"`
}

func (s *Server) handleTxnCommit(w http.ResponseWriter, r *http.Request) {
	var req txnIDRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id, err := types.ParseTxnID(req.TxnID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid txn_id")
		return
	}
	result, err := s.node.Transactions().Commit(id)
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, commitTxnResponse{
		TxnID:         result.TxnID.String(),
		CommitTs:      result.CommitTs,
		CommittedKeys: result.CommittedKeys,
	})
}

func (s *Server) handleTxnRollback(w http.ResponseWriter, r *http.Request) {
	var req txnIDRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id, err := types.ParseTxnID(req.TxnID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid txn_id")
		return
	}
	if err := s.node.Transactions().Rollback(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}
