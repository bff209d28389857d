package consensus

import "github.com/hypermesh/stoq/pkg/types"

// VoteRequest is sent by a candidate soliciting votes for a term.
type VoteRequest struct {
	Term         types.Term
	CandidateID  types.NodeID
	LastLogIndex types.LogIndex
	LastLogTerm  types.Term
}

// VoteResponse answers a VoteRequest.
type VoteResponse struct {
	Term    types.Term
	Granted bool
}

// LogEntry is the wire form of one replicated entry, carried inside
// AppendEntries.
type LogEntry struct {
	Index   types.LogIndex
	Term    types.Term
	Op      string
	Payload []byte
}

// AppendEntries is sent by the leader to replicate entries (or, with
// an empty Entries slice, as a heartbeat).
type AppendEntries struct {
	Term         types.Term
	LeaderID     types.NodeID
	PrevLogIndex types.LogIndex
	PrevLogTerm  types.Term
	Entries      []LogEntry
	LeaderCommit types.LogIndex
}

// AppendEntriesResponse answers an AppendEntries.
type AppendEntriesResponse struct {
	Term       types.Term
	Success    bool
	MatchIndex types.LogIndex
}

// ByzantineReport accuses a node of Byzantine behavior; it is itself
// replicated as a log entry so accusations carry consensus guarantees.
type ByzantineReport struct {
	Term       types.Term
	ReporterID types.NodeID
	AccusedID  types.NodeID
	Evidence   []byte
}

// Message is the envelope carrying exactly one of the message kinds
// above, tagged so Detector and Engine can dispatch without a type
// switch at every call site.
type Message struct {
	From                   types.NodeID
	VoteRequest            *VoteRequest
	VoteResponse           *VoteResponse
	AppendEntries          *AppendEntries
	AppendEntriesResponse  *AppendEntriesResponse
	ByzantineReport        *ByzantineReport
}
