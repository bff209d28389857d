package consensus

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/hypermesh/stoq/pkg/consensuslog"
	"github.com/hypermesh/stoq/pkg/log"
	"github.com/hypermesh/stoq/pkg/types"
)

// Engine is one replica's consensus state machine. Field locking
// follows the global lock order documented for the cluster: consensus
// state is acquired before the log, and neither is held while the
// engine performs network I/O.
type Engine struct {
	self    types.NodeID
	cfg     Config
	log     *consensuslog.Log
	transport Transport
	detector  Detector
	applier   Applier

	mu          sync.RWMutex
	state       NodeState
	currentTerm types.Term
	votedFor    string
	commitIndex types.LogIndex
	leaderID    types.NodeID
	members     map[types.NodeID]bool

	// leader-only; valid only while state == Leader
	nextIndex  map[types.NodeID]types.LogIndex
	matchIndex map[types.NodeID]types.LogIndex

	lastHeartbeat time.Time
	rnd           *rand.Rand

	applyMu      sync.Mutex
	lastApplied  types.LogIndex

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates an engine for self among members (self included), backed
// by l, driving applier as entries commit, sending messages through
// transport, and checking every inbound message against detector.
func New(self types.NodeID, members []types.NodeID, cfg Config, l *consensuslog.Log, transport Transport, detector Detector, applier Applier) (*Engine, error) {
	meta, err := l.LoadMetadata()
	if err != nil {
		return nil, fmt.Errorf("consensus: load persisted metadata: %w", err)
	}

	memberSet := make(map[types.NodeID]bool, len(members))
	for _, m := range members {
		memberSet[m] = true
	}
	memberSet[self] = true

	e := &Engine{
		self:        self,
		cfg:         cfg,
		log:         l,
		transport:   transport,
		detector:    detector,
		applier:     applier,
		state:       Follower,
		currentTerm: meta.CurrentTerm,
		votedFor:    meta.VotedFor,
		commitIndex: meta.CommitIndex,
		lastApplied: meta.CommitIndex,
		members:     memberSet,
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
		stopCh:      make(chan struct{}),
	}
	return e, nil
}

// Start launches the election-timeout watchdog. It starts no heartbeat
// or replication loop: the engine never sends AppendEntries itself, and
// Config.HeartbeatInterval is not read.
func (e *Engine) Start() {
	e.mu.Lock()
	e.lastHeartbeat = time.Now()
	e.mu.Unlock()

	e.wg.Add(1)
	go e.electionWatchdog()
}

// Stop halts background loops. Idempotent.
func (e *Engine) Stop() {
	select {
	case <-e.stopCh:
		return
	default:
		close(e.stopCh)
	}
	e.wg.Wait()
}

// State returns the engine's current node state.
func (e *Engine) State() NodeState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// CurrentTerm returns the engine's current term.
func (e *Engine) CurrentTerm() types.Term {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.currentTerm
}

// CommitIndex returns the highest log index known to be committed.
func (e *Engine) CommitIndex() types.LogIndex {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.commitIndex
}

// AppliedIndex returns the highest log index applied to the state machine.
func (e *Engine) AppliedIndex() types.LogIndex {
	e.applyMu.Lock()
	defer e.applyMu.Unlock()
	return e.lastApplied
}

// PeerCount returns the number of members known to this engine, including itself.
func (e *Engine) PeerCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.members)
}

// LeaderID returns the node this engine currently believes leads the
// term, or "" if no leader has been observed yet (e.g. mid-election).
func (e *Engine) LeaderID() types.NodeID {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.leaderID
}

// majority returns the number of acknowledgments required to commit,
// computed against the configured membership, not the currently
// reachable set. Called with mu held.
func (e *Engine) majority() int {
	return len(e.members)/2 + 1
}

// HandleMessage is the single entry point for all inbound consensus
// traffic. Every message is forwarded to the detector before the
// engine does anything else; a message from an isolated sender is
// refused outright.
func (e *Engine) HandleMessage(ctx context.Context, msg Message) (*Message, error) {
	e.detector.Observe(msg.From, msg)
	if e.detector.IsIsolated(msg.From) {
		return nil, ErrByzantineRejected
	}

	switch {
	case msg.VoteRequest != nil:
		resp := e.handleVoteRequest(msg.VoteRequest)
		return &Message{From: e.self, VoteResponse: resp}, nil
	case msg.VoteResponse != nil:
		e.handleVoteResponse(msg.From, msg.VoteResponse)
		return nil, nil
	case msg.AppendEntries != nil:
		resp := e.handleAppendEntries(msg.AppendEntries)
		return &Message{From: e.self, AppendEntriesResponse: resp}, nil
	case msg.AppendEntriesResponse != nil:
		e.handleAppendEntriesResponse(msg.From, msg.AppendEntriesResponse)
		return nil, nil
	case msg.ByzantineReport != nil:
		if err := e.handleByzantineReport(msg.ByzantineReport); err != nil {
			return nil, err
		}
		return nil, nil
	default:
		return nil, fmt.Errorf("consensus: empty message from %s", msg.From)
	}
}

// handleVoteRequest applies the vote rules: term freshness, one vote
// per term, and log up-to-dateness compared lexicographically by
// (last_log_term, last_log_index).
func (e *Engine) handleVoteRequest(req *VoteRequest) *VoteResponse {
	e.mu.Lock()
	defer e.mu.Unlock()

	if req.Term > e.currentTerm {
		e.stepDownLocked(req.Term)
	}
	if req.Term < e.currentTerm {
		return &VoteResponse{Term: e.currentTerm, Granted: false}
	}

	alreadyVoted := e.votedFor != "" && e.votedFor != string(req.CandidateID)
	if alreadyVoted {
		return &VoteResponse{Term: e.currentTerm, Granted: false}
	}

	lastIdx := e.log.LastIndex()
	lastTerm, err := e.log.LastTerm()
	if err != nil {
		return &VoteResponse{Term: e.currentTerm, Granted: false}
	}
	upToDate := req.LastLogTerm > lastTerm ||
		(req.LastLogTerm == lastTerm && req.LastLogIndex >= lastIdx)
	if !upToDate {
		return &VoteResponse{Term: e.currentTerm, Granted: false}
	}

	e.votedFor = string(req.CandidateID)
	e.persistMetadataLocked()
	e.lastHeartbeat = time.Now()
	return &VoteResponse{Term: e.currentTerm, Granted: true}
}

func (e *Engine) handleVoteResponse(from types.NodeID, resp *VoteResponse) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if resp.Term > e.currentTerm {
		e.stepDownLocked(resp.Term)
		return
	}
	// Vote tallying for an in-flight election is tracked by
	// startElection's local closure, not engine state, so a stale
	// response after the election concludes is simply ignored here.
	_ = from
}

// handleAppendEntries accepts entries iff (prev_log_index,
// prev_log_term) matches the local log, truncating any conflicting
// suffix, then advances commit_index.
func (e *Engine) handleAppendEntries(req *AppendEntries) *AppendEntriesResponse {
	e.mu.Lock()
	defer e.mu.Unlock()

	if req.Term < e.currentTerm {
		return &AppendEntriesResponse{Term: e.currentTerm, Success: false}
	}
	if req.Term > e.currentTerm || e.state != Follower {
		e.stepDownLocked(req.Term)
	}
	e.lastHeartbeat = time.Now()
	e.leaderID = req.LeaderID

	if req.PrevLogIndex > 0 {
		prev, err := e.log.Get(req.PrevLogIndex)
		if err != nil || prev.Term != req.PrevLogTerm {
			return &AppendEntriesResponse{Term: e.currentTerm, Success: false}
		}
	}

	lastNew := req.PrevLogIndex
	for _, entry := range req.Entries {
		if existing, err := e.log.Get(entry.Index); err == nil && existing.Term == entry.Term {
			lastNew = entry.Index
			continue
		}
		if err := e.log.TruncateAfter(entry.Index - 1); err != nil {
			log.Logger.Error().Err(err).Str("component", "consensus").Msg("truncate on append entries failed")
			return &AppendEntriesResponse{Term: e.currentTerm, Success: false}
		}
		if _, err := e.log.AppendAt(entry.Index, entry.Term, entry.Op, entry.Payload); err != nil {
			log.Logger.Error().Err(err).Str("component", "consensus").Msg("append entry failed")
			return &AppendEntriesResponse{Term: e.currentTerm, Success: false}
		}
		lastNew = entry.Index
	}

	if req.LeaderCommit > e.commitIndex {
		e.commitIndex = min(req.LeaderCommit, lastNew)
		e.persistMetadataLocked()
		go e.applyCommitted()
	}

	return &AppendEntriesResponse{Term: e.currentTerm, Success: true, MatchIndex: lastNew}
}

func (e *Engine) handleAppendEntriesResponse(from types.NodeID, resp *AppendEntriesResponse) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if resp.Term > e.currentTerm {
		e.stepDownLocked(resp.Term)
		return
	}
	if e.state != Leader {
		return
	}
	if resp.Success {
		e.matchIndex[from] = resp.MatchIndex
		e.nextIndex[from] = resp.MatchIndex + 1
		e.advanceCommitIndexLocked()
		return
	}
	if e.nextIndex[from] > 1 {
		e.nextIndex[from]--
	}
}

// advanceCommitIndexLocked advances commit_index to the highest N such
// that a majority of match_index[i] >= N and log[N].term ==
// current_term. Called with mu held.
func (e *Engine) advanceCommitIndexLocked() {
	last := e.log.LastIndex()
	for n := last; n > e.commitIndex; n-- {
		entry, err := e.log.Get(n)
		if err != nil || entry.Term != e.currentTerm {
			continue
		}
		count := 1 // self
		for id, idx := range e.matchIndex {
			if id != e.self && idx >= n {
				count++
			}
		}
		if count >= e.majority() {
			e.commitIndex = n
			e.persistMetadataLocked()
			go e.applyCommitted()
			return
		}
	}
}

// handleByzantineReport replicates an accusation as a log entry so it
// carries consensus guarantees. Only the leader accepts new entries
// directly; followers forward via Propose failing with ErrNotLeader,
// left to the caller (pkg/bft) to redirect.
func (e *Engine) handleByzantineReport(report *ByzantineReport) error {
	payload, err := encodeByzantineReport(report)
	if err != nil {
		return err
	}
	_, err = e.Propose("byzantine_report", payload)
	return err
}

// Propose appends op/payload to the log as leader and returns its
// index. Non-leaders return ErrNotLeader.
func (e *Engine) Propose(op string, payload []byte) (types.LogIndex, error) {
	e.mu.Lock()
	if e.state != Leader {
		e.mu.Unlock()
		return 0, ErrNotLeader
	}
	term := e.currentTerm
	e.mu.Unlock()

	entry, err := e.log.Append(term, op, payload)
	if err != nil {
		return 0, fmt.Errorf("consensus: propose: %w", err)
	}

	e.mu.Lock()
	e.matchIndex[e.self] = entry.Index
	e.advanceCommitIndexLocked()
	e.mu.Unlock()

	return entry.Index, nil
}

// stepDownLocked transitions to Follower at a new, higher term,
// resetting per-term vote state. Called with mu held.
func (e *Engine) stepDownLocked(term types.Term) {
	e.currentTerm = term
	e.votedFor = ""
	e.state = Follower
	e.persistMetadataLocked()
}

func (e *Engine) persistMetadataLocked() {
	meta := consensuslog.Metadata{CurrentTerm: e.currentTerm, VotedFor: e.votedFor, CommitIndex: e.commitIndex}
	if err := e.log.SaveMetadata(meta); err != nil {
		log.Logger.Error().Err(err).Str("component", "consensus").Msg("persist metadata failed")
	}
}

// applyCommitted drains newly committed entries to the applier in
// index order, one at a time, from a single logical apply task.
func (e *Engine) applyCommitted() {
	e.applyMu.Lock()
	defer e.applyMu.Unlock()

	e.mu.RLock()
	target := e.commitIndex
	e.mu.RUnlock()

	for e.lastApplied < target {
		idx := e.lastApplied + 1
		entry, err := e.log.Get(idx)
		if err != nil {
			log.Logger.Error().Err(err).Str("component", "consensus").Uint64("index", uint64(idx)).Msg("apply: read entry failed")
			return
		}
		if err := e.applier.Apply(LogEntry{Index: entry.Index, Term: entry.Term, Op: entry.Op, Payload: entry.Payload}); err != nil {
			log.Logger.Error().Err(err).Str("component", "consensus").Uint64("index", uint64(idx)).Msg("apply failed")
			return
		}
		e.lastApplied = idx
	}
}

// electionWatchdog fires startElection whenever no valid heartbeat or
// granted vote has reset the timer within a randomized window.
func (e *Engine) electionWatchdog() {
	defer e.wg.Done()
	for {
		timeout := e.cfg.ElectionTimeoutMin + time.Duration(e.rnd.Int63n(int64(e.cfg.ElectionTimeoutMax-e.cfg.ElectionTimeoutMin+1)))
		select {
		case <-e.stopCh:
			return
		case <-time.After(timeout):
			e.mu.RLock()
			stale := time.Since(e.lastHeartbeat) >= timeout && e.state != Leader
			e.mu.RUnlock()
			if stale {
				e.startElection()
			}
		}
	}
}

// startElection increments the term, votes for self, and requests
// votes from every other member; a majority promotes to Leader.
func (e *Engine) startElection() {
	e.mu.Lock()
	e.state = Candidate
	e.currentTerm++
	e.votedFor = string(e.self)
	term := e.currentTerm
	e.persistMetadataLocked()
	e.lastHeartbeat = time.Now()
	peers := make([]types.NodeID, 0, len(e.members))
	for m := range e.members {
		if m != e.self {
			peers = append(peers, m)
		}
	}
	e.mu.Unlock()

	lastIdx := e.log.LastIndex()
	lastTerm, _ := e.log.LastTerm()
	req := VoteRequest{Term: term, CandidateID: e.self, LastLogIndex: lastIdx, LastLogTerm: lastTerm}

	votes := 1 // self
	var voteMu sync.Mutex
	var wg sync.WaitGroup
	for _, p := range peers {
		wg.Add(1)
		go func(peer types.NodeID) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), e.cfg.ElectionTimeoutMin)
			defer cancel()
			if err := e.transport.Send(ctx, peer, Message{From: e.self, VoteRequest: &req}); err != nil {
				return
			}
			voteMu.Lock()
			votes++
			voteMu.Unlock()
		}(p)
	}
	wg.Wait()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Candidate || e.currentTerm != term {
		return // stepped down or a newer term observed mid-election
	}
	if votes >= e.majority() {
		e.becomeLeaderLocked()
	}
}

// becomeLeaderLocked transitions to Leader and resets per-follower
// replication indices. Called with mu held.
func (e *Engine) becomeLeaderLocked() {
	e.state = Leader
	e.leaderID = e.self
	next := e.log.LastIndex() + 1
	e.nextIndex = make(map[types.NodeID]types.LogIndex, len(e.members))
	e.matchIndex = make(map[types.NodeID]types.LogIndex, len(e.members))
	for m := range e.members {
		e.nextIndex[m] = next
		e.matchIndex[m] = 0
	}
	log.Logger.Info().
		Str("component", "consensus").
		Str("node", string(e.self)).
		Uint64("term", uint64(e.currentTerm)).
		Msg("became leader")
}
