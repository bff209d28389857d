package consensus

import (
	"context"
	"testing"

	"github.com/hypermesh/stoq/pkg/consensuslog"
	"github.com/hypermesh/stoq/pkg/storage"
	"github.com/hypermesh/stoq/pkg/types"
	"github.com/stretchr/testify/require"
)

type noopTransport struct{}

func (noopTransport) Send(ctx context.Context, to types.NodeID, msg Message) error { return nil }

type permissiveDetector struct{ isolated map[types.NodeID]bool }

func (d *permissiveDetector) Observe(from types.NodeID, msg Message) {}
func (d *permissiveDetector) IsIsolated(node types.NodeID) bool      { return d.isolated[node] }

type recordingApplier struct{ applied []LogEntry }

func (a *recordingApplier) Apply(entry LogEntry) error {
	a.applied = append(a.applied, entry)
	return nil
}

func newTestEngine(t *testing.T, self types.NodeID, members []types.NodeID) (*Engine, *recordingApplier) {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	l, err := consensuslog.Open(store)
	require.NoError(t, err)

	applier := &recordingApplier{}
	e, err := New(self, members, DefaultConfig(), l, noopTransport{}, &permissiveDetector{isolated: map[types.NodeID]bool{}}, applier)
	require.NoError(t, err)
	return e, applier
}

func TestVoteGrantedForUpToDateCandidate(t *testing.T) {
	e, _ := newTestEngine(t, "node-1", []types.NodeID{"node-2", "node-3"})

	resp, err := e.HandleMessage(context.Background(), Message{
		From: "node-2",
		VoteRequest: &VoteRequest{Term: 1, CandidateID: "node-2", LastLogIndex: 0, LastLogTerm: 0},
	})
	require.NoError(t, err)
	require.True(t, resp.VoteResponse.Granted)
}

func TestVoteNotGrantedTwiceInSameTerm(t *testing.T) {
	e, _ := newTestEngine(t, "node-1", []types.NodeID{"node-2", "node-3"})
	ctx := context.Background()

	resp, err := e.HandleMessage(ctx, Message{From: "node-2", VoteRequest: &VoteRequest{Term: 1, CandidateID: "node-2"}})
	require.NoError(t, err)
	require.True(t, resp.VoteResponse.Granted)

	resp, err = e.HandleMessage(ctx, Message{From: "node-3", VoteRequest: &VoteRequest{Term: 1, CandidateID: "node-3"}})
	require.NoError(t, err)
	require.False(t, resp.VoteResponse.Granted)
}

func TestVoteRejectsStaleTerm(t *testing.T) {
	e, _ := newTestEngine(t, "node-1", []types.NodeID{"node-2"})
	e.mu.Lock()
	e.currentTerm = 5
	e.mu.Unlock()

	resp, err := e.HandleMessage(context.Background(), Message{
		From: "node-2", VoteRequest: &VoteRequest{Term: 2, CandidateID: "node-2"},
	})
	require.NoError(t, err)
	require.False(t, resp.VoteResponse.Granted)
	require.Equal(t, types.Term(5), resp.VoteResponse.Term)
}

func TestAppendEntriesRejectsLogMismatch(t *testing.T) {
	e, _ := newTestEngine(t, "node-1", []types.NodeID{"node-2"})

	resp, err := e.HandleMessage(context.Background(), Message{
		From: "node-2",
		AppendEntries: &AppendEntries{
			Term: 1, LeaderID: "node-2", PrevLogIndex: 5, PrevLogTerm: 1,
		},
	})
	require.NoError(t, err)
	require.False(t, resp.AppendEntriesResponse.Success)
}

func TestAppendEntriesAcceptsAndCommits(t *testing.T) {
	e, applier := newTestEngine(t, "node-1", []types.NodeID{"node-2"})
	ctx := context.Background()

	resp, err := e.HandleMessage(ctx, Message{
		From: "node-2",
		AppendEntries: &AppendEntries{
			Term:     1,
			LeaderID: "node-2",
			Entries: []LogEntry{
				{Index: 1, Term: 1, Op: "put", Payload: []byte("a")},
				{Index: 2, Term: 1, Op: "put", Payload: []byte("b")},
			},
			LeaderCommit: 2,
		},
	})
	require.NoError(t, err)
	require.True(t, resp.AppendEntriesResponse.Success)
	require.Equal(t, types.LogIndex(2), resp.AppendEntriesResponse.MatchIndex)

	require.Eventually(t, func() bool { return len(applier.applied) == 2 }, eventuallyTimeout, eventuallyTick)
	require.Equal(t, "put", applier.applied[0].Op)
}

func TestHandleMessageRejectsIsolatedSender(t *testing.T) {
	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	l, err := consensuslog.Open(store)
	require.NoError(t, err)

	detector := &permissiveDetector{isolated: map[types.NodeID]bool{"node-2": true}}
	e, err := New("node-1", []types.NodeID{"node-2"}, DefaultConfig(), l, noopTransport{}, detector, &recordingApplier{})
	require.NoError(t, err)

	_, err = e.HandleMessage(context.Background(), Message{From: "node-2", VoteRequest: &VoteRequest{Term: 1}})
	require.ErrorIs(t, err, ErrByzantineRejected)
}

func TestProposeFailsWhenNotLeader(t *testing.T) {
	e, _ := newTestEngine(t, "node-1", []types.NodeID{"node-2"})
	_, err := e.Propose("put", []byte("x"))
	require.ErrorIs(t, err, ErrNotLeader)
}

func TestLeaderAdvancesCommitIndexOnMajorityMatch(t *testing.T) {
	e, applier := newTestEngine(t, "node-1", []types.NodeID{"node-2", "node-3"})
	e.mu.Lock()
	e.state = Leader
	e.currentTerm = 1
	e.nextIndex = map[types.NodeID]types.LogIndex{"node-2": 1, "node-3": 1}
	e.matchIndex = map[types.NodeID]types.LogIndex{"node-2": 0, "node-3": 0}
	e.mu.Unlock()

	idx, err := e.Propose("put", []byte("x"))
	require.NoError(t, err)
	require.Equal(t, types.LogIndex(1), idx)

	_, err = e.HandleMessage(context.Background(), Message{
		From:                  "node-2",
		AppendEntriesResponse: &AppendEntriesResponse{Term: 1, Success: true, MatchIndex: 1},
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(applier.applied) == 1 }, eventuallyTimeout, eventuallyTick)
}
