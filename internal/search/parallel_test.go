package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/walter298/agentsmith/internal/board"
	"github.com/walter298/agentsmith/internal/logx"
)

func testSearcher(t *testing.T, threads int) *ParallelSearch {
	t.Helper()
	return NewParallelSearch(NewTable(1), threads, logx.New("disabled"))
}

func TestAssignDepthsStaggersHelpers(t *testing.T) {
	s := testSearcher(t, 6)
	s.assignDepths(8)

	require.Equal(t, uint8(8), s.workers[0].depth, "main worker searches full depth")
	for i := 1; i < len(s.workers); i++ {
		want := uint8(8)
		if i%2 == 0 {
			want = 7
		}
		require.Equal(t, want, s.workers[i].depth, "helper %d", i)
	}
}

func TestAssignDepthsAtDepthOne(t *testing.T) {
	s := testSearcher(t, 4)
	s.assignDepths(1)
	for i, w := range s.workers {
		require.Equal(t, uint8(1), w.depth, "worker %d", i)
	}
}

func TestFindBestMoveMateInOne(t *testing.T) {
	s := testSearcher(t, 4)

	pos := mustFEN(t, "6k1/5ppp/8/8/8/8/5PPP/R6K w - - 0 1")
	rep := board.NewRepetitionMap()
	rep.Push(pos)

	move, ok := s.FindBestMove(pos, 3, rep)
	require.True(t, ok)
	require.Equal(t, "a1a8", move.String())
}

func TestFindBestMoveStalemateReturnsNoMove(t *testing.T) {
	s := testSearcher(t, 2)

	pos := mustFEN(t, "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")
	rep := board.NewRepetitionMap()
	rep.Push(pos)

	_, ok := s.FindBestMove(pos, 1, rep)
	require.False(t, ok, "a terminal position produces no move")
}

func TestFindBestMoveSingleWorkerIsRepeatable(t *testing.T) {
	s := testSearcher(t, 1)

	pos := mustFEN(t, "r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq - 2 3")
	rep := board.NewRepetitionMap()
	rep.Push(pos)

	first, ok := s.FindBestMove(pos, 3, rep)
	require.True(t, ok)
	second, ok := s.FindBestMove(pos, 3, rep)
	require.True(t, ok)
	require.Equal(t, first, second,
		"with helpers disabled, go at the same depth answers identically")
}

func TestVoteTieBreaksOnFirstSeen(t *testing.T) {
	s := testSearcher(t, 2)
	s.assignDepths(3) // both workers at depth 3: equal base weights

	m1 := board.NewMove(board.E2, board.E4)
	m2 := board.NewMove(board.D2, board.D4)

	// Equal ratings: maxDiff is 0, the score multiplier is skipped, and
	// both moves accumulate the same weight.
	results := []MoveRating{
		{Move: m1, Rating: 5, CheckmateLevel: NoCheckmate},
		{Move: m2, Rating: 5, CheckmateLevel: NoCheckmate},
	}
	require.Equal(t, m1, s.voteForBestMove(results),
		"ties break toward the earlier-seen worker")
}

func TestVotePrefersQuickestMate(t *testing.T) {
	s := testSearcher(t, 3)
	s.assignDepths(4)

	slow := board.NewMove(board.E2, board.E4)
	quick := board.NewMove(board.D2, board.D4)

	results := []MoveRating{
		{Move: slow, Rating: 100, CheckmateLevel: 5},
		{Move: quick, Rating: 90, CheckmateLevel: 3},
		{Move: slow, Rating: 100, CheckmateLevel: NoCheckmate},
	}
	require.Equal(t, quick, s.voteForBestMove(results),
		"any mate short-circuits the weighting, quickest first")
}

func TestVotingWeights(t *testing.T) {
	s := testSearcher(t, 1)
	w := s.workers[0]
	mr := MoveRating{Rating: 10, CheckmateLevel: NoCheckmate}

	// Depth dominates the base weight exponentially.
	w.depth = 4
	deepWeight := w.votingWeight(mr, 10, 0)
	w.depth = 3
	shallowWeight := w.votingWeight(mr, 10, 0)
	require.Greater(t, float64(deepWeight), float64(shallowWeight))
	require.Equal(t, 17.0, float64(deepWeight), "1 + 2^4")
	require.Equal(t, 9.0, float64(shallowWeight), "1 + 2^3")

	// With a score spread, the whole weight scales by up to 1.2; a
	// worker sitting at the worst rating contributes nothing.
	w.depth = 3
	require.Zero(t, float64(w.votingWeight(MoveRating{Rating: 0, CheckmateLevel: NoCheckmate}, 0, 10)))
	best := w.votingWeight(MoveRating{Rating: 10, CheckmateLevel: NoCheckmate}, 0, 10)
	require.InDelta(t, 9.0*1.2, float64(best), 1e-9)

	// A known mate adds weight/level.
	mated := w.votingWeight(MoveRating{Rating: 10, CheckmateLevel: 2}, 10, 0)
	require.InDelta(t, 9.0+9.0/2, float64(mated), 1e-9)
}

func TestCancelPoisonsDispatch(t *testing.T) {
	s := testSearcher(t, 2)

	pos := mustFEN(t, "r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq - 2 3")
	rep := board.NewRepetitionMap()
	rep.Push(pos)

	done := make(chan bool, 1)
	go func() {
		_, ok := s.FindBestMove(pos, 30, rep)
		done <- ok
	}()

	// Let the dispatch reset the stop flag and start, then cancel.
	time.Sleep(50 * time.Millisecond)
	s.Cancel()

	select {
	case ok := <-done:
		require.False(t, ok, "a cancelled dispatch yields no move")
	case <-time.After(10 * time.Second):
		t.Fatal("cancelled search did not return promptly")
	}
}
