package search

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/walter298/agentsmith/internal/board"
)

func searchPosition(t *testing.T, w *Worker, fen string, depth uint8) MoveRating {
	t.Helper()
	pos := mustFEN(t, fen)
	rep := board.NewRepetitionMap()
	rep.Push(pos)
	w.depth = depth
	return w.Search(pos, rep)
}

func TestWorkerFindsMateInOne(t *testing.T) {
	w := testWorker(t)
	result := searchPosition(t, w, "6k1/5ppp/8/8/8/8/5PPP/R6K w - - 0 1", 3)

	require.Equal(t, "a1a8", result.Move.String())
	require.Equal(t, 1, result.CheckmateLevel,
		"the mated node is one ply from the root")
}

func TestWorkerFindsMateInOneForBlack(t *testing.T) {
	w := testWorker(t)
	result := searchPosition(t, w, "r6k/5ppp/8/8/8/8/5PPP/6K1 b - - 0 1", 3)

	require.Equal(t, "a8a1", result.Move.String())
	require.Equal(t, 1, result.CheckmateLevel)
}

func TestWorkerReturnsNullOnTerminalPosition(t *testing.T) {
	w := testWorker(t)

	// Stalemate: black to move, no legal moves, not in check.
	result := searchPosition(t, w, "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1", 1)
	require.Equal(t, board.NoMove, result.Move)
	require.Equal(t, NoCheckmate, result.CheckmateLevel)
	require.Zero(t, result.Rating)
}

func TestWorkerReportsRootCheckmate(t *testing.T) {
	w := testWorker(t)

	// Black is already mated; searching from the mated side reports the
	// root as the checkmate level.
	result := searchPosition(t, w, "R5k1/5ppp/8/8/8/8/8/7K b - - 0 1", 2)
	require.Equal(t, board.NoMove, result.Move)
	require.Equal(t, 0, result.CheckmateLevel)
}

func TestWorkerIsDeterministic(t *testing.T) {
	w := testWorker(t)
	fen := "r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq - 2 3"

	first := searchPosition(t, w, fen, 3)
	second := searchPosition(t, w, fen, 3)
	require.Equal(t, first.Move, second.Move,
		"the main worker must answer identically on identical input")
}

func TestWorkerAvoidsThirdRepetitionWhenWinning(t *testing.T) {
	w := testWorker(t)

	// White is a rook up. The position after a2b2 has already occurred
	// twice; repeating it a third time scores 0, so the search must
	// prefer any advantage-keeping alternative.
	pos := mustFEN(t, "7k/8/8/8/8/8/R7/7K w - - 0 1")
	repeating, err := board.ParseMove("a2b2", pos)
	require.NoError(t, err)

	rep := board.NewRepetitionMap()
	rep.Push(pos)
	child := pos.Apply(repeating)
	rep.Push(child)
	rep.Push(child)

	w.depth = 2
	result := w.Search(pos, rep)

	require.NotEqual(t, repeating, result.Move)
	require.Greater(t, float64(result.Rating), 0.0,
		"the rook advantage must survive")
}

func TestWorkerRootRepetitionIsInvalid(t *testing.T) {
	w := testWorker(t)

	pos := mustFEN(t, "7k/8/8/8/8/8/R7/7K w - - 0 1")
	rep := board.NewRepetitionMap()
	rep.Push(pos)
	rep.Push(pos)
	rep.Push(pos)

	w.depth = 3
	result := w.Search(pos, rep)
	require.Equal(t, board.NoMove, result.Move)
	require.Zero(t, result.Rating)
}

func TestWorkerStopsPromptly(t *testing.T) {
	var stop atomic.Bool
	w := newWorker(false, NewTable(1), &stop)
	w.depth = 30

	pos := mustFEN(t, "r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq - 2 3")
	rep := board.NewRepetitionMap()
	rep.Push(pos)

	done := make(chan MoveRating, 1)
	go func() {
		done <- w.Search(pos, rep)
	}()

	time.Sleep(10 * time.Millisecond)
	stop.Store(true)

	select {
	case result := <-done:
		require.Equal(t, board.NoMove, result.Move,
			"a cancelled search returns the null move")
	case <-time.After(5 * time.Second):
		t.Fatal("search did not honor the stop flag")
	}
}

func TestHelperRootIgnoresTableEntry(t *testing.T) {
	table := NewTable(1)
	var stop atomic.Bool

	pos := board.NewPosition()
	rep := board.NewRepetitionMap()
	rep.Push(pos)

	// Poison the root entry with a fake "best" move at absurd depth; a
	// helper must search past it, a non-helper would consume it.
	decoy, err := board.ParseMove("a2a3", pos)
	require.NoError(t, err)
	table.Store(pos, PositionEntry{BestMove: decoy, Rating: 12345, Depth: 200, Bound: InWindow})

	helper := newWorker(true, table, &stop)
	helper.depth = 2
	result := helper.Search(pos, rep)
	require.NotEqual(t, float64(12345), float64(result.Rating),
		"a helper's root search must not short-circuit on the cached entry")

	main := newWorker(false, table, &stop)
	main.depth = 2
	mainResult := main.Search(pos, rep)
	require.Equal(t, decoy, mainResult.Move,
		"the main worker consumes the in-window root entry")
}

func TestKillerRingWrapsAround(t *testing.T) {
	var ring killerRing

	m1 := board.NewMove(board.A2, board.A3)
	m2 := board.NewMove(board.B2, board.B3)
	m3 := board.NewMove(board.C2, board.C3)
	m4 := board.NewMove(board.D2, board.D3)

	ring.insert(m1)
	ring.insert(m2)
	ring.insert(m3)
	require.Equal(t, [MaxKillerMoves]board.Move{m1, m2, m3}, ring.moves)

	// The fourth insert evicts the oldest entry.
	ring.insert(m4)
	require.Equal(t, [MaxKillerMoves]board.Move{m4, m2, m3}, ring.moves)
}
