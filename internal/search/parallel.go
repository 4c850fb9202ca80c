package search

import (
	"runtime"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/walter298/agentsmith/internal/board"
	"github.com/walter298/agentsmith/internal/eval"
)

// ParallelSearch dispatches one search across a fleet of workers sharing a
// transposition table, then combines their answers by weighted vote.
// Worker 0 is the main thread; the rest are helpers.
type ParallelSearch struct {
	workers       []*Worker
	stopRequested atomic.Bool
	table         *Table
	log           zerolog.Logger
}

// NewParallelSearch builds the worker fleet. threads <= 0 means one worker
// per hardware core.
func NewParallelSearch(table *Table, threads int, logger zerolog.Logger) *ParallelSearch {
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	s := &ParallelSearch{table: table, log: logger}
	s.workers = make([]*Worker, 0, threads)
	s.workers = append(s.workers, newWorker(false, table, &s.stopRequested))
	for i := 1; i < threads; i++ {
		s.workers = append(s.workers, newWorker(true, table, &s.stopRequested))
	}

	logger.Debug().Int("workers", threads).Msg("search-fleet-ready")
	return s
}

// Workers returns the fleet size.
func (s *ParallelSearch) Workers() int {
	return len(s.workers)
}

// assignDepths staggers worker depths: the main worker searches the full
// depth, helpers alternate between full depth and one ply less so the
// table fills at two horizons at once.
func (s *ParallelSearch) assignDepths(maxDepth uint8) {
	if maxDepth < 1 {
		panic("search depth must be at least 1")
	}
	for i, w := range s.workers {
		switch {
		case !w.helper:
			w.depth = maxDepth
		case maxDepth == 1:
			w.depth = maxDepth
		case i%2 == 1:
			w.depth = maxDepth
		default:
			w.depth = maxDepth - 1
		}
	}
}

// FindBestMove searches pos to the given depth on every worker and returns
// the vote winner. ok is false when no move can be produced: a terminal
// position, a root repetition, or a cancelled search.
func (s *ParallelSearch) FindBestMove(pos *board.Position, depth uint8, rep *board.RepetitionMap) (board.Move, bool) {
	for _, w := range s.workers {
		w.arena.reset()
	}
	s.assignDepths(depth)
	s.stopRequested.Store(false)
	s.table.NewSearch()

	results := make([]MoveRating, len(s.workers))
	var g errgroup.Group
	for i, w := range s.workers {
		g.Go(func() error {
			results[i] = w.Search(pos, rep)
			return nil
		})
	}
	_ = g.Wait() // workers never error; Wait is the join barrier

	// a cancelled or terminal worker poisons the whole dispatch
	if lo.SomeBy(results, func(mr MoveRating) bool { return mr.Move == board.NoMove }) {
		return board.NoMove, false
	}
	return s.voteForBestMove(results), true
}

// voteForBestMove combines per-worker results. Any forced mate wins
// outright, quickest first; otherwise each worker's weight accumulates on
// its move and the heaviest move wins, first-seen order breaking ties.
func (s *ParallelSearch) voteForBestMove(results []MoveRating) board.Move {
	if lo.SomeBy(results, func(mr MoveRating) bool { return mr.CheckmateLevel != NoCheckmate }) {
		quickest := results[0]
		for _, mr := range results[1:] {
			if mateLevel(mr) < mateLevel(quickest) {
				quickest = mr
			}
		}
		s.log.Debug().
			Int("checkmate-level", quickest.CheckmateLevel).
			Str("move", quickest.Move.String()).
			Msg("forced-mate-found")
		return quickest.Move
	}

	worst := results[0].Rating
	bestScore := results[0].Rating
	for _, mr := range results[1:] {
		if mr.Rating < worst {
			worst = mr.Rating
		}
		if mr.Rating > bestScore {
			bestScore = mr.Rating
		}
	}
	maxDiff := bestScore - worst

	votes := make(map[board.Move]eval.Rating, len(results))
	for i, mr := range results {
		votes[mr.Move] += s.workers[i].votingWeight(mr, worst, maxDiff)
	}

	bestMove := board.NoMove
	var bestVote eval.Rating
	for _, mr := range results {
		if votes[mr.Move] > bestVote {
			bestVote = votes[mr.Move]
			bestMove = mr.Move
		}
	}
	return bestMove
}

func mateLevel(mr MoveRating) int {
	if mr.CheckmateLevel == NoCheckmate {
		return int(MaxPonderDepth)
	}
	return mr.CheckmateLevel
}

// Cancel asks every in-flight worker to return promptly.
func (s *ParallelSearch) Cancel() {
	s.stopRequested.Store(true)
}
