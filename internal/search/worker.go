package search

import (
	"math"
	"sync/atomic"

	"lukechampine.com/frand"

	"github.com/walter298/agentsmith/internal/board"
	"github.com/walter298/agentsmith/internal/eval"
)

// killerRing keeps the last few quiet moves that caused a beta cutoff at
// one level. Inserts overwrite the oldest slot.
type killerRing struct {
	moves [MaxKillerMoves]board.Move
	index int
}

func (k *killerRing) insert(m board.Move) {
	k.moves[k.index] = m
	k.index++
	if k.index == MaxKillerMoves {
		k.index = 0
	}
}

// Worker runs iterative-deepening alpha-beta over a shared transposition
// table. One worker per OS thread; the main worker searches
// deterministically while helpers shuffle shallow move orderings to
// diversify the vote.
type Worker struct {
	rng    *frand.RNG
	helper bool
	stop   *atomic.Bool
	table  *Table

	killers [MaxDepth]killerRing
	arena   priorityArena

	// depth assigned by the coordinator before each dispatch
	depth uint8
}

func newWorker(helper bool, table *Table, stop *atomic.Bool) *Worker {
	return &Worker{
		rng:    frand.New(),
		helper: helper,
		stop:   stop,
		table:  table,
	}
}

// IsHelper reports whether the worker diversifies rather than leads.
func (w *Worker) IsHelper() bool {
	return w.helper
}

// Search runs iterative deepening up to the worker's assigned depth and
// returns the best move with its metadata. The repetition map is cloned so
// speculative pushes never leak into the caller's history.
func (w *Worker) Search(pos *board.Position, rep *board.RepetitionMap) MoveRating {
	rep = rep.Clone()
	maximizing := pos.SideToMove == board.White

	for d := uint8(1); d < w.depth; d++ {
		w.arena.reset()
		w.searchToDepth(pos, rep, d, maximizing)
	}
	w.arena.reset()
	return w.searchToDepth(pos, rep, w.depth, maximizing)
}

func (w *Worker) searchToDepth(pos *board.Position, rep *board.RepetitionMap, depth uint8, maximizing bool) MoveRating {
	root := newRootNode(pos, rep, depth)
	return w.tryShortCircuit(&root, NewAlphaBeta(), maximizing)
}

// wouldMakeRepetition reports whether playing m from pos lands on a
// position that could be repeated into a draw: one more occurrence after
// this move would let the opponent steer into a threefold.
func wouldMakeRepetition(pos *board.Position, m board.Move, rep *board.RepetitionMap) bool {
	if m == board.NoMove {
		return false
	}
	child := pos.Apply(m)
	return rep.Count(child)+1 >= 2
}

// tryShortCircuit resolves a node without descending when it can: terminal
// positions, repetition draws, cancellation, transposition-table cutoffs
// and exhausted depth. Otherwise it defers to bestChildPosition.
func (w *Worker) tryShortCircuit(n *Node, ab AlphaBeta, maximizing bool) MoveRating {
	if n.LegalMoves().Len() == 0 {
		ret := MoveRating{Move: board.NoMove, CheckmateLevel: NoCheckmate}
		if n.Pos.InCheck() {
			ret.Rating = eval.Checkmated(maximizing)
			ret.CheckmateLevel = int(n.Level)
		}
		return ret
	}

	if n.Rep.Count(n.Pos) >= 3 {
		return MoveRating{Move: board.NoMove, InvalidTTEntry: true, CheckmateLevel: NoCheckmate}
	}

	pvMove := board.NoMove

	if w.stop.Load() {
		return MoveRating{Move: board.NoMove, Rating: n.HeuristicRating(), CheckmateLevel: NoCheckmate}
	}

	// A helper's root must not consume a cached answer, or every helper
	// would collapse onto the main thread's move and the vote would carry
	// no information. Helpers still store on the way back.
	canUseEntry := !(w.helper && n.Level == 0)

	if !w.stop.Load() && canUseEntry {
		if entry, ok := w.table.Get(n.Pos, n.Remaining); ok {
			pvMove = entry.BestMove

			if entry.Depth >= n.Remaining && !wouldMakeRepetition(n.Pos, entry.BestMove, n.Rep) {
				switch entry.Bound {
				case InWindow:
					return MoveRating{Move: entry.BestMove, Rating: entry.Rating, CheckmateLevel: NoCheckmate}
				case LowerBound:
					if entry.Rating >= ab.Beta {
						return MoveRating{Move: entry.BestMove, Rating: entry.Rating, CheckmateLevel: NoCheckmate}
					}
					ab.Update(true, entry.Rating)
				case UpperBound:
					if entry.Rating <= ab.Alpha {
						return MoveRating{Move: entry.BestMove, Rating: entry.Rating, CheckmateLevel: NoCheckmate}
					}
					ab.Update(false, entry.Rating)
				}
			}
		}
	}

	if n.Done() {
		// never reached at the root, so the null move cannot escape upward
		return MoveRating{Move: board.NoMove, Rating: n.HeuristicRating(), CheckmateLevel: NoCheckmate}
	}
	return w.bestChildPosition(n, pvMove, ab, maximizing)
}

// bestChildPosition searches every child in priority order inside the
// window, re-searching LMR-trimmed children at full depth when they land
// inside the window, and stores the result in the transposition table.
func (w *Worker) bestChildPosition(n *Node, pvMove board.Move, ab AlphaBeta, maximizing bool) MoveRating {
	original := ab

	var killers *killerRing
	var killerMoves []board.Move
	if n.Level < MaxDepth {
		killers = &w.killers[n.Level]
		killerMoves = killers.moves[:]
	}

	priorities := w.buildMovePriorities(n, pvMove, killerMoves)
	defer w.arena.release()

	if w.helper && n.Level < RandomizationCutoff {
		w.rng.Shuffle(len(priorities), func(i, j int) {
			priorities[i], priorities[j] = priorities[j], priorities[i]
		})
	}

	best := MoveRating{Move: board.NoMove, Rating: eval.Worst(maximizing), CheckmateLevel: NoCheckmate}
	bound := InWindow
	didNotPrune := true

	for i := range priorities {
		priority := &priorities[i]

		childPos := n.Pos.Apply(priority.Move)
		n.Rep.Push(childPos)

		child := n.Child(childPos, priority.RecommendedDepth)
		childRating := w.tryShortCircuit(&child, ab, !maximizing)

		// A trimmed child that lands inside the window might only look
		// good because it was searched shallow; re-search at full depth
		// before trusting it.
		if priority.Trimmed {
			mayChoose := childRating.Rating >= ab.Alpha
			if !maximizing {
				mayChoose = childRating.Rating <= ab.Beta
			}
			if mayChoose {
				full := n.Child(childPos, n.Remaining-1)
				childRating = w.tryShortCircuit(&full, ab, !maximizing)
			}
		}
		n.Rep.Pop(childPos)

		if maximizing {
			if childRating.Rating > best.Rating {
				best = childRating
				best.Move = priority.Move
			}
		} else {
			if childRating.Rating < best.Rating {
				best = childRating
				best.Move = priority.Move
			}
		}

		ab.Update(maximizing, best.Rating)
		if ab.CanPrune() {
			if killers != nil && !priority.Move.IsCapture(n.Pos) {
				killers.insert(priority.Move)
			}
			if maximizing {
				bound = LowerBound
			} else {
				bound = UpperBound
			}
			didNotPrune = false
			break
		}

		if childRating.Rating == eval.Checkmated(!maximizing) {
			break // forced mate for the side to move; nothing beats it
		}
	}

	if didNotPrune {
		if maximizing {
			if best.Rating <= original.Alpha {
				bound = UpperBound
			}
		} else {
			if best.Rating >= original.Beta {
				bound = LowerBound
			}
		}
	}

	if !best.InvalidTTEntry {
		w.table.Store(n.Pos, PositionEntry{
			BestMove: best.Move,
			Rating:   best.Rating,
			Depth:    n.Remaining,
			Bound:    bound,
		})
	}

	// the repetition flag gates only this level's store; stop requests are
	// re-checked on the way up
	best.InvalidTTEntry = false
	return best
}

// votingWeight computes this worker's vote for its result. Deeper workers
// vote exponentially harder, a result near the best of the fleet keeps up
// to a 20% multiplier, and a quicker mate earns a bonus.
func (w *Worker) votingWeight(mr MoveRating, worst, maxDiff eval.Rating) eval.Rating {
	weight := 1 + eval.Rating(math.Pow(2, float64(w.depth)))
	if maxDiff != 0 {
		weight *= 1.2 * (mr.Rating - worst) / maxDiff
	}
	if mr.CheckmateLevel != NoCheckmate && mr.CheckmateLevel > 0 {
		weight += weight / eval.Rating(mr.CheckmateLevel)
	}
	return weight
}
