package search

import (
	"github.com/walter298/agentsmith/internal/board"
	"github.com/walter298/agentsmith/internal/eval"
	"github.com/walter298/agentsmith/internal/safemath"
)

const (
	// MaxDepth bounds the killer-move table: levels at or beyond it keep
	// no killers.
	MaxDepth = 30

	// MaxKillerMoves is the ring-buffer size per level.
	MaxKillerMoves = 3

	// RandomizationCutoff is the level below which helper workers shuffle
	// their move ordering.
	RandomizationCutoff = 3

	// MaxMoveCount bounds the log table used by late-move reduction; chess
	// positions have at most 218 legal moves.
	MaxMoveCount = 219

	// MaxPonderDepth is the depth used for speculative background search.
	MaxPonderDepth = 255
)

// NoCheckmate marks a MoveRating that found no forced mate.
const NoCheckmate = -1

// MoveRating is the result of searching one subtree: the best move, its
// rating, whether the result must be kept out of the transposition table
// (repetition lines), and the ply from the root at which a forced mate was
// detected.
type MoveRating struct {
	Move           board.Move
	Rating         eval.Rating
	InvalidTTEntry bool
	CheckmateLevel int
}

// AlphaBeta is a pruning window. Alpha only rises and Beta only falls; the
// window is dead once they cross.
type AlphaBeta struct {
	Alpha eval.Rating
	Beta  eval.Rating
}

// NewAlphaBeta returns the full-width window.
func NewAlphaBeta() AlphaBeta {
	return AlphaBeta{Alpha: eval.Worst(true), Beta: eval.Worst(false)}
}

// Update tightens the window toward the given child rating for the
// maximizing or minimizing side.
func (ab *AlphaBeta) Update(maximizing bool, r eval.Rating) {
	if maximizing {
		if r > ab.Alpha {
			ab.Alpha = r
		}
	} else {
		if r < ab.Beta {
			ab.Beta = r
		}
	}
}

// CanPrune reports whether the window is closed.
func (ab AlphaBeta) CanPrune() bool {
	return ab.Beta <= ab.Alpha
}

// Node is a transient search frame. Level counts plies from the root;
// Remaining is the depth still to search, so Level+Remaining is constant
// along an untrimmed path. Legal moves and the heuristic rating are
// computed lazily and cached for the frame's lifetime.
type Node struct {
	Pos       *board.Position
	Rep       *board.RepetitionMap
	Level     uint8
	Remaining uint8

	moves     *board.MoveList
	rating    eval.Rating
	hasRating bool
}

func newRootNode(pos *board.Position, rep *board.RepetitionMap, depth uint8) Node {
	return Node{Pos: pos, Rep: rep, Remaining: depth}
}

// Child builds the frame for pos reached from n, searched to the given
// remaining depth (possibly trimmed below Remaining-1 by LMR).
func (n *Node) Child(pos *board.Position, remaining uint8) Node {
	return Node{
		Pos:       pos,
		Rep:       n.Rep,
		Level:     safemath.Add(n.Level, 1),
		Remaining: remaining,
	}
}

// LegalMoves returns the node's legal moves, generated once.
func (n *Node) LegalMoves() *board.MoveList {
	if n.moves == nil {
		n.moves = n.Pos.LegalMoves()
	}
	return n.moves
}

// HeuristicRating returns the static evaluation, computed once.
func (n *Node) HeuristicRating() eval.Rating {
	if !n.hasRating {
		n.rating = eval.Static(n.Pos)
		n.hasRating = true
	}
	return n.rating
}

// Done reports whether the frame has no depth left to search.
func (n *Node) Done() bool {
	return n.Remaining == 0
}
