package search

import (
	"math"
	"sort"

	"github.com/walter298/agentsmith/internal/board"
	"github.com/walter298/agentsmith/internal/eval"
	"github.com/walter298/agentsmith/internal/safemath"
)

// MovePriority is a ranked candidate move. Exchange is the static material
// swing of playing the move; RecommendedDepth is the depth to search the
// child to, possibly reduced below the usual Remaining-1 by late-move
// reduction, in which case Trimmed is set.
type MovePriority struct {
	Move             board.Move
	Exchange         eval.Rating
	RecommendedDepth uint8
	Trimmed          bool
}

// log2(i+1) lookup for the reduction formula, bounded by the maximum
// number of legal moves a position can have.
var lmrLog [MaxMoveCount]float64

func init() {
	for i := range lmrLog {
		lmrLog[i] = math.Log2(float64(i) + 1)
	}
}

// lmrReduction computes the depth reduction for the move at the given
// ordering index under a parent searched to depth. The 0.99 bias rounds
// the truncation upward.
func lmrReduction(depth uint8, index int) uint8 {
	if index >= MaxMoveCount {
		index = MaxMoveCount - 1
	}
	r := math.Log2(float64(depth)+1) * lmrLog[index] / 3.14
	return uint8(r + 0.99)
}

// trim reduces the recommended depth per the LMR formula, clamped at zero.
// A second trim can only reduce further.
func (p *MovePriority) trim(parentDepth uint8, index int) {
	p.RecommendedDepth = safemath.SubToMin(p.RecommendedDepth, lmrReduction(parentDepth, index), 0)
	p.Trimmed = true
}

// priorityArena is the per-worker allocation stack for priority vectors.
// Frames are pushed on recursion entry and popped on exit, and the whole
// stack is reset between iterative-deepening iterations, so no search node
// allocates on the heap in steady state.
type priorityArena struct {
	frames [][]MovePriority
	next   int
	buf    []MovePriority // shared scratch for stable partitions
}

func (a *priorityArena) alloc(n int) []MovePriority {
	if a.next == len(a.frames) {
		a.frames = append(a.frames, make([]MovePriority, 0, 64))
	}
	frame := a.frames[a.next]
	if cap(frame) < n {
		frame = make([]MovePriority, n)
		a.frames[a.next] = frame
	}
	a.next++
	return a.frames[a.next-1][:n]
}

func (a *priorityArena) release() {
	a.next--
}

func (a *priorityArena) reset() {
	a.next = 0
}

func (a *priorityArena) scratch(n int) []MovePriority {
	if cap(a.buf) < n {
		a.buf = make([]MovePriority, n)
	}
	return a.buf[:n]
}

// exchangeRating estimates the material swing of m: the captured piece's
// value (plus promotion gain), minus the mover's value when the
// destination sits inside the enemy attack footprint.
func exchangeRating(pos *board.Position, m board.Move, enemyAttacks board.Bitboard) eval.Rating {
	var gain eval.Rating

	if m.IsEnPassant() {
		gain = eval.PieceRating(board.Pawn)
	} else if captured := pos.PieceAt(m.To()); captured != board.NoPiece {
		gain = eval.PieceRating(captured.Type())
	}

	mover := pos.PieceAt(m.From()).Type()
	if m.IsPromotion() {
		gain += eval.PieceRating(m.Promotion()) - eval.PieceRating(board.Pawn)
		mover = m.Promotion()
	}

	if enemyAttacks.IsSet(m.To()) {
		gain -= eval.PieceRating(mover)
	}
	return gain
}

// buildMovePriorities produces the ordered candidate list for a node:
//  1. all moves sorted by descending exchange rating,
//  2. the PV move swapped to the very front,
//  3. captures of and evasions from attacked allies partitioned forward,
//     most valuable attacked ally first,
//  4. killer moves partitioned forward,
//  5. the remaining tail trimmed by late-move reduction.
func (w *Worker) buildMovePriorities(n *Node, pvMove board.Move, killers []board.Move) []MovePriority {
	moves := n.LegalMoves()
	td := n.Pos.TurnData()
	enemy := n.Pos.SideToMove.Other()
	enemyAttacks := n.Pos.AttackedBy(enemy)
	remaining := n.Remaining

	priorities := w.arena.alloc(moves.Len())
	for i, m := range moves.Slice() {
		priorities[i] = MovePriority{
			Move:             m,
			Exchange:         exchangeRating(n.Pos, m, enemyAttacks),
			RecommendedDepth: safemath.Sub(remaining, 1),
		}
	}

	sort.Slice(priorities, func(i, j int) bool {
		return priorities[i].Exchange > priorities[j].Exchange
	})

	tail := movePVMoveToFront(priorities, pvMove)
	tail = w.orderCapturesAndEvasionsFirst(n.Pos, td, enemyAttacks, enemy, tail)
	tail = orderKillerMovesFirst(killers, tail)

	if remaining-1 != 0 {
		base := len(priorities) - len(tail)
		for i := range tail {
			tail[i].trim(remaining, base+i)
		}
	}
	return priorities
}

// movePVMoveToFront swaps the PV move to index 0 and returns the non-PV
// tail.
func movePVMoveToFront(priorities []MovePriority, pvMove board.Move) []MovePriority {
	if pvMove != board.NoMove {
		for i := range priorities {
			if priorities[i].Move == pvMove {
				priorities[0], priorities[i] = priorities[i], priorities[0]
				return priorities[1:]
			}
		}
	}
	return priorities
}

// orderCapturesAndEvasionsFirst walks the attacked allied pieces from most
// valuable to least and stably partitions, within the remaining tail, the
// moves that answer each threat: captures at least as valuable as the
// threatened piece, captures of an attacker, and interpositions on an
// attacker's ray.
func (w *Worker) orderCapturesAndEvasionsFirst(pos *board.Position, td board.TurnData, enemyAttacks board.Bitboard, enemy board.Color, tail []MovePriority) []MovePriority {
	for _, pt := range board.MostValuableOrder {
		attacked := td.Allies[pt] & enemyAttacks
		for attacked != 0 {
			target := attacked.PopLSB()
			info := pos.AttackersOf(target, enemy)
			threatValue := eval.PieceRating(pt)

			tail = w.stablePartition(tail, func(p MovePriority) bool {
				if p.Exchange >= threatValue {
					return true
				}
				toBB := board.SquareBB(p.Move.To())
				return toBB&info.Attackers != 0 || toBB&info.Rays != 0
			})
		}
	}
	return tail
}

// orderKillerMovesFirst partitions killer moves to the front of the tail.
func orderKillerMovesFirst(killers []board.Move, tail []MovePriority) []MovePriority {
	cut := 0
	for i := range tail {
		for _, k := range killers {
			if k != board.NoMove && tail[i].Move == k {
				tail[cut], tail[i] = tail[i], tail[cut]
				cut++
				break
			}
		}
	}
	return tail[cut:]
}

// stablePartition moves matching priorities to the front of s, preserving
// relative order, and returns the non-matching tail.
func (w *Worker) stablePartition(s []MovePriority, pred func(MovePriority) bool) []MovePriority {
	scratch := w.arena.scratch(len(s))
	k := 0
	for _, p := range s {
		if pred(p) {
			scratch[k] = p
			k++
		}
	}
	cut := k
	for _, p := range s {
		if !pred(p) {
			scratch[k] = p
			k++
		}
	}
	copy(s, scratch)
	return s[cut:]
}
