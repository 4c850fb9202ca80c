// Package eval provides the static evaluation consumed by the search. The
// rating is White-positive: the maximizing side is always White.
package eval

import (
	"math"

	"github.com/walter298/agentsmith/internal/board"
)

// Rating is a signed position score. Centipawn-scaled, but real-valued so
// the voting weights (which involve 2^depth) never overflow.
type Rating float64

// CheckmateRating is the magnitude of a checkmated terminal score. It is
// strictly inside the Worst extremes so a forced mate still wins the
// strict-comparison update in the search.
const CheckmateRating Rating = 1_000_000

// Worst returns the sentinel every search starts from: the rating no real
// child can fail to beat for the given polarity.
func Worst(maximizing bool) Rating {
	if maximizing {
		return Rating(math.Inf(-1))
	}
	return Rating(math.Inf(1))
}

// Checkmated returns the terminal rating for the side to move being mated.
func Checkmated(maximizing bool) Rating {
	if maximizing {
		return -CheckmateRating
	}
	return CheckmateRating
}

var pieceRatings = [6]Rating{
	board.Pawn:   100,
	board.Knight: 320,
	board.Bishop: 330,
	board.Rook:   500,
	board.Queen:  900,
	board.King:   20000,
}

// PieceRating returns the material value of a piece type.
func PieceRating(pt board.PieceType) Rating {
	if pt >= board.NoPieceType {
		return 0
	}
	return pieceRatings[pt]
}

// Piece-square tables from White's perspective, index 0 = A1. Mirrored for
// Black.
var pawnTable = [64]Rating{
	0, 0, 0, 0, 0, 0, 0, 0,
	5, 10, 10, -20, -20, 10, 10, 5,
	5, -5, -10, 0, 0, -10, -5, 5,
	0, 0, 0, 20, 20, 0, 0, 0,
	5, 5, 10, 25, 25, 10, 5, 5,
	10, 10, 20, 30, 30, 20, 10, 10,
	50, 50, 50, 50, 50, 50, 50, 50,
	0, 0, 0, 0, 0, 0, 0, 0,
}

var knightTable = [64]Rating{
	-50, -40, -30, -30, -30, -30, -40, -50,
	-40, -20, 0, 5, 5, 0, -20, -40,
	-30, 5, 10, 15, 15, 10, 5, -30,
	-30, 0, 15, 20, 20, 15, 0, -30,
	-30, 5, 15, 20, 20, 15, 5, -30,
	-30, 0, 10, 15, 15, 10, 0, -30,
	-40, -20, 0, 0, 0, 0, -20, -40,
	-50, -40, -30, -30, -30, -30, -40, -50,
}

var bishopTable = [64]Rating{
	-20, -10, -10, -10, -10, -10, -10, -20,
	-10, 5, 0, 0, 0, 0, 5, -10,
	-10, 10, 10, 10, 10, 10, 10, -10,
	-10, 0, 10, 10, 10, 10, 0, -10,
	-10, 5, 5, 10, 10, 5, 5, -10,
	-10, 0, 5, 10, 10, 5, 0, -10,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-20, -10, -10, -10, -10, -10, -10, -20,
}

var rookTable = [64]Rating{
	0, 0, 0, 5, 5, 0, 0, 0,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	5, 10, 10, 10, 10, 10, 10, 5,
	0, 0, 0, 0, 0, 0, 0, 0,
}

var queenTable = [64]Rating{
	-20, -10, -10, -5, -5, -10, -10, -20,
	-10, 0, 5, 0, 0, 0, 0, -10,
	-10, 5, 5, 5, 5, 5, 0, -10,
	0, 0, 5, 5, 5, 5, 0, -5,
	-5, 0, 5, 5, 5, 5, 0, -5,
	-10, 0, 5, 5, 5, 5, 0, -10,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-20, -10, -10, -5, -5, -10, -10, -20,
}

var kingTable = [64]Rating{
	20, 30, 10, 0, 0, 10, 30, 20,
	20, 20, 0, 0, 0, 0, 20, 20,
	-10, -20, -20, -20, -20, -20, -20, -10,
	-20, -30, -30, -40, -40, -30, -30, -20,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
}

var squareTables = [6]*[64]Rating{
	board.Pawn:   &pawnTable,
	board.Knight: &knightTable,
	board.Bishop: &bishopTable,
	board.Rook:   &rookTable,
	board.Queen:  &queenTable,
	board.King:   &kingTable,
}

// Static returns the heuristic rating of a position: material plus
// piece-square bonuses, White-positive.
func Static(pos *board.Position) Rating {
	var score Rating
	for pt := board.Pawn; pt <= board.King; pt++ {
		table := squareTables[pt]

		white := pos.Pieces[board.White][pt]
		for white != 0 {
			sq := white.PopLSB()
			score += pieceRatings[pt] + table[sq]
		}

		black := pos.Pieces[board.Black][pt]
		for black != 0 {
			sq := black.PopLSB()
			score -= pieceRatings[pt] + table[sq^56] // mirror rank
		}
	}
	return score
}
