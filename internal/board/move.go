package board

import "fmt"

// Move encodes a move in 16 bits:
// bits 0-5 origin, bits 6-11 destination, bits 12-13 promotion piece
// (0=Knight .. 3=Queen), bits 14-15 kind flag.
type Move uint16

const (
	flagNormal    uint16 = 0 << 14
	flagPromotion uint16 = 1 << 14
	flagEnPassant uint16 = 2 << 14
	flagCastling  uint16 = 3 << 14
)

// NoMove is the distinguished null move.
const NoMove Move = 0

// NewMove creates a plain move.
func NewMove(from, to Square) Move {
	return Move(from) | Move(to)<<6
}

// NewPromotion creates a promotion move.
func NewPromotion(from, to Square, promo PieceType) Move {
	return Move(from) | Move(to)<<6 | Move(promo-Knight)<<12 | Move(flagPromotion)
}

// NewEnPassant creates an en passant capture.
func NewEnPassant(from, to Square) Move {
	return Move(from) | Move(to)<<6 | Move(flagEnPassant)
}

// NewCastling creates a castling move (the king's leg of it).
func NewCastling(from, to Square) Move {
	return Move(from) | Move(to)<<6 | Move(flagCastling)
}

// From returns the origin square.
func (m Move) From() Square {
	return Square(m & 0x3F)
}

// To returns the destination square.
func (m Move) To() Square {
	return Square((m >> 6) & 0x3F)
}

// Promotion returns the promoted-to piece type; only meaningful when
// IsPromotion holds.
func (m Move) Promotion() PieceType {
	return PieceType((m>>12)&3) + Knight
}

func (m Move) flag() uint16 {
	return uint16(m) & 0xC000
}

// IsPromotion reports whether the move promotes a pawn.
func (m Move) IsPromotion() bool {
	return m.flag() == flagPromotion
}

// IsCastling reports whether the move castles.
func (m Move) IsCastling() bool {
	return m.flag() == flagCastling
}

// IsEnPassant reports whether the move captures en passant.
func (m Move) IsEnPassant() bool {
	return m.flag() == flagEnPassant
}

// IsCapture reports whether the move captures a piece of pos.
func (m Move) IsCapture(pos *Position) bool {
	if m.IsEnPassant() {
		return true
	}
	return !pos.IsEmpty(m.To())
}

// String returns the UCI form, e.g. "e2e4" or "e7e8q". The null move
// renders as "0000".
func (m Move) String() string {
	if m == NoMove {
		return "0000"
	}
	s := m.From().String() + m.To().String()
	if m.IsPromotion() {
		s += string("nbrq"[m.Promotion()-Knight])
	}
	return s
}

// ParseMove resolves a UCI move string against the legal moves of pos.
func ParseMove(s string, pos *Position) (Move, error) {
	if len(s) < 4 || len(s) > 5 {
		return NoMove, fmt.Errorf("invalid move %q", s)
	}
	from, err := ParseSquare(s[0:2])
	if err != nil {
		return NoMove, err
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return NoMove, err
	}

	promo := NoPieceType
	if len(s) == 5 {
		switch s[4] {
		case 'n':
			promo = Knight
		case 'b':
			promo = Bishop
		case 'r':
			promo = Rook
		case 'q':
			promo = Queen
		default:
			return NoMove, fmt.Errorf("invalid promotion piece %q", s[4])
		}
	}

	legal := pos.LegalMoves()
	for i := 0; i < legal.Len(); i++ {
		m := legal.Get(i)
		if m.From() != from || m.To() != to {
			continue
		}
		if promo == NoPieceType && !m.IsPromotion() {
			return m, nil
		}
		if m.IsPromotion() && m.Promotion() == promo {
			return m, nil
		}
	}
	return NoMove, fmt.Errorf("illegal move %q", s)
}

// MoveList is a fixed-capacity move buffer. Chess positions have at most
// 218 legal moves, so 256 slots never overflow.
type MoveList struct {
	moves [256]Move
	count int
}

// Add appends a move.
func (ml *MoveList) Add(m Move) {
	ml.moves[ml.count] = m
	ml.count++
}

// Len returns the number of moves.
func (ml *MoveList) Len() int {
	return ml.count
}

// Get returns the move at index i.
func (ml *MoveList) Get(i int) Move {
	return ml.moves[i]
}

// Contains reports whether the list holds m.
func (ml *MoveList) Contains(m Move) bool {
	for i := 0; i < ml.count; i++ {
		if ml.moves[i] == m {
			return true
		}
	}
	return false
}

// Slice returns the moves as a slice backed by the list.
func (ml *MoveList) Slice() []Move {
	return ml.moves[:ml.count]
}
