package board

import (
	"fmt"
	"strconv"
	"strings"
)

// StartFEN is the standard starting position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ParseFEN builds a Position from a FEN string.
func ParseFEN(fen string) (*Position, error) {
	parts := strings.Fields(fen)
	if len(parts) < 4 {
		return nil, fmt.Errorf("invalid FEN: need at least 4 fields, got %d", len(parts))
	}

	pos := &Position{
		EnPassant:      NoSquare,
		FullMoveNumber: 1,
	}
	pos.KingSquare[White] = NoSquare
	pos.KingSquare[Black] = NoSquare

	if err := parsePlacement(pos, parts[0]); err != nil {
		return nil, err
	}

	switch parts[1] {
	case "w":
		pos.SideToMove = White
	case "b":
		pos.SideToMove = Black
	default:
		return nil, fmt.Errorf("invalid side to move %q", parts[1])
	}

	if parts[2] != "-" {
		for _, c := range parts[2] {
			switch c {
			case 'K':
				pos.CastlingRights |= WhiteKingSideCastle
			case 'Q':
				pos.CastlingRights |= WhiteQueenSideCastle
			case 'k':
				pos.CastlingRights |= BlackKingSideCastle
			case 'q':
				pos.CastlingRights |= BlackQueenSideCastle
			default:
				return nil, fmt.Errorf("invalid castling character %q", c)
			}
		}
	}

	if parts[3] != "-" {
		sq, err := ParseSquare(parts[3])
		if err != nil {
			return nil, fmt.Errorf("invalid en passant square %q", parts[3])
		}
		pos.EnPassant = sq
	}

	if len(parts) > 4 {
		hmc, err := strconv.Atoi(parts[4])
		if err != nil {
			return nil, fmt.Errorf("invalid half-move clock %q", parts[4])
		}
		pos.HalfMoveClock = hmc
	}
	if len(parts) > 5 {
		fmn, err := strconv.Atoi(parts[5])
		if err != nil {
			return nil, fmt.Errorf("invalid full-move number %q", parts[5])
		}
		pos.FullMoveNumber = fmn
	}

	pos.Hash = pos.computeHash()
	pos.updateCheckers()
	return pos, nil
}

func parsePlacement(pos *Position, placement string) error {
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return fmt.Errorf("invalid placement: need 8 ranks, got %d", len(ranks))
	}

	for i, rankStr := range ranks {
		rank := 7 - i
		file := 0
		for _, c := range rankStr {
			if file > 7 {
				return fmt.Errorf("too many squares in rank %d", rank+1)
			}
			if c >= '1' && c <= '8' {
				file += int(c - '0')
				continue
			}
			piece := PieceFromChar(byte(c))
			if piece == NoPiece {
				return fmt.Errorf("invalid piece character %q", c)
			}
			pos.setPiece(piece, NewSquare(file, rank))
			file++
		}
		if file != 8 {
			return fmt.Errorf("rank %d has %d squares", rank+1, file)
		}
	}
	return nil
}

// FEN returns the FEN representation of the position.
func (p *Position) FEN() string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			piece := p.PieceAt(NewSquare(file, rank))
			if piece == NoPiece {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			sb.WriteString(piece.String())
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}

	sb.WriteByte(' ')
	if p.SideToMove == White {
		sb.WriteByte('w')
	} else {
		sb.WriteByte('b')
	}
	sb.WriteByte(' ')
	sb.WriteString(p.CastlingRights.String())
	sb.WriteByte(' ')
	sb.WriteString(p.EnPassant.String())
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(p.HalfMoveClock))
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(p.FullMoveNumber))
	return sb.String()
}

func (p *Position) computeHash() uint64 {
	var hash uint64
	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			bb := p.Pieces[c][pt]
			for bb != 0 {
				hash ^= zobristPiece[c][pt][bb.PopLSB()]
			}
		}
	}
	if p.SideToMove == Black {
		hash ^= zobristSideToMove
	}
	hash ^= zobristCastling[p.CastlingRights]
	if p.EnPassant != NoSquare {
		hash ^= zobristEnPassant[p.EnPassant.File()]
	}
	return hash
}
