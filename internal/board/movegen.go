package board

// LegalMoves generates every legal move for the side to move.
func (p *Position) LegalMoves() *MoveList {
	pseudo := &MoveList{}
	p.generatePseudoMoves(pseudo)

	legal := &MoveList{}
	pinned := p.pinned()
	for i := 0; i < pseudo.Len(); i++ {
		if m := pseudo.Get(i); p.isLegal(m, pinned) {
			legal.Add(m)
		}
	}
	return legal
}

// HasLegalMoves reports whether the side to move has any legal move.
func (p *Position) HasLegalMoves() bool {
	pseudo := &MoveList{}
	p.generatePseudoMoves(pseudo)
	pinned := p.pinned()
	for i := 0; i < pseudo.Len(); i++ {
		if p.isLegal(pseudo.Get(i), pinned) {
			return true
		}
	}
	return false
}

// IsCheckmate holds when the side to move has no legal move and is in check.
func (p *Position) IsCheckmate() bool {
	return p.InCheck() && !p.HasLegalMoves()
}

// IsStalemate holds when the side to move has no legal move and is not in
// check.
func (p *Position) IsStalemate() bool {
	return !p.InCheck() && !p.HasLegalMoves()
}

func (p *Position) generatePseudoMoves(ml *MoveList) {
	us := p.SideToMove
	occupied := p.AllOccupied
	enemies := p.Occupied[us.Other()]

	p.generatePawnMoves(ml, us, enemies, occupied)

	knights := p.Pieces[us][Knight]
	for knights != 0 {
		from := knights.PopLSB()
		attacks := KnightAttacks(from) &^ p.Occupied[us]
		for attacks != 0 {
			ml.Add(NewMove(from, attacks.PopLSB()))
		}
	}

	bishops := p.Pieces[us][Bishop]
	for bishops != 0 {
		from := bishops.PopLSB()
		attacks := BishopAttacks(from, occupied) &^ p.Occupied[us]
		for attacks != 0 {
			ml.Add(NewMove(from, attacks.PopLSB()))
		}
	}

	rooks := p.Pieces[us][Rook]
	for rooks != 0 {
		from := rooks.PopLSB()
		attacks := RookAttacks(from, occupied) &^ p.Occupied[us]
		for attacks != 0 {
			ml.Add(NewMove(from, attacks.PopLSB()))
		}
	}

	queens := p.Pieces[us][Queen]
	for queens != 0 {
		from := queens.PopLSB()
		attacks := QueenAttacks(from, occupied) &^ p.Occupied[us]
		for attacks != 0 {
			ml.Add(NewMove(from, attacks.PopLSB()))
		}
	}

	if king := p.Pieces[us][King]; king != 0 {
		from := king.LSB()
		attacks := KingAttacks(from) &^ p.Occupied[us]
		for attacks != 0 {
			ml.Add(NewMove(from, attacks.PopLSB()))
		}
	}

	p.generateCastlingMoves(ml, us)
}

func (p *Position) generatePawnMoves(ml *MoveList, us Color, enemies, occupied Bitboard) {
	pawns := p.Pieces[us][Pawn]
	empty := ^occupied

	var push1, push2, attackL, attackR, promotionRank Bitboard
	var pushDir int

	if us == White {
		push1 = pawns.North() & empty
		push2 = (push1 & Rank3).North() & empty
		attackL = pawns.NorthWest() & enemies
		attackR = pawns.NorthEast() & enemies
		promotionRank = Rank8
		pushDir = 8
	} else {
		push1 = pawns.South() & empty
		push2 = (push1 & Rank6).South() & empty
		attackL = pawns.SouthWest() & enemies
		attackR = pawns.SouthEast() & enemies
		promotionRank = Rank1
		pushDir = -8
	}

	nonPromo := push1 &^ promotionRank
	for nonPromo != 0 {
		to := nonPromo.PopLSB()
		ml.Add(NewMove(Square(int(to)-pushDir), to))
	}
	for push2 != 0 {
		to := push2.PopLSB()
		ml.Add(NewMove(Square(int(to)-2*pushDir), to))
	}

	nonPromoL := attackL &^ promotionRank
	for nonPromoL != 0 {
		to := nonPromoL.PopLSB()
		ml.Add(NewMove(Square(int(to)-pushDir+1), to))
	}
	nonPromoR := attackR &^ promotionRank
	for nonPromoR != 0 {
		to := nonPromoR.PopLSB()
		ml.Add(NewMove(Square(int(to)-pushDir-1), to))
	}

	promoPush := push1 & promotionRank
	for promoPush != 0 {
		to := promoPush.PopLSB()
		addPromotions(ml, Square(int(to)-pushDir), to)
	}
	promoL := attackL & promotionRank
	for promoL != 0 {
		to := promoL.PopLSB()
		addPromotions(ml, Square(int(to)-pushDir+1), to)
	}
	promoR := attackR & promotionRank
	for promoR != 0 {
		to := promoR.PopLSB()
		addPromotions(ml, Square(int(to)-pushDir-1), to)
	}

	if p.EnPassant != NoSquare {
		epBB := SquareBB(p.EnPassant)
		var epAttackers Bitboard
		if us == White {
			epAttackers = (epBB.SouthWest() | epBB.SouthEast()) & pawns
		} else {
			epAttackers = (epBB.NorthWest() | epBB.NorthEast()) & pawns
		}
		for epAttackers != 0 {
			ml.Add(NewEnPassant(epAttackers.PopLSB(), p.EnPassant))
		}
	}
}

func addPromotions(ml *MoveList, from, to Square) {
	ml.Add(NewPromotion(from, to, Queen))
	ml.Add(NewPromotion(from, to, Rook))
	ml.Add(NewPromotion(from, to, Bishop))
	ml.Add(NewPromotion(from, to, Knight))
}

func (p *Position) generateCastlingMoves(ml *MoveList, us Color) {
	them := us.Other()
	if us == White {
		if p.CastlingRights&WhiteKingSideCastle != 0 &&
			p.AllOccupied&(SquareBB(F1)|SquareBB(G1)) == 0 &&
			!p.IsSquareAttacked(E1, them) && !p.IsSquareAttacked(F1, them) && !p.IsSquareAttacked(G1, them) {
			ml.Add(NewCastling(E1, G1))
		}
		if p.CastlingRights&WhiteQueenSideCastle != 0 &&
			p.AllOccupied&(SquareBB(B1)|SquareBB(C1)|SquareBB(D1)) == 0 &&
			!p.IsSquareAttacked(E1, them) && !p.IsSquareAttacked(D1, them) && !p.IsSquareAttacked(C1, them) {
			ml.Add(NewCastling(E1, C1))
		}
	} else {
		if p.CastlingRights&BlackKingSideCastle != 0 &&
			p.AllOccupied&(SquareBB(F8)|SquareBB(G8)) == 0 &&
			!p.IsSquareAttacked(E8, them) && !p.IsSquareAttacked(F8, them) && !p.IsSquareAttacked(G8, them) {
			ml.Add(NewCastling(E8, G8))
		}
		if p.CastlingRights&BlackQueenSideCastle != 0 &&
			p.AllOccupied&(SquareBB(B8)|SquareBB(C8)|SquareBB(D8)) == 0 &&
			!p.IsSquareAttacked(E8, them) && !p.IsSquareAttacked(D8, them) && !p.IsSquareAttacked(C8, them) {
			ml.Add(NewCastling(E8, C8))
		}
	}
}

// isLegal filters a pseudo-legal move. Non-pinned, non-king, non-en-passant
// moves need no further validation outside check; the remaining cases use
// the pin rays, the check mask, or (for en passant) a full Apply.
func (p *Position) isLegal(m Move, pinned Bitboard) bool {
	from := m.From()
	to := m.To()
	us := p.SideToMove
	them := us.Other()
	ksq := p.KingSquare[us]
	checkers := p.Checkers

	if from == ksq {
		if m.IsCastling() {
			// castling through check was rejected during generation
			return checkers == 0
		}
		occ := p.AllOccupied &^ SquareBB(from)
		return p.AttackersByColor(to, them, occ) == 0
	}

	if checkers != 0 {
		if checkers.PopCount() > 1 {
			return false // double check, only the king may move
		}
		checker := checkers.LSB()
		validTargets := SquareBB(checker) | Between(checker, ksq)

		if m.IsEnPassant() {
			capturedSq := to - 8
			if us == Black {
				capturedSq = to + 8
			}
			if capturedSq == checker {
				return p.isLegalByApply(m)
			}
			return false
		}

		if validTargets&SquareBB(to) == 0 {
			return false
		}
		if pinned&SquareBB(from) != 0 && !Aligned(from, to, ksq) {
			return false
		}
		return true
	}

	if m.IsEnPassant() {
		// removing two pawns can open a horizontal attack on the king
		return p.isLegalByApply(m)
	}

	if pinned&SquareBB(from) == 0 {
		return true
	}
	return Aligned(from, to, ksq)
}

func (p *Position) isLegalByApply(m Move) bool {
	us := p.SideToMove
	child := p.Apply(m)
	return !child.IsSquareAttacked(child.KingSquare[us], us.Other())
}
