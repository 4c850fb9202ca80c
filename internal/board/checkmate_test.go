package board

import "testing"

func applyMoves(t *testing.T, pos *Position, moves ...string) *Position {
	t.Helper()
	for _, s := range moves {
		m, err := ParseMove(s, pos)
		if err != nil {
			t.Fatalf("move %s: %v", s, err)
		}
		pos = pos.Apply(m)
	}
	return pos
}

func TestFoolsMate(t *testing.T) {
	pos := applyMoves(t, NewPosition(), "f2f3", "e7e5", "g2g4", "d8h4")

	if !pos.InCheck() {
		t.Error("white should be in check")
	}
	if !pos.IsCheckmate() {
		t.Error("fool's mate should be checkmate")
	}
	if pos.IsStalemate() {
		t.Error("checkmate is not stalemate")
	}
}

func TestBackRankMate(t *testing.T) {
	pos, err := ParseFEN("R5k1/5ppp/8/8/8/8/8/7K b - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	if !pos.IsCheckmate() {
		t.Error("back-rank position should be checkmate")
	}
}

func TestStalemate(t *testing.T) {
	pos, err := ParseFEN("7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")
	if err != nil {
		t.Fatal(err)
	}

	if pos.InCheck() {
		t.Error("stalemated king is not in check")
	}
	if pos.LegalMoves().Len() != 0 {
		t.Errorf("expected no legal moves, got %d", pos.LegalMoves().Len())
	}
	if !pos.IsStalemate() {
		t.Error("position should be stalemate")
	}
	if pos.IsCheckmate() {
		t.Error("stalemate is not checkmate")
	}
}

func TestCheckEvasionsOnly(t *testing.T) {
	// White king on e1 checked by the rook on e8; every legal move must
	// resolve the check.
	pos, err := ParseFEN("4r2k/8/8/8/8/8/3P4/4K3 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}

	moves := pos.LegalMoves()
	if moves.Len() == 0 {
		t.Fatal("expected evasions")
	}
	for i := 0; i < moves.Len(); i++ {
		child := pos.Apply(moves.Get(i))
		if child.IsSquareAttacked(child.KingSquare[White], Black) {
			t.Errorf("move %s leaves the king in check", moves.Get(i))
		}
	}
}
