package safemath

import "testing"

func expectPanic(t *testing.T, name string, f func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s should panic", name)
		}
	}()
	f()
}

func TestAdd(t *testing.T) {
	if Add(uint8(200), 55) != 255 {
		t.Error("Add(200, 55)")
	}
	expectPanic(t, "Add overflow", func() { Add(uint8(200), 56) })
}

func TestSub(t *testing.T) {
	if Sub(uint8(5), 5) != 0 {
		t.Error("Sub(5, 5)")
	}
	expectPanic(t, "Sub underflow", func() { Sub(uint8(5), 6) })
}

func TestSubToMin(t *testing.T) {
	if SubToMin(uint8(10), 3, 0) != 7 {
		t.Error("SubToMin(10, 3, 0)")
	}
	if SubToMin(uint8(10), 30, 0) != 0 {
		t.Error("SubToMin clamps at the floor")
	}
	if SubToMin(uint8(10), 30, 4) != 4 {
		t.Error("SubToMin clamps at a nonzero floor")
	}
	expectPanic(t, "value below floor", func() { SubToMin(uint8(3), 1, 4) })
}

func TestShl(t *testing.T) {
	if Shl(uint8(1), 7) != 128 {
		t.Error("Shl(1, 7)")
	}
	expectPanic(t, "shift out of range", func() { Shl(uint8(1), 8) })
}
