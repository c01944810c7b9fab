package ui

import "testing"

func TestWidthBounds(t *testing.T) {
	w := Width()
	if w < 1 || w > 160 {
		t.Errorf("Width() = %d, want within [1, 160]", w)
	}
	if !IsTerminal() && w != 80 {
		t.Errorf("Width() = %d without a terminal, want the 80 fallback", w)
	}
}
