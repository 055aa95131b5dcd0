package board

import (
	"errors"
	"testing"
)

func TestSquareIndexRoundTrip(t *testing.T) {
	for i := 0; i < SquareCount; i++ {
		sq := Square(i)
		got, err := NewSquare(sq.File(), sq.Rank())
		if err != nil {
			t.Fatalf("NewSquare(%d, %d): %v", sq.File(), sq.Rank(), err)
		}
		if got != sq {
			t.Errorf("round trip for index %d: got %d", i, got)
		}
		if (sq.File()+sq.Rank())%2 != 1 {
			t.Errorf("square %d is not a dark square: file=%d rank=%d", i, sq.File(), sq.Rank())
		}
	}
}

func TestSquareTextRoundTrip(t *testing.T) {
	for i := 0; i < SquareCount; i++ {
		text := Square(i).String()
		sq, err := ParseSquare(text)
		if err != nil {
			t.Fatalf("ParseSquare(%q): %v", text, err)
		}
		if sq != Square(i) {
			t.Errorf("ParseSquare(%q) = %d, want %d", text, sq, i)
		}
	}
}

func TestSquareConstants(t *testing.T) {
	tests := []struct {
		sq   Square
		text string
	}{
		{B1, "B1"},
		{H1, "H1"},
		{A2, "A2"},
		{D5, "D5"},
		{E8, "E8"},
		{G8, "G8"},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			if got := tc.sq.String(); got != tc.text {
				t.Errorf("String() = %q, want %q", got, tc.text)
			}
		})
	}
}

func TestInvalidSquares(t *testing.T) {
	invalid := []string{"", "A", "A1", "I1", "A9", "a2", "B0", "A22"}
	for _, s := range invalid {
		if _, err := ParseSquare(s); !errors.Is(err, ErrInvalidCoordinates) {
			t.Errorf("ParseSquare(%q): want ErrInvalidCoordinates, got %v", s, err)
		}
	}
	if _, err := NewSquare(0, 0); !errors.Is(err, ErrInvalidCoordinates) {
		t.Errorf("NewSquare(0, 0) on a light square: want ErrInvalidCoordinates, got %v", err)
	}
	if _, err := NewSquare(-1, 3); !errors.Is(err, ErrInvalidCoordinates) {
		t.Errorf("NewSquare(-1, 3): want ErrInvalidCoordinates, got %v", err)
	}
	if _, err := NewSquare(8, 3); !errors.Is(err, ErrInvalidCoordinates) {
		t.Errorf("NewSquare(8, 3): want ErrInvalidCoordinates, got %v", err)
	}
}
