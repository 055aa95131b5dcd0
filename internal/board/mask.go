package board

import (
	"math/bits"
)

// Mask is a 32-bit board set where each bit corresponds to a dark square.
// Bit 0 = B1, bit 31 = G8 (square-index order).
type Mask uint32

// SquareMask returns a mask with only the given square set.
func SquareMask(sq Square) Mask {
	return 1 << sq
}

// Set sets the bit at the given square.
func (m Mask) Set(sq Square) Mask {
	return m | (1 << sq)
}

// Clear clears the bit at the given square.
func (m Mask) Clear(sq Square) Mask {
	return m &^ (1 << sq)
}

// IsSet returns true if the bit at the given square is set.
func (m Mask) IsSet(sq Square) bool {
	return m&(1<<sq) != 0
}

// PopCount returns the number of set bits.
func (m Mask) PopCount() int {
	return bits.OnesCount32(uint32(m))
}

// LSB returns the lowest set square index.
func (m Mask) LSB() Square {
	if m == 0 {
		return NoSquare
	}
	return Square(bits.TrailingZeros32(uint32(m)))
}

// PopLSB removes and returns the lowest set square.
func (m *Mask) PopLSB() Square {
	sq := m.LSB()
	*m &= *m - 1
	return sq
}

// Empty returns true if no bits are set.
func (m Mask) Empty() bool {
	return m == 0
}

// Squares returns the set squares in index order.
func (m Mask) Squares() []Square {
	squares := make([]Square, 0, m.PopCount())
	for m != 0 {
		squares = append(squares, m.PopLSB())
	}
	return squares
}
