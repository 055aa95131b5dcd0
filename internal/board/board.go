package board

import (
	"fmt"
	"strings"
)

// Board is the bit-packed state of all pieces on the 32 dark squares.
// Invariants: black ⊆ occupied, king ⊆ occupied.
type Board struct {
	occ   Mask // occupied squares
	black Mask // set => the piece on the square is black
	king  Mask // set => the piece on the square is a king
}

// Setup returns the standard Thai Checkers opening: 8 black MEN on the dark
// squares of ranks 1-2, 8 white MEN on ranks 7-8, everything a MAN.
func Setup() Board {
	var b Board
	for sq := B1; sq <= G2; sq++ {
		b.occ = b.occ.Set(sq)
		b.black = b.black.Set(sq)
	}
	for sq := B7; sq <= G8; sq++ {
		b.occ = b.occ.Set(sq)
	}
	return b
}

// FromMasks reconstructs a Board from its raw masks (checkpoint decode).
// Color and king bits outside the occupancy are discarded.
func FromMasks(occ, black, king uint32) Board {
	return Board{
		occ:   Mask(occ),
		black: Mask(black) & Mask(occ),
		king:  Mask(king) & Mask(occ),
	}
}

// Masks returns the raw (occupied, black, king) masks.
func (b Board) Masks() (occ, black, king uint32) {
	return uint32(b.occ), uint32(b.black), uint32(b.king)
}

// IsOccupied reports whether a piece sits on the square.
func (b Board) IsOccupied(sq Square) bool {
	return b.occ.IsSet(sq)
}

// IsBlack reports whether the piece on the square is black.
// Undefined (false) where the square is empty.
func (b Board) IsBlack(sq Square) bool {
	return b.black.IsSet(sq)
}

// IsKing reports whether the piece on the square is a king.
// Undefined (false) where the square is empty.
func (b Board) IsKing(sq Square) bool {
	return b.king.IsSet(sq)
}

// ColorAt returns the color of the piece on the square, or NoColor if empty.
func (b Board) ColorAt(sq Square) Color {
	if !b.occ.IsSet(sq) {
		return NoColor
	}
	if b.black.IsSet(sq) {
		return Black
	}
	return White
}

// RankAt returns the rank of the piece on the square, or NoPieceRank if empty.
func (b Board) RankAt(sq Square) PieceRank {
	if !b.occ.IsSet(sq) {
		return NoPieceRank
	}
	if b.king.IsSet(sq) {
		return King
	}
	return Man
}

// Place puts a piece on an empty square. Used by tests and board builders;
// the move generator only ever uses Move/Remove/Promote.
func (b *Board) Place(sq Square, c Color, r PieceRank) {
	b.occ = b.occ.Set(sq)
	if c == Black {
		b.black = b.black.Set(sq)
	} else {
		b.black = b.black.Clear(sq)
	}
	if r == King {
		b.king = b.king.Set(sq)
	} else {
		b.king = b.king.Clear(sq)
	}
}

// Move transfers the piece on from to the empty square to, carrying its
// color and king bits. The caller guarantees from is occupied and to is not.
func (b *Board) Move(from, to Square) {
	fromBit := SquareMask(from)
	toBit := SquareMask(to)
	b.occ = (b.occ &^ fromBit) | toBit
	if b.black&fromBit != 0 {
		b.black = (b.black &^ fromBit) | toBit
	} else {
		b.black &^= fromBit
	}
	if b.king&fromBit != 0 {
		b.king = (b.king &^ fromBit) | toBit
	} else {
		b.king &^= fromBit
	}
}

// Remove clears all bits at the square.
func (b *Board) Remove(sq Square) {
	bit := SquareMask(sq)
	b.occ &^= bit
	b.black &^= bit
	b.king &^= bit
}

// Promote sets the king bit at the square. No-op on a king.
func (b *Board) Promote(sq Square) {
	b.king = b.king.Set(sq)
}

// PieceCount returns the number of pieces of the given color.
func (b Board) PieceCount(c Color) int {
	if c == Black {
		return b.black.PopCount()
	}
	return (b.occ &^ b.black).PopCount()
}

// Pieces returns the squares holding pieces of the given color, in index order.
func (b Board) Pieces(c Color) []Square {
	if c == Black {
		return b.black.Squares()
	}
	return (b.occ &^ b.black).Squares()
}

// Hash returns a stable 64-bit digest of the board:
//   - bits 32..63: occupancy of the 32 squares,
//   - bits 16..31: color bit per piece in square-index order (first 16 pieces),
//   - bits 0..15:  king bit per piece in square-index order (first 16 pieces).
//
// The digest excludes side-to-move and, with at most 16 pieces on the board
// (always true from the standard setup), uniquely identifies the position.
func (b Board) Hash() uint64 {
	h := uint64(b.occ) << 32
	count := 0
	occ := b.occ
	for occ != 0 {
		sq := occ.PopLSB()
		if count >= 16 {
			break
		}
		if b.black.IsSet(sq) {
			h |= 1 << (count + 16)
		}
		if b.king.IsSet(sq) {
			h |= 1 << count
		}
		count++
	}
	return h
}

// FromHash reconstructs a Board from its Hash digest. Exact inverse of Hash
// for boards with at most 16 pieces.
func FromHash(h uint64) Board {
	var b Board
	count := 0
	for i := Square(0); i < NoSquare; i++ {
		if h&(1<<(32+uint(i))) == 0 {
			continue
		}
		b.occ = b.occ.Set(i)
		if count < 16 {
			if h&(1<<(count+16)) != 0 {
				b.black = b.black.Set(i)
			}
			if h&(1<<count) != 0 {
				b.king = b.king.Set(i)
			}
			count++
		}
	}
	return b
}

// String returns a board diagram with files A-H across the top and ranks
// down the side. Light squares print as ".", empty dark squares as spaces.
func (b Board) String() string {
	var sb strings.Builder
	sb.WriteString("   ")
	for f := 0; f < 8; f++ {
		fmt.Fprintf(&sb, "%c ", 'A'+f)
	}
	sb.WriteByte('\n')
	for r := 0; r < 8; r++ {
		fmt.Fprintf(&sb, " %d ", r+1)
		for f := 0; f < 8; f++ {
			if (f+r)%2 == 0 {
				sb.WriteString(". ")
				continue
			}
			sq, _ := NewSquare(f, r)
			if !b.IsOccupied(sq) {
				sb.WriteString("  ")
				continue
			}
			sb.WriteString(Glyph(b.ColorAt(sq), b.RankAt(sq)))
			sb.WriteByte(' ')
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
