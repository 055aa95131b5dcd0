package board

import (
	"errors"
	"sort"
)

// ErrNotOccupied reports a move-generation query for an empty square.
var ErrNotOccupied = errors.New("no piece at square")

// CaptureMove is one capture outcome for a piece: where it finally lands and
// the enemy squares it removed, in capture order.
type CaptureMove struct {
	Target   Square
	Captured []Square
}

// LegalSet is the normalized move container for one piece: either regular
// destinations (possibly empty) or a non-empty set of capture outcomes.
// Captures are mandatory, so the set holds captures iff any capture exists.
type LegalSet struct {
	hasCaptures bool
	captures    []CaptureMove
	targets     []Square
}

// HasCaptures reports whether the set holds capture outcomes.
func (ls LegalSet) HasCaptures() bool { return ls.hasCaptures }

// Len returns the number of moves in the set.
func (ls LegalSet) Len() int {
	if ls.hasCaptures {
		return len(ls.captures)
	}
	return len(ls.targets)
}

// Empty reports whether the piece has no moves at all.
func (ls LegalSet) Empty() bool { return ls.Len() == 0 }

// Target returns the landing square of move i.
func (ls LegalSet) Target(i int) Square {
	if ls.hasCaptures {
		return ls.captures[i].Target
	}
	return ls.targets[i]
}

// Captured returns the captured squares of move i (nil for regular moves).
func (ls LegalSet) Captured(i int) []Square {
	if ls.hasCaptures {
		return ls.captures[i].Captured
	}
	return nil
}

// Captures returns the capture outcomes (nil for a regular set).
func (ls LegalSet) Captures() []CaptureMove {
	if !ls.hasCaptures {
		return nil
	}
	return ls.captures
}

// Targets returns the regular destinations (nil for a capture set).
func (ls LegalSet) Targets() []Square {
	if ls.hasCaptures {
		return nil
	}
	return ls.targets
}

// delta is a diagonal direction as (file, rank) increments.
type delta struct {
	df, dr int
}

// Direction order NW, NE, SW, SE from white's point of view (white advances
// toward rank 1, black toward rank 8).
var allDeltas = [4]delta{{-1, -1}, {1, -1}, {-1, 1}, {1, 1}}

// validDeltas returns the movement diagonals for the piece on sq: all four
// for a king, the two forward ones for a man. A man both steps and captures
// forward only.
func validDeltas(b Board, sq Square) []delta {
	if b.IsKing(sq) {
		return allDeltas[:]
	}
	if b.IsBlack(sq) {
		return allDeltas[2:] // toward rank 8
	}
	return allDeltas[:2] // toward rank 1
}

// step returns the square d-steps away from sq along dir, or NoSquare when
// off the board.
func step(sq Square, dir delta, n int) Square {
	f := sq.File() + dir.df*n
	r := sq.Rank() + dir.dr*n
	if !ValidCoords(f, r) {
		return NoSquare
	}
	s, _ := NewSquare(f, r)
	return s
}

// captureInDirection probes one diagonal for a single capture by the piece
// on from. A man jumps an adjacent enemy to the immediately following empty
// square; a king slides over empties, jumps the first enemy met, and may
// land only on the single square immediately beyond it.
func captureInDirection(b Board, from Square, dir delta) (over, land Square, ok bool) {
	moverBlack := b.IsBlack(from)
	if b.IsKing(from) {
		for n := 1; ; n++ {
			cur := step(from, dir, n)
			if cur == NoSquare {
				return NoSquare, NoSquare, false
			}
			if !b.IsOccupied(cur) {
				continue
			}
			if b.IsBlack(cur) == moverBlack {
				return NoSquare, NoSquare, false
			}
			landing := step(from, dir, n+1)
			if landing == NoSquare || b.IsOccupied(landing) {
				return NoSquare, NoSquare, false
			}
			return cur, landing, true
		}
	}
	over = step(from, dir, 1)
	if over == NoSquare || !b.IsOccupied(over) || b.IsBlack(over) == moverBlack {
		return NoSquare, NoSquare, false
	}
	land = step(from, dir, 2)
	if land == NoSquare || b.IsOccupied(land) {
		return NoSquare, NoSquare, false
	}
	return over, land, true
}

// seqKey identifies an equivalence class of capture sequences: the set of
// captured squares plus the final landing square. Order of capture is
// immaterial.
type seqKey struct {
	captured Mask
	final    Square
}

// findCaptureSequences recurses over the capture tree from cur. The board is
// a value: each branch removes its victim and moves the capturing piece on
// its own copy, so later probes see empty squares where victims stood and a
// victim can never be captured twice. Only maximal sequences are recorded;
// the first representative of each equivalence class wins.
//
// seq alternates captured and landing squares: [over1, land1, over2, land2, ...].
func findCaptureSequences(b Board, cur Square, captured Mask, seq []Square, out map[seqKey][]Square) {
	found := false
	for _, dir := range validDeltas(b, cur) {
		over, land, ok := captureInDirection(b, cur, dir)
		if !ok {
			continue
		}
		found = true

		next := b
		next.Remove(over)
		next.Move(cur, land)

		branch := make([]Square, len(seq), len(seq)+2)
		copy(branch, seq)
		branch = append(branch, over, land)

		findCaptureSequences(next, land, captured.Set(over), branch, out)
	}
	if !found && len(seq) > 0 {
		key := seqKey{captured: captured, final: cur}
		if _, dup := out[key]; !dup {
			out[key] = seq
		}
	}
}

// regularMoves enumerates non-capturing destinations for the piece on from:
// one forward step for a man, any slide along the four diagonals for a king.
func regularMoves(b Board, from Square) []Square {
	var targets []Square
	isKing := b.IsKing(from)
	for _, dir := range validDeltas(b, from) {
		if isKing {
			for n := 1; ; n++ {
				cur := step(from, dir, n)
				if cur == NoSquare || b.IsOccupied(cur) {
					break
				}
				targets = append(targets, cur)
			}
			continue
		}
		cur := step(from, dir, 1)
		if cur != NoSquare && !b.IsOccupied(cur) {
			targets = append(targets, cur)
		}
	}
	return targets
}

// LegalMoves returns the legal move outcomes for the piece on from.
// If the piece has any capture available (possibly chained) the result holds
// captures only; otherwise it holds the regular destinations (possibly none).
// Returns ErrNotOccupied when from is empty.
func LegalMoves(b Board, from Square) (LegalSet, error) {
	if !b.IsOccupied(from) {
		return LegalSet{}, ErrNotOccupied
	}

	sequences := make(map[seqKey][]Square)
	findCaptureSequences(b, from, 0, nil, sequences)

	if len(sequences) == 0 {
		return LegalSet{targets: regularMoves(b, from)}, nil
	}

	captures := make([]CaptureMove, 0, len(sequences))
	for key, seq := range sequences {
		capturedSquares := make([]Square, 0, len(seq)/2)
		for i := 0; i < len(seq); i += 2 {
			capturedSquares = append(capturedSquares, seq[i])
		}
		captures = append(captures, CaptureMove{Target: key.final, Captured: capturedSquares})
	}
	sort.Slice(captures, func(i, j int) bool {
		if captures[i].Target != captures[j].Target {
			return captures[i].Target < captures[j].Target
		}
		return lessCapturedSets(captures[i].Captured, captures[j].Captured)
	})
	return LegalSet{hasCaptures: true, captures: captures}, nil
}

// lessCapturedSets orders two captured-square lists by comparing their
// sorted forms lexicographically.
func lessCapturedSets(a, b []Square) bool {
	as := SortedSquares(a)
	bs := SortedSquares(b)
	for i := 0; i < len(as) && i < len(bs); i++ {
		if as[i] != bs[i] {
			return as[i] < bs[i]
		}
	}
	return len(as) < len(bs)
}

// SortedSquares returns a sorted copy of squares.
func SortedSquares(squares []Square) []Square {
	out := make([]Square, len(squares))
	copy(out, squares)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
