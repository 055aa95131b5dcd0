// Package game composes a board with a side to move, the mandatory-capture
// move list, and within-game repetition detection.
package game

import (
	"sort"

	"github.com/arayaphong/thai-checkers/internal/board"
)

// Move is one ply for the side to move. Captured is empty for regular moves
// and holds the removed squares in capture order otherwise.
type Move struct {
	From     board.Square
	To       board.Square
	Captured []board.Square
}

// IsCapture reports whether the move removes enemy pieces.
func (m Move) IsCapture() bool { return len(m.Captured) > 0 }

// stateKey identifies a game state for repetition detection: the board
// digest plus the side to move.
type stateKey struct {
	hash uint64
	side board.Color
}

// Game is a value-like handle on one line of play. It is mutated only by
// Apply/SelectMove; Clone produces an independent copy for tree expansion.
type Game struct {
	board   board.Board
	player  board.Color
	seen    map[stateKey]struct{}
	history []uint64 // h0, idx1, h1, idx2, h2, ...
	looping bool

	choices      []Move
	choicesDirty bool
}

// New returns a fresh game from the standard setup, white to move.
func New() *Game {
	return FromBoard(board.Setup(), board.White)
}

// FromBoard returns a game over an arbitrary position with the given side
// to move. Used by tests and analysis drivers.
func FromBoard(b board.Board, side board.Color) *Game {
	g := &Game{
		board:        b,
		player:       side,
		seen:         make(map[stateKey]struct{}),
		history:      []uint64{b.Hash()},
		choicesDirty: true,
	}
	g.seen[stateKey{b.Hash(), side}] = struct{}{}
	return g
}

// Restore rebuilds a game from checkpoint state. The seen-state set is
// reconstructed from the history (board digests at even offsets, sides
// alternating back from the current player), so resumed repetition
// detection behaves exactly as in the uninterrupted run.
func Restore(b board.Board, side board.Color, looping bool, history []uint64) *Game {
	g := &Game{
		board:        b,
		player:       side,
		seen:         make(map[stateKey]struct{}),
		history:      history,
		looping:      looping,
		choicesDirty: true,
	}
	if len(history) == 0 {
		g.history = []uint64{b.Hash()}
	}
	states := len(g.history)/2 + 1
	for j := 0; j < states; j++ {
		sideAt := side
		if (states-1-j)%2 == 1 {
			sideAt = side.Other()
		}
		g.seen[stateKey{g.history[2*j], sideAt}] = struct{}{}
	}
	return g
}

// Clone returns an independent deep copy.
func (g *Game) Clone() *Game {
	seen := make(map[stateKey]struct{}, len(g.seen))
	for k := range g.seen {
		seen[k] = struct{}{}
	}
	history := make([]uint64, len(g.history))
	copy(history, g.history)
	return &Game{
		board:        g.board,
		player:       g.player,
		seen:         seen,
		history:      history,
		looping:      g.looping,
		choicesDirty: true,
	}
}

// Board returns the current position.
func (g *Game) Board() board.Board { return g.board }

// Player returns the side to move.
func (g *Game) Player() board.Color { return g.player }

// IsLoop reports whether the game ended by position repetition.
func (g *Game) IsLoop() bool { return g.looping }

// History returns the alternating record [h0, idx1, h1, idx2, h2, ...]:
// the initial board digest followed by (chosen child index, resulting
// digest) per ply. Indices are recorded by SelectMove only.
func (g *Game) History() []uint64 { return g.history }

// LegalMoves returns the sorted legal move list for the side to move.
// Captures are mandatory at the board level: if any piece can capture, only
// capture moves are returned. The list is empty once the game is over.
// The result is owned by the Game; callers must not mutate it.
func (g *Game) LegalMoves() []Move {
	if !g.choicesDirty {
		return g.choices
	}
	g.choices = g.choices[:0]
	g.choicesDirty = false
	if g.looping {
		return g.choices
	}

	anyCapture := false
	for _, from := range g.board.Pieces(g.player) {
		set, err := board.LegalMoves(g.board, from)
		if err != nil {
			continue // unreachable: from comes from the occupancy mask
		}
		if set.HasCaptures() {
			anyCapture = true
			for _, cm := range set.Captures() {
				g.choices = append(g.choices, Move{From: from, To: cm.Target, Captured: cm.Captured})
			}
			continue
		}
		for _, to := range set.Targets() {
			g.choices = append(g.choices, Move{From: from, To: to})
		}
	}

	if anyCapture {
		captures := g.choices[:0]
		for _, m := range g.choices {
			if m.IsCapture() {
				captures = append(captures, m)
			}
		}
		g.choices = captures
	}

	sort.SliceStable(g.choices, func(i, j int) bool {
		a, b := g.choices[i], g.choices[j]
		if a.From != b.From {
			return a.From < b.From
		}
		if a.To != b.To {
			return a.To < b.To
		}
		return lessSorted(a.Captured, b.Captured)
	})
	return g.choices
}

func lessSorted(a, b []board.Square) bool {
	as := board.SortedSquares(a)
	bs := board.SortedSquares(b)
	for i := 0; i < len(as) && i < len(bs); i++ {
		if as[i] != bs[i] {
			return as[i] < bs[i]
		}
	}
	return len(as) < len(bs)
}

// MoveCount returns the number of legal moves, zero once the game is over.
func (g *Game) MoveCount() int { return len(g.LegalMoves()) }

// IsTerminal reports whether the game has ended: either the side to move
// has no legal reply (the opponent wins) or a state repeated (draw).
func (g *Game) IsTerminal() bool { return g.MoveCount() == 0 }

// Winner returns the winning side of a decided game, or NoColor for a
// repetition draw or a game still in progress.
func (g *Game) Winner() board.Color {
	if g.looping || !g.IsTerminal() {
		return board.NoColor
	}
	return g.player.Other()
}

// Apply plays a move drawn from LegalMoves: the piece moves, captured
// pieces leave the board, a man landing on the mover's far rank becomes a
// king, the side to move toggles, and the resulting digest is appended to
// the history. If the new state was already seen in this game, the game is
// loop-terminated. Moves are not re-validated.
func (g *Game) Apply(m Move) {
	wasMan := g.board.RankAt(m.From) == board.Man

	g.board.Move(m.From, m.To)
	if wasMan && m.To.Rank() == farRank(g.player) {
		g.board.Promote(m.To)
	}
	for _, sq := range m.Captured {
		g.board.Remove(sq)
	}

	g.player = g.player.Other()
	g.history = append(g.history, g.board.Hash())
	g.choicesDirty = true

	key := stateKey{g.board.Hash(), g.player}
	if _, repeated := g.seen[key]; repeated {
		g.looping = true
		return
	}
	g.seen[key] = struct{}{}
}

// SelectMove records the chosen child index in the history and applies the
// indexed entry of LegalMoves. This is the expansion step the traversal
// uses; the recorded index stream reproduces the game.
func (g *Game) SelectMove(i int) {
	m := g.LegalMoves()[i]
	g.history = append(g.history, uint64(i))
	g.Apply(m)
}

// farRank is the promotion rank for the given side: white advances toward
// rank 1, black toward rank 8.
func farRank(c board.Color) int {
	if c == board.White {
		return 0
	}
	return 7
}
