package game

import (
	"reflect"
	"testing"

	"github.com/arayaphong/thai-checkers/internal/board"
)

func findMove(t *testing.T, g *Game, from, to board.Square) Move {
	t.Helper()
	for _, m := range g.LegalMoves() {
		if m.From == from && m.To == to {
			return m
		}
	}
	t.Fatalf("no legal move %s -> %s (have %v)", from, to, g.LegalMoves())
	return Move{}
}

func moveIndex(t *testing.T, g *Game, from, to board.Square) int {
	t.Helper()
	for i, m := range g.LegalMoves() {
		if m.From == from && m.To == to {
			return i
		}
	}
	t.Fatalf("no legal move %s -> %s (have %v)", from, to, g.LegalMoves())
	return -1
}

// Mandatory capture at the board level: a piece with only regular moves
// contributes nothing while any other piece can capture.
func TestMandatoryCaptureFiltering(t *testing.T) {
	var b board.Board
	b.Place(board.C4, board.White, board.Man)
	b.Place(board.B3, board.Black, board.Man)
	b.Place(board.F5, board.White, board.Man)
	g := FromBoard(b, board.White)

	moves := g.LegalMoves()
	if len(moves) != 1 {
		t.Fatalf("legal moves = %v, want exactly the C4 capture", moves)
	}
	m := moves[0]
	if m.From != board.C4 || m.To != board.A2 || !m.IsCapture() {
		t.Errorf("move = %+v, want C4 -> A2 capturing B3", m)
	}
	if len(m.Captured) != 1 || m.Captured[0] != board.B3 {
		t.Errorf("captured = %v, want [B3]", m.Captured)
	}
}

func TestLegalMoveOrderDeterministic(t *testing.T) {
	a := New()
	b := New()
	if !reflect.DeepEqual(a.LegalMoves(), b.LegalMoves()) {
		t.Fatal("equal games produced different move lists")
	}

	moves := a.LegalMoves()
	for i := 1; i < len(moves); i++ {
		prev, cur := moves[i-1], moves[i]
		if prev.From > cur.From || (prev.From == cur.From && prev.To > cur.To) {
			t.Errorf("moves out of order at %d: %+v before %+v", i, prev, cur)
		}
	}
}

func TestOpeningMoveCount(t *testing.T) {
	g := New()
	// Each of white's four front-row men (B7 D7 F7 H7) has two forward
	// steps except the edge-bound H7; A6 is reachable from B7 only.
	moves := g.LegalMoves()
	if len(moves) != 7 {
		t.Errorf("opening moves = %d (%v), want 7", len(moves), moves)
	}
	for _, m := range moves {
		if m.IsCapture() {
			t.Errorf("opening position has no captures, got %+v", m)
		}
	}
}

func TestPromotionOnFarRank(t *testing.T) {
	var b board.Board
	b.Place(board.C2, board.White, board.Man)
	b.Place(board.H5, board.Black, board.Man)
	g := FromBoard(b, board.White)

	g.Apply(findMove(t, g, board.C2, board.B1))
	if g.Board().RankAt(board.B1) != board.King {
		t.Error("white man reaching rank 1 must promote")
	}

	// Black man far from rank 8 does not promote on an ordinary step.
	g.Apply(findMove(t, g, board.H5, board.G6))
	if g.Board().RankAt(board.G6) != board.Man {
		t.Error("black man must stay a man away from rank 8")
	}
}

// Two kings shuttling force the initial state to recur after four plies.
func TestRepetitionTerminatesGame(t *testing.T) {
	var b board.Board
	b.Place(board.A2, board.White, board.King)
	b.Place(board.H7, board.Black, board.King)
	g := FromBoard(b, board.White)

	script := []struct{ from, to board.Square }{
		{board.A2, board.B1},
		{board.H7, board.G8},
		{board.B1, board.A2},
		{board.G8, board.H7},
	}
	for i, ply := range script {
		if g.IsTerminal() {
			t.Fatalf("game over after %d plies, script needs %d", i, len(script))
		}
		g.Apply(findMove(t, g, ply.from, ply.to))
	}

	if !g.IsLoop() {
		t.Fatal("state repetition must loop-terminate the game")
	}
	if !g.IsTerminal() || g.MoveCount() != 0 {
		t.Error("loop-terminated game must be terminal with no moves")
	}
	if g.Winner() != board.NoColor {
		t.Errorf("loop terminal has no winner, got %s", g.Winner())
	}
}

func TestWinnerIsSideNotToMove(t *testing.T) {
	// Black man on A2 is stuck: its only forward diagonal holds a white
	// king, and the jump square beyond it is occupied too.
	var b board.Board
	b.Place(board.A2, board.Black, board.Man)
	b.Place(board.B3, board.White, board.King)
	b.Place(board.C4, board.White, board.Man)
	g := FromBoard(b, board.Black)

	if !g.IsTerminal() {
		t.Fatalf("black should be stuck, moves=%v", g.LegalMoves())
	}
	if g.IsLoop() {
		t.Fatal("not a repetition terminal")
	}
	if g.Winner() != board.White {
		t.Errorf("winner = %s, want White", g.Winner())
	}
}

func TestHistoryAlternation(t *testing.T) {
	g := New()
	if len(g.History()) != 1 || g.History()[0] != board.Setup().Hash() {
		t.Fatalf("fresh history = %v, want [initial digest]", g.History())
	}
	for i := 0; i < 3; i++ {
		g.SelectMove(0)
	}
	h := g.History()
	if len(h) != 7 {
		t.Fatalf("history length = %d after 3 plies, want 7", len(h))
	}
	if h[1] != 0 || h[3] != 0 || h[5] != 0 {
		t.Errorf("recorded indices = %d %d %d, want 0 0 0", h[1], h[3], h[5])
	}
	if h[6] != g.Board().Hash() {
		t.Error("last history entry must be the current board digest")
	}
}

// Deterministic selectors always reach a terminal; repetition detection
// bounds every line of play.
func TestSelectorsTerminate(t *testing.T) {
	selectors := map[string]func(count int) int{
		"first":  func(int) int { return 0 },
		"last":   func(count int) int { return count - 1 },
		"middle": func(count int) int { return count / 2 },
	}
	for name, pick := range selectors {
		t.Run(name, func(t *testing.T) {
			g := New()
			for plies := 0; !g.IsTerminal(); plies++ {
				if plies > 10000 {
					t.Fatal("game did not terminate within 10000 plies")
				}
				g.SelectMove(pick(g.MoveCount()))
			}
			if g.IsLoop() && g.Winner() != board.NoColor {
				t.Error("loop terminal must not report a winner")
			}
		})
	}
}

func TestCloneIsIndependent(t *testing.T) {
	g := New()
	c := g.Clone()
	c.SelectMove(0)

	if g.Board() != board.Setup() {
		t.Error("mutating a clone changed the parent board")
	}
	if len(g.History()) != 1 {
		t.Errorf("parent history grew to %d entries", len(g.History()))
	}
	if c.Board() == g.Board() {
		t.Error("clone board did not advance")
	}
}

func TestRestoreRebuildsRepetitionState(t *testing.T) {
	var b board.Board
	b.Place(board.A2, board.White, board.King)
	b.Place(board.H7, board.Black, board.King)
	g := FromBoard(b, board.White)

	g.SelectMove(moveIndex(t, g, board.A2, board.B1))
	g.SelectMove(moveIndex(t, g, board.H7, board.G8))

	r := Restore(g.Board(), g.Player(), g.IsLoop(), append([]uint64(nil), g.History()...))

	// Completing the shuttle on the restored game must still detect the
	// repetition of the pre-checkpoint initial state.
	r.SelectMove(moveIndex(t, r, board.B1, board.A2))
	r.SelectMove(moveIndex(t, r, board.G8, board.H7))
	if !r.IsLoop() {
		t.Error("restored game lost its repetition history")
	}
}
