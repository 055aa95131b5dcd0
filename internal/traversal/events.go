package traversal

import (
	"log"

	"github.com/arayaphong/thai-checkers/internal/board"
)

// ResultEvent is delivered once per terminal game, in discovery order.
type ResultEvent struct {
	// GameID is 1-based and strictly increasing; it continues from the
	// saved count when a session resumes from a checkpoint.
	GameID uint64
	// IsLoop is true when the game ended by position repetition.
	IsLoop bool
	// Winner is the side that won, or NoColor for a repetition draw.
	Winner board.Color
	// History alternates board digests and chosen child indices:
	// [h0, idx1, h1, idx2, h2, ...].
	History []uint64
	// MoveIndices is the chosen child index per ply (the odd entries of
	// History), kept separately for convenience.
	MoveIndices []uint64
}

// ProgressEvent is emitted periodically by the watchdog.
type ProgressEvent struct {
	// Games completed so far, cumulative across resumed sessions.
	Games uint64
}

// SummaryEvent is emitted exactly once at the end of each driving call.
// Metric fields are -1 when the platform cannot supply them.
type SummaryEvent struct {
	WallSeconds    float64
	Games          uint64 // completed this session
	PreviousGames  uint64 // completed before this session (checkpoint)
	TotalGames     uint64 // cumulative; equals the final GameID
	Throughput     float64
	CPUSeconds     float64
	CPUUtilPercent float64
	RSSKB          int64
	HWMKB          int64
}

// OnResult registers the terminal-game subscriber. Passing nil unsubscribes.
func (t *Traversal) OnResult(cb func(ResultEvent)) {
	t.cbMu.Lock()
	defer t.cbMu.Unlock()
	t.resultCb = cb
}

// OnProgress registers the periodic progress subscriber.
func (t *Traversal) OnProgress(cb func(ProgressEvent)) {
	t.cbMu.Lock()
	defer t.cbMu.Unlock()
	t.progressCb = cb
}

// OnSummary registers the end-of-session subscriber.
func (t *Traversal) OnSummary(cb func(SummaryEvent)) {
	t.cbMu.Lock()
	defer t.cbMu.Unlock()
	t.summaryCb = cb
}

func (t *Traversal) resultCallback() func(ResultEvent) {
	t.cbMu.Lock()
	defer t.cbMu.Unlock()
	return t.resultCb
}

func (t *Traversal) progressCallback() func(ProgressEvent) {
	t.cbMu.Lock()
	defer t.cbMu.Unlock()
	return t.progressCb
}

func (t *Traversal) summaryCallback() func(SummaryEvent) {
	t.cbMu.Lock()
	defer t.cbMu.Unlock()
	return t.summaryCb
}

// invoke runs a subscriber callback, containing panics: a failing
// subscriber must not abort the traversal. Stop decisions belong to
// RequestStop, not to panicking callbacks.
func invoke(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Traversal] %s callback panic: %v", name, r)
		}
	}()
	fn()
}
