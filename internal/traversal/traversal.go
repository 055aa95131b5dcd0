// Package traversal drives the depth-first enumeration of the Thai Checkers
// game tree: an explicit frame stack stepped under a deadline, a sharded
// cache of boards known to end in repetition, event subscription, and a
// binary checkpoint codec so a search can be split across sessions.
package traversal

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arayaphong/thai-checkers/internal/game"
)

// NumWorkers is the default worker count for the parallel driver.
var NumWorkers = runtime.GOMAXPROCS(0)

const (
	shardBits  = 6
	shardCount = 1 << shardBits

	// watchdogQuantum is the watchdog's sleep slice between deadline and
	// progress checks.
	watchdogQuantum = 5 * time.Millisecond

	defaultProgressInterval = 3 * time.Second
	defaultTaskDepth        = 4
)

// Frame is one level of the DFS stack: a game plus the index of the next
// child to expand. NextChild counts the children already expanded at this
// depth, so the stack doubles as the progress vector.
type Frame struct {
	Game      *game.Game
	NextChild int
}

// ProgressEntry describes one stack depth: children expanded so far and the
// total child count at that depth.
type ProgressEntry struct {
	Index int
	Width int
}

type loopShard struct {
	mu  sync.RWMutex
	set map[uint64]struct{}
}

// Traversal owns the frame stack, the loop cache, the session counters and
// the subscriber registry. The step loop is single-threaded; the watchdog
// and the optional parallel driver coordinate through atomics and the
// sharded cache.
type Traversal struct {
	stack []Frame

	gameCount     atomic.Uint64 // terminal games completed, cumulative
	previousGames uint64        // completed before this session

	shards [shardCount]loopShard

	stop     atomic.Bool
	start    time.Time
	deadline time.Time

	progressInterval time.Duration
	taskDepth        int

	now func() time.Time

	cbMu       sync.Mutex
	resultCb   func(ResultEvent)
	progressCb func(ProgressEvent)
	summaryCb  func(SummaryEvent)

	// emitMu serializes GameID assignment and result delivery so the
	// parallel driver keeps the single-threaded ordering contract.
	emitMu sync.Mutex
}

// New returns an idle traversal with default settings.
func New() *Traversal {
	t := &Traversal{
		progressInterval: defaultProgressInterval,
		taskDepth:        defaultTaskDepth,
		now:              time.Now,
	}
	for i := range t.shards {
		t.shards[i].set = make(map[uint64]struct{})
	}
	return t
}

// SetProgressInterval adjusts the watchdog's progress cadence.
func (t *Traversal) SetProgressInterval(d time.Duration) {
	if d > 0 {
		t.progressInterval = d
	}
}

// SetTaskDepth adjusts how deep the parallel driver fans out before
// switching to serial recursion.
func (t *Traversal) SetTaskDepth(depth int) {
	if depth >= 0 {
		t.taskDepth = depth
	}
}

// SetClock overrides the time source. Tests only.
func (t *Traversal) SetClock(now func() time.Time) {
	if now != nil {
		t.now = now
	}
}

// RequestStop asks the step loop to stop after the in-flight step. Safe to
// call from any goroutine, including event callbacks.
func (t *Traversal) RequestStop() {
	t.stop.Store(true)
}

// Games returns the cumulative completed-game count.
func (t *Traversal) Games() uint64 {
	return t.gameCount.Load()
}

// StackDepth returns the current frame stack depth.
func (t *Traversal) StackDepth() int {
	return len(t.stack)
}

// ProgressVector reports, for every stack depth from the root down, how many
// children have been expanded and how wide the level is. Together with the
// checkpoint it uniquely identifies the DFS frontier.
func (t *Traversal) ProgressVector() []ProgressEntry {
	out := make([]ProgressEntry, len(t.stack))
	for i, f := range t.stack {
		out[i] = ProgressEntry{Index: f.NextChild, Width: f.Game.MoveCount()}
	}
	return out
}

// ---- sharded loop cache ----

// shardFor picks a shard by Fibonacci-mixing the board digest and taking
// the top bits, spreading contention across shards.
func shardFor(h uint64) uint64 {
	return (h * 11400714819323198485) >> (64 - shardBits)
}

func (t *Traversal) loopSeen(h uint64) bool {
	s := &t.shards[shardFor(h)]
	s.mu.RLock()
	_, ok := s.set[h]
	s.mu.RUnlock()
	return ok
}

func (t *Traversal) recordLoop(h uint64) {
	s := &t.shards[shardFor(h)]
	s.mu.Lock()
	s.set[h] = struct{}{}
	s.mu.Unlock()
}

func (t *Traversal) clearLoops() {
	for i := range t.shards {
		s := &t.shards[i]
		s.mu.Lock()
		s.set = make(map[uint64]struct{})
		s.mu.Unlock()
	}
}

// LoopCacheSize returns the number of boards known to end in repetition.
func (t *Traversal) LoopCacheSize() int {
	n := 0
	for i := range t.shards {
		s := &t.shards[i]
		s.mu.RLock()
		n += len(s.set)
		s.mu.RUnlock()
	}
	return n
}

// ---- stepping ----

// stepStack performs exactly one transition on the top frame of the given
// stack: prune a cached loop board, emit a terminal, pop an exhausted
// frame, or materialize the next child.
func (t *Traversal) stepStack(stack *[]Frame) {
	f := &(*stack)[len(*stack)-1]
	if t.loopSeen(f.Game.Board().Hash()) {
		*stack = (*stack)[:len(*stack)-1]
		return
	}
	moves := f.Game.LegalMoves()
	if len(moves) == 0 {
		t.emitResult(f.Game)
		*stack = (*stack)[:len(*stack)-1]
		return
	}
	if f.NextChild >= len(moves) {
		*stack = (*stack)[:len(*stack)-1]
		return
	}
	idx := f.NextChild
	f.NextChild++
	child := f.Game.Clone()
	child.SelectMove(idx)
	*stack = append(*stack, Frame{Game: child})
}

// StepOne performs a single state transition on the engine stack. It
// returns false once the stack is empty or a stop was requested. Exposed
// for tests and interactive drivers; no built-in deadline.
func (t *Traversal) StepOne() bool {
	if len(t.stack) == 0 || t.stop.Load() {
		return false
	}
	t.stepStack(&t.stack)
	return len(t.stack) > 0
}

// StartRootOnly resets the stack to a single root frame without touching
// counters or the loop cache. Pair with StepOne.
func (t *Traversal) StartRootOnly(root *game.Game) {
	t.stack = t.stack[:0]
	t.stack = append(t.stack, Frame{Game: root})
	if t.start.IsZero() {
		t.start = t.now()
	}
}

// runFromStack drives stepStack until the stack drains or stop is set.
func (t *Traversal) runFromStack() {
	for len(t.stack) > 0 && !t.stop.Load() {
		t.stepStack(&t.stack)
	}
}

// emitResult records a loop board, assigns the next GameID and delivers the
// terminal event. Assignment and delivery share one critical section so
// subscribers observe ids in delivery order even under the parallel driver.
func (t *Traversal) emitResult(g *game.Game) {
	if g.IsLoop() {
		t.recordLoop(g.Board().Hash())
	}
	t.emitMu.Lock()
	defer t.emitMu.Unlock()
	id := t.gameCount.Add(1)
	cb := t.resultCallback()
	if cb == nil {
		return
	}
	history := append([]uint64(nil), g.History()...)
	moves := make([]uint64, 0, len(history)/2)
	for i := 1; i < len(history); i += 2 {
		moves = append(moves, history[i])
	}
	ev := ResultEvent{
		GameID:      id,
		IsLoop:      g.IsLoop(),
		Winner:      g.Winner(),
		History:     history,
		MoveIndices: moves,
	}
	invoke("result", func() { cb(ev) })
}

func (t *Traversal) emitProgress() {
	cb := t.progressCallback()
	if cb == nil {
		return
	}
	ev := ProgressEvent{Games: t.gameCount.Load()}
	invoke("progress", func() { cb(ev) })
}

// ---- driving modes ----

// resetSession prepares a fresh run: counters zeroed, loop cache cleared,
// clock started, stack holding only the root.
func (t *Traversal) resetSession(root *game.Game) {
	t.stop.Store(false)
	t.gameCount.Store(0)
	t.previousGames = 0
	t.clearLoops()
	t.start = t.now()
	t.deadline = time.Time{}
	t.stack = t.stack[:0]
	t.stack = append(t.stack, Frame{Game: root})
}

// watchdog flips the stop flag at the deadline (when set) and emits
// progress events at the configured interval, sleeping in small quanta in
// between. It exits once stop is set by anyone.
func (t *Traversal) watchdog(done chan<- struct{}) {
	defer close(done)
	last := t.now()
	for !t.stop.Load() {
		now := t.now()
		if !t.deadline.IsZero() && !now.Before(t.deadline) {
			t.stop.Store(true)
			return
		}
		if now.Sub(last) >= t.progressInterval {
			t.emitProgress()
			last = now
		}
		time.Sleep(watchdogQuantum)
	}
}

// TraverseFor resets state and enumerates from root until the tree is
// exhausted or the wall-clock budget runs out, then emits the summary.
func (t *Traversal) TraverseFor(d time.Duration, root *game.Game) {
	t.resetSession(root)
	t.deadline = t.start.Add(d)

	done := make(chan struct{})
	go t.watchdog(done)

	t.runFromStack()

	t.stop.Store(true)
	<-done
	t.emitSummary()
}

// TraverseForContinue keeps the current state (typically just loaded from
// a checkpoint) and runs it under a fresh wall-clock budget.
func (t *Traversal) TraverseForContinue(d time.Duration) {
	t.stop.Store(false)
	if t.start.IsZero() {
		t.start = t.now()
	}
	t.deadline = t.now().Add(d)

	done := make(chan struct{})
	go t.watchdog(done)

	t.runFromStack()

	t.stop.Store(true)
	<-done
	t.emitSummary()
}

// Traverse resets state and enumerates from root to completion (no
// deadline), emitting progress along the way and a summary at the end.
func (t *Traversal) Traverse(root *game.Game) {
	t.resetSession(root)

	done := make(chan struct{})
	go t.watchdog(done)

	t.runFromStack()

	t.stop.Store(true)
	<-done
	t.emitSummary()
}

// ResumeOrStart continues from the checkpoint at path when it loads, and
// starts fresh from root otherwise (a missing or invalid checkpoint is not
// an error). Runs until completion or stop, then emits the summary.
func (t *Traversal) ResumeOrStart(path string, root *game.Game) {
	t.stop.Store(false)
	if path == "" || t.LoadCheckpoint(path) != nil {
		t.resetSession(root)
	}

	done := make(chan struct{})
	go t.watchdog(done)

	t.runFromStack()

	t.stop.Store(true)
	<-done
	t.emitSummary()
}

// emitSummary reports the session exactly once per driving call.
func (t *Traversal) emitSummary() {
	wall := t.now().Sub(t.start).Seconds()
	total := t.gameCount.Load()
	sessionGames := total - t.previousGames
	throughput := 0.0
	if wall > 0 {
		throughput = float64(sessionGames) / wall
	}
	cpu := processCPUSeconds()
	util := -1.0
	if wall > 0 && cpu >= 0 {
		util = cpu / wall * 100
	}
	ev := SummaryEvent{
		WallSeconds:    wall,
		Games:          sessionGames,
		PreviousGames:  t.previousGames,
		TotalGames:     total,
		Throughput:     throughput,
		CPUSeconds:     cpu,
		CPUUtilPercent: util,
		RSSKB:          procStatusKB("VmRSS:"),
		HWMKB:          procStatusKB("VmHWM:"),
	}
	cb := t.summaryCallback()
	if cb == nil {
		return
	}
	invoke("summary", func() { cb(ev) })
}
