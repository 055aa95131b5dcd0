package traversal

import (
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/arayaphong/thai-checkers/internal/game"
)

// TraverseParallelFor is the opt-in task-parallel driver: the tree is
// expanded serially down to the configured task depth, and each frontier
// subtree is then explored by a bounded worker pool. GameID assignment and
// result delivery stay under a total order (see emitResult); event order
// follows discovery order, which under this driver interleaves subtrees.
// A non-positive duration means no deadline; workers <= 0 selects
// NumWorkers. This driver does not use the engine stack, so it cannot be
// checkpointed mid-run; use the serial drivers for resumable sessions.
func (t *Traversal) TraverseParallelFor(d time.Duration, root *game.Game, workers int) {
	if workers <= 0 {
		workers = NumWorkers
	}
	t.resetSession(root)
	t.stack = t.stack[:0] // the parallel driver keeps per-worker stacks
	if d > 0 {
		t.deadline = t.start.Add(d)
	}

	done := make(chan struct{})
	go t.watchdog(done)

	frontier := t.expandFrontier(root, t.taskDepth)

	var eg errgroup.Group
	eg.SetLimit(workers)
	for _, sub := range frontier {
		sub := sub
		eg.Go(func() error {
			t.visitSubtree(sub)
			return nil
		})
	}
	eg.Wait() // workers return nil; Wait only synchronizes

	t.stop.Store(true)
	<-done
	t.emitSummary()
}

// expandFrontier walks the tree serially to the given depth and returns the
// subtree roots found there. Terminals and cached loop boards met on the
// way are handled immediately, so the frontier holds only live positions.
func (t *Traversal) expandFrontier(g *game.Game, depth int) []*game.Game {
	if t.stop.Load() {
		return nil
	}
	if t.loopSeen(g.Board().Hash()) {
		return nil
	}
	count := g.MoveCount()
	if count == 0 {
		t.emitResult(g)
		return nil
	}
	if depth <= 0 {
		return []*game.Game{g}
	}
	var out []*game.Game
	for i := 0; i < count && !t.stop.Load(); i++ {
		child := g.Clone()
		child.SelectMove(i)
		out = append(out, t.expandFrontier(child, depth-1)...)
	}
	return out
}

// visitSubtree exhausts one subtree with a worker-local frame stack.
func (t *Traversal) visitSubtree(g *game.Game) {
	stack := []Frame{{Game: g}}
	for len(stack) > 0 && !t.stop.Load() {
		t.stepStack(&stack)
	}
}
