// checkers-traverse exhaustively enumerates Thai Checkers games from the
// standard opening within a wall-clock budget, with checkpoint/resume and
// optional persistent statistics.
package main

import (
	"flag"
	"log"
	"math/big"
	"os"
	"runtime/pprof"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/arayaphong/thai-checkers/internal/board"
	"github.com/arayaphong/thai-checkers/internal/game"
	"github.com/arayaphong/thai-checkers/internal/storage"
	"github.com/arayaphong/thai-checkers/internal/traversal"
)

var (
	timeout     = flag.Duration("timeout", 10*time.Second, "wall-clock budget for this session (e.g. 10s, 12.5s, 5000ms)")
	checkpoint  = flag.String("checkpoint", "", "checkpoint file to resume from and save to")
	dbDir       = flag.String("db", "", "BadgerDB directory for cumulative statistics (empty = user config dir, 'off' = disabled)")
	recordGames = flag.Bool("record-games", false, "persist every terminal game record to the database")
	parallel    = flag.Int("parallel", 0, "explore subtrees on N workers (0 = serial; parallel runs are not checkpointable)")
	progress    = flag.Duration("progress", 3*time.Second, "progress report interval")
	cpuprofile  = flag.String("cpuprofile", "", "write cpu profile to file")
)

// sessionTally accumulates per-session outcome counters from result events.
type sessionTally struct {
	mu       sync.Mutex
	loops    uint64
	white    uint64
	black    uint64
	minPlies int
	maxPlies int
	records  []storage.GameRecord
}

func (s *sessionTally) observe(ev traversal.ResultEvent, keepRecords bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	plies := len(ev.MoveIndices)
	switch {
	case ev.IsLoop:
		s.loops++
	case ev.Winner == board.White:
		s.white++
	case ev.Winner == board.Black:
		s.black++
	}
	if s.minPlies < 0 || plies < s.minPlies {
		s.minPlies = plies
	}
	if plies > s.maxPlies {
		s.maxPlies = plies
	}
	if keepRecords {
		rec := storage.GameRecord{
			GameID:      ev.GameID,
			IsLoop:      ev.IsLoop,
			Plies:       plies,
			MoveIndices: ev.MoveIndices,
		}
		switch ev.Winner {
		case board.White:
			rec.Winner = "white"
		case board.Black:
			rec.Winner = "black"
		}
		s.records = append(s.records, rec)
	}
}

func main() {
	flag.Parse()

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
		log.Printf("CPU profiling enabled, writing to %s", *cpuprofile)
	}

	var store *storage.Store
	if *dbDir != "off" {
		dir := *dbDir
		if dir == "" {
			var err error
			dir, err = storage.DefaultDatabaseDir()
			if err != nil {
				log.Fatalf("[Storage] cannot resolve database dir: %v", err)
			}
		}
		var err error
		store, err = storage.Open(dir)
		if err != nil {
			log.Fatalf("[Storage] open %s: %v", dir, err)
		}
		defer store.Close()
	}

	tr := traversal.New()
	tr.SetProgressInterval(*progress)

	tally := &sessionTally{minPlies: -1}
	tr.OnResult(func(ev traversal.ResultEvent) {
		tally.observe(ev, store != nil)
	})
	tr.OnProgress(func(ev traversal.ProgressEvent) {
		log.Printf("[Traversal] progress: %s games", humanize.Comma(int64(ev.Games)))
	})

	var summary traversal.SummaryEvent
	tr.OnSummary(func(ev traversal.SummaryEvent) { summary = ev })

	log.Printf("[Traversal] running Thai Checkers analysis, timeout %v", *timeout)

	resumed := false
	if *parallel > 0 {
		tr.TraverseParallelFor(*timeout, game.New(), *parallel)
	} else {
		if *checkpoint != "" {
			if err := tr.LoadCheckpoint(*checkpoint); err == nil {
				resumed = true
				log.Printf("[Traversal] resumed from %s at %s games",
					*checkpoint, humanize.Comma(int64(tr.Games())))
			} else {
				log.Printf("[Traversal] no usable checkpoint (%v), starting fresh", err)
			}
		}
		if resumed {
			tr.TraverseForContinue(*timeout)
		} else {
			tr.TraverseFor(*timeout, game.New())
		}
	}

	if *checkpoint != "" && *parallel == 0 && tr.StackDepth() > 0 {
		if err := tr.SaveCheckpoint(*checkpoint); err != nil {
			log.Printf("[Traversal] checkpoint save failed: %v", err)
		} else {
			log.Printf("[Traversal] checkpoint saved to %s", *checkpoint)
		}
	}

	printSummary(summary, tally)
	if pct := completionPercent(tr.ProgressVector()); pct != nil {
		log.Printf("[Traversal] tree completion: %s%%", pct.FloatString(30))
	}

	if store != nil {
		wall := time.Duration(summary.WallSeconds * float64(time.Second))
		if err := store.RecordSession(tally.records, wall); err != nil {
			log.Printf("[Storage] record session: %v", err)
		}
		if *recordGames {
			for _, rec := range tally.records {
				if err := store.SaveGame(rec); err != nil {
					log.Printf("[Storage] save game %d: %v", rec.GameID, err)
					break
				}
			}
		}
		if stats, err := store.LoadStats(); err == nil {
			log.Printf("[Storage] lifetime: %s games over %d sessions (%.1f%% loops)",
				humanize.Comma(int64(stats.TotalGames)), stats.Sessions, stats.LoopRate()*100)
		}
	}
}

func printSummary(s traversal.SummaryEvent, tally *sessionTally) {
	tally.mu.Lock()
	defer tally.mu.Unlock()
	log.Printf("[Summary] wall=%.2fs games=%s (previous %s, total %s) throughput=%.0f/s",
		s.WallSeconds,
		humanize.Comma(int64(s.Games)),
		humanize.Comma(int64(s.PreviousGames)),
		humanize.Comma(int64(s.TotalGames)),
		s.Throughput)
	log.Printf("[Summary] outcomes: white=%s black=%s loops=%s plies=%d..%d",
		humanize.Comma(int64(tally.white)),
		humanize.Comma(int64(tally.black)),
		humanize.Comma(int64(tally.loops)),
		tally.minPlies, tally.maxPlies)
	log.Printf("[Summary] cpu=%.2fs util=%.0f%% rss=%dkB hwm=%dkB",
		s.CPUSeconds, s.CPUUtilPercent, s.RSSKB, s.HWMKB)
}

// completionPercent converts the progress vector into an exact share of the
// tree explored so far: at each depth the expanded-child count over the
// product of the level widths from the root down to and including that
// depth. Arbitrary precision, since the
// products overflow any fixed-width integer within a few dozen plies.
func completionPercent(pv []traversal.ProgressEntry) *big.Rat {
	if len(pv) == 0 {
		return nil
	}
	total := new(big.Rat)
	denom := new(big.Rat).SetInt64(1)
	for _, entry := range pv {
		if entry.Width <= 0 {
			break
		}
		denom.Mul(denom, new(big.Rat).SetInt64(int64(entry.Width)))
		share := new(big.Rat).SetInt64(int64(entry.Index))
		total.Add(total, share.Quo(share, denom))
	}
	return total.Mul(total, new(big.Rat).SetInt64(100))
}
