// Package storage persists traversal statistics and terminal-game records
// across sessions in a local BadgerDB.
package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/badger/v4"
)

// Storage keys
const (
	keyStats         = "stats"
	gameRecordPrefix = "game/"
)

// RunStats accumulates outcomes over every recorded session.
type RunStats struct {
	Sessions    int           `json:"sessions"`
	TotalGames  uint64        `json:"total_games"`
	Loops       uint64        `json:"loops"`
	WhiteWins   uint64        `json:"white_wins"`
	BlackWins   uint64        `json:"black_wins"`
	MinPlies    int           `json:"min_plies"` // -1 until a game is recorded
	MaxPlies    int           `json:"max_plies"`
	TotalWall   time.Duration `json:"total_wall"`
	LastSession time.Time     `json:"last_session"`
}

// NewRunStats returns empty statistics.
func NewRunStats() *RunStats {
	return &RunStats{MinPlies: -1}
}

// LoopRate returns the fraction of recorded games that ended in repetition.
func (s *RunStats) LoopRate() float64 {
	if s.TotalGames == 0 {
		return 0
	}
	return float64(s.Loops) / float64(s.TotalGames)
}

// GameRecord is one terminal game as persisted.
type GameRecord struct {
	GameID      uint64   `json:"game_id"`
	IsLoop      bool     `json:"is_loop"`
	Winner      string   `json:"winner,omitempty"` // "white" or "black"; empty on a loop
	Plies       int      `json:"plies"`
	MoveIndices []uint64 `json:"move_indices"`
}

// Key returns the content address of the record: the xxhash of its move
// index sequence. Two games reached through the same move path share a key
// regardless of which session found them.
func (r *GameRecord) Key() []byte {
	buf := make([]byte, 8*len(r.MoveIndices))
	for i, v := range r.MoveIndices {
		binary.LittleEndian.PutUint64(buf[8*i:], v)
	}
	sum := xxhash.Sum64(buf)
	key := make([]byte, 0, len(gameRecordPrefix)+16)
	key = append(key, gameRecordPrefix...)
	return fmt.Appendf(key, "%016x", sum)
}

// Store wraps BadgerDB for persistent traversal state.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the store in dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Disable logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// LoadStats loads the cumulative statistics, returning empty stats when
// none were saved yet.
func (s *Store) LoadStats() (*RunStats, error) {
	stats := NewRunStats()

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyStats))
		if err == badger.ErrKeyNotFound {
			return nil // Use empty stats
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, stats)
		})
	})

	return stats, err
}

// SaveStats overwrites the cumulative statistics.
func (s *Store) SaveStats(stats *RunStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyStats), data)
	})
}

// SaveGame persists one terminal game under its content address.
func (s *Store) SaveGame(rec GameRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(rec.Key(), data)
	})
}

// LoadGame fetches a previously saved record by its content address.
func (s *Store) LoadGame(key []byte) (*GameRecord, error) {
	rec := &GameRecord{}
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, rec)
		})
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// GameCount returns the number of persisted terminal-game records.
func (s *Store) GameCount() (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(gameRecordPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// RecordSession folds a finished session into the cumulative statistics:
// outcome tallies, ply extremes and wall time.
func (s *Store) RecordSession(games []GameRecord, wall time.Duration) error {
	stats, err := s.LoadStats()
	if err != nil {
		return err
	}

	stats.Sessions++
	stats.TotalWall += wall
	stats.LastSession = time.Now()
	for _, rec := range games {
		stats.TotalGames++
		switch {
		case rec.IsLoop:
			stats.Loops++
		case rec.Winner == "white":
			stats.WhiteWins++
		case rec.Winner == "black":
			stats.BlackWins++
		}
		if stats.MinPlies < 0 || rec.Plies < stats.MinPlies {
			stats.MinPlies = rec.Plies
		}
		if rec.Plies > stats.MaxPlies {
			stats.MaxPlies = rec.Plies
		}
	}

	return s.SaveStats(stats)
}
