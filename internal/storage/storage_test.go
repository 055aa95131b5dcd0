package storage

import (
	"bytes"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStatsRoundTrip(t *testing.T) {
	s := openTestStore(t)

	stats, err := s.LoadStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalGames != 0 || stats.MinPlies != -1 {
		t.Fatalf("fresh stats = %+v", stats)
	}

	stats.Sessions = 2
	stats.TotalGames = 41
	stats.Loops = 11
	stats.MinPlies = 9
	if err := s.SaveStats(stats); err != nil {
		t.Fatal(err)
	}

	loaded, err := s.LoadStats()
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Sessions != 2 || loaded.TotalGames != 41 || loaded.Loops != 11 || loaded.MinPlies != 9 {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestGameRecordRoundTrip(t *testing.T) {
	s := openTestStore(t)

	rec := GameRecord{
		GameID:      3,
		IsLoop:      false,
		Winner:      "white",
		Plies:       42,
		MoveIndices: []uint64{0, 2, 1, 0, 4},
	}
	if err := s.SaveGame(rec); err != nil {
		t.Fatal(err)
	}

	loaded, err := s.LoadGame(rec.Key())
	if err != nil {
		t.Fatal(err)
	}
	if loaded.GameID != rec.GameID || loaded.Winner != rec.Winner || loaded.Plies != rec.Plies {
		t.Errorf("loaded = %+v, want %+v", loaded, rec)
	}

	n, err := s.GameCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("game count = %d, want 1", n)
	}
}

func TestGameRecordKeyIsContentAddressed(t *testing.T) {
	a := GameRecord{GameID: 1, MoveIndices: []uint64{0, 1, 2}}
	b := GameRecord{GameID: 99, MoveIndices: []uint64{0, 1, 2}}
	c := GameRecord{GameID: 1, MoveIndices: []uint64{0, 1, 3}}

	if !bytes.Equal(a.Key(), b.Key()) {
		t.Error("same move path must share a key across sessions")
	}
	if bytes.Equal(a.Key(), c.Key()) {
		t.Error("different move paths must not collide on the readable key")
	}
}

func TestRecordSession(t *testing.T) {
	s := openTestStore(t)

	games := []GameRecord{
		{GameID: 1, Winner: "white", Plies: 30},
		{GameID: 2, IsLoop: true, Plies: 64},
		{GameID: 3, Winner: "black", Plies: 12},
	}
	if err := s.RecordSession(games, 5*time.Second); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordSession(nil, time.Second); err != nil {
		t.Fatal(err)
	}

	stats, err := s.LoadStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Sessions != 2 {
		t.Errorf("sessions = %d, want 2", stats.Sessions)
	}
	if stats.TotalGames != 3 || stats.WhiteWins != 1 || stats.BlackWins != 1 || stats.Loops != 1 {
		t.Errorf("tallies = %+v", stats)
	}
	if stats.MinPlies != 12 || stats.MaxPlies != 64 {
		t.Errorf("ply extremes = %d..%d, want 12..64", stats.MinPlies, stats.MaxPlies)
	}
	if stats.TotalWall != 6*time.Second {
		t.Errorf("wall = %v, want 6s", stats.TotalWall)
	}
	if got := stats.LoopRate(); got < 0.33 || got > 0.34 {
		t.Errorf("loop rate = %f", got)
	}
}
