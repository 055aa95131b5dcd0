package traversal

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/arayaphong/thai-checkers/internal/board"
	"github.com/arayaphong/thai-checkers/internal/game"
)

// Checkpoint format (little-endian):
//
//	magic[8] "TCHKPT1\0", version u32, shard_count u32,
//	game_count u64, stack_size u64, wall_ms_so_far i64,
//	then per frame: occ u32, black u32, king u32, side u8, is_loop u8,
//	reserved u16, history_len u32, next_child u32, history u64[history_len],
//	then per shard: n u64, hashes u64[n].
//
// Version 1 stored history entries as u32; version 2 stores u64. Both are
// readable; writes always produce version 2.
const (
	checkpointVersion = 2
)

var checkpointMagic = [8]byte{'T', 'C', 'H', 'K', 'P', 'T', '1', 0}

// ErrInvalidCheckpoint reports a checkpoint that cannot be decoded: bad
// magic, unsupported version, or a truncated stream.
var ErrInvalidCheckpoint = errors.New("invalid checkpoint")

// ErrCheckpointWrite reports a failed checkpoint save.
var ErrCheckpointWrite = errors.New("checkpoint write failed")

type checkpointHeader struct {
	Magic      [8]byte
	Version    uint32
	ShardCount uint32
	GameCount  uint64
	StackSize  uint64
	WallMs     int64
}

type frameHeader struct {
	Occ        uint32
	Black      uint32
	King       uint32
	Side       uint8
	IsLoop     uint8
	Reserved   uint16
	HistoryLen uint32
	NextChild  uint32
}

// SaveCheckpoint serializes the resumable state to path. The bytes go to
// path+".tmp" first and are renamed into place, so readers never observe a
// partial file at the canonical name.
func (t *Traversal) SaveCheckpoint(path string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCheckpointWrite, err)
	}
	w := bufio.NewWriter(f)
	if err := t.WriteCheckpoint(w); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("%w: %v", ErrCheckpointWrite, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("%w: %v", ErrCheckpointWrite, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: %v", ErrCheckpointWrite, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: %v", ErrCheckpointWrite, err)
	}
	return nil
}

// WriteCheckpoint serializes the resumable state to w in version-2 form.
func (t *Traversal) WriteCheckpoint(w io.Writer) error {
	h := checkpointHeader{
		Magic:      checkpointMagic,
		Version:    checkpointVersion,
		ShardCount: shardCount,
		GameCount:  t.gameCount.Load(),
		StackSize:  uint64(len(t.stack)),
	}
	if !t.start.IsZero() {
		h.WallMs = t.now().Sub(t.start).Milliseconds()
	}
	if err := binary.Write(w, binary.LittleEndian, h); err != nil {
		return err
	}

	for i := range t.stack {
		f := &t.stack[i]
		occ, black, king := f.Game.Board().Masks()
		history := f.Game.History()
		fh := frameHeader{
			Occ:        occ,
			Black:      black,
			King:       king,
			Side:       uint8(f.Game.Player()),
			HistoryLen: uint32(len(history)),
			NextChild:  uint32(f.NextChild),
		}
		if f.Game.IsLoop() {
			fh.IsLoop = 1
		}
		if err := binary.Write(w, binary.LittleEndian, fh); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, history); err != nil {
			return err
		}
	}

	// Shard sets are written sorted: checkpoints of equal states are then
	// byte-equal, not merely equivalent.
	for i := range t.shards {
		s := &t.shards[i]
		s.mu.RLock()
		hashes := make([]uint64, 0, len(s.set))
		for h := range s.set {
			hashes = append(hashes, h)
		}
		s.mu.RUnlock()
		sort.Slice(hashes, func(a, b int) bool { return hashes[a] < hashes[b] })
		if err := binary.Write(w, binary.LittleEndian, uint64(len(hashes))); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, hashes); err != nil {
			return err
		}
	}
	return nil
}

// LoadCheckpoint replaces the traversal state with the checkpoint at path.
// On any decode failure the error wraps ErrInvalidCheckpoint and the
// traversal is left ready for a fresh start.
func (t *Traversal) LoadCheckpoint(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCheckpoint, err)
	}
	defer f.Close()
	return t.ReadCheckpoint(bufio.NewReader(f))
}

// ReadCheckpoint replaces the traversal state with the serialized state
// read from r. Both version 1 and version 2 streams are accepted.
func (t *Traversal) ReadCheckpoint(r io.Reader) error {
	var h checkpointHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return fmt.Errorf("%w: short header: %v", ErrInvalidCheckpoint, err)
	}
	if h.Magic != checkpointMagic {
		return fmt.Errorf("%w: bad magic", ErrInvalidCheckpoint)
	}
	if h.Version < 1 || h.Version > checkpointVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidCheckpoint, h.Version)
	}
	if h.ShardCount != shardCount {
		return fmt.Errorf("%w: shard count %d, want %d", ErrInvalidCheckpoint, h.ShardCount, shardCount)
	}

	stack := make([]Frame, 0, h.StackSize)
	for i := uint64(0); i < h.StackSize; i++ {
		var fh frameHeader
		if err := binary.Read(r, binary.LittleEndian, &fh); err != nil {
			return fmt.Errorf("%w: short frame %d: %v", ErrInvalidCheckpoint, i, err)
		}
		if fh.Side > uint8(board.Black) {
			return fmt.Errorf("%w: frame %d: bad side %d", ErrInvalidCheckpoint, i, fh.Side)
		}
		history := make([]uint64, fh.HistoryLen)
		if h.Version >= 2 {
			if err := binary.Read(r, binary.LittleEndian, history); err != nil {
				return fmt.Errorf("%w: short history in frame %d: %v", ErrInvalidCheckpoint, i, err)
			}
		} else {
			legacy := make([]uint32, fh.HistoryLen)
			if err := binary.Read(r, binary.LittleEndian, legacy); err != nil {
				return fmt.Errorf("%w: short history in frame %d: %v", ErrInvalidCheckpoint, i, err)
			}
			for k, v := range legacy {
				history[k] = uint64(v)
			}
		}
		g := game.Restore(
			board.FromMasks(fh.Occ, fh.Black, fh.King),
			board.Color(fh.Side),
			fh.IsLoop != 0,
			history,
		)
		stack = append(stack, Frame{Game: g, NextChild: int(fh.NextChild)})
	}

	shards := make([]map[uint64]struct{}, shardCount)
	for i := 0; i < shardCount; i++ {
		var n uint64
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return fmt.Errorf("%w: short shard %d: %v", ErrInvalidCheckpoint, i, err)
		}
		hashes := make([]uint64, n)
		if err := binary.Read(r, binary.LittleEndian, hashes); err != nil {
			return fmt.Errorf("%w: short shard %d: %v", ErrInvalidCheckpoint, i, err)
		}
		set := make(map[uint64]struct{}, n)
		for _, v := range hashes {
			set[v] = struct{}{}
		}
		shards[i] = set
	}

	// Decode succeeded in full: install the new state.
	t.stack = stack
	for i := range t.shards {
		s := &t.shards[i]
		s.mu.Lock()
		s.set = shards[i]
		s.mu.Unlock()
	}
	t.gameCount.Store(h.GameCount)
	t.previousGames = h.GameCount
	t.start = t.now().Add(-time.Duration(h.WallMs) * time.Millisecond)
	t.deadline = time.Time{}
	return nil
}
