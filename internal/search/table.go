// Package search implements the engine core: a shared transposition table,
// alpha-beta workers with move ordering, killer moves and late-move
// reduction, and a Lazy-SMP coordinator that combines worker results by
// weighted vote.
package search

import (
	"sync"
	"sync/atomic"

	"github.com/pbnjay/memory"
	"github.com/rs/zerolog/log"

	"github.com/walter298/agentsmith/internal/board"
	"github.com/walter298/agentsmith/internal/eval"
)

// Bound classifies a stored rating relative to the search window that
// produced it.
type Bound uint8

const (
	InWindow   Bound = iota // exact score
	LowerBound              // fail-high: true score >= stored
	UpperBound              // fail-low: true score <= stored
)

// PositionEntry is one cached search result. An entry may only be used for
// a cutoff when its Depth covers the querying node's remaining depth; a
// shallower entry is still useful as a PV-move hint.
type PositionEntry struct {
	BestMove board.Move
	Rating   eval.Rating
	Depth    uint8
	Bound    Bound
}

type tableSlot struct {
	key    uint64
	entry  PositionEntry
	age    uint8
	filled bool
}

// Number of lock shards; power of two for cheap masking.
const tableShardCount = 256

const slotSize = 32 // approximate bytes per tableSlot, for memory sizing

// defaultMemoryFraction sizes the table when no explicit size is given.
const defaultMemoryFraction = 1.0 / 16

// Table is the transposition table shared by every worker. Entries are
// guarded by sharded read-write locks so a reader can never observe a torn
// entry.
type Table struct {
	slots  []tableSlot
	shards [tableShardCount]sync.RWMutex
	mask   uint64
	age    atomic.Uint32

	probes atomic.Uint64
	hits   atomic.Uint64
}

// NewTable creates a table of roughly sizeMB megabytes. sizeMB <= 0 sizes
// the table from a fraction of total system memory.
func NewTable(sizeMB int) *Table {
	var bytes uint64
	if sizeMB > 0 {
		bytes = uint64(sizeMB) * 1024 * 1024
	} else {
		bytes = uint64(float64(memory.TotalMemory()) * defaultMemoryFraction)
	}

	numSlots := prevPowerOfTwo(bytes / slotSize)
	if numSlots < 1024 {
		numSlots = 1024
	}

	log.Debug().
		Uint64("slots", numSlots).
		Uint64("approx-bytes", numSlots*slotSize).
		Msg("transposition-table-size")

	return &Table{
		slots: make([]tableSlot, numSlots),
		mask:  numSlots - 1,
	}
}

func prevPowerOfTwo(n uint64) uint64 {
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return (n + 1) >> 1
}

func (t *Table) shard(idx uint64) *sync.RWMutex {
	return &t.shards[idx&(tableShardCount-1)]
}

// Get returns the stored entry for pos, if any. The caller must check
// entry.Depth against its own remaining depth before applying a cutoff;
// remainingDepth here only feeds the hit statistics.
func (t *Table) Get(pos *board.Position, remainingDepth uint8) (PositionEntry, bool) {
	t.probes.Add(1)

	hash := pos.Fingerprint()
	idx := hash & t.mask
	shard := t.shard(idx)

	shard.RLock()
	slot := t.slots[idx]
	shard.RUnlock()

	if !slot.filled || slot.key != hash {
		return PositionEntry{}, false
	}
	if slot.entry.Depth >= remainingDepth {
		t.hits.Add(1)
	}
	return slot.entry, true
}

// Store upserts the entry for pos. Replacement keeps the deeper entry
// within a search generation and always evicts entries from older
// generations; the search stays correct under any policy because entries
// are re-validated at use.
func (t *Table) Store(pos *board.Position, entry PositionEntry) {
	hash := pos.Fingerprint()
	idx := hash & t.mask
	shard := t.shard(idx)
	currentAge := uint8(t.age.Load())

	shard.Lock()
	slot := &t.slots[idx]
	if !slot.filled || slot.age != currentAge || entry.Depth >= slot.entry.Depth {
		slot.key = hash
		slot.entry = entry
		slot.age = currentAge
		slot.filled = true
	}
	shard.Unlock()
}

// NewSearch advances the replacement generation.
func (t *Table) NewSearch() {
	t.age.Add(1)
}

// Clear drops every entry.
func (t *Table) Clear() {
	for s := 0; s < tableShardCount; s++ {
		t.shards[s].Lock()
	}
	for i := range t.slots {
		t.slots[i] = tableSlot{}
	}
	t.age.Store(0)
	t.probes.Store(0)
	t.hits.Store(0)
	for s := tableShardCount - 1; s >= 0; s-- {
		t.shards[s].Unlock()
	}
}

// Size returns the slot count.
func (t *Table) Size() uint64 {
	return uint64(len(t.slots))
}

// HitRate returns the fraction of probes answered at sufficient depth.
func (t *Table) HitRate() float64 {
	probes := t.probes.Load()
	if probes == 0 {
		return 0
	}
	return float64(t.hits.Load()) / float64(probes)
}

// SavedEntry pairs a fingerprint with its entry for snapshotting.
type SavedEntry struct {
	Key   uint64
	Entry PositionEntry
}

// Export copies out every filled slot, for snapshot persistence.
func (t *Table) Export() []SavedEntry {
	out := make([]SavedEntry, 0, 1024)
	for i := range t.slots {
		shard := t.shard(uint64(i))
		shard.RLock()
		slot := t.slots[i]
		shard.RUnlock()
		if slot.filled {
			out = append(out, SavedEntry{Key: slot.key, Entry: slot.entry})
		}
	}
	return out
}

// Import installs snapshot entries. Entries hash to their own slots, so a
// snapshot taken at a different table size still lands correctly.
func (t *Table) Import(entries []SavedEntry) {
	currentAge := uint8(t.age.Load())
	for _, e := range entries {
		idx := e.Key & t.mask
		shard := t.shard(idx)
		shard.Lock()
		slot := &t.slots[idx]
		if !slot.filled || e.Entry.Depth >= slot.entry.Depth {
			slot.key = e.Key
			slot.entry = e.Entry
			slot.age = currentAge
			slot.filled = true
		}
		shard.Unlock()
	}
}
