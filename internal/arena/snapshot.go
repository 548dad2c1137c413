package arena

import (
	"sync/atomic"
	"time"

	"arena-server/internal/config"
)

// ShipSnapshot is an immutable copy of ship state for broadcast/REST
// introspection. Value types, not pointers, so it stays safe to read
// after the writer has moved on to the next tick.
type ShipSnapshot struct {
	ID           string
	Label        string
	X, Y         float64
	Rotation     float64
	Color        string
	Health       int
	Shield       int
	ActiveWeapon WeaponKind
	Kills        int
	Deaths       int
}

// BotSnapshot is an immutable copy of bot state.
type BotSnapshot struct {
	ID      string
	Label   string
	X, Y    float64
	Heading float64
	Health  int
	Dead    bool
}

// RoomSnapshot is a complete immutable world view for the REST
// introspection endpoint (/api/state).
type RoomSnapshot struct {
	Sequence   uint64
	Timestamp  time.Time
	TickNumber uint64

	Ships []ShipSnapshot
	Bots  []BotSnapshot

	ShipCount int
	BotCount  int
}

// SnapshotPool triple-buffers RoomSnapshot so the tick loop (producer)
// and the HTTP readers (consumers) never contend a mutex.
type SnapshotPool struct {
	snapshots [3]RoomSnapshot
	writeIdx  uint32 // atomic - producer index
	readIdx   uint32 // atomic - consumer index
	sequence  uint64 // atomic - monotonic sequence
}

// NewSnapshotPool creates a pool with slices pre-allocated to the
// configured resource limits, so steady-state operation never
// allocates.
func NewSnapshotPool(limits config.ResourceLimits) *SnapshotPool {
	pool := &SnapshotPool{}

	for i := 0; i < 3; i++ {
		pool.snapshots[i] = RoomSnapshot{
			Ships: make([]ShipSnapshot, 0, limits.MaxShips),
			Bots:  make([]BotSnapshot, 0, limits.MaxBots),
		}
	}

	return pool
}

// AcquireWrite returns the next write slot with slices reset to
// length 0 but retained capacity. Producer-only (called from the
// tick loop).
func (p *SnapshotPool) AcquireWrite() *RoomSnapshot {
	idx := atomic.AddUint32(&p.writeIdx, 1) % 3
	snap := &p.snapshots[idx]

	snap.Ships = snap.Ships[:0]
	snap.Bots = snap.Bots[:0]
	snap.Sequence = atomic.AddUint64(&p.sequence, 1)
	snap.Timestamp = time.Now()

	return snap
}

// PublishWrite marks the just-filled snapshot visible to readers.
func (p *SnapshotPool) PublishWrite() {
	atomic.StoreUint32(&p.readIdx, atomic.LoadUint32(&p.writeIdx))
}

// AcquireRead returns the latest published snapshot. Consumer-only.
func (p *SnapshotPool) AcquireRead() *RoomSnapshot {
	idx := atomic.LoadUint32(&p.readIdx) % 3
	return &p.snapshots[idx]
}
