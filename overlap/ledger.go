package overlap

import (
	"sync"

	farm "github.com/dgryski/go-farm"
)

// The ledger is sharded 256 ways, using the upper 8 bits of
// farmhash(pair) to pick the shard. Each shard is a plain map guarded by its
// own mutex.
const nLedgerShard = 256

type pairKey struct {
	a, b int
}

type ledgerShard struct {
	mu      sync.Mutex
	offsets map[pairKey]int
}

// Ledger remembers, for every ordered pair of profiles, the smallest seed
// offset that has been sent to validation. It lives for one search pass.
// Thread safe.
type Ledger struct {
	shards [nLedgerShard]ledgerShard
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	l := &Ledger{}
	for i := range l.shards {
		l.shards[i].offsets = map[pairKey]int{}
	}
	return l
}

func (l *Ledger) shard(k pairKey) *ledgerShard {
	h := farm.Hash64WithSeed(nil, uint64(uint32(k.a))<<32|uint64(uint32(k.b)))
	return &l.shards[h>>56]
}

// CheckAndSet decides whether the pair (a, b) must be validated at the given
// offset. It returns false iff the ledger already holds an offset <= offset
// for the pair. Otherwise it records offset and returns true.
func (l *Ledger) CheckAndSet(a, b, offset int) bool {
	k := pairKey{a, b}
	s := l.shard(k)
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.offsets[k]; ok && prev <= offset {
		return false
	}
	s.offsets[k] = offset
	return true
}

// Get returns the offset recorded for (a, b).
func (l *Ledger) Get(a, b int) (int, bool) {
	k := pairKey{a, b}
	s := l.shard(k)
	s.mu.Lock()
	off, ok := s.offsets[k]
	s.mu.Unlock()
	return off, ok
}

// Len returns the number of pairs in the ledger.
func (l *Ledger) Len() int {
	n := 0
	for i := range l.shards {
		s := &l.shards[i]
		s.mu.Lock()
		n += len(s.offsets)
		s.mu.Unlock()
	}
	return n
}
