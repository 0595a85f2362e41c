package overlap

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/grailbio/testutil/expect"
)

func TestLedger(t *testing.T) {
	l := NewLedger()
	_, ok := l.Get(1, 2)
	expect.False(t, ok)

	expect.True(t, l.CheckAndSet(1, 2, 5))
	expect.False(t, l.CheckAndSet(1, 2, 5))
	expect.False(t, l.CheckAndSet(1, 2, 7))
	off, ok := l.Get(1, 2)
	expect.True(t, ok)
	expect.EQ(t, off, 5)

	// A smaller offset is validated again.
	expect.True(t, l.CheckAndSet(1, 2, 3))
	off, _ = l.Get(1, 2)
	expect.EQ(t, off, 3)

	// Pairs are ordered.
	expect.True(t, l.CheckAndSet(2, 1, 7))
	expect.EQ(t, l.Len(), 2)
}

func TestLedgerConcurrent(t *testing.T) {
	l := NewLedger()
	var (
		wg     sync.WaitGroup
		nFresh int64
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for a := 0; a < 100; a++ {
				if l.CheckAndSet(a, a+1, 0) {
					atomic.AddInt64(&nFresh, 1)
				}
			}
		}()
	}
	wg.Wait()
	expect.EQ(t, nFresh, int64(100))
	expect.EQ(t, l.Len(), 100)
}
