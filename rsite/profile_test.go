package rsite

import (
	"math/rand"
	"testing"

	"github.com/grailbio/testutil/expect"
)

func TestDigest(t *testing.T) {
	p := Digest("r1", "aaGATCaaaGATCaGATCaa", "GATC")
	expect.EQ(t, p, Profile{Name: "r1", Dists: []int{7, 5}, Lead: 2, Trail: 6, Orient: Forward})
	expect.EQ(t, p.BaseLen(), 20)

	// Overlapping occurrences are all sites.
	p = Digest("r2", "AAAA", "AA")
	expect.EQ(t, p.Dists, []int{1, 1})
	expect.EQ(t, p.Lead, 0)
	expect.EQ(t, p.Trail, 2)

	// A motif at the very end of the sequence is found.
	p = Digest("r3", "CCGATC", "GATC")
	expect.EQ(t, p.Lead, 2)
	expect.EQ(t, p.Trail, 4)
	expect.EQ(t, len(p.Dists), 0)

	p = Digest("r4", "CCCCCC", "GATC")
	expect.EQ(t, p.Lead, 6)
	expect.EQ(t, p.Trail, 0)
	expect.EQ(t, p.BaseLen(), 6)
}

func TestFlip(t *testing.T) {
	r := rand.New(rand.NewSource(0))
	for iter := 0; iter < 100; iter++ {
		p := Profile{Name: "x", Lead: r.Intn(50), Trail: r.Intn(50), Orient: Forward}
		for i := r.Intn(10); i > 0; i-- {
			p.Dists = append(p.Dists, r.Intn(1000))
		}
		orig := p.Flipped()
		orig.Flip()
		expect.EQ(t, orig.Dists, p.Dists)

		q := p.Flipped()
		expect.EQ(t, q.Lead, p.Trail)
		expect.EQ(t, q.Trail, p.Lead)
		expect.EQ(t, q.Orient, Reverse)
		expect.EQ(t, q.BaseLen(), p.BaseLen())
		q.Flip()
		expect.EQ(t, q.Lead, p.Lead)
		expect.EQ(t, q.Trail, p.Trail)
		expect.EQ(t, q.Orient, p.Orient)
		if len(p.Dists) > 0 {
			expect.EQ(t, q.Dists, p.Dists)
		}
	}
}

func TestBasePos(t *testing.T) {
	p := Profile{Dists: []int{10, 20, 30}, Lead: 5, Trail: 7}
	expect.EQ(t, p.BasePos(0, false), 5)
	expect.EQ(t, p.BasePos(0, true), 15)
	expect.EQ(t, p.BasePos(2, false), 35)
	expect.EQ(t, p.BasePos(2, true), 65)
	expect.EQ(t, p.BasePos(3, false), 65)
	expect.EQ(t, p.BasePos(3, true), 72)
	expect.EQ(t, p.BaseLen(), 5+10+20+30+7)
	// Out of range indices are clamped.
	expect.EQ(t, p.BasePos(-3, false), 5)
	expect.EQ(t, p.BasePos(10, true), 72)

	expect.EQ(t, p.String(), "5, 10, 20, 30, 7")
}

func TestProfileSet(t *testing.T) {
	s := ProfileSet{}
	expect.EQ(t, s.AddSequence("", "", "GATC", true), 0)
	expect.EQ(t, s.Len(), 0)

	n := s.AddSequence("r1", "AAGATCAAAGATCAGATCAA", "GATC", true)
	expect.EQ(t, n, 4)
	expect.EQ(t, s.Len(), 2)
	expect.EQ(t, s.NumSites(), 4)
	expect.EQ(t, s.Get(0).Name, "r1")
	expect.EQ(t, s.Get(1).Name, "r1_RC")
	expect.EQ(t, s.Dists(1), []int{5, 7})
	expect.EQ(t, s.Get(1).Orient, Reverse)
	// The forward copy is left untouched.
	expect.EQ(t, s.Dists(0), []int{7, 5})

	n = s.AddSequence("r2", "GATCGATC", "GATC", false)
	expect.EQ(t, n, 1)
	expect.EQ(t, s.Len(), 3)

	expect.True(t, s.Get(3) == nil)
	expect.True(t, s.Get(-1) == nil)
	expect.EQ(t, len(s.Dists(7)), 0)
}
