package overlap

import (
	"github.com/grailbio/base/log"
	"github.com/grailbio/sitelaps/dmer"
	"github.com/grailbio/sitelaps/rsite"
)

// Engine holds the profiles digested with one motif and their seed index.
type Engine struct {
	motif    string
	opts     Opts
	profiles rsite.ProfileSet
	idx      *dmer.Index
}

// NewEngine creates an empty engine for the given motif.
func NewEngine(motif string, opts Opts) *Engine {
	return &Engine{motif: motif, opts: opts}
}

// Motif returns the motif of the engine.
func (e *Engine) Motif() string { return e.motif }

// Profiles returns the profiles added so far.
func (e *Engine) Profiles() *rsite.ProfileSet { return &e.profiles }

// Index returns the seed index, or nil before Build.
func (e *Engine) Index() *dmer.Index { return e.idx }

// AddSequence digests one sequence and adds its profile, plus its reverse
// complement unless Opts.SingleStrand is set. It returns the number of sites
// added. It must not be called after Build.
func (e *Engine) AddSequence(name, seq string) int {
	return e.profiles.AddSequence(name, seq, e.motif, !e.opts.SingleStrand)
}

// Build creates the seed index over the profiles added so far.
func (e *Engine) Build() {
	log.Printf("Motif %s: %d profiles, %d sites", e.motif, e.profiles.Len(), e.profiles.NumSites())
	e.idx = dmer.Build(&e.profiles, dmer.Opts{
		SeedLength:   e.opts.SeedLength,
		MotifLength:  len(e.motif),
		AlphabetSize: len(e.opts.Alphabet),
		MaxCells:     e.opts.MaxCells,
	})
}

// Searcher finds the matches of query seeds in an engine's index. Each
// worker owns one Searcher; the engine, the ledger and the reporter are
// shared. Thread compatible.
type Searcher struct {
	e      *Engine
	ledger *Ledger
	rep    *Reporter
	stats  Stats

	devs      []int
	neighbors []int
	seeds     []dmer.Seed
}

// NewSearcher creates a searcher. The engine must have been built.
func (e *Engine) NewSearcher(ledger *Ledger, rep *Reporter) *Searcher {
	return &Searcher{e: e, ledger: ledger, rep: rep}
}

// Stats returns the statistics accumulated so far.
func (s *Searcher) Stats() Stats { return s.stats }

// SearchCell searches the matches of every seed stored in the given cell
// against the whole index. Seeds of the same profile never match. It returns
// the number of matches reported. An out-of-range cell yields no matches.
func (s *Searcher) SearchCell(id int) int {
	seeds := s.e.idx.Seeds(id)
	if len(seeds) == 0 {
		return 0
	}
	s.stats.Cells++
	if log.At(log.Debug) {
		log.Debug.Printf("Cell %d %v: %d seeds", id, s.e.idx.Coords(id), len(seeds))
	}
	profiles := &s.e.profiles
	return s.search(seeds, func(i int) *rsite.Profile { return profiles.Get(i) }, false)
}

// Lookup searches the matches of a profile that is not part of the index.
// queryIdx identifies the query in the ledger. It returns the number of
// matches reported.
func (s *Searcher) Lookup(queryIdx int, query *rsite.Profile) int {
	s.seeds = dmer.AppendSeeds(s.seeds[:0], queryIdx, query.Dists, s.e.idx.SeedLength())
	return s.search(s.seeds, func(int) *rsite.Profile { return query }, true)
}

// search runs every query seed through the index. A candidate pair is
// validated only if it is within tolerance and the ledger has not seen the
// pair at a smaller or equal offset.
func (s *Searcher) search(seeds []dmer.Seed, queryProfile func(int) *rsite.Profile, acceptSame bool) int {
	var (
		opts     = &s.e.opts
		idx      = s.e.idx
		profiles = &s.e.profiles
		nMatches = 0
		motifLen = len(s.e.motif)
		alphabet = idx.Opts().AlphabetSize
		nSeeds   = float64(idx.NumSeeds())
	)
	for _, dm1 := range seeds {
		s.stats.Seeds++
		s.devs = dmer.Deviations(dm1.Vals, opts.IndelVariance, opts.FilterCoef, s.devs)
		s.neighbors = idx.Neighbors(dm1.Vals, s.devs, s.neighbors)
		s.stats.NeighborCells += len(s.neighbors)
		s.stats.ExpectedFalseHits += dmer.FalsePositiveRate(dm1.Vals, s.devs, motifLen, alphabet) * nSeeds
		for _, cell := range s.neighbors {
			for _, dm2 := range idx.Seeds(cell) {
				s.stats.SeedPairs++
				if !dmer.IsMatch(dm1, dm2, s.devs, acceptSame) {
					continue
				}
				s.stats.Candidates++
				offset := dm1.Pos - dm2.Pos
				if offset < 0 {
					offset = -offset
				}
				if !s.ledger.CheckAndSet(dm1.Profile, dm2.Profile, offset) {
					s.stats.LedgerSkips++
					continue
				}
				query, target := queryProfile(dm1.Profile), profiles.Get(dm2.Profile)
				if log.At(log.Debug) {
					log.Debug.Printf("Validate %s [%v] against %s [%v], seed%v", query.Name, query, target.Name, target, dm2)
				}
				m := Validate(query.Dists, target.Dists, dm1.Pos, dm2.Pos, opts.IndelVariance, opts.RefineCoef)
				s.stats.Validated++
				if s.rep.Report(query, target, m) {
					s.stats.Reported++
					nMatches++
				}
			}
		}
	}
	return nMatches
}
