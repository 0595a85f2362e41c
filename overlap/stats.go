package overlap

// Stats represents statistics of an overlap search.
type Stats struct {
	// Cells is the # of non-empty index cells searched.
	Cells int
	// Seeds is the # of seeds used as queries.
	Seeds int
	// NeighborCells is the total # of cells visited over all the queries.
	NeighborCells int
	// SeedPairs is the # of (query, indexed) seed pairs compared.
	SeedPairs int
	// Candidates is the # of seed pairs that were within tolerance.
	Candidates int
	// LedgerSkips is the # of candidates dropped because the pair was already
	// validated at a smaller or equal offset.
	LedgerSkips int
	// Validated is the # of candidates that were validated.
	Validated int
	// Reported is the # of matches that passed the score threshold.
	Reported int
	// ExpectedFalseHits estimates how many of the candidates would occur for
	// random profiles.
	ExpectedFalseHits float64
}

// Merge adds the field values of the two Stats objects and creates new Stats.
func (s Stats) Merge(o Stats) Stats {
	s.Cells += o.Cells
	s.Seeds += o.Seeds
	s.NeighborCells += o.NeighborCells
	s.SeedPairs += o.SeedPairs
	s.Candidates += o.Candidates
	s.LedgerSkips += o.LedgerSkips
	s.Validated += o.Validated
	s.Reported += o.Reported
	s.ExpectedFalseHits += o.ExpectedFalseHits
	return s
}
