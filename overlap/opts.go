package overlap

import (
	"fmt"
	"math"
)

// Opts controls the overlap search.
type Opts struct {
	// SeedLength is the number of consecutive distances in a seed (L).
	SeedLength int
	// MotifLength is the length of the generated motifs.
	MotifLength int
	// NumMotifs is the number of motifs to digest the reads with. Every motif
	// gets its own index.
	NumMotifs int
	// SingleStrand disables the reverse-complement profiles and the
	// palindrome requirement on motifs.
	SingleStrand bool
	// FilterCoef is the CNDF coefficient used when comparing seeds.
	FilterCoef float64
	// RefineCoef is the CNDF coefficient used by the validator. It also
	// determines the automatic score threshold.
	RefineCoef float64
	// ScoreThreshold is the minimum identity score (exclusive) of a reported
	// match. A negative value selects it from RefineCoef, see Threshold.
	ScoreThreshold float64
	// IndelVariance is the variance of the cumulative indel and substitution
	// error per base.
	IndelVariance float64
	// MaxCells caps the number of cells of each seed index.
	MaxCells int
	// Alphabet lists the bases in lexicographic order.
	Alphabet string
	// Parallelism is the number of concurrent search workers. Zero means
	// runtime.NumCPU().
	Parallelism int
}

// DefaultOpts sets the default values to Opts.
var DefaultOpts = Opts{
	SeedLength:     4,       // -d
	MotifLength:    4,       // -motif-len
	NumMotifs:      1,       // -motifs
	SingleStrand:   false,   // -single-strand
	FilterCoef:     2.5,     // -filter-coef
	RefineCoef:     1.0,     // -refine-coef
	ScoreThreshold: -1,      // -threshold
	IndelVariance:  0.1,     // -indel-variance
	MaxCells:       1 << 28, // -max-cells
	Alphabet:       "ACGT",  // no flag
	Parallelism:    0,       // -parallelism
}

const maxSeedLength = 16

// Validate checks that the options are usable.
func (o Opts) Validate() error {
	if o.SeedLength < 1 || o.SeedLength > maxSeedLength {
		return fmt.Errorf("seed length must be in [1, %d], but got %d", maxSeedLength, o.SeedLength)
	}
	if o.MotifLength < 1 {
		return fmt.Errorf("motif length must be positive, but got %d", o.MotifLength)
	}
	if n := len(o.Alphabet); n > 0 && math.Pow(float64(n), float64(o.MotifLength)) > 1<<20 {
		return fmt.Errorf("motif length %d is too long for a %d-letter alphabet", o.MotifLength, n)
	}
	if o.NumMotifs < 1 {
		return fmt.Errorf("number of motifs must be positive, but got %d", o.NumMotifs)
	}
	if o.IndelVariance < 0 {
		return fmt.Errorf("indel variance must be non-negative, but got %v", o.IndelVariance)
	}
	if o.FilterCoef <= 0 || o.RefineCoef <= 0 {
		return fmt.Errorf("CNDF coefficients must be positive, but got %v and %v", o.FilterCoef, o.RefineCoef)
	}
	if o.MaxCells < 1<<uint(o.SeedLength) {
		return fmt.Errorf("max-cells must be at least 2^%d, but got %d", o.SeedLength, o.MaxCells)
	}
	if len(o.Alphabet) < 2 {
		return fmt.Errorf("alphabet must have at least two letters, but got %q", o.Alphabet)
	}
	if o.Parallelism < 0 {
		return fmt.Errorf("parallelism must be non-negative, but got %d", o.Parallelism)
	}
	return nil
}

// Threshold returns the identity score a match must exceed to be reported.
// Unless ScoreThreshold is set, it is 0.2+0.1*(1-exp(-2*(RefineCoef-1))).
func (o Opts) Threshold() float64 {
	if o.ScoreThreshold >= 0 {
		return o.ScoreThreshold
	}
	return 0.2 + 0.1*(1-math.Exp(-2*(o.RefineCoef-1)))
}
