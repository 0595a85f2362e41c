package overlap

import (
	"math"
	"testing"

	"github.com/grailbio/testutil/expect"
)

func TestOptsValidate(t *testing.T) {
	opts := DefaultOpts
	expect.NoError(t, opts.Validate())

	for _, mod := range []func(o *Opts){
		func(o *Opts) { o.SeedLength = 0 },
		func(o *Opts) { o.SeedLength = 17 },
		func(o *Opts) { o.MotifLength = 0 },
		func(o *Opts) { o.MotifLength = 11 },
		func(o *Opts) { o.NumMotifs = 0 },
		func(o *Opts) { o.IndelVariance = -0.1 },
		func(o *Opts) { o.FilterCoef = 0 },
		func(o *Opts) { o.RefineCoef = -1 },
		func(o *Opts) { o.MaxCells = 8 },
		func(o *Opts) { o.Alphabet = "A" },
		func(o *Opts) { o.Parallelism = -2 },
	} {
		o := DefaultOpts
		mod(&o)
		expect.True(t, o.Validate() != nil, "%+v", o)
	}
}

func TestOptsThreshold(t *testing.T) {
	opts := DefaultOpts
	expect.EQ(t, opts.Threshold(), 0.2)
	opts.RefineCoef = 2
	expect.True(t, math.Abs(opts.Threshold()-(0.2+0.1*(1-math.Exp(-2)))) < 1e-12)
	opts.ScoreThreshold = 0.5
	expect.EQ(t, opts.Threshold(), 0.5)
	opts.ScoreThreshold = 0
	expect.EQ(t, opts.Threshold(), 0.0)
}
