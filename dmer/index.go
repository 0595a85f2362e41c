package dmer

import (
	"math"

	"github.com/grailbio/base/log"
)

// Opts configures an Index.
type Opts struct {
	// SeedLength is the number of distances in a seed (L). It is also the
	// number of axes of the cell grid.
	SeedLength int
	// MotifLength is the length of the motif the profiles were digested with.
	// Together with AlphabetSize it defines the site probability used to place
	// the bin boundaries.
	MotifLength int
	// AlphabetSize is the number of distinct bases. Defaults to 4.
	AlphabetSize int
	// MaxCells caps the number of cells of the grid.
	MaxCells int
}

// Index is a flattened L-dimensional grid of seed lists. Cell ids are mixed
// radix numbers: the bin of axis i has weight D^(L-1-i).
//
// An Index is filled by a single goroutine. Once built, it is safe for
// concurrent reads.
type Index struct {
	opts  Opts
	nBins int
	// bounds[k] is the smallest distance that belongs to bin k+1.
	// len(bounds) == nBins-1.
	bounds []int
	// binOf[v] is the bin of distance v, for v < bounds[nBins-2].
	binOf  []int32
	powers []int // powers[i] = nBins^(L-1-i)
	cells  [][]Seed
	nSeeds int
}

// intPow computes b^e, saturating at math.MaxInt64.
func intPow(b, e int) int {
	r := 1
	for i := 0; i < e; i++ {
		if r > math.MaxInt64/b {
			return math.MaxInt64
		}
		r *= b
	}
	return r
}

// BinCount returns the number of bins per axis for an index expected to hold
// estSeeds seeds. It aims for D^L ~= 3*estSeeds cells, uses at least two bins,
// and shrinks D (logging a warning) if D^L would exceed maxCells.
func BinCount(estSeeds, L, maxCells int) int {
	if L <= 0 {
		return 2
	}
	target := 3 * estSeeds
	d := int(math.Pow(float64(target), 1/float64(L)))
	// Correct rounding errors of the floating point root.
	for d > 1 && intPow(d, L) > target {
		d--
	}
	for intPow(d+1, L) <= target {
		d++
	}
	if d < 2 {
		d = 2
	}
	if maxCells > 0 && intPow(d, L) > maxCells {
		want := d
		for d > 2 && intPow(d, L) > maxCells {
			d--
		}
		log.Error.Printf("Input data size is too large: %d bins per axis would need %d cells, using %d bins (%d cells)",
			want, intPow(want, L), d, intPow(d, L))
	}
	return d
}

// binBounds returns the nBins-1 bin boundaries for site probability p1.
// Distance v has probability p2^v*p1, where p2 = 1-p1. The boundary k is the
// first distance past the point where the cumulative mass reaches (k+1)/nBins.
func binBounds(nBins int, p1 float64) []int {
	p2 := 1 - p1
	bounds := make([]int, 0, nBins-1)
	cum, v := 0.0, 0
	for k := 1; k < nBins; k++ {
		for cum < float64(k)/float64(nBins) {
			cum += math.Pow(p2, float64(v)) * p1
			v++
		}
		bounds = append(bounds, v)
	}
	return bounds
}

// NewIndex creates an empty index sized for estSeeds seeds.
func NewIndex(opts Opts, estSeeds int) *Index {
	if opts.AlphabetSize <= 0 {
		opts.AlphabetSize = 4
	}
	if opts.SeedLength <= 0 {
		opts.SeedLength = 1
	}
	L := opts.SeedLength
	idx := &Index{
		opts:  opts,
		nBins: BinCount(estSeeds, L, opts.MaxCells),
	}
	idx.bounds = binBounds(idx.nBins, siteProb(opts.MotifLength, opts.AlphabetSize))
	last := idx.bounds[len(idx.bounds)-1]
	idx.binOf = make([]int32, last)
	bin := int32(0)
	for v := 0; v < last; v++ {
		for v >= idx.bounds[bin] {
			bin++
		}
		idx.binOf[v] = bin
	}
	idx.powers = make([]int, L)
	for i := range idx.powers {
		idx.powers[i] = intPow(idx.nBins, L-1-i)
	}
	idx.cells = make([][]Seed, intPow(idx.nBins, L))
	log.Printf("Estimated number of seeds: %d, bins per axis: %d, cells: %d", estSeeds, idx.nBins, len(idx.cells))
	for k, b := range idx.bounds {
		log.Debug.Printf("Bin %d starts at distance %d", k+1, b)
	}
	return idx
}

// Build creates an index holding every seed of every profile. The number of
// seeds is estimated by the total number of distances.
func Build(profiles Profiles, opts Opts) *Index {
	est := 0
	for i := 0; i < profiles.Len(); i++ {
		est += len(profiles.Dists(i))
	}
	idx := NewIndex(opts, est)
	for i := 0; i < profiles.Len(); i++ {
		idx.AddProfile(i, profiles.Dists(i))
	}
	log.Printf("Total number of seeds: %d", idx.nSeeds)
	return idx
}

// AddProfile adds every seed of the given profile. Thread compatible.
func (idx *Index) AddProfile(profile int, dists []int) {
	L := idx.opts.SeedLength
	for i := 0; i+L <= len(dists); i++ {
		idx.Add(Seed{Profile: profile, Pos: i, Vals: dists[i : i+L : i+L]})
	}
}

// Add stores one seed. Seeds of the wrong length are dropped. Thread
// compatible.
func (idx *Index) Add(s Seed) {
	id := idx.Cell(s.Vals)
	if id < 0 {
		return
	}
	idx.cells[id] = append(idx.cells[id], s)
	idx.nSeeds++
}

// SeedLength returns L.
func (idx *Index) SeedLength() int { return idx.opts.SeedLength }

// NumBins returns the number of bins per axis.
func (idx *Index) NumBins() int { return idx.nBins }

// NumCells returns the number of cells of the grid, D^L.
func (idx *Index) NumCells() int { return len(idx.cells) }

// NumSeeds returns the number of seeds stored.
func (idx *Index) NumSeeds() int { return idx.nSeeds }

// Opts returns the options the index was created with, with defaults filled
// in.
func (idx *Index) Opts() Opts { return idx.opts }

// Bounds returns the bin boundaries: Bounds()[k] is the smallest distance of
// bin k+1. The caller must not modify the result.
func (idx *Index) Bounds() []int { return idx.bounds }

// Bin returns the bin of distance v. Distances at or beyond the last boundary
// belong to the last bin.
func (idx *Index) Bin(v int) int {
	if v < 0 {
		return 0
	}
	if v >= len(idx.binOf) {
		return idx.nBins - 1
	}
	return int(idx.binOf[v])
}

// Cell returns the id of the cell that holds a seed with the given values,
// or -1 if len(vals) != L.
func (idx *Index) Cell(vals []int) int {
	if len(vals) != idx.opts.SeedLength {
		return -1
	}
	id := 0
	for i, v := range vals {
		id += idx.Bin(v) * idx.powers[i]
	}
	return id
}

// Seeds returns the seeds stored in the given cell. It returns nil if id is
// out of range. The caller must not modify the result.
func (idx *Index) Seeds(id int) []Seed {
	if id < 0 || id >= len(idx.cells) {
		return nil
	}
	return idx.cells[id]
}

// Coords decomposes a cell id into per-axis bins. It returns nil if id is out
// of range.
func (idx *Index) Coords(id int) []int {
	if id < 0 || id >= len(idx.cells) {
		return nil
	}
	coords := make([]int, idx.opts.SeedLength)
	for i := len(coords) - 1; i >= 0; i-- {
		coords[i] = id % idx.nBins
		id /= idx.nBins
	}
	return coords
}

// Neighbors appends to buf[:0] the ids of the cells that may hold a seed
// within devs of vals, and returns the result. The cell of vals itself always
// comes first.
//
// An axis qualifies for a step to the next bin if its bin is not the last one
// and vals[i]+devs[i] reaches the next bin. Every combination of steps along
// the qualifying axes is enumerated, yielding at most 2^L cells. Cells are
// only ever searched upwards: a pair of seeds that differ in both directions
// is found from whichever seed has the lower values.
//
// If vals or devs is too short, the result is empty.
func (idx *Index) Neighbors(vals, devs []int, buf []int) []int {
	buf = buf[:0]
	own := idx.Cell(vals)
	if own < 0 || len(devs) < len(vals) {
		return buf
	}
	var stepBuf [16]int
	steps := stepBuf[:0]
	for i, v := range vals {
		b := idx.Bin(v)
		if b < idx.nBins-1 && v+devs[i] >= idx.bounds[b] {
			steps = append(steps, idx.powers[i])
		}
	}
	for mask := 0; mask < 1<<uint(len(steps)); mask++ {
		id := own
		for j, step := range steps {
			if mask&(1<<uint(j)) != 0 {
				id += step
			}
		}
		buf = append(buf, id)
	}
	return buf
}
