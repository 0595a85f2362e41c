package overlap

import (
	"context"
	"fmt"
	"io"
	"runtime"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/sitelaps/encoding/fasta"
	"github.com/grailbio/sitelaps/motif"
	"github.com/grailbio/sitelaps/rsite"
)

const (
	// Number of cells searched between two checks for cancellation.
	cancelCheckInterval = 4096
	// Number of work units per worker in a search pass.
	jobsPerWorker = 8
	// Number of query records looked up in one batch.
	lookupBatchSize = 4096
)

// Mapper owns one Engine per motif and drives the searches over them.
//
// Usage: NewMapper, then AddSequence or ReadFASTA for every target, Build,
// then FindOverlaps and/or Lookup. Sequences must not be added after Build.
type Mapper struct {
	opts    Opts
	motifs  []string
	engines map[string]*Engine
	nSeqs   int
}

// NewMapper validates opts, generates the motifs and creates their engines.
// Fewer motifs than requested may be generated; see motif.Generate.
func NewMapper(opts Opts) (*Mapper, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	motifs := motif.Generate(motif.Opts{
		Length:       opts.MotifLength,
		Count:        opts.NumMotifs,
		SingleStrand: opts.SingleStrand,
		Alphabet:     opts.Alphabet,
	})
	if len(motifs) == 0 {
		return nil, fmt.Errorf("no valid motif of length %d (single strand: %v)", opts.MotifLength, opts.SingleStrand)
	}
	m := &Mapper{
		opts:    opts,
		motifs:  motifs,
		engines: make(map[string]*Engine, len(motifs)),
	}
	for _, mo := range motifs {
		m.engines[mo] = NewEngine(mo, opts)
	}
	log.Printf("Using %d motifs: %v", len(motifs), motifs)
	return m, nil
}

// Opts returns the options of the mapper.
func (m *Mapper) Opts() Opts { return m.opts }

// Motifs returns the motifs in use, in generation order.
func (m *Mapper) Motifs() []string { return m.motifs }

// NumSequences returns the number of target sequences added.
func (m *Mapper) NumSequences() int { return m.nSeqs }

// Engine returns the engine of the given motif, or nil.
func (m *Mapper) Engine(motif string) *Engine { return m.engines[motif] }

func (m *Mapper) parallelism() int {
	if m.opts.Parallelism > 0 {
		return m.opts.Parallelism
	}
	return runtime.NumCPU()
}

// AddSequence adds one target sequence to every engine. It returns the total
// number of sites over all motifs. A record without name and sequence is
// ignored.
func (m *Mapper) AddSequence(name, seq string) int {
	if name == "" && seq == "" {
		return 0
	}
	n := 0
	for _, mo := range m.motifs {
		n += m.engines[mo].AddSequence(name, seq)
	}
	m.nSeqs++
	return n
}

// openFASTA opens a possibly compressed FASTA file.
func openFASTA(ctx context.Context, path string) (file.File, *fasta.Scanner, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, nil, errors.E(err, "open", path)
	}
	var r io.Reader = in.Reader(ctx)
	if u := compress.NewReaderPath(r, in.Name()); u != nil {
		r = u
	}
	return in, fasta.NewScanner(r), nil
}

// ReadFASTA adds every sequence of the given file. Files with a compression
// suffix (.gz, .zst, ...) are decompressed on the fly.
func (m *Mapper) ReadFASTA(ctx context.Context, path string) error {
	in, sc, err := openFASTA(ctx, path)
	if err != nil {
		return err
	}
	nRec, nSites := 0, 0
	for sc.Scan() {
		rec := sc.Get()
		nSites += m.AddSequence(rec.Name, rec.Seq)
		nRec++
		if nRec%100000 == 0 {
			log.Printf("%s: %d sequences", path, nRec)
		}
	}
	e := errors.Once{}
	e.Set(sc.Err())
	e.Set(in.Close(ctx))
	if err := e.Err(); err != nil {
		return errors.E(err, "read", path)
	}
	log.Printf("Read %d sequences, %d sites from %s", nRec, nSites, path)
	return nil
}

// Build creates the index of every engine. Engines are built concurrently.
func (m *Mapper) Build() {
	_ = traverse.Each(len(m.motifs), func(i int) error {
		m.engines[m.motifs[i]].Build()
		return nil
	})
}

// FindOverlaps searches every cell of every engine for overlapping targets
// and sends the matches to rep. A single ledger is shared by all motifs. The
// search stops early with ctx.Err() if ctx is canceled. Build must have been
// called.
func (m *Mapper) FindOverlaps(ctx context.Context, rep *Reporter) (Stats, error) {
	var (
		ledger      = NewLedger()
		total       Stats
		parallelism = m.parallelism()
		nJobs       = parallelism * jobsPerWorker
	)
	for _, mo := range m.motifs {
		e := m.engines[mo]
		nCells := e.idx.NumCells()
		stats := make([]Stats, nJobs)
		err := traverse.Limit(parallelism).Each(nJobs, func(job int) error {
			start := job * nCells / nJobs
			limit := (job + 1) * nCells / nJobs
			s := e.NewSearcher(ledger, rep)
			for id := start; id < limit; id++ {
				if (id-start)%cancelCheckInterval == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				s.SearchCell(id)
			}
			stats[job] = s.Stats()
			return nil
		})
		if err != nil {
			return total, err
		}
		var motifStats Stats
		for _, s := range stats {
			motifStats = motifStats.Merge(s)
		}
		log.Printf("Motif %s: %d matches, %d validated, %.1f expected false seed hits",
			mo, motifStats.Reported, motifStats.Validated, motifStats.ExpectedFalseHits)
		total = total.Merge(motifStats)
	}
	log.Printf("Stats: %+v", total)
	return total, rep.Err()
}

// lookupQuery is one query profile with its ledger id.
type lookupQuery struct {
	id      int
	profile rsite.Profile
}

// lookupBatch matches external sequences against every engine. The i'th
// record has ledger id firstID+2i, and its reverse complement firstID+2i+1.
// Each call uses its own searchers, so batches may run concurrently.
func (m *Mapper) lookupBatch(ledger *Ledger, rep *Reporter, recs []fasta.Record, firstID int) Stats {
	var stats Stats
	searchers := make(map[string]*Searcher, len(m.motifs))
	for _, mo := range m.motifs {
		searchers[mo] = m.engines[mo].NewSearcher(ledger, rep)
	}
	var queries []lookupQuery
	for i, rec := range recs {
		for _, mo := range m.motifs {
			id := firstID + 2*i
			p := rsite.Digest(rec.Name, rec.Seq, mo)
			queries = append(queries[:0], lookupQuery{id, p})
			if !m.opts.SingleStrand {
				rc := p.Flipped()
				rc.Name += "_RC"
				queries = append(queries, lookupQuery{id + 1, rc})
			}
			for j := range queries {
				searchers[mo].Lookup(queries[j].id, &queries[j].profile)
			}
		}
	}
	for _, mo := range m.motifs {
		stats = stats.Merge(searchers[mo].Stats())
	}
	return stats
}

// Lookup matches every sequence of the FASTA file at queryPath against the
// indexed targets, and sends the matches to rep. A query may match a target
// of the same name. The query at position i in the file (ignoring empty
// records) has ledger id 2i, and 2i+1 for its reverse complement.
func (m *Mapper) Lookup(ctx context.Context, queryPath string, rep *Reporter) (Stats, error) {
	in, sc, err := openFASTA(ctx, queryPath)
	if err != nil {
		return Stats{}, err
	}
	var (
		ledger      = NewLedger()
		total       Stats
		parallelism = m.parallelism()
		batch       = make([]fasta.Record, 0, lookupBatchSize)
		nQueries    = 0
	)
	flush := func() error {
		n := len(batch)
		stats := make([]Stats, parallelism)
		err := traverse.Each(parallelism, func(job int) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start, limit := job*n/parallelism, (job+1)*n/parallelism
			stats[job] = m.lookupBatch(ledger, rep, batch[start:limit], 2*(nQueries+start))
			return nil
		})
		for _, s := range stats {
			total = total.Merge(s)
		}
		nQueries += n
		batch = batch[:0]
		return err
	}
	e := errors.Once{}
	for sc.Scan() {
		rec := sc.Get()
		if rec.Name == "" && rec.Seq == "" {
			continue
		}
		if batch = append(batch, rec); len(batch) == lookupBatchSize {
			if err := flush(); err != nil {
				e.Set(err)
				break
			}
		}
	}
	if e.Err() == nil && len(batch) > 0 {
		e.Set(flush())
	}
	e.Set(sc.Err())
	e.Set(in.Close(ctx))
	e.Set(rep.Err())
	log.Printf("Looked up %d queries from %s: %d matches", nQueries, queryPath, total.Reported)
	log.Printf("Stats: %+v", total)
	return total, e.Err()
}
