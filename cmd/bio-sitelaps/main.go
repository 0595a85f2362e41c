// bio-sitelaps finds overlaps between long reads by comparing the distances
// between restriction sites instead of the bases themselves.
//
// Example:
//
//	bio-sitelaps overlap -input reads.fa.gz -output overlaps.tsv -rio-output all.rio
//	bio-sitelaps rescore -rio-input all.rio -threshold 0.3 -output strict.tsv
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/sitelaps/overlap"
	"github.com/klauspost/compress/gzip"
	"v.io/x/lib/cmdline"
)

type overlapFlags struct {
	input     string // comma-separated FASTA paths
	output    string
	rioOutput string
}

type lookupFlags struct {
	target    string // comma-separated FASTA paths
	query     string // comma-separated FASTA paths
	output    string
	rioOutput string
}

type rescoreFlags struct {
	rioInput  string
	output    string
	threshold float64
}

// addOptsFlags registers the search options on fs. Defaults are taken from
// opts.
func addOptsFlags(fs *flag.FlagSet, opts *overlap.Opts) {
	fs.IntVar(&opts.SeedLength, "d", opts.SeedLength, "Number of consecutive site distances in a seed")
	fs.IntVar(&opts.MotifLength, "motif-len", opts.MotifLength, "Length of the restriction motifs")
	fs.IntVar(&opts.NumMotifs, "motifs", opts.NumMotifs, "Number of motifs to digest the reads with")
	fs.BoolVar(&opts.SingleStrand, "single-strand", opts.SingleStrand,
		`If true, reverse-complement profiles are not generated and motifs need not be palindromes.`)
	fs.Float64Var(&opts.FilterCoef, "filter-coef", opts.FilterCoef, "Tolerance coefficient used when comparing seeds")
	fs.Float64Var(&opts.RefineCoef, "refine-coef", opts.RefineCoef, "Tolerance coefficient used when validating candidates")
	fs.Float64Var(&opts.ScoreThreshold, "threshold", opts.ScoreThreshold,
		`Identity score a match must exceed to be reported.
A negative value derives the threshold from -refine-coef.`)
	fs.Float64Var(&opts.IndelVariance, "indel-variance", opts.IndelVariance, "Variance of the indel error per base")
	fs.IntVar(&opts.MaxCells, "max-cells", opts.MaxCells, "Upper limit on the number of cells of each seed index")
	fs.IntVar(&opts.Parallelism, "parallelism", opts.Parallelism, "Number of search workers. Zero means one per CPU")
}

func splitPaths(paths string) []string {
	var r []string
	for _, p := range strings.Split(paths, ",") {
		if p = strings.TrimSpace(p); p != "" {
			r = append(r, p)
		}
	}
	return r
}

// tsvOutput is a TSV sink backed by a file, or by stdout if no path is given.
// Paths ending in .gz are gzip compressed.
type tsvOutput struct {
	*overlap.TSVWriter
	out file.File
	gz  *gzip.Writer
}

func createTSVOutput(ctx context.Context, path string) (*tsvOutput, error) {
	if path == "" {
		return &tsvOutput{TSVWriter: overlap.NewTSVWriter(os.Stdout)}, nil
	}
	out, err := file.Create(ctx, path)
	if err != nil {
		return nil, errors.E(err, "create", path)
	}
	o := &tsvOutput{out: out}
	var w io.Writer = out.Writer(ctx)
	if strings.HasSuffix(path, ".gz") {
		o.gz = gzip.NewWriter(w)
		w = o.gz
	}
	o.TSVWriter = overlap.NewTSVWriter(w)
	return o, nil
}

func (o *tsvOutput) Close(ctx context.Context) error {
	var e errors.Once
	e.Set(o.Flush())
	if o.gz != nil {
		e.Set(o.gz.Close())
	}
	if o.out != nil {
		e.Set(o.out.Close(ctx))
	}
	return e.Err()
}

func logStats(mode string, stats overlap.Stats) {
	log.Printf("%s: %d cells, %d seeds, %d neighbor cells, %d seed pairs", mode,
		stats.Cells, stats.Seeds, stats.NeighborCells, stats.SeedPairs)
	log.Printf("%s: %d candidates (%.1f expected by chance), %d ledger skips, %d validated, %d reported", mode,
		stats.Candidates, stats.ExpectedFalseHits, stats.LedgerSkips, stats.Validated, stats.Reported)
}

// search is the part shared by the overlap and lookup commands. It opens the
// outputs, runs fn with a reporter writing to them, and closes them.
func search(ctx context.Context, m *overlap.Mapper, output, rioOutput string,
	fn func(rep *overlap.Reporter) (overlap.Stats, error)) error {
	out, err := createTSVOutput(ctx, output)
	if err != nil {
		return err
	}
	var (
		all  overlap.RecordWriter
		dump *matchWriter
	)
	if rioOutput != "" {
		if dump, err = newMatchWriter(ctx, rioOutput, m.Opts()); err != nil {
			out.Close(ctx) // nolint: errcheck
			return err
		}
		all = dump
	}
	rep := overlap.NewReporter(m.Opts().Threshold(), out, all)
	stats, err := fn(rep)
	var e errors.Once
	e.Set(err)
	e.Set(rep.Err())
	e.Set(out.Close(ctx))
	if dump != nil {
		log.Printf("wrote %d validated matches to %s", dump.n, rioOutput)
		e.Set(dump.Close(ctx, m.Motifs()))
	}
	if err == nil {
		logStats("search", stats)
	}
	return e.Err()
}

func newMapper(ctx context.Context, opts overlap.Opts, paths []string) (*overlap.Mapper, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no input FASTA files")
	}
	m, err := overlap.NewMapper(opts)
	if err != nil {
		return nil, err
	}
	log.Printf("motifs: %v", m.Motifs())
	for _, path := range paths {
		if err := m.ReadFASTA(ctx, path); err != nil {
			return nil, err
		}
	}
	log.Printf("read %d sequences", m.NumSequences())
	m.Build()
	return m, nil
}

// runOverlap finds the overlaps among all the reads in the input files.
func runOverlap(ctx context.Context, flags overlapFlags, opts overlap.Opts) error {
	m, err := newMapper(ctx, opts, splitPaths(flags.input))
	if err != nil {
		return err
	}
	return search(ctx, m, flags.output, flags.rioOutput, func(rep *overlap.Reporter) (overlap.Stats, error) {
		return m.FindOverlaps(ctx, rep)
	})
}

// runLookup finds the overlaps between the query reads and the target reads.
func runLookup(ctx context.Context, flags lookupFlags, opts overlap.Opts) error {
	m, err := newMapper(ctx, opts, splitPaths(flags.target))
	if err != nil {
		return err
	}
	queries := splitPaths(flags.query)
	if len(queries) == 0 {
		return fmt.Errorf("no query FASTA files")
	}
	return search(ctx, m, flags.output, flags.rioOutput, func(rep *overlap.Reporter) (overlap.Stats, error) {
		var total overlap.Stats
		for _, path := range queries {
			stats, err := m.Lookup(ctx, path, rep)
			total = total.Merge(stats)
			if err != nil {
				return total, err
			}
		}
		return total, nil
	})
}

// runRescore re-applies the score gate to the matches dumped by a previous
// overlap or lookup run.
func runRescore(ctx context.Context, flags rescoreFlags) error {
	if flags.rioInput == "" {
		return fmt.Errorf("-rio-input must be set")
	}
	in, err := newMatchReader(ctx, flags.rioInput)
	if err != nil {
		return err
	}
	opts := in.Opts()
	if flags.threshold >= 0 {
		opts.ScoreThreshold = flags.threshold
	}
	log.Printf("rescoring %s (motifs %v) with threshold %v", flags.rioInput, in.Motifs(), opts.Threshold())
	out, err := createTSVOutput(ctx, flags.output)
	if err != nil {
		in.Close(ctx) // nolint: errcheck
		return err
	}
	rep := overlap.NewReporter(opts.Threshold(), out, nil)
	n := 0
	for in.Scan() {
		rep.Emit(in.Get())
		n++
	}
	var e errors.Once
	e.Set(in.Close(ctx))
	e.Set(rep.Err())
	e.Set(out.Close(ctx))
	log.Printf("rescore: %d matches read, %d reported", n, rep.NumEmitted())
	return e.Err()
}

// runMotifs prints the motifs selected by opts, one per line.
func runMotifs(w io.Writer, opts overlap.Opts) error {
	m, err := overlap.NewMapper(opts)
	if err != nil {
		return err
	}
	for _, mt := range m.Motifs() {
		if _, err := fmt.Fprintln(w, mt); err != nil {
			return err
		}
	}
	return nil
}

func newCmdOverlap() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "overlap",
		Short: "Find overlaps among all the reads of the input",
		Long: `
Every read and its reverse complement is digested into a restriction-site
distance profile. Profiles whose site distances agree within the indel
tolerance are reported as overlapping, one TSV line per match.`,
	}
	opts := overlap.DefaultOpts
	addOptsFlags(&cmd.Flags, &opts)
	flags := overlapFlags{}
	cmd.Flags.StringVar(&flags.input, "input", "", "Comma-separated list of FASTA files. They may be compressed.")
	cmd.Flags.StringVar(&flags.output, "output", "", "TSV output path. Defaults to stdout.")
	cmd.Flags.StringVar(&flags.rioOutput, "rio-output", "",
		`If nonempty, every validated match is also written to this recordio file,
regardless of its score. The file can be passed to the rescore command.`)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 0 {
			return env.UsageErrorf("overlap takes no arguments, but got %v", argv)
		}
		return runOverlap(vcontext.Background(), flags, opts)
	})
	return cmd
}

func newCmdLookup() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "lookup",
		Short: "Find overlaps between query reads and an indexed set of target reads",
	}
	opts := overlap.DefaultOpts
	addOptsFlags(&cmd.Flags, &opts)
	flags := lookupFlags{}
	cmd.Flags.StringVar(&flags.target, "target", "", "Comma-separated list of FASTA files to index.")
	cmd.Flags.StringVar(&flags.query, "query", "", "Comma-separated list of FASTA files to look up.")
	cmd.Flags.StringVar(&flags.output, "output", "", "TSV output path. Defaults to stdout.")
	cmd.Flags.StringVar(&flags.rioOutput, "rio-output", "", "If nonempty, every validated match is also written to this recordio file.")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 0 {
			return env.UsageErrorf("lookup takes no arguments, but got %v", argv)
		}
		return runLookup(vcontext.Background(), flags, opts)
	})
	return cmd
}

func newCmdRescore() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "rescore",
		Short: "Apply a new score threshold to the matches dumped by -rio-output",
	}
	flags := rescoreFlags{}
	cmd.Flags.StringVar(&flags.rioInput, "rio-input", "", "Recordio file written by overlap or lookup.")
	cmd.Flags.StringVar(&flags.output, "output", "", "TSV output path. Defaults to stdout.")
	cmd.Flags.Float64Var(&flags.threshold, "threshold", -1,
		`Identity score a match must exceed to be reported.
A negative value uses the threshold of the run that wrote the file.`)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 0 {
			return env.UsageErrorf("rescore takes no arguments, but got %v", argv)
		}
		return runRescore(vcontext.Background(), flags)
	})
	return cmd
}

func newCmdMotifs() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "motifs",
		Short: "Print the motifs selected by the options",
	}
	opts := overlap.DefaultOpts
	addOptsFlags(&cmd.Flags, &opts)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		return runMotifs(env.Stdout, opts)
	})
	return cmd
}

func newCmdRoot() *cmdline.Command {
	return &cmdline.Command{
		Name:     "bio-sitelaps",
		Short:    "Restriction-site based long read overlapper",
		LookPath: false,
		Children: []*cmdline.Command{
			newCmdOverlap(),
			newCmdLookup(),
			newCmdRescore(),
			newCmdMotifs(),
		},
	}
}

func main() {
	shutdown := grail.Init()
	cmdline.HideGlobalFlagsExcept()
	env := cmdline.EnvFromOS()
	err := cmdline.ParseAndRun(newCmdRoot(), env, os.Args[1:])
	shutdown()
	os.Exit(cmdline.ExitCode(err, env.Stderr))
}
