package overlap

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

const testMotif = "TGCA"

// testSequence builds a sequence whose digestion with testMotif yields the
// given distances. Every distance and trail must be >= 4.
func testSequence(lead int, dists []int, trail int) string {
	buf := strings.Builder{}
	buf.WriteString(strings.Repeat("A", lead))
	for _, d := range dists {
		buf.WriteString(testMotif)
		buf.WriteString(strings.Repeat("a", d-len(testMotif)))
	}
	buf.WriteString(testMotif)
	buf.WriteString(strings.Repeat("A", trail-len(testMotif)))
	return buf.String()
}

var (
	testDists1 = []int{120, 80, 150, 60, 200, 90}
	testDists2 = []int{60, 200, 90, 130, 70}
	testSeq1   = testSequence(30, testDists1, 40)
	testSeq2   = testSequence(25, testDists2, 35)
)

func testOpts() Opts {
	opts := DefaultOpts
	opts.SeedLength = 3
	opts.Parallelism = 2
	return opts
}

func newTestMapper(t *testing.T) *Mapper {
	m, err := NewMapper(testOpts())
	assert.NoError(t, err)
	assert.EQ(t, m.Motifs(), []string{testMotif})
	return m
}

func recordPairs(recs []Record) []string {
	var pairs []string
	for _, r := range recs {
		pairs = append(pairs, r.QueryName+"/"+r.TargetName)
	}
	sort.Strings(pairs)
	return pairs
}

func TestTestSequence(t *testing.T) {
	m := newTestMapper(t)
	expect.EQ(t, m.AddSequence("r1", testSeq1), 12)
	e := m.Engine(testMotif)
	p := e.Profiles().Get(0)
	expect.EQ(t, p.Dists, testDists1)
	expect.EQ(t, p.Lead, 30)
	expect.EQ(t, p.Trail, 40)
	expect.EQ(t, e.Profiles().Get(1).Name, "r1_RC")
}

func TestFindOverlaps(t *testing.T) {
	m := newTestMapper(t)
	m.AddSequence("r1", testSeq1)
	m.AddSequence("r2", testSeq2)
	m.AddSequence("", "")
	expect.EQ(t, m.NumSequences(), 2)
	m.Build()
	assert.EQ(t, m.Engine(testMotif).Index().NumSeeds(), 14)

	out := &recordCollector{}
	rep := NewReporter(m.Opts().Threshold(), out, nil)
	stats, err := m.FindOverlaps(vcontext.Background(), rep)
	assert.NoError(t, err)
	expect.EQ(t, stats.Reported, 4)
	expect.EQ(t, stats.Validated, 4)
	expect.True(t, stats.Seeds == 14)
	// The estimate is informational: every validated match is still reported.
	expect.True(t, stats.ExpectedFalseHits > 0)
	expect.True(t, stats.ExpectedFalseHits < float64(stats.SeedPairs))
	expect.EQ(t, recordPairs(out.recs), []string{"r1/r2", "r1_RC/r2_RC", "r2/r1", "r2_RC/r1_RC"})

	for _, r := range out.recs {
		if r.QueryName != "r1" {
			continue
		}
		expect.EQ(t, r, Record{
			QueryName:   "r1",
			QueryLen:    770,
			QueryStart:  380,
			QueryEnd:    730,
			Strand:      '+',
			TargetName:  "r2",
			TargetLen:   610,
			TargetStart: 25,
			TargetEnd:   375,
			Identity:    1,
			BlockLen:    350,
			MapQ:        255,
			QueryLead:   30,
			QueryTrail:  40,
			TargetLead:  25,
			TargetTrail: 35,
			Containment: 1,
			Matched:     3,
		})
	}
}

func TestFindOverlapsSingleStrand(t *testing.T) {
	opts := testOpts()
	opts.SingleStrand = true
	opts.NumMotifs = 4
	m, err := NewMapper(opts)
	assert.NoError(t, err)
	// Only the last motif occurs in the test sequences.
	expect.EQ(t, m.Motifs(), []string{"GACA", "TACA", "AGCA", testMotif})
	m.AddSequence("r1", testSeq1)
	m.AddSequence("r2", testSeq2)
	m.Build()
	expect.EQ(t, m.Engine("GACA").Index().NumSeeds(), 0)
	out := &recordCollector{}
	stats, err := m.FindOverlaps(vcontext.Background(), NewReporter(opts.Threshold(), out, nil))
	assert.NoError(t, err)
	expect.EQ(t, stats.Reported, 2)
	expect.EQ(t, recordPairs(out.recs), []string{"r1/r2", "r2/r1"})
}

func TestFindOverlapsCanceled(t *testing.T) {
	m := newTestMapper(t)
	m.AddSequence("r1", testSeq1)
	m.AddSequence("r2", testSeq2)
	m.Build()
	ctx, cancel := context.WithCancel(vcontext.Background())
	cancel()
	_, err := m.FindOverlaps(ctx, NewReporter(0, nil, nil))
	expect.True(t, err != nil)
}

func TestReadFASTAAndLookup(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := vcontext.Background()

	targetPath := filepath.Join(tempDir, "target.fa")
	assert.NoError(t, ioutil.WriteFile(targetPath, []byte(">r1 target\n"+testSeq1+"\n"), 0644))
	queryPath := filepath.Join(tempDir, "query.fa")
	assert.NoError(t, ioutil.WriteFile(queryPath, []byte(">r2\n"+testSeq2+"\n>r1\n"+testSeq1+"\n"), 0644))

	m := newTestMapper(t)
	assert.NoError(t, m.ReadFASTA(ctx, targetPath))
	expect.EQ(t, m.NumSequences(), 1)
	m.Build()

	out := &recordCollector{}
	stats, err := m.Lookup(ctx, queryPath, NewReporter(m.Opts().Threshold(), out, nil))
	assert.NoError(t, err)
	expect.EQ(t, stats.Reported, 4)
	// A query may match a target of the same name.
	expect.EQ(t, recordPairs(out.recs), []string{"r1/r1", "r1_RC/r1_RC", "r2/r1", "r2_RC/r1_RC"})

	expect.True(t, m.ReadFASTA(ctx, filepath.Join(tempDir, "missing.fa")) != nil)
	_, err = m.Lookup(ctx, filepath.Join(tempDir, "missing.fa"), NewReporter(0, nil, nil))
	expect.True(t, err != nil)
}

func TestNewMapperError(t *testing.T) {
	opts := testOpts()
	opts.MotifLength = 3
	_, err := NewMapper(opts)
	expect.True(t, err != nil)

	opts = testOpts()
	opts.SeedLength = 0
	_, err = NewMapper(opts)
	expect.True(t, err != nil)
}
