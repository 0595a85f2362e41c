package overlap

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/grailbio/sitelaps/rsite"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

// recordCollector is a RecordWriter that keeps every record in memory.
type recordCollector struct {
	mu   sync.Mutex
	recs []Record
	err  error
}

func (c *recordCollector) Write(r Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recs = append(c.recs, r)
	return c.err
}

func testProfiles() (*rsite.Profile, *rsite.Profile) {
	q := &rsite.Profile{Name: "q", Dists: []int{10, 20, 30}, Lead: 5, Trail: 7, Orient: rsite.Forward}
	t := &rsite.Profile{Name: "t", Dists: []int{10, 20, 30, 40}, Lead: 1, Trail: 2, Orient: rsite.Reverse}
	return q, t
}

func TestNewRecord(t *testing.T) {
	q, tp := testProfiles()
	m := Validate(q.Dists, tp.Dists, 0, 0, 0.1, 1)
	expect.EQ(t, m.Matched, 3)
	r := NewRecord(q, tp, m)
	expect.EQ(t, r, Record{
		QueryName:   "q",
		QueryLen:    72,
		QueryStart:  5,
		QueryEnd:    65,
		Strand:      '-',
		TargetName:  "t",
		TargetLen:   103,
		TargetStart: 1,
		TargetEnd:   61,
		Identity:    1,
		BlockLen:    60,
		MapQ:        255,
		QueryLead:   5,
		QueryTrail:  7,
		TargetLead:  1,
		TargetTrail: 2,
		Containment: 1,
		Matched:     3,
	})

	tp.Orient = rsite.Forward
	expect.EQ(t, NewRecord(q, tp, m).Strand, byte('+'))
}

func TestTSVWriter(t *testing.T) {
	q, tp := testProfiles()
	buf := bytes.Buffer{}
	w := NewTSVWriter(&buf)
	assert.NoError(t, w.Write(NewRecord(q, tp, Validate(q.Dists, tp.Dists, 0, 0, 0.1, 1))))
	assert.NoError(t, w.Flush())
	expect.EQ(t, buf.String(), "q\t72\t5\t65\t-\tt\t103\t1\t61\t1.0000\t60\t255\t5\t7\t1\t2\n")
}

func TestReporterGate(t *testing.T) {
	out, all := &recordCollector{}, &recordCollector{}
	rep := NewReporter(0.5, out, all)
	expect.EQ(t, rep.Threshold(), 0.5)

	expect.False(t, rep.Emit(Record{QueryName: "at", Identity: 0.5}))
	expect.True(t, rep.Emit(Record{QueryName: "above", Identity: 0.5001}))
	expect.False(t, rep.Emit(Record{QueryName: "below", Identity: 0.1}))
	expect.EQ(t, len(out.recs), 1)
	expect.EQ(t, out.recs[0].QueryName, "above")
	expect.EQ(t, rep.NumEmitted(), int64(1))

	// Report writes every match to the "all" writer.
	q, tp := testProfiles()
	expect.True(t, rep.Report(q, tp, MatchInfo{Matched: 3, End1: 2, End2: 2, Region1: 3, Region2: 3}))
	expect.False(t, rep.Report(q, tp, MatchInfo{Matched: 1, Region1: 3, Region2: 3}))
	expect.EQ(t, len(all.recs), 2)
	expect.EQ(t, len(out.recs), 2)
	expect.NoError(t, rep.Err())
}

func TestReporterError(t *testing.T) {
	out := &recordCollector{err: fmt.Errorf("disk full")}
	rep := NewReporter(0, out, nil)
	expect.True(t, rep.Emit(Record{Identity: 1}))
	expect.True(t, rep.Err() != nil)
}
