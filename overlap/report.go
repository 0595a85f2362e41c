package overlap

import (
	"io"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/sitelaps/rsite"
)

// MapQ is the mapping quality written for every record. The search does not
// estimate it.
const MapQ = 255

// Record is one validated match, with coordinates translated to bases.
type Record struct {
	QueryName  string
	QueryLen   int
	QueryStart int
	QueryEnd   int
	// Strand is '+' if both profiles have the same orientation, '-'
	// otherwise.
	Strand      byte
	TargetName  string
	TargetLen   int
	TargetStart int
	TargetEnd   int
	Identity    float64
	// BlockLen is the longer of the two matched spans.
	BlockLen    int
	MapQ        int
	QueryLead   int
	QueryTrail  int
	TargetLead  int
	TargetTrail int

	// Not part of the TSV output.
	Containment float64
	Matched     int
}

// NewRecord translates a match between query and target into a Record.
func NewRecord(query, target *rsite.Profile, m MatchInfo) Record {
	r := Record{
		QueryName:   query.Name,
		QueryLen:    query.BaseLen(),
		QueryStart:  query.BasePos(m.Start1, false),
		QueryEnd:    query.BasePos(m.End1, true),
		Strand:      '+',
		TargetName:  target.Name,
		TargetLen:   target.BaseLen(),
		TargetStart: target.BasePos(m.Start2, false),
		TargetEnd:   target.BasePos(m.End2, true),
		Identity:    m.Identity(),
		MapQ:        MapQ,
		QueryLead:   query.Lead,
		QueryTrail:  query.Trail,
		TargetLead:  target.Lead,
		TargetTrail: target.Trail,
		Containment: m.Containment(),
		Matched:     m.Matched,
	}
	if query.Orient != target.Orient {
		r.Strand = '-'
	}
	r.BlockLen = r.QueryEnd - r.QueryStart
	if n := r.TargetEnd - r.TargetStart; n > r.BlockLen {
		r.BlockLen = n
	}
	return r
}

// RecordWriter consumes records. Implementations must be thread safe.
type RecordWriter interface {
	Write(r Record) error
}

// Reporter gates validated matches on their identity score and forwards them
// to the output. Thread safe.
type Reporter struct {
	nEmitted  int64 // accessed atomically, kept first for alignment
	threshold float64
	out       RecordWriter
	all       RecordWriter
	err       errors.Once
}

// NewReporter creates a Reporter that sends matches whose identity exceeds
// threshold to out. If all is not nil, every match is also written to it
// before the gate. Either writer may be nil.
func NewReporter(threshold float64, out, all RecordWriter) *Reporter {
	return &Reporter{threshold: threshold, out: out, all: all}
}

// Threshold returns the score a match must exceed to be emitted.
func (r *Reporter) Threshold() float64 { return r.threshold }

// Report converts the match into a record and emits it if its identity score
// is strictly greater than the threshold. It returns whether the record was
// emitted.
func (r *Reporter) Report(query, target *rsite.Profile, m MatchInfo) bool {
	rec := NewRecord(query, target, m)
	if r.all != nil {
		if err := r.all.Write(rec); err != nil {
			r.err.Set(err)
		}
	}
	return r.Emit(rec)
}

// Emit applies the threshold to a record that was already built.
func (r *Reporter) Emit(rec Record) bool {
	if !(rec.Identity > r.threshold) {
		return false
	}
	if r.out != nil {
		if err := r.out.Write(rec); err != nil {
			r.err.Set(err)
		}
	}
	atomic.AddInt64(&r.nEmitted, 1)
	return true
}

// NumEmitted returns the number of records that passed the gate.
func (r *Reporter) NumEmitted() int64 { return atomic.LoadInt64(&r.nEmitted) }

// Err returns the first error reported by a writer.
func (r *Reporter) Err() error { return r.err.Err() }

// TSVWriter writes records as tab-separated lines. Thread safe.
type TSVWriter struct {
	mu sync.Mutex
	w  *tsv.Writer
}

// NewTSVWriter creates a TSVWriter on top of w. The caller must call Flush
// once done.
func NewTSVWriter(w io.Writer) *TSVWriter {
	return &TSVWriter{w: tsv.NewWriter(w)}
}

// Write implements RecordWriter.
func (w *TSVWriter) Write(r Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.w.WriteString(r.QueryName)
	w.w.WriteInt64(int64(r.QueryLen))
	w.w.WriteInt64(int64(r.QueryStart))
	w.w.WriteInt64(int64(r.QueryEnd))
	w.w.WriteByte(r.Strand)
	w.w.WriteString(r.TargetName)
	w.w.WriteInt64(int64(r.TargetLen))
	w.w.WriteInt64(int64(r.TargetStart))
	w.w.WriteInt64(int64(r.TargetEnd))
	w.w.WriteString(strconv.FormatFloat(r.Identity, 'f', 4, 64))
	w.w.WriteInt64(int64(r.BlockLen))
	w.w.WriteInt64(int64(r.MapQ))
	w.w.WriteInt64(int64(r.QueryLead))
	w.w.WriteInt64(int64(r.QueryTrail))
	w.w.WriteInt64(int64(r.TargetLead))
	w.w.WriteInt64(int64(r.TargetTrail))
	return w.w.EndLine()
}

// Flush writes buffered lines to the underlying writer.
func (w *TSVWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.w.Flush()
}
