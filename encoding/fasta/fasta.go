// Package fasta contains a streaming reader for FASTA files. FASTA files
// consist of a number of named sequences that may be interrupted by newlines.
// For example:
//
// >read1
// ACGTAC
// GAGGAC
// GCG
// >read2
// ACGT
//
// Note: Sequence names are defined to be the stretch of characters excluding
// spaces immediately after '>'.  Any text appear after a space are ignored.
// For example, '>read1 A restriction map' becomes 'read1'.
package fasta

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
)

const (
	bufferMaxSize = 1024 * 1024 * 300 // 300 MB
)

// Record is one named sequence.
type Record struct {
	Name string
	Seq  string
}

// Scanner reads FASTA records one at a time, without holding the whole file in
// memory. Scanners are not threadsafe.
//
// Text that appears before the first header line forms a record with an empty
// name. It is reported only if it is not empty. A header without any sequence
// lines is reported as a record with an empty Seq.
type Scanner struct {
	b   *bufio.Scanner
	err error

	// Header of the record that follows the current one.
	nextName string
	hasNext  bool
	done     bool
	seq      strings.Builder
	cur      Record
}

// NewScanner constructs a Scanner that reads FASTA data from r.
func NewScanner(r io.Reader) *Scanner {
	b := bufio.NewScanner(r)
	b.Buffer(nil, bufferMaxSize)
	return &Scanner{b: b}
}

func parseName(line string) string {
	return strings.Split(line[1:], " ")[0]
}

// Scan reads the next record. It returns false at the end of the input or on
// error. Once Scan returns false, it never returns true again. The caller
// should check Err afterwards.
func (s *Scanner) Scan() bool {
	for !s.done {
		name, hasName := s.nextName, s.hasNext
		s.seq.Reset()
		for {
			if !s.b.Scan() {
				s.done = true
				if err := s.b.Err(); err != nil {
					s.err = errors.Wrap(err, "couldn't read FASTA data")
					return false
				}
				break
			}
			line := strings.TrimRight(s.b.Text(), "\r")
			if len(line) == 0 {
				continue
			}
			if line[0] == '>' { // Start a new sequence.
				s.nextName, s.hasNext = parseName(line), true
				break
			}
			s.seq.WriteString(line)
		}
		if !hasName && s.seq.Len() == 0 {
			continue
		}
		s.cur = Record{Name: name, Seq: s.seq.String()}
		return true
	}
	return false
}

// Get returns the record read by the last successful Scan call.
func (s *Scanner) Get() Record { return s.cur }

// Err returns the scanning error, if any.
func (s *Scanner) Err() error { return s.err }
