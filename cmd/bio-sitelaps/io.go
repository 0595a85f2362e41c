package main

// This file defines matchWriter and matchReader. matchWriter dumps every
// validated match, before the score gate, into a recordio file. matchReader
// reads them back so that the gate can be re-applied with another threshold
// without repeating the search.

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/recordio"
	"github.com/grailbio/base/recordio/recordiozstd"
	"github.com/grailbio/sitelaps/overlap"
)

const (
	// <fileVersionHeader, fileVersion> is stored in a recordio header.
	fileVersionHeader = "sitelapsversion"
	fileVersion       = "SITELAPS_V1"
)

// matchFileHeader is stored in the trailer section of the recordio file.
type matchFileHeader struct {
	// Opts is the list of options used to generate the matches.
	Opts overlap.Opts
	// Motifs is the list of motifs the reads were digested with.
	Motifs []string
}

// matchWriter implements overlap.RecordWriter. Thread safe.
type matchWriter struct {
	out  file.File
	mu   sync.Mutex
	w    recordio.Writer
	opts overlap.Opts
	n    int
}

func newMatchWriter(ctx context.Context, outPath string, opts overlap.Opts) (*matchWriter, error) {
	recordiozstd.Init()
	out, err := file.Create(ctx, outPath)
	if err != nil {
		return nil, errors.E(err, "create", outPath)
	}
	w := recordio.NewWriter(out.Writer(ctx), recordio.WriterOpts{
		Transformers: []string{recordiozstd.Name},
	})
	w.AddHeader(fileVersionHeader, fileVersion)
	w.AddHeader(recordio.KeyTrailer, true)
	return &matchWriter{out: out, w: w, opts: opts}, nil
}

// Write appends a match.
func (w *matchWriter) Write(r overlap.Record) error {
	b := bytes.Buffer{}
	if err := gob.NewEncoder(&b).Encode(r); err != nil {
		return err
	}
	w.mu.Lock()
	w.w.Append(b.Bytes())
	w.n++
	w.mu.Unlock()
	return nil
}

// Close writes the trailer and closes the file. It must be called exactly
// once, after writing all the matches.
func (w *matchWriter) Close(ctx context.Context, motifs []string) error {
	b := bytes.Buffer{}
	if err := gob.NewEncoder(&b).Encode(matchFileHeader{Opts: w.opts, Motifs: motifs}); err != nil {
		return err
	}
	w.w.SetTrailer(b.Bytes())
	err := w.w.Finish()
	if e := w.out.Close(ctx); e != nil && err == nil {
		err = e
	}
	if err != nil {
		return errors.E(err, "close", w.out.Name())
	}
	return nil
}

// matchReader reads matches from a recordio file created by matchWriter.
type matchReader struct {
	in     file.File
	r      recordio.Scanner
	header matchFileHeader
	err    error

	rec overlap.Record // last record read by Scan.
}

func newMatchReader(ctx context.Context, inPath string) (*matchReader, error) {
	in, err := file.Open(ctx, inPath)
	if err != nil {
		return nil, errors.E(err, "open", inPath)
	}
	recordiozstd.Init()
	r := recordio.NewScanner(in.Reader(ctx), recordio.ScannerOpts{})
	fail := func(err error) (*matchReader, error) {
		in.Close(ctx) // nolint: errcheck
		return nil, errors.E(err, inPath)
	}
	if err := r.Err(); err != nil {
		return fail(err)
	}
	versionFound := false
	for _, kv := range r.Header() {
		if kv.Key != fileVersionHeader {
			continue
		}
		if v, ok := kv.Value.(string); !ok || v != fileVersion {
			return fail(errors.E(errors.Invalid, fmt.Sprintf("match file version mismatch, got %v, expect %v", kv.Value, fileVersion)))
		}
		versionFound = true
		break
	}
	if !versionFound {
		return fail(errors.E(errors.Invalid, fileVersionHeader+" not found"))
	}
	mr := &matchReader{in: in, r: r}
	if err := gob.NewDecoder(bytes.NewReader(r.Trailer())).Decode(&mr.header); err != nil {
		return fail(err)
	}
	return mr, nil
}

// Opts returns the options written in the recordio file.
func (r *matchReader) Opts() overlap.Opts { return r.header.Opts }

// Motifs returns the motifs written in the recordio file.
func (r *matchReader) Motifs() []string { return r.header.Motifs }

// Scan reads the next match.
func (r *matchReader) Scan() bool {
	if r.err != nil || !r.r.Scan() {
		return false
	}
	r.rec = overlap.Record{}
	if err := gob.NewDecoder(bytes.NewReader(r.r.Get().([]byte))).Decode(&r.rec); err != nil {
		r.err = err
		return false
	}
	return true
}

// Get yields the current match.
//
// REQUIRES: Last Scan call returned true.
func (r *matchReader) Get() overlap.Record { return r.rec }

// Close closes the reader. It must be called exactly once.
func (r *matchReader) Close(ctx context.Context) error {
	err := r.err
	if err == nil {
		err = r.r.Err()
	}
	if e := r.in.Close(ctx); e != nil && err == nil {
		err = e
	}
	return err
}
