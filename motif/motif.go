// Package motif generates the recognition motifs used to digest reads into
// distance profiles.
package motif

import (
	"github.com/grailbio/base/log"
)

// DefaultAlphabet lists the bases in lexicographic order.
const DefaultAlphabet = "ACGT"

// Opts controls motif generation.
type Opts struct {
	// Length is the number of bases in a motif.
	Length int
	// Count is the number of motifs requested.
	Count int
	// SingleStrand disables the reverse-complement palindrome requirement.
	SingleStrand bool
	// Alphabet is the list of bases. Defaults to DefaultAlphabet.
	Alphabet string
}

var complement [256]byte

func init() {
	complement['A'] = 'T'
	complement['C'] = 'G'
	complement['G'] = 'C'
	complement['T'] = 'A'
}

// Generate enumerates the Cartesian power of the alphabet, the first letter
// varying fastest, and returns the first opts.Count motifs that pass Valid. If
// fewer valid motifs exist, it logs a warning and returns all of them.
func Generate(opts Opts) []string {
	alphabet := opts.Alphabet
	if alphabet == "" {
		alphabet = DefaultAlphabet
	}
	if opts.Length <= 0 || opts.Count <= 0 {
		return nil
	}
	var (
		motifs []string
		buf    = make([]byte, opts.Length)
		n      = len(alphabet)
		digits = make([]int, opts.Length)
	)
	for {
		for i, d := range digits {
			buf[i] = alphabet[d]
		}
		if m := string(buf); Valid(m, opts.SingleStrand) {
			log.Debug.Printf("Motif: %d %s", len(motifs), m)
			motifs = append(motifs, m)
			if len(motifs) == opts.Count {
				return motifs
			}
		}
		// Increment the mixed-radix counter, least significant digit first.
		i := 0
		for ; i < len(digits); i++ {
			digits[i]++
			if digits[i] < n {
				break
			}
			digits[i] = 0
		}
		if i == len(digits) {
			break
		}
	}
	log.Error.Printf("Could not generate the number of requested motifs (%d) - maximum %d being used",
		opts.Count, len(motifs))
	return motifs
}

// Valid reports whether motif is usable.
//
// A motif is rejected as low complexity if two adjacent letters are the same,
// or if one letter occurs at least len/2 times among the first len-1 letters
// (except for two-letter motifs). Unless singleStrand is set, the motif must
// also have an even length and equal its own reverse complement, so that the
// sites on both strands coincide.
func Valid(motif string, singleStrand bool) bool {
	n := len(motif)
	counts := map[byte]int{}
	for i := 0; i < n-1; i++ {
		counts[motif[i]]++
		if (counts[motif[i]] >= n/2 && n != 2) || motif[i] == motif[i+1] {
			return false
		}
	}
	if singleStrand {
		return true
	}
	return n%2 == 0 && ReverseComplement(motif) == motif
}

// ReverseComplement returns the reverse complement of an ACGT motif. Letters
// outside ACGT are kept as is.
func ReverseComplement(motif string) string {
	buf := make([]byte, len(motif))
	for i := range motif {
		ch := motif[len(motif)-1-i]
		if c := complement[ch]; c != 0 {
			ch = c
		}
		buf[i] = ch
	}
	return string(buf)
}
