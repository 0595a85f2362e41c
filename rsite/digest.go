package rsite

import "strings"

// Digest scans seq for every exact occurrence of motif, including overlapping
// ones, and returns the distance profile. The scan is case insensitive.
//
// Lead is the position of the first site, and Trail is len(seq) minus the
// position of the last site, so Lead+sum(Dists)+Trail == len(seq). A sequence
// without any site has Lead=len(seq), Trail=0 and no distances.
func Digest(name, seq, motif string) Profile {
	p := Profile{Name: name, Orient: Forward}
	motif = strings.ToUpper(motif)
	seq = strings.ToUpper(seq)
	if len(motif) == 0 || len(seq) < len(motif) {
		p.Lead = len(seq)
		return p
	}
	p.Dists = make([]int, 0, len(seq)/(len(motif)*64)+1)
	prev := -1
	for off := 0; ; {
		i := strings.Index(seq[off:], motif)
		if i < 0 {
			break
		}
		site := off + i
		if prev < 0 {
			p.Lead = site
		} else {
			p.Dists = append(p.Dists, site-prev)
		}
		prev = site
		off = site + 1
	}
	if prev < 0 {
		p.Lead = len(seq)
		return p
	}
	p.Trail = len(seq) - prev
	return p
}
