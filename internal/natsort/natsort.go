// Package natsort implements numeric-aware ("natural") string ordering,
// so IMG_9 sorts before IMG_10. The batch tracker uses it to sweep intake
// images oldest-first by filename.
package natsort

import "sort"

// Less reports whether a orders before b under natural ordering: runs of
// digits compare by numeric value, everything else byte-wise. Shorter
// strings order first on ties.
func Less(a, b string) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		ca, cb := a[i], b[j]
		if isDigit(ca) && isDigit(cb) {
			// Compare the full digit runs numerically. Leading zeros make
			// the runs unequal in length but equal in value; fall through
			// to the byte comparison in that case.
			ia, na := digitRun(a, i)
			ib, nb := digitRun(b, j)
			if na != nb {
				return na < nb
			}
			i, j = ia, ib
			continue
		}
		if ca != cb {
			return ca < cb
		}
		i++
		j++
	}
	return len(a)-i < len(b)-j
}

// Strings sorts the slice in place under natural ordering.
func Strings(s []string) {
	sort.Slice(s, func(i, j int) bool { return Less(s[i], s[j]) })
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// digitRun parses the digit run starting at i and returns the index just
// past it along with its numeric value.
func digitRun(s string, i int) (int, uint64) {
	var n uint64
	for i < len(s) && isDigit(s[i]) {
		n = n*10 + uint64(s[i]-'0')
		i++
	}
	return i, n
}
