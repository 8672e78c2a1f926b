// Package similarity scores how alike two strings are with the Ratcliff/Obershelp
// "gestalt" matcher. Scores are compatible with Python's difflib.SequenceMatcher
// ratio() (isjunk=None, autojunk=True), computed over Unicode code points.
package similarity

// popularMin is the length of b from which frequent elements are treated as popular.
const popularMin = 200

// Matcher holds the index of a fixed second sequence so it can be scored against many
// first sequences. It is safe for concurrent use once built.
type Matcher struct {
	b   []rune
	b2j map[rune][]int
}

// NewMatcher indexes b.
func NewMatcher(b string) *Matcher {
	m := &Matcher{b: []rune(b), b2j: make(map[rune][]int)}
	for i, r := range m.b {
		m.b2j[r] = append(m.b2j[r], i)
	}
	if n := len(m.b); n >= popularMin {
		ntest := n/100 + 1
		for r, idxs := range m.b2j {
			if len(idxs) > ntest {
				delete(m.b2j, r)
			}
		}
	}
	return m
}

// Ratio returns 2*M/T where M is the number of matched code points and T is the total
// number of code points in a and the indexed sequence. Two empty strings score 1.0.
func (m *Matcher) Ratio(a string) float64 {
	ar := []rune(a)
	total := len(ar) + len(m.b)
	if total == 0 {
		return 1.0
	}
	return 2.0 * float64(m.matches(ar)) / float64(total)
}

// Ratio scores a against b. It is not strictly symmetric: popular elements are
// computed on b only.
func Ratio(a, b string) float64 {
	return NewMatcher(b).Ratio(a)
}

type span struct{ alo, ahi, blo, bhi int }

// matches returns the total size of the matching blocks between a and m.b.
func (m *Matcher) matches(a []rune) int {
	total := 0
	queue := []span{{0, len(a), 0, len(m.b)}}
	for len(queue) > 0 {
		s := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		i, j, k := m.longestMatch(a, s.alo, s.ahi, s.blo, s.bhi)
		if k == 0 {
			continue
		}
		total += k
		if s.alo < i && s.blo < j {
			queue = append(queue, span{s.alo, i, s.blo, j})
		}
		if i+k < s.ahi && j+k < s.bhi {
			queue = append(queue, span{i + k, s.ahi, j + k, s.bhi})
		}
	}
	return total
}

// longestMatch finds the longest block a[i:i+k] == b[j:j+k] inside the given bounds,
// preferring the earliest i, then the earliest j. The block is then widened over
// popular elements, which are excluded from the index but are not junk.
func (m *Matcher) longestMatch(a []rune, alo, ahi, blo, bhi int) (int, int, int) {
	b := m.b
	besti, bestj, bestsize := alo, blo, 0
	j2len := map[int]int{}
	for i := alo; i < ahi; i++ {
		newj2len := map[int]int{}
		for _, j := range m.b2j[a[i]] {
			if j < blo {
				continue
			}
			if j >= bhi {
				break
			}
			k := j2len[j-1] + 1
			newj2len[j] = k
			if k > bestsize {
				besti, bestj, bestsize = i-k+1, j-k+1, k
			}
		}
		j2len = newj2len
	}
	for besti > alo && bestj > blo && a[besti-1] == b[bestj-1] {
		besti, bestj, bestsize = besti-1, bestj-1, bestsize+1
	}
	for besti+bestsize < ahi && bestj+bestsize < bhi && a[besti+bestsize] == b[bestj+bestsize] {
		bestsize++
	}
	return besti, bestj, bestsize
}
