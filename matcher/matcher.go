// Package matcher pairs structured reviews with parsed CR citations of the
// same entry.
package matcher

import "example.com/crcheck/biblio"

// PerfectScore is returned when surname, journal and page range all agree.
const PerfectScore = 3

// Dominance records which side drove the outer loop of a match.
type Dominance int

const (
	// ReviewsFirst iterates the structured reviews; used when they are the
	// longer list or the lists are equally long.
	ReviewsFirst Dominance = iota
	// CitationsFirst iterates the citations; used when they are strictly longer.
	CitationsFirst
)

func (d Dominance) String() string {
	if d == CitationsFirst {
		return "BP-dominant"
	}
	return "PN-dominant"
}

// Pair is a committed review/citation match with its score.
type Pair struct {
	Review   *biblio.Review
	Citation *biblio.Citation
	Score    int
}

// Result is the outcome of matching one entry.
type Result struct {
	Pairs              []Pair
	UnmatchedReviews   []*biblio.Review
	UnmatchedCitations []*biblio.Citation
	Dominance          Dominance
}

// Hook runs after each committed pair.
type Hook func(review *biblio.Review, citation *biblio.Citation)

// Matcher runs greedy matching and calls its hook on every commit.
type Matcher struct {
	hook Hook
}

// New returns a matcher. hook may be nil.
func New(hook Hook) *Matcher {
	return &Matcher{hook: hook}
}

// Strength scores a review against a citation: PerfectScore when all three
// fields agree, otherwise the number of agreeing fields.
func Strength(r *biblio.Review, c *biblio.Citation) int {
	surname := r.Surname == c.Surname
	journal := r.AppearsIn == c.JournalID
	pages := r.PageRange == c.PageRange()
	if surname && journal && pages {
		return PerfectScore
	}
	n := 0
	for _, ok := range []bool{surname, journal, pages} {
		if ok {
			n++
		}
	}
	return n
}

// Match greedily pairs reviews with citations. The longer list drives the
// outer loop, each outer element takes the first best-scoring remaining
// partner and both leave their pools. Residuals keep input order.
func (m *Matcher) Match(reviews []*biblio.Review, citations []*biblio.Citation) Result {
	res := Result{Dominance: ReviewsFirst}
	if len(citations) > len(reviews) {
		res.Dominance = CitationsFirst
	}

	commit := func(r *biblio.Review, c *biblio.Citation, score int) {
		res.Pairs = append(res.Pairs, Pair{Review: r, Citation: c, Score: score})
		if m.hook != nil {
			m.hook(r, c)
		}
	}

	if res.Dominance == ReviewsFirst {
		res.UnmatchedReviews, res.UnmatchedCitations = greedy(reviews, citations,
			func(r *biblio.Review, c *biblio.Citation) int { return Strength(r, c) },
			commit)
	} else {
		res.UnmatchedCitations, res.UnmatchedReviews = greedy(citations, reviews,
			func(c *biblio.Citation, r *biblio.Review) int { return Strength(r, c) },
			func(c *biblio.Citation, r *biblio.Review, score int) { commit(r, c, score) })
	}
	return res
}

// greedy runs the outer/inner scan and returns the unmatched elements of
// both sides.
func greedy[O, I any](outer []O, inner []I, score func(O, I) int, commit func(O, I, int)) ([]O, []I) {
	remaining := make([]I, len(inner))
	copy(remaining, inner)

	var unmatched []O
	for _, o := range outer {
		best, bestScore := -1, 0
		for i, in := range remaining {
			s := score(o, in)
			if s > bestScore {
				best, bestScore = i, s
			}
			if s == PerfectScore {
				break
			}
		}
		if best < 0 {
			unmatched = append(unmatched, o)
			continue
		}
		commit(o, remaining[best], bestScore)
		remaining = append(remaining[:best], remaining[best+1:]...)
	}
	return unmatched, remaining
}
