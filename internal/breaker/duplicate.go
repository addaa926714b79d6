package breaker

import "strings"

// DuplicateDetector decides whether candidate is a near-duplicate of any of
// recent. Spec §9 leaves the similarity threshold/window as an open question
// about tuning strategy — this interface lets a calibrated detector replace
// JaccardDetector without touching the Breaker.
type DuplicateDetector interface {
	IsDuplicate(candidate string, recent []string, threshold float64) (similarity float64, duplicate bool)
}

// stopWords is the static stop-word list stripped before computing Jaccard
// similarity, per spec §4.3.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"to": {}, "of": {}, "in": {}, "on": {}, "and": {}, "or": {}, "for": {},
	"with": {}, "that": {}, "this": {}, "it": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "from": {},
}

// JaccardDetector is the default near-duplicate detector: tokenize the
// candidate output to a lowercase word set with stop words removed, compute
// Jaccard similarity against up to 5 recent outputs, flag similarity >=
// threshold.
type JaccardDetector struct{}

func (JaccardDetector) IsDuplicate(candidate string, recent []string, threshold float64) (float64, bool) {
	candidateSet := wordSet(candidate)
	best := 0.0
	for _, r := range recent {
		sim := jaccard(candidateSet, wordSet(r))
		if sim > best {
			best = sim
		}
	}
	return best, best >= threshold
}

func wordSet(text string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if _, stop := stopWords[f]; stop {
			continue
		}
		set[f] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for w := range a {
		if _, ok := b[w]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
