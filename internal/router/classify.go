package router

import "strings"

// Classification is the heuristic task category that drives provider
// selection (spec §4.5). The classifier is intentionally simple — the
// contract permits swapping it for a trained classifier without touching
// Router callers.
type Classification string

const (
	ClassSensitive     Classification = "sensitive"
	ClassJudgmentHeavy Classification = "judgment_heavy"
	ClassFast          Classification = "fast"
	ClassStandard      Classification = "standard"
)

var sensitiveTerms = []string{"password", "credential", "ssn", "credit card", "private key"}

var judgmentTerms = []string{"analyze", "evaluate", "recommend", "strategy", "decision", "assess"}

var fastTerms = []string{"format", "convert", "summarize", "extract", "list"}

const fastSpecCharLimit = 200

// maxFastConstraints is the hard-constraint count above which a `fast`
// classification is upgraded to `standard` (spec §4.5).
const maxFastConstraints = 5

// ClassifiedTask is the classifier's verdict plus the fields provider
// selection and message assembly need from it.
type ClassifiedTask struct {
	Classification    Classification
	RequiresLocalOnly bool
	SpecText          string
}

// Classify applies the spec §4.5 keyword heuristics, in priority order:
// sensitive > judgment_heavy > fast > standard.
func Classify(specText string, hardConstraintCount int) ClassifiedTask {
	lower := strings.ToLower(specText)

	if containsAny(lower, sensitiveTerms) {
		return ClassifiedTask{Classification: ClassSensitive, RequiresLocalOnly: true, SpecText: specText}
	}
	if containsAny(lower, judgmentTerms) {
		return ClassifiedTask{Classification: ClassJudgmentHeavy, SpecText: specText}
	}
	if len(specText) < fastSpecCharLimit && containsAny(lower, fastTerms) {
		class := ClassFast
		if hardConstraintCount > maxFastConstraints {
			class = ClassStandard
		}
		return ClassifiedTask{Classification: class, SpecText: specText}
	}
	return ClassifiedTask{Classification: ClassStandard, SpecText: specText}
}

func containsAny(haystack string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(haystack, t) {
			return true
		}
	}
	return false
}
