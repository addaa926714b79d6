package policy

import (
	"strings"

	"github.com/tarsy-labs/agentruntime/internal/types"
)

// violationRatioThreshold is the keyword-overlap ratio above which a
// candidate text is considered to violate a constraint (spec §4.1).
const violationRatioThreshold = 0.7

// minRuleTokenLength is the length a token must exceed to count toward the
// overlap score; short connective words are excluded.
const minRuleTokenLength = 3

// fallbackConfidence is returned when a provider supplies no logprob-derived
// confidence score (spec §9 Open Question: "confidence estimation currently
// returns a fixed value... design leaves room for calibrated estimators").
const fallbackConfidence = 0.6

// tokenize lowercases and splits text into word tokens, matching the
// "keyword-overlap score" heuristic spec.md describes. It is intentionally
// simple — the contract permits replacing it with a semantic classifier
// without changing the Engine's public surface.
func tokenize(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if len(f) > minRuleTokenLength {
			set[f] = struct{}{}
		}
	}
	return set
}

// ViolatesConstraint computes a keyword-overlap ratio between the
// constraint's rule tokens and the candidate text; a ratio above
// violationRatioThreshold flags violation. Shared by the Policy Engine
// (checking task specs) and the Router's expert-judgment lens (checking
// completions) — spec §4.1 explicitly calls for a single replaceable
// heuristic, not two diverging implementations.
func ViolatesConstraint(candidate string, c types.Constraint) bool {
	ruleTokens := tokenize(c.Rule)
	if len(ruleTokens) == 0 {
		return false
	}
	candidateTokens := tokenize(candidate)

	matched := 0
	for t := range ruleTokens {
		if _, ok := candidateTokens[t]; ok {
			matched++
		}
	}
	ratio := float64(matched) / float64(len(ruleTokens))
	return ratio > violationRatioThreshold
}

// MatchesTrigger reports whether any of the trigger's patterns
// substring-match the output, case-insensitive.
func MatchesTrigger(output string, t types.Trigger) bool {
	lower := strings.ToLower(output)
	for _, p := range t.Patterns {
		if p == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// WalkConfidenceMap walks the frozen confidence map in order and returns the
// action for the range containing confidence. Below-map confidence defaults
// to ConfidenceEscalate ("requires review").
func WalkConfidenceMap(confidence float64, confidenceMap []types.ConfidenceRange) types.ConfidenceAction {
	for _, r := range confidenceMap {
		if confidence >= r.Min && confidence <= r.Max {
			return r.Action
		}
	}
	return types.ConfidenceEscalate
}

// ValidateOutput checks a completion against the frozen constraints and
// triggers and returns a LensedResult with violation/escalation/confidence
// flags populated. It does not set provider/cost/latency fields — the
// Router fills those from the completion itself.
func (e *Engine) ValidateOutput(completionText string, confidence *float64) (types.LensedResult, error) {
	if err := e.requireBooted(); err != nil {
		return types.LensedResult{}, err
	}

	result := types.LensedResult{Text: completionText}

	for _, c := range e.constraints {
		if ViolatesConstraint(completionText, c) {
			result.ConstraintViolation = true
			result.ViolatedConstraints = append(result.ViolatedConstraints, c.ID)
		}
	}

	for _, t := range e.triggers {
		if MatchesTrigger(completionText, t) {
			result.Escalate = true
			result.TriggeredBy = append(result.TriggeredBy, t.ID)
		}
	}

	conf := fallbackConfidence
	if confidence != nil {
		conf = *confidence
	}
	result.Confidence = conf
	result.ConfidenceAction = WalkConfidenceMap(conf, e.confidenceMap)
	result.RequiresReview = result.ConfidenceAction != types.ConfidenceAct

	return result, nil
}
