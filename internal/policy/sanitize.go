package policy

import (
	"regexp"
	"time"

	"github.com/tarsy-labs/agentruntime/internal/types"
)

// compiledPattern mirrors the teacher's pkg/masking.CompiledPattern shape:
// a pre-compiled regex plus a human-readable name, compiled once at package
// init rather than per call.
type compiledPattern struct {
	Name  string
	Regex *regexp.Regexp
}

// injectionPatterns is the case-insensitive prompt-injection pattern list
// from spec §4.1. Detection only sets a flag; content is never removed —
// it is preserved verbatim inside the BEGIN/END delimiters so the model
// sees data, not commands.
var injectionPatterns = compileInjectionPatterns()

func compileInjectionPatterns() []compiledPattern {
	raw := []struct {
		name    string
		pattern string
	}{
		{"ignore_previous_instructions", `(?i)ignore\s+(all\s+)?(previous|above)\s+instructions`},
		{"disregard_previous", `(?i)disregard\s+(all\s+)?(previous|above)`},
		{"persona_override", `(?i)you\s+are\s+now\s+a\b`},
		{"new_instructions", `(?i)new\s+instructions\s*:`},
		{"system_prompt_leak", `(?i)system\s+prompt\s*:`},
		{"chat_template_delimiter", `(?i)(<\|im_start\|>|<\|im_end\|>|\[INST\]|\[/INST\])`},
		{"no_constraints", `(?i)act\s+as\s+if\s+you\s+have\s+no\s+constraints`},
		{"override_constraints", `(?i)override\s+your\s+(constraints|rules|instructions)`},
		{"pretend_persona", `(?i)pretend\s+you\s+are\b`},
		{"forget_instructions", `(?i)forget\s+(everything|your\s+instructions)`},
		{"do_not_follow_rules", `(?i)do\s+not\s+follow\s+your\s+(rules|constraints)`},
	}
	out := make([]compiledPattern, 0, len(raw))
	for _, r := range raw {
		out = append(out, compiledPattern{Name: r.name, Regex: regexp.MustCompile(r.pattern)})
	}
	return out
}

// SanitizeExternalInput wraps raw content in explicit BEGIN/END data
// delimiters and scans it for known injection patterns. It never removes or
// alters the raw bytes.
func (e *Engine) SanitizeExternalInput(raw, sourceType string) types.SanitizedInput {
	var details []string
	for _, p := range injectionPatterns {
		if p.Regex.MatchString(raw) {
			details = append(details, p.Name)
		}
	}

	return types.SanitizedInput{
		Content:               types.WrapSanitized(raw, sourceType),
		SourceType:            sourceType,
		SanitizedAt:           time.Now(),
		HadSuspiciousPatterns: len(details) > 0,
		PatternDetails:        details,
	}
}
