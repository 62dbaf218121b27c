package skill

import (
	"regexp"
	"strings"

	"github.com/makalah-ai/contextgov/paper"
)

// MandatorySections are the level-2 headings every skill document must have.
var MandatorySections = []string{
	"Objective",
	"Input Context",
	"Tool Policy",
	"Output Contract",
	"Guardrails",
	"Done Criteria",
}

// Issue codes reported by the validator.
const (
	CodeEmptyContent              = "empty_content"
	CodeMissingMetadata           = "missing_metadata"
	CodeNonEnglishContent         = "non_english_content"
	CodeOutputKeysNotWhitelisted  = "output_keys_not_whitelisted"
	CodeSearchPolicyMismatch      = "search_policy_mismatch"
	CodePersistCompileForbidden   = "persist_compile_forbidden"
	CodePersistCompileRequired    = "persist_compile_required"
	CodeForbiddenPhraseDetected   = "forbidden_phrase_detected"
	CodeOutlineChecklistMissing   = "outline_living_checklist_missing"
	CodePostOutlineContextMissing = "post_outline_context_missing"
)

// MissingSectionCode returns the issue code for a missing mandatory section,
// e.g. "missing_section_output_contract".
func MissingSectionCode(section string) string {
	return "missing_section_" + strings.Join(strings.Fields(strings.ToLower(section)), "_")
}

var outputKeyLine = regexp.MustCompile(`^\s*-\s*([a-zA-Z_][a-zA-Z0-9_]*)\b`)

// ExtractOutputKeys returns the distinct keys listed as "- key" lines in an
// Output Contract section, in first-seen order. Lines inside code blocks are
// examples, not keys.
func ExtractOutputKeys(section string) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, line := range strings.Split(string(withoutCodeBlocks([]byte(section))), "\n") {
		m := outputKeyLine.FindStringSubmatch(line)
		if m == nil || seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		keys = append(keys, m[1])
	}
	return keys
}

var (
	explicitSearchPolicy = regexp.MustCompile(`(?i)searchPolicy:\s*(active|passive)\b`)
	toolSearchPolicy     = regexp.MustCompile(`(?i)google_search\s*\((active|passive)\s+mode`)
)

// DeclaredSearchPolicy returns the search policy a document declares, either
// as "searchPolicy: <value>" or as "google_search (<value> mode". The explicit
// form wins.
func DeclaredSearchPolicy(content string) (paper.SearchPolicy, bool) {
	for _, re := range []*regexp.Regexp{explicitSearchPolicy, toolSearchPolicy} {
		if m := re.FindStringSubmatch(content); m != nil {
			return paper.SearchPolicy(strings.ToLower(m[1])), true
		}
	}
	return "", false
}

var persistCompilePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)compileDaftarPustaka\s*\(\s*\{[^}]*mode\s*:\s*["']persist["']`),
	regexp.MustCompile(`(?i)mode\s*:\s*["']persist["']`),
}

// HasPersistCompileInstruction reports whether content instructs a
// bibliography compile in persist mode.
func HasPersistCompileInstruction(content string) bool {
	for _, re := range persistCompilePatterns {
		if re.MatchString(content) {
			return true
		}
	}
	return false
}

var forbiddenPhrases = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bignore\s+stage\s+lock\b`),
	regexp.MustCompile(`(?i)\bbypass\s+stage\s+lock\b`),
	regexp.MustCompile(`(?i)\boverride\s+tool\s+routing\b`),
	regexp.MustCompile(`(?i)\bignore\s+tool\s+routing\b`),
	regexp.MustCompile(`(?i)\bcall\s+google_search\s+and\s+updateStageData\s+in\s+the\s+same\s+turn\b`),
	regexp.MustCompile(`(?i)\bsubmit\s+without\s+ringkasan\b`),
	regexp.MustCompile(`(?i)\bsubmit\s+without\s+user\s+confirmation\b`),
}

// FindForbiddenPhrase returns the first phrase in content that would instruct
// the model to bypass a runtime guard.
func FindForbiddenPhrase(content string) (string, bool) {
	for _, re := range forbiddenPhrases {
		if match := re.FindString(content); match != "" {
			return match, true
		}
	}
	return "", false
}

var livingChecklistFields = []*regexp.Regexp{
	regexp.MustCompile(`(?i)checkedAt`),
	regexp.MustCompile(`(?i)checkedBy`),
	regexp.MustCompile(`(?i)editHistory`),
}

// HasLivingChecklistLifecycle reports whether content names all three
// living-checklist fields.
func HasLivingChecklistLifecycle(content string) bool {
	for _, re := range livingChecklistFields {
		if !re.MatchString(content) {
			return false
		}
	}
	return true
}

var livingOutlineContext = regexp.MustCompile(`(?i)living outline|checkedAt|checkedBy|editHistory`)

// MentionsLivingOutline reports whether content refers to the living outline
// checklist context.
func MentionsLivingOutline(content string) bool {
	return livingOutlineContext.MatchString(content)
}
