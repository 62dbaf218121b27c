package skill

import (
	"fmt"
	"strings"

	"github.com/makalah-ai/contextgov/paper"
)

// Issue is a single policy violation.
type Issue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Metadata is what the validator learned about a document while checking it.
type Metadata struct {
	EnglishConfidence    float64            `json:"englishConfidence"`
	DeclaredSearchPolicy paper.SearchPolicy `json:"declaredSearchPolicy,omitempty"`
	OutputKeys           []string           `json:"outputKeys"`
}

// ValidationResult lists every violation found in a document. OK is true
// iff Issues is empty.
type ValidationResult struct {
	OK       bool     `json:"ok"`
	Issues   []Issue  `json:"issues"`
	Metadata Metadata `json:"metadata"`
}

// HasIssue reports whether the result contains an issue with code.
func (r *ValidationResult) HasIssue(code string) bool {
	for _, issue := range r.Issues {
		if issue.Code == code {
			return true
		}
	}
	return false
}

// Codes returns the issue codes in report order.
func (r *ValidationResult) Codes() []string {
	codes := make([]string, 0, len(r.Issues))
	for _, issue := range r.Issues {
		codes = append(codes, issue.Code)
	}
	return codes
}

// FirstMessage returns the message of the first issue.
func (r *ValidationResult) FirstMessage() string {
	if len(r.Issues) == 0 {
		return "validation failed"
	}
	return r.Issues[0].Message
}

// Validator checks skill documents against the stage policy. It is
// stateless and safe for concurrent use.
type Validator struct {
	language LanguagePolicy
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithLanguagePolicy replaces DefaultLanguagePolicy.
func WithLanguagePolicy(p LanguagePolicy) ValidatorOption {
	return func(v *Validator) {
		v.language = p
	}
}

// NewValidator creates a Validator.
func NewValidator(opts ...ValidatorOption) *Validator {
	v := &Validator{language: DefaultLanguagePolicy}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

var defaultValidator = NewValidator()

// Validate checks s for stage with the default validator.
func Validate(stage paper.StageID, s StageSkill) *ValidationResult {
	return defaultValidator.Validate(stage, s)
}

// Validate runs every rule against s as the skill of stage. Rules never
// short-circuit, so one report lists every violation.
func (v *Validator) Validate(stage paper.StageID, s StageSkill) *ValidationResult {
	var issues []Issue
	add := func(code, format string, args ...any) {
		issues = append(issues, Issue{Code: code, Message: fmt.Sprintf(format, args...)})
	}

	content := strings.TrimSpace(s.Content)
	if content == "" {
		add(CodeEmptyContent, "Skill content tidak boleh kosong.")
	}

	for _, name := range MandatorySections {
		if !HasSection(content, name) {
			add(MissingSectionCode(name), "Section wajib %q tidak ditemukan.", name)
		}
	}

	if strings.TrimSpace(s.Name) == "" || strings.TrimSpace(s.Description) == "" {
		add(CodeMissingMetadata, "Field name dan description wajib terisi.")
	}

	english := v.language.Estimate(strings.Join([]string{s.Name, s.Description, content}, "\n"))
	if !english.OK {
		add(CodeNonEnglishContent, "Konten skill wajib full English (confidence %.2f).", english.Confidence)
	}

	outputKeys := ExtractOutputKeys(SectionBody(content, "Output Contract"))
	var unknown []string
	for _, key := range outputKeys {
		if !paper.IsWhitelistedKey(stage, key) {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		add(CodeOutputKeysNotWhitelisted, "Output Contract memuat key yang tidak ada di whitelist stage %q: %s.",
			stage, strings.Join(unknown, ", "))
	}

	declared, hasDeclared := DeclaredSearchPolicy(content)
	if expected := paper.ExpectedSearchPolicy(stage); hasDeclared && declared != expected {
		add(CodeSearchPolicyMismatch, "searchPolicy %q tidak sesuai matrix stage %q (expected %q).",
			declared, stage, expected)
	}

	persist := HasPersistCompileInstruction(content)
	if stage != paper.StageDaftarPustaka && persist {
		add(CodePersistCompileForbidden, "Stage %q dilarang menginstruksikan compileDaftarPustaka mode persist.", stage)
	}
	if stage == paper.StageDaftarPustaka && !persist {
		add(CodePersistCompileRequired, "Stage daftar_pustaka wajib menginstruksikan compileDaftarPustaka mode persist.")
	}

	if _, found := FindForbiddenPhrase(content); found {
		add(CodeForbiddenPhraseDetected,
			"Konten skill mengandung instruksi override guard runtime (stage lock/tool routing/submit guard).")
	}

	if stage == paper.StageOutline && !HasLivingChecklistLifecycle(content) {
		add(CodeOutlineChecklistMissing,
			"outline-skill wajib menyebut checklist lifecycle (checkedAt, checkedBy, editHistory).")
	}

	if paper.IsPostOutline(stage) && !MentionsLivingOutline(content) {
		add(CodePostOutlineContextMissing, "Stage %q wajib menyebut pembacaan living outline checklist context.", stage)
	}

	if outputKeys == nil {
		outputKeys = []string{}
	}
	return &ValidationResult{
		OK:     len(issues) == 0,
		Issues: issues,
		Metadata: Metadata{
			EnglishConfidence:    english.Confidence,
			DeclaredSearchPolicy: declared,
			OutputKeys:           outputKeys,
		},
	}
}
