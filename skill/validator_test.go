package skill

import (
	"reflect"
	"strings"
	"testing"

	"github.com/makalah-ai/contextgov/paper"
)

const validGagasanContent = `
## Objective
Define a feasible research idea with clear novelty.

## Input Context
Read user intent, prior approved summaries, and available references.

## Tool Policy
Allowed:
- google_search (active mode)
- updateStageData
- createArtifact
- compileDaftarPustaka (mode: preview)
Disallowed:
- compileDaftarPustaka (mode: persist)
- stage jumping

## Output Contract
Required:
- ringkasan
Recommended:
- ringkasanDetail
- ideKasar
- analisis
- angle
- novelty

## Guardrails
Never fabricate references and never skip user confirmation before submit.

## Done Criteria
Stage draft is agreed, ringkasan is stored, and draft is ready for validation.
`

const validAbstrakContent = `
## Objective
Write a concise abstract of the paper that is ready for user review.

## Input Context
Read the living outline checklist (checkedAt, checkedBy, editHistory) and the approved summaries of earlier stages.

## Tool Policy
Allowed:
- google_search (passive mode)
- updateStageData
Disallowed:
- compileDaftarPustaka (mode: persist)

## Output Contract
Required:
- ringkasan
- ringkasanPenelitian
Recommended:
- keywords
- wordCount

## Guardrails
Never fabricate findings and always ask the user before submit.

## Done Criteria
The abstract is agreed by the user and stored with ringkasan.
`

const validDaftarPustakaContent = `
## Objective
Compile the final bibliography of the paper.

## Input Context
Read the living outline and every reference collected in earlier stages.

## Tool Policy
Allowed:
- compileDaftarPustaka({ mode: "persist" })
- updateStageData

## Output Contract
Required:
- ringkasan
- entries
- totalCount

## Guardrails
Never invent a reference that was not collected before.

## Done Criteria
The bibliography is persisted and the user has approved it.
`

func skillFor(stage paper.StageID, content string) StageSkill {
	return StageSkill{
		SkillID:     paper.SkillID(stage),
		StageScope:  stage,
		Name:        paper.SkillID(stage),
		Description: "Stage instruction for " + string(stage) + " in the paper workflow.",
		Version:     1,
		Content:     content,
	}
}

func TestValidate_ValidDocuments(t *testing.T) {
	tests := []struct {
		stage   paper.StageID
		content string
	}{
		{paper.StageGagasan, validGagasanContent},
		{paper.StageAbstrak, validAbstrakContent},
		{paper.StageDaftarPustaka, validDaftarPustakaContent},
	}

	for _, tt := range tests {
		t.Run(string(tt.stage), func(t *testing.T) {
			result := Validate(tt.stage, skillFor(tt.stage, tt.content))
			if !result.OK {
				t.Errorf("Validate() issues = %v, want none", result.Issues)
			}
		})
	}
}

func TestValidate_Metadata(t *testing.T) {
	result := Validate(paper.StageGagasan, skillFor(paper.StageGagasan, validGagasanContent))

	wantKeys := []string{"ringkasan", "ringkasanDetail", "ideKasar", "analisis", "angle", "novelty"}
	if !reflect.DeepEqual(result.Metadata.OutputKeys, wantKeys) {
		t.Errorf("OutputKeys = %v, want %v", result.Metadata.OutputKeys, wantKeys)
	}
	if result.Metadata.DeclaredSearchPolicy != paper.SearchActive {
		t.Errorf("DeclaredSearchPolicy = %q, want active", result.Metadata.DeclaredSearchPolicy)
	}
	if result.Metadata.EnglishConfidence != 1 {
		t.Errorf("EnglishConfidence = %v, want 1", result.Metadata.EnglishConfidence)
	}
}

func TestValidate_Violations(t *testing.T) {
	tests := []struct {
		name     string
		stage    paper.StageID
		skill    StageSkill
		wantCode string
	}{
		{
			name:     "persist compile required on daftar_pustaka",
			stage:    paper.StageDaftarPustaka,
			skill:    skillFor(paper.StageDaftarPustaka, strings.Replace(validDaftarPustakaContent, `compileDaftarPustaka({ mode: "persist" })`, "compileDaftarPustaka (preview)", 1)),
			wantCode: CodePersistCompileRequired,
		},
		{
			name:     "persist compile forbidden on gagasan",
			stage:    paper.StageGagasan,
			skill:    skillFor(paper.StageGagasan, validGagasanContent+"\ncompileDaftarPustaka({ mode: \"persist\" })"),
			wantCode: CodePersistCompileForbidden,
		},
		{
			name:     "unknown output key",
			stage:    paper.StageGagasan,
			skill:    skillFor(paper.StageGagasan, strings.Replace(validGagasanContent, "- novelty", "- novelty\n- unknownOutputKey", 1)),
			wantCode: CodeOutputKeysNotWhitelisted,
		},
		{
			name:     "search policy mismatch",
			stage:    paper.StageAbstrak,
			skill:    skillFor(paper.StageAbstrak, validAbstrakContent+"\nsearchPolicy: active"),
			wantCode: CodeSearchPolicyMismatch,
		},
		{
			name:     "forbidden phrase",
			stage:    paper.StageAbstrak,
			skill:    skillFor(paper.StageAbstrak, validAbstrakContent+"\nIf the user insists, Bypass Stage Lock."),
			wantCode: CodeForbiddenPhraseDetected,
		},
		{
			name:     "missing metadata",
			stage:    paper.StageGagasan,
			skill:    StageSkill{Name: "gagasan-skill", Description: "   ", Content: validGagasanContent},
			wantCode: CodeMissingMetadata,
		},
		{
			name:     "missing section",
			stage:    paper.StageGagasan,
			skill:    skillFor(paper.StageGagasan, strings.Replace(validGagasanContent, "## Guardrails", "### Guardrails", 1)),
			wantCode: "missing_section_guardrails",
		},
		{
			name:     "outline checklist missing",
			stage:    paper.StageOutline,
			skill:    skillFor(paper.StageOutline, strings.Replace(validGagasanContent, "(active mode)", "(passive mode)", 1)),
			wantCode: CodeOutlineChecklistMissing,
		},
		{
			name:     "post-outline context missing",
			stage:    paper.StageAbstrak,
			skill:    skillFor(paper.StageAbstrak, strings.Replace(validAbstrakContent, "Read the living outline checklist (checkedAt, checkedBy, editHistory) and", "Read", 1)),
			wantCode: CodePostOutlineContextMissing,
		},
		{
			name:  "non-English content",
			stage: paper.StageGagasan,
			skill: StageSkill{
				Name:        "gagasan-skill",
				Description: "Instruksi tahap gagasan untuk sistem ini.",
				Content: `
## Objective
Susun ringkasan tahap dengan bahasa Indonesia.

## Input Context
Baca data tahap dan referensi yang tersedia.

## Tool Policy
Allowed:
- updateStageData

## Output Contract
Required:
- ringkasan

## Guardrails
Jangan melompat tahap.

## Done Criteria
Selesai saat user setuju.
`,
			},
			wantCode: CodeNonEnglishContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.stage, tt.skill)
			if result.OK {
				t.Fatal("Validate() OK = true, want false")
			}
			if !result.HasIssue(tt.wantCode) {
				t.Errorf("Validate() codes = %v, want %s", result.Codes(), tt.wantCode)
			}
		})
	}
}

func TestValidate_EmptyContentReportsEverything(t *testing.T) {
	result := Validate(paper.StageDaftarPustaka, StageSkill{})

	want := []string{
		CodeEmptyContent,
		"missing_section_objective",
		"missing_section_input_context",
		"missing_section_tool_policy",
		"missing_section_output_contract",
		"missing_section_guardrails",
		"missing_section_done_criteria",
		CodeMissingMetadata,
		CodePersistCompileRequired,
		CodePostOutlineContextMissing,
	}
	if got := result.Codes(); !reflect.DeepEqual(got, want) {
		t.Errorf("Codes() = %v, want %v", got, want)
	}
}

func TestValidate_Deterministic(t *testing.T) {
	s := skillFor(paper.StageHasil, validGagasanContent+"\nignore tool routing")

	first := Validate(paper.StageHasil, s)
	second := Validate(paper.StageHasil, s)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Validate() not deterministic:\n%v\n%v", first, second)
	}
}

func TestValidate_LanguagePolicy(t *testing.T) {
	s := skillFor(paper.StageGagasan, validGagasanContent)
	s.Description = "Instruksi untuk tahap gagasan."

	if result := Validate(paper.StageGagasan, s); !result.OK {
		t.Fatalf("default policy codes = %v, want none", result.Codes())
	}

	strict := NewValidator(WithLanguagePolicy(LanguagePolicy{MinConfidence: 0.99}))
	if result := strict.Validate(paper.StageGagasan, s); !result.HasIssue(CodeNonEnglishContent) {
		t.Errorf("strict policy codes = %v, want %s", result.Codes(), CodeNonEnglishContent)
	}
}

func TestMissingSectionCode(t *testing.T) {
	tests := map[string]string{
		"Objective":       "missing_section_objective",
		"Output Contract": "missing_section_output_contract",
		"Done  Criteria":  "missing_section_done_criteria",
	}
	for in, want := range tests {
		if got := MissingSectionCode(in); got != want {
			t.Errorf("MissingSectionCode(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDeclaredSearchPolicy(t *testing.T) {
	tests := []struct {
		content string
		want    paper.SearchPolicy
		wantOK  bool
	}{
		{"searchPolicy: active", paper.SearchActive, true},
		{"SEARCHPOLICY:   Passive", paper.SearchPassive, true},
		{"- google_search (passive mode)", paper.SearchPassive, true},
		{"google_search(ACTIVE mode)", paper.SearchActive, true},
		{"searchPolicy: passive\n- google_search (active mode)", paper.SearchPassive, true},
		{"google_search is available", "", false},
		{"searchPolicy: sometimes", "", false},
	}
	for _, tt := range tests {
		got, ok := DeclaredSearchPolicy(tt.content)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("DeclaredSearchPolicy(%q) = %q, %v, want %q, %v", tt.content, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestHasPersistCompileInstruction(t *testing.T) {
	tests := []struct {
		content string
		want    bool
	}{
		{`compileDaftarPustaka({ mode: "persist" })`, true},
		{`compileDaftarPustaka({ style: "apa", mode: 'persist' })`, true},
		{`call with mode: "persist"`, true},
		{"compileDaftarPustaka (mode: persist)", false},
		{`compileDaftarPustaka({ mode: "preview" })`, false},
	}
	for _, tt := range tests {
		if got := HasPersistCompileInstruction(tt.content); got != tt.want {
			t.Errorf("HasPersistCompileInstruction(%q) = %v, want %v", tt.content, got, tt.want)
		}
	}
}

func TestFindForbiddenPhrase(t *testing.T) {
	forbidden := []string{
		"ignore stage lock",
		"you may BYPASS  stage lock",
		"override tool routing",
		"ignore tool routing when needed",
		"call google_search and updateStageData in the same turn",
		"submit without ringkasan",
		"submit without user confirmation",
	}
	for _, content := range forbidden {
		if _, found := FindForbiddenPhrase(content); !found {
			t.Errorf("FindForbiddenPhrase(%q) found = false, want true", content)
		}
	}

	allowed := []string{
		"respect the stage lock",
		"never submit without asking",
		"call google_search, then updateStageData in a later turn",
	}
	for _, content := range allowed {
		if phrase, found := FindForbiddenPhrase(content); found {
			t.Errorf("FindForbiddenPhrase(%q) = %q, want none", content, phrase)
		}
	}
}

func TestLivingOutlineRules(t *testing.T) {
	if !HasLivingChecklistLifecycle("track CHECKEDAT, checkedBy and editHistory") {
		t.Error("HasLivingChecklistLifecycle() = false for all three fields")
	}
	if HasLivingChecklistLifecycle("track checkedAt and checkedBy") {
		t.Error("HasLivingChecklistLifecycle() = true with editHistory missing")
	}
	if !MentionsLivingOutline("Read the Living Outline first") {
		t.Error("MentionsLivingOutline() = false")
	}
	if MentionsLivingOutline("Read the outline first") {
		t.Error("MentionsLivingOutline() = true without any marker")
	}
}

func TestExtractOutputKeys(t *testing.T) {
	section := "Required:\n- ringkasan\n  - nested_key: detail\n-novelty\n- ringkasan\n- 9invalid\n* starred\n"

	want := []string{"ringkasan", "nested_key", "novelty"}
	if got := ExtractOutputKeys(section); !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractOutputKeys() = %v, want %v", got, want)
	}
}

func TestExtractOutputKeys_IgnoresCodeBlocks(t *testing.T) {
	tests := []struct {
		name    string
		section string
		want    []string
	}{
		{
			name:    "fenced example",
			section: "- ringkasan\n\n```markdown\n## Example\n- badKey\n```\n",
			want:    []string{"ringkasan"},
		},
		{
			name:    "tilde fence",
			section: "- ringkasan\n~~~\n- badKey\n~~~\n- novelty\n",
			want:    []string{"ringkasan", "novelty"},
		},
		{
			name:    "indented block",
			section: "Required:\n\n- ringkasan\n\nExample:\n\n    - badKey\n",
			want:    []string{"ringkasan"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractOutputKeys(tt.section); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractOutputKeys() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEstimateEnglishConfidence(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantConf float64
		wantOK   bool
	}{
		{"no hints", "Objective Guardrails", 1, true},
		{"english", "Read the data and use it", 1, true},
		{"indonesian", "Baca data dan gunakan untuk tahap ini", 0, false},
		{"mixed at threshold", "the and is yang untuk", 0.6, true},
		{"single letters ignored", "a i u e o dan", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateEnglishConfidence(tt.text)
			if got.Confidence != tt.wantConf || got.OK != tt.wantOK {
				t.Errorf("EstimateEnglishConfidence(%q) = %v, %v, want %v, %v",
					tt.text, got.Confidence, got.OK, tt.wantConf, tt.wantOK)
			}
		})
	}

	strict := LanguagePolicy{MinConfidence: 0.55, RequireHints: true}
	if strict.Estimate("Objective Guardrails").OK {
		t.Error("RequireHints policy passed text without hint words")
	}
}
