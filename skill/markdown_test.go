package skill

import (
	"reflect"
	"strings"
	"testing"
)

func TestSectionNames(t *testing.T) {
	content := "# Title\n\n## Objective\ntext\n\n### Detail\n\n## Input Context ##\n\nSetext\n------\n\n```\n## Fenced\n```\n\n  ## Indented\n\n##NoSpace\n"

	want := []string{"Objective", "Input Context"}
	if got := SectionNames(content); !reflect.DeepEqual(got, want) {
		t.Errorf("SectionNames() = %v, want %v", got, want)
	}
}

func TestHasSection(t *testing.T) {
	content := "## output contract\n- ringkasan\n"

	if !HasSection(content, "Output Contract") {
		t.Error("HasSection() = false for a case-insensitive match")
	}
	if HasSection(content, "Output") {
		t.Error("HasSection() = true for a partial name")
	}
}

func TestSectionBody(t *testing.T) {
	content := "## Objective\nFirst line.\n\n### Sub\nStill objective.\n\n## Output Contract\n- ringkasan\n- novelty\n"

	tests := []struct {
		name string
		want string
	}{
		{"Objective", "First line.\n\n### Sub\nStill objective."},
		{"output contract", "- ringkasan\n- novelty"},
		{"Guardrails", ""},
	}
	for _, tt := range tests {
		if got := SectionBody(content, tt.name); got != tt.want {
			t.Errorf("SectionBody(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}

	if got := SectionBody("## Objective", "Objective"); got != "" {
		t.Errorf("SectionBody() of a heading at EOF = %q, want empty", got)
	}
}

func TestRenderPreview(t *testing.T) {
	html, err := RenderPreview("## Objective\n\nUse **bold** text.\n\n<script>alert(1)</script>\n\n[link](javascript:alert(1))")
	if err != nil {
		t.Fatalf("RenderPreview() error = %v", err)
	}

	if !strings.Contains(html, "<h2") || !strings.Contains(html, "<strong>bold</strong>") {
		t.Errorf("RenderPreview() missing rendered markup: %s", html)
	}
	if strings.Contains(html, "<script") || strings.Contains(html, "javascript:") {
		t.Errorf("RenderPreview() output not sanitized: %s", html)
	}
}
