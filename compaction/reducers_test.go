package compaction

import (
	"strings"
	"testing"
	"time"

	"github.com/makalah-ai/contextgov/paper"
	"github.com/makalah-ai/contextgov/types"
)

func TestApproximateTokens(t *testing.T) {
	tests := []struct {
		chars int
		want  int
	}{
		{0, 0},
		{-3, 0},
		{1, 1},
		{4, 1},
		{5, 2},
		{3087, 772},
	}
	for _, tt := range tests {
		if got := ApproximateTokens(tt.chars); got != tt.want {
			t.Errorf("ApproximateTokens(%d) = %d, want %d", tt.chars, got, tt.want)
		}
	}
}

func TestEstimateTokens(t *testing.T) {
	messages := []types.Message{
		types.NewText(types.RoleUser, "abcd"),
		types.NewText(types.RoleAssistant, "😀"), // surrogate pair, 2 units
		{Role: types.RoleAssistant, Content: types.Parts(types.ContentPart{Type: types.ContentTypeText, Text: "ignored text"})},
	}

	if got := TotalChars(messages); got != 6 {
		t.Errorf("TotalChars() = %d, want 6", got)
	}
	if got := EstimateTokens(messages); got != 2 {
		t.Errorf("EstimateTokens() = %d, want 2", got)
	}
	if got := EstimateTextTokens("héllo"); got != 2 {
		t.Errorf("EstimateTextTokens() = %d, want 2", got)
	}
}

func TestIsChitchat(t *testing.T) {
	tests := []struct {
		name string
		msg  types.Message
		want bool
	}{
		{"ok", types.NewText(types.RoleUser, "ok"), true},
		{"ya", types.NewText(types.RoleUser, "ya"), true},
		{"lanjut with padding", types.NewText(types.RoleUser, "   lanjut   "), true},
		{"question", types.NewText(types.RoleUser, "ok?"), false},
		{"exclamation", types.NewText(types.RoleUser, "bagus!"), false},
		{"fifteen chars", types.NewText(types.RoleUser, "abcdefghijklmno"), false},
		{"raw length over max", types.NewText(types.RoleUser, "ok"+strings.Repeat(" ", 60)), false},
		{"assistant", types.NewText(types.RoleAssistant, "ok"), false},
		{"system", types.NewText(types.RoleSystem, "ok"), false},
		{"multi-part", types.Message{Role: types.RoleUser, Content: types.Parts(types.ContentPart{Type: types.ContentTypeText, Text: "ok"})}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsChitchat(tt.msg, DefaultChitchatShortLength, DefaultChitchatMaxLength); got != tt.want {
				t.Errorf("IsChitchat(%q) = %v, want %v", tt.msg.Content.Text(), got, tt.want)
			}
		})
	}
}

func TestStripChitchat(t *testing.T) {
	messages := []types.Message{
		types.NewText(types.RoleSystem, "ok"),
		types.NewText(types.RoleUser, "Tolong bantu saya menulis pendahuluan paper."),
		types.NewText(types.RoleAssistant, "Baik."),
		types.NewText(types.RoleUser, "ok"),
		types.NewText(types.RoleUser, "ok?"),
	}

	got := StripChitchat(messages)
	if len(got) != 4 {
		t.Fatalf("len(StripChitchat()) = %d, want 4", len(got))
	}
	if got[3].Content.String() != "ok?" {
		t.Errorf("last message = %q, want %q", got[3].Content.String(), "ok?")
	}

	again := StripChitchat(got)
	if len(again) != len(got) {
		t.Errorf("StripChitchat is not idempotent: %d -> %d", len(got), len(again))
	}
}

func TestExcludeStageMessages(t *testing.T) {
	messages := []types.Message{
		types.NewText(types.RoleSystem, "sys"),
		types.NewTextWithID("m1", types.RoleUser, "before"),
		types.NewTextWithID("m2", types.RoleUser, "first"),
		types.NewText(types.RoleAssistant, "tool call without id"),
		types.NewText(types.RoleSystem, "mid-stage system note"),
		types.NewTextWithID("m3", types.RoleAssistant, "last"),
		types.NewTextWithID("m4", types.RoleUser, "after"),
	}

	tests := []struct {
		name     string
		boundary paper.StageMessageBoundary
		want     []string
	}{
		{
			name:     "range removed, system kept",
			boundary: paper.StageMessageBoundary{FirstMessageID: "m2", LastMessageID: "m3"},
			want:     []string{"sys", "before", "mid-stage system note", "after"},
		},
		{
			name:     "first id absent leaves input unchanged",
			boundary: paper.StageMessageBoundary{FirstMessageID: "missing", LastMessageID: "m3"},
			want:     []string{"sys", "before", "first", "tool call without id", "mid-stage system note", "last", "after"},
		},
		{
			name:     "single message stage",
			boundary: paper.StageMessageBoundary{FirstMessageID: "m4", LastMessageID: "m4"},
			want:     []string{"sys", "before", "first", "tool call without id", "mid-stage system note", "last"},
		},
		{
			name:     "last id absent drops to the end",
			boundary: paper.StageMessageBoundary{FirstMessageID: "m3", LastMessageID: "gone"},
			want:     []string{"sys", "before", "first", "tool call without id", "mid-stage system note"},
		},
		{
			name:     "empty ids never match",
			boundary: paper.StageMessageBoundary{},
			want:     []string{"sys", "before", "first", "tool call without id", "mid-stage system note", "last", "after"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExcludeStageMessages(messages, tt.boundary, nil)
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i, msg := range got {
				if msg.Content.String() != tt.want[i] {
					t.Errorf("message %d = %q, want %q", i, msg.Content.String(), tt.want[i])
				}
			}
		})
	}
}

func TestExcludeStageMessages_CustomExtractor(t *testing.T) {
	messages := []types.Message{
		types.NewText(types.RoleUser, "db:1"),
		types.NewText(types.RoleAssistant, "db:2"),
		types.NewText(types.RoleUser, "db:3"),
	}
	fromContent := func(m types.Message) string { return m.Content.String() }

	got := ExcludeStageMessages(messages, paper.StageMessageBoundary{FirstMessageID: "db:1", LastMessageID: "db:2"}, fromContent)
	if len(got) != 1 || got[0].Content.String() != "db:3" {
		t.Errorf("ExcludeStageMessages() = %v, want only db:3", got)
	}
}

func TestBuildStageDigest(t *testing.T) {
	now := time.Now()
	digest := []paper.MemoryEntry{
		{Stage: paper.StageGagasan, Decision: "old", Timestamp: now, Superseded: true},
		{Stage: paper.StageGagasan, Decision: "new", Timestamp: now},
		{Stage: paper.StageOutline, Decision: "not compacted", Timestamp: now},
	}

	msg, ok := BuildStageDigest(digest, []paper.StageID{paper.StageGagasan, paper.StageTopik})
	if !ok {
		t.Fatal("BuildStageDigest() ok = false, want true")
	}
	want := DigestHeader(2) + "\n- Gagasan Paper: new\n\n" + digestFooter
	if msg.Content.String() != want {
		t.Errorf("digest = %q, want %q", msg.Content.String(), want)
	}

	if _, ok := BuildStageDigest(digest, nil); ok {
		t.Error("BuildStageDigest(nil stages) ok = true")
	}
	if _, ok := BuildStageDigest(digest, []paper.StageID{paper.StageAbstrak}); ok {
		t.Error("BuildStageDigest() fabricated a digest for a stage without entries")
	}
}

func TestInsertAfterSystem(t *testing.T) {
	messages := []types.Message{
		types.NewText(types.RoleSystem, "a"),
		types.NewText(types.RoleSystem, "b"),
		types.NewText(types.RoleUser, "c"),
	}

	got := InsertAfterSystem(messages, types.NewText(types.RoleSystem, "digest"))
	order := []string{"a", "b", "digest", "c"}
	for i, want := range order {
		if got[i].Content.String() != want {
			t.Errorf("message %d = %q, want %q", i, got[i].Content.String(), want)
		}
	}

	got = InsertAfterSystem(nil, types.NewText(types.RoleSystem, "digest"))
	if len(got) != 1 {
		t.Errorf("len(InsertAfterSystem(nil)) = %d, want 1", len(got))
	}
}

func TestCheckBudget(t *testing.T) {
	tests := []struct {
		name        string
		chars       int
		window      int
		wantCompact bool
		wantPrune   bool
		wantWarn    bool
	}{
		{"empty", 0, 0, false, false, false},
		{"at warn threshold", 4 * 600, 1000, false, false, false},
		{"above warn", 4 * 601, 1000, false, false, true},
		{"above prune", 4 * 801, 1000, false, true, true},
		{"above compaction", 4 * 851, 1000, true, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckBudget(tt.chars, tt.window, 0)
			if got.ShouldCompact != tt.wantCompact || got.ShouldPrune != tt.wantPrune || got.ShouldWarn != tt.wantWarn {
				t.Errorf("CheckBudget(%d, %d) = compact %v prune %v warn %v, want %v %v %v",
					tt.chars, tt.window, got.ShouldCompact, got.ShouldPrune, got.ShouldWarn,
					tt.wantCompact, tt.wantPrune, tt.wantWarn)
			}
		})
	}

	got := CheckBudget(0, 0, 0)
	if got.ContextWindow != DefaultContextWindow || got.Threshold != 102400 || got.WarnThreshold != 76800 {
		t.Errorf("CheckBudget defaults = %+v", got)
	}
}

func TestPruneMessages(t *testing.T) {
	messages := []types.Message{types.NewText(types.RoleSystem, "sys")}
	for i := 0; i < 5; i++ {
		messages = append(messages, types.NewText(types.RoleUser, string(rune('a'+i))))
	}
	messages = append(messages, types.NewText(types.RoleSystem, "late sys"))

	got := PruneMessages(messages, 2)
	want := []string{"sys", "d", "e", "late sys"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Content.String() != want[i] {
			t.Errorf("message %d = %q, want %q", i, got[i].Content.String(), want[i])
		}
	}

	if got := PruneMessages(messages, 10); len(got) != len(messages) {
		t.Errorf("PruneMessages with large keep = %d messages, want %d", len(got), len(messages))
	}
}
