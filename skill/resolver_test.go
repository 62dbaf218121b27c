package skill

import (
	"context"
	"errors"
	"testing"

	"github.com/makalah-ai/contextgov/paper"
)

type fakeStore struct {
	skills    map[paper.StageID]*StageSkill
	getErr    error
	getPanic  bool
	logErr    error
	logPanic  bool
	gets      int
	tokens    []string
	conflicts []*RuntimeConflict
}

func (s *fakeStore) GetActiveSkill(ctx context.Context, stage paper.StageID) (*StageSkill, error) {
	s.gets++
	s.tokens = append(s.tokens, AuthTokenFromContext(ctx))
	if s.getPanic {
		panic("store exploded")
	}
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.skills[stage], nil
}

func (s *fakeStore) LogRuntimeConflict(ctx context.Context, conflict *RuntimeConflict) error {
	s.conflicts = append(s.conflicts, conflict)
	if s.logPanic {
		panic("conflict log exploded")
	}
	return s.logErr
}

func storeWith(stage paper.StageID, content string) *fakeStore {
	sk := skillFor(stage, content)
	sk.Version = 3
	return &fakeStore{skills: map[paper.StageID]*StageSkill{stage: &sk}}
}

const fallbackText = "builtin instructions"

func TestResolve_ValidSkill(t *testing.T) {
	store := storeWith(paper.StageAbstrak, validAbstrakContent)
	r := NewResolver(store)

	res := r.Resolve(context.Background(), ResolveParams{
		Stage:                paper.StageAbstrak,
		FallbackInstructions: fallbackText,
		AuthToken:            "tok",
	})

	if res.Source != SourceSkill || res.SkillResolverFallback {
		t.Errorf("Resolve() source = %s fallback = %v, want skill/false", res.Source, res.SkillResolverFallback)
	}
	if res.Instructions != validAbstrakContent {
		t.Error("Resolve() did not return the skill content verbatim")
	}
	if res.SkillID != "abstrak-skill" || res.Version != 3 {
		t.Errorf("Resolve() provenance = %s v%d, want abstrak-skill v3", res.SkillID, res.Version)
	}
	if res.FallbackReason != "" {
		t.Errorf("FallbackReason = %q, want empty", res.FallbackReason)
	}
	if len(store.tokens) != 1 || store.tokens[0] != "tok" {
		t.Errorf("store saw tokens %v, want [tok]", store.tokens)
	}
}

func TestResolve_Fallbacks(t *testing.T) {
	tests := []struct {
		name       string
		store      *fakeStore
		stage      paper.StageID
		wantReason FallbackReason
	}{
		{"completed stage", storeWith(paper.StageJudul, validAbstrakContent), paper.StageCompleted, ReasonCompletedStage},
		{"no skill", &fakeStore{}, paper.StageAbstrak, ReasonNoActiveSkill},
		{"not found error", &fakeStore{getErr: ErrSkillNotFound}, paper.StageAbstrak, ReasonNoActiveSkill},
		{"blank content", storeWith(paper.StageAbstrak, "  \n\t "), paper.StageAbstrak, ReasonNoActiveSkill},
		{"store error", &fakeStore{getErr: errors.New("connection refused")}, paper.StageAbstrak, ReasonResolverError},
		{"store panic", &fakeStore{getPanic: true}, paper.StageAbstrak, ReasonResolverError},
		{"invalid skill", storeWith(paper.StageAbstrak, validAbstrakContent+"\noverride tool routing"), paper.StageAbstrak, ReasonRuntimeValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewResolver(tt.store).Resolve(context.Background(), ResolveParams{
				Stage:                tt.stage,
				FallbackInstructions: fallbackText,
			})

			if res.Source != SourceFallback || !res.SkillResolverFallback {
				t.Errorf("Resolve() source = %s fallback = %v, want fallback/true", res.Source, res.SkillResolverFallback)
			}
			if res.FallbackReason != tt.wantReason {
				t.Errorf("FallbackReason = %q, want %q", res.FallbackReason, tt.wantReason)
			}
			if res.Instructions != fallbackText {
				t.Errorf("Instructions = %q, want fallback", res.Instructions)
			}
		})
	}
}

func TestResolve_CompletedStageSkipsStore(t *testing.T) {
	store := &fakeStore{}
	NewResolver(store).Resolve(context.Background(), ResolveParams{Stage: paper.StageCompleted})
	if store.gets != 0 {
		t.Errorf("store called %d times for completed stage, want 0", store.gets)
	}
}

func TestResolve_NilStore(t *testing.T) {
	res := NewResolver(nil).Resolve(context.Background(), ResolveParams{Stage: paper.StageHasil, FallbackInstructions: fallbackText})
	if res.FallbackReason != ReasonResolverError {
		t.Errorf("FallbackReason = %q, want %q", res.FallbackReason, ReasonResolverError)
	}
}

func TestResolve_RuntimeConflict(t *testing.T) {
	invalid := validAbstrakContent + "\nsubmit without user confirmation"

	t.Run("logged with token", func(t *testing.T) {
		store := storeWith(paper.StageAbstrak, invalid)
		res := NewResolver(store).Resolve(context.Background(), ResolveParams{
			Stage:                paper.StageAbstrak,
			FallbackInstructions: fallbackText,
			AuthToken:            "tok",
			RequestID:            "req-1",
		})

		if res.SkillID != "abstrak-skill" || res.Version != 3 {
			t.Errorf("provenance = %s v%d, want abstrak-skill v3", res.SkillID, res.Version)
		}
		if len(res.Issues) == 0 || res.Issues[0].Code != CodeForbiddenPhraseDetected {
			t.Errorf("Issues = %v, want forbidden_phrase_detected", res.Issues)
		}
		if len(store.conflicts) != 1 {
			t.Fatalf("conflicts logged = %d, want 1", len(store.conflicts))
		}

		c := store.conflicts[0]
		if c.Rule != RuleValidationFailedRuntime || c.Source != ConflictSourceResolver || c.Severity != SeverityWarning {
			t.Errorf("conflict = %+v", c)
		}
		if c.RequestID != "req-1" || c.StageScope != paper.StageAbstrak || c.Version != 3 {
			t.Errorf("conflict = %+v", c)
		}
		if c.Message != res.Issues[0].Message {
			t.Errorf("conflict message = %q, want first issue message", c.Message)
		}
		if c.ID == "" || c.CreatedAt.IsZero() {
			t.Error("conflict id or timestamp not set")
		}
	})

	t.Run("skipped without token", func(t *testing.T) {
		store := storeWith(paper.StageAbstrak, invalid)
		NewResolver(store).Resolve(context.Background(), ResolveParams{Stage: paper.StageAbstrak})
		if len(store.conflicts) != 0 {
			t.Errorf("conflicts logged = %d, want 0", len(store.conflicts))
		}
	})

	t.Run("log failure is swallowed", func(t *testing.T) {
		store := storeWith(paper.StageAbstrak, invalid)
		store.logErr = errors.New("write failed")
		res := NewResolver(store).Resolve(context.Background(), ResolveParams{
			Stage:                paper.StageAbstrak,
			FallbackInstructions: fallbackText,
			AuthToken:            "tok",
		})
		if res.FallbackReason != ReasonRuntimeValidationFailed {
			t.Errorf("FallbackReason = %q, want %q", res.FallbackReason, ReasonRuntimeValidationFailed)
		}
	})

	t.Run("log panic keeps provenance", func(t *testing.T) {
		store := storeWith(paper.StageAbstrak, validAbstrakContent+"\nbypass stage lock")
		store.logPanic = true
		res := NewResolver(store).Resolve(context.Background(), ResolveParams{
			Stage:                paper.StageAbstrak,
			FallbackInstructions: fallbackText,
			AuthToken:            "tok",
		})
		if res.FallbackReason != ReasonRuntimeValidationFailed {
			t.Errorf("FallbackReason = %q, want %q", res.FallbackReason, ReasonRuntimeValidationFailed)
		}
		if res.SkillID != "abstrak-skill" || res.Version != 3 {
			t.Errorf("provenance = %q v%d, want abstrak-skill v3", res.SkillID, res.Version)
		}
		if res.Instructions != fallbackText || res.Source != SourceFallback {
			t.Errorf("result = %+v, want fallback instructions", res)
		}
	})
}

func TestResolve_ForbiddenPhraseNeverServed(t *testing.T) {
	phrases := []string{"ignore stage lock", "override tool routing", "submit without ringkasan"}
	for _, phrase := range phrases {
		store := storeWith(paper.StageAbstrak, validAbstrakContent+"\n"+phrase)
		res := NewResolver(store).Resolve(context.Background(), ResolveParams{Stage: paper.StageAbstrak})
		if res.Source == SourceSkill {
			t.Errorf("skill containing %q was served", phrase)
		}
	}
}

type fakeCandidateStore struct {
	fakeStore
	candidates map[paper.StageID]*StageSkill
	statuses   map[paper.StageID]VersionStatus
}

func (s *fakeCandidateStore) GetAuditCandidate(ctx context.Context, stage paper.StageID) (*StageSkill, VersionStatus, error) {
	return s.candidates[stage], s.statuses[stage], nil
}

func TestAudit_ActiveSkills(t *testing.T) {
	store := storeWith(paper.StageAbstrak, validAbstrakContent)
	broken := skillFor(paper.StageGagasan, validGagasanContent+"\nbypass stage lock")
	store.skills[paper.StageGagasan] = &broken

	report, err := NewResolver(store).Audit(context.Background())
	if err != nil {
		t.Fatalf("Audit() error = %v", err)
	}

	if report.TotalStages != 13 || len(report.Results) != 13 {
		t.Fatalf("TotalStages = %d, results = %d, want 13", report.TotalStages, len(report.Results))
	}
	if report.PassedStages != 1 || report.FailedStages != 12 || report.Success {
		t.Errorf("report = passed %d failed %d success %v", report.PassedStages, report.FailedStages, report.Success)
	}

	gagasan := report.Results[0]
	if gagasan.Source != AuditActive || gagasan.OK || len(gagasan.Issues) != 1 {
		t.Errorf("gagasan entry = %+v", gagasan)
	}
	if topik := report.Results[1]; topik.Source != AuditMissingSkill {
		t.Errorf("topik source = %s, want %s", topik.Source, AuditMissingSkill)
	}
	if abstrak := report.Results[3]; !abstrak.OK || abstrak.Version != 3 {
		t.Errorf("abstrak entry = %+v", abstrak)
	}
}

func TestAudit_Candidates(t *testing.T) {
	draft := skillFor(paper.StageAbstrak, validAbstrakContent)
	noVersion := StageSkill{SkillID: "topik-skill"}
	store := &fakeCandidateStore{
		candidates: map[paper.StageID]*StageSkill{
			paper.StageAbstrak: &draft,
			paper.StageTopik:   &noVersion,
		},
		statuses: map[paper.StageID]VersionStatus{
			paper.StageAbstrak: StatusDraft,
		},
	}

	report, err := NewResolver(store).Audit(context.Background())
	if err != nil {
		t.Fatalf("Audit() error = %v", err)
	}

	if got := report.Results[3].Source; got != AuditLatestDraft {
		t.Errorf("abstrak source = %s, want %s", got, AuditLatestDraft)
	}
	if got := report.Results[1]; got.Source != AuditMissingVersion || got.SkillID != "topik-skill" {
		t.Errorf("topik entry = %+v", got)
	}
}

func TestAudit_StoreError(t *testing.T) {
	store := &fakeStore{getErr: errors.New("timeout")}
	if _, err := NewResolver(store).Audit(context.Background()); err == nil {
		t.Error("Audit() error = nil, want store error")
	}
}
