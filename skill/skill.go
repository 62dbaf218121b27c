package skill

import (
	"errors"
	"strings"
	"time"

	"github.com/makalah-ai/contextgov/paper"
)

// Sentinel errors for skill resolution.
var (
	// ErrSkillNotFound is returned by stores when no active skill exists for
	// a stage. The resolver treats it like a nil skill.
	ErrSkillNotFound = errors.New("skill not found")

	// ErrNoStore is returned when a Resolver is used without a Store.
	ErrNoStore = errors.New("no skill store configured")
)

// StageSkill is an operator-authored instruction document for one stage.
// Only the active version of a stage is ever fetched.
type StageSkill struct {
	SkillID     string        `json:"skillId" yaml:"skillId"`
	StageScope  paper.StageID `json:"stageScope" yaml:"stageScope"`
	Name        string        `json:"name" yaml:"name"`
	Description string        `json:"description" yaml:"description"`
	Version     int           `json:"version" yaml:"version"`
	Content     string        `json:"content" yaml:"-"`
}

// IsBlank reports whether the skill carries no usable content.
func (s *StageSkill) IsBlank() bool {
	return s == nil || strings.TrimSpace(s.Content) == ""
}

// Conflict rule, source and severity recorded when an active skill fails
// validation at runtime.
const (
	RuleValidationFailedRuntime = "skill_validation_failed_runtime"
	ConflictSourceResolver      = "stage-skill-resolver"
	SeverityWarning             = "warning"
)

// RuntimeConflict is one append-only record explaining why an active skill
// was rejected while serving a chat turn.
type RuntimeConflict struct {
	ID         string        `json:"id"`
	StageScope paper.StageID `json:"stageScope"`
	SkillID    string        `json:"skillId,omitempty"`
	Version    int           `json:"version,omitempty"`
	Rule       string        `json:"rule"`
	Message    string        `json:"message"`
	IssueCodes []string      `json:"issueCodes,omitempty"`
	Severity   string        `json:"severity"`
	Source     string        `json:"source"`
	RequestID  string        `json:"requestId,omitempty"`
	CreatedAt  time.Time     `json:"createdAt"`
}
