package storage

import (
	"context"
	"errors"
	"time"

	"github.com/makalah-ai/contextgov/paper"
	"github.com/makalah-ai/contextgov/skill"
)

// Common errors
var (
	// ErrSessionNotFound is returned when a paper session does not exist.
	ErrSessionNotFound = errors.New("paper session not found")

	// ErrVersionNotFound is returned when a skill version does not exist.
	ErrVersionNotFound = errors.New("skill version not found")

	// ErrStorageError is returned when a storage operation failed.
	ErrStorageError = errors.New("storage operation failed")
)

// Store defines the storage interface of the context governor. Reads serve
// the per-turn hot path; writes serve skill administration.
type Store interface {
	skill.Store
	skill.CandidateStore

	// Skill administration
	GetSkillVersion(ctx context.Context, skillID string, version int) (*skill.StageSkill, skill.VersionStatus, error)
	SaveSkillVersion(ctx context.Context, s *skill.StageSkill, status skill.VersionStatus) error
	ActivateSkillVersion(ctx context.Context, skillID string, version int) error
	ListRuntimeConflicts(ctx context.Context, stage paper.StageID, limit int) ([]*skill.RuntimeConflict, error)
	DeleteRuntimeConflictsBefore(ctx context.Context, horizon time.Time) (int, error)

	// Paper session operations
	GetPaperSession(ctx context.Context, sessionID string) (*paper.Session, error)
	SavePaperSession(ctx context.Context, session *paper.Session) error
}

// DefaultConflictLimit caps ListRuntimeConflicts when limit is not positive.
const DefaultConflictLimit = 100
