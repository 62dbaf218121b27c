package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/makalah-ai/contextgov/paper"
	"github.com/makalah-ai/contextgov/skill"
)

// sqlTxContextKey is the context key for storing *sql.Tx
type sqlTxContextKey struct{}

// WithSQLTx returns a new context with the given database/sql transaction
func WithSQLTx(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, sqlTxContextKey{}, tx)
}

// SQLTxFromContext retrieves the database/sql transaction from context
func SQLTxFromContext(ctx context.Context) *sql.Tx {
	if tx, ok := ctx.Value(sqlTxContextKey{}).(*sql.Tx); ok {
		return tx
	}
	return nil
}

// sqlQuerier is a common interface for *sql.DB and *sql.Tx
type sqlQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLStore implements Store on database/sql with the lib/pq driver, for
// hosts that already manage a *sql.DB.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates a store over db. The db must use the "postgres" driver.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Migrate applies Schema.
func (s *SQLStore) Migrate(ctx context.Context) error {
	if _, err := s.getQuerier(ctx).ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (s *SQLStore) getQuerier(ctx context.Context) sqlQuerier {
	if tx := SQLTxFromContext(ctx); tx != nil {
		return tx
	}
	return s.db
}

func (s *SQLStore) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if SQLTxFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(WithSQLTx(ctx, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetActiveSkill returns the active skill of a stage
func (s *SQLStore) GetActiveSkill(ctx context.Context, stage paper.StageID) (*skill.StageSkill, error) {
	query := `
		SELECT s.skill_id, s.name, s.description, v.version, v.content
		FROM contextgov_stage_skills s
		JOIN contextgov_stage_skill_versions v ON v.skill_ref_id = s.id
		WHERE s.stage_scope = $1 AND v.status = 'active'
	`

	sk := &skill.StageSkill{StageScope: stage}
	err := s.getQuerier(ctx).QueryRowContext(ctx, query, string(stage)).Scan(
		&sk.SkillID,
		&sk.Name,
		&sk.Description,
		&sk.Version,
		&sk.Content,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no active skill for stage %s", skill.ErrSkillNotFound, stage)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active skill: %w", err)
	}
	return sk, nil
}

// GetAuditCandidate returns the newest draft, else newest published, else
// active version of a stage's skill
func (s *SQLStore) GetAuditCandidate(ctx context.Context, stage paper.StageID) (*skill.StageSkill, skill.VersionStatus, error) {
	q := s.getQuerier(ctx)

	sk := &skill.StageSkill{StageScope: stage}
	var refID string
	err := q.QueryRowContext(ctx,
		`SELECT id, skill_id, name, description FROM contextgov_stage_skills WHERE stage_scope = $1`,
		string(stage),
	).Scan(&refID, &sk.SkillID, &sk.Name, &sk.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", fmt.Errorf("%w: no skill for stage %s", skill.ErrSkillNotFound, stage)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to get skill: %w", err)
	}

	var status string
	err = q.QueryRowContext(ctx, candidateQuery, refID).Scan(&sk.Version, &status, &sk.Content)
	if errors.Is(err, sql.ErrNoRows) {
		return sk, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to get candidate version: %w", err)
	}
	return sk, skill.VersionStatus(status), nil
}

// GetSkillVersion returns one stored version of a skill with its status
func (s *SQLStore) GetSkillVersion(ctx context.Context, skillID string, version int) (*skill.StageSkill, skill.VersionStatus, error) {
	var sk skill.StageSkill
	var stageScope, status string
	err := s.getQuerier(ctx).QueryRowContext(ctx, getVersionQuery, skillID, version).Scan(
		&sk.SkillID,
		&stageScope,
		&sk.Name,
		&sk.Description,
		&sk.Version,
		&sk.Content,
		&status,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", fmt.Errorf("%w: %s v%d", ErrVersionNotFound, skillID, version)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to get skill version: %w", err)
	}

	sk.StageScope = paper.StageID(stageScope)
	return &sk, skill.VersionStatus(status), nil
}

// SaveSkillVersion behaves like PostgresStore.SaveSkillVersion.
func (s *SQLStore) SaveSkillVersion(ctx context.Context, sk *skill.StageSkill, status skill.VersionStatus) error {
	if !sk.StageScope.IsValid() {
		return fmt.Errorf("%w: %q", paper.ErrUnknownStage, sk.StageScope)
	}
	if sk.SkillID == "" {
		sk.SkillID = paper.SkillID(sk.StageScope)
	}

	return s.inTx(ctx, func(ctx context.Context) error {
		q := s.getQuerier(ctx)

		var refID string
		err := q.QueryRowContext(ctx, upsertSkillQuery,
			uuid.New().String(), sk.SkillID, string(sk.StageScope), sk.Name, sk.Description,
		).Scan(&refID)
		if err != nil {
			return fmt.Errorf("failed to upsert skill: %w", err)
		}

		if sk.Version <= 0 {
			if err := q.QueryRowContext(ctx, nextVersionQuery, refID).Scan(&sk.Version); err != nil {
				return fmt.Errorf("failed to assign version: %w", err)
			}
		}

		if status == skill.StatusActive {
			if _, err := q.ExecContext(ctx, demoteActiveQuery, refID); err != nil {
				return fmt.Errorf("failed to demote active version: %w", err)
			}
		}

		_, err = q.ExecContext(ctx, upsertVersionQuery, uuid.New().String(), refID, sk.Version, string(status), sk.Content)
		if err != nil {
			return fmt.Errorf("failed to save skill version: %w", err)
		}
		return nil
	})
}

// ActivateSkillVersion makes a version the active one of its skill
func (s *SQLStore) ActivateSkillVersion(ctx context.Context, skillID string, version int) error {
	return s.inTx(ctx, func(ctx context.Context) error {
		q := s.getQuerier(ctx)

		if _, err := q.ExecContext(ctx, demoteOtherActiveQuery, skillID, version); err != nil {
			return fmt.Errorf("failed to demote active version: %w", err)
		}

		var refID string
		err := q.QueryRowContext(ctx, activateVersionQuery, skillID, version).Scan(&refID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s v%d", ErrVersionNotFound, skillID, version)
		}
		if err != nil {
			return fmt.Errorf("failed to activate version: %w", err)
		}
		return nil
	})
}

// LogRuntimeConflict appends a runtime conflict record
func (s *SQLStore) LogRuntimeConflict(ctx context.Context, c *skill.RuntimeConflict) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	issueCodes := c.IssueCodes
	if issueCodes == nil {
		issueCodes = []string{}
	}

	_, err := s.getQuerier(ctx).ExecContext(ctx, insertConflictQuery,
		c.ID,
		string(c.StageScope),
		sql.NullString{String: c.SkillID, Valid: c.SkillID != ""},
		sql.NullInt64{Int64: int64(c.Version), Valid: c.Version != 0},
		c.Rule,
		c.Message,
		pq.Array(issueCodes),
		defaultString(c.Severity, skill.SeverityWarning),
		defaultString(c.Source, skill.ConflictSourceResolver),
		sql.NullString{String: c.RequestID, Valid: c.RequestID != ""},
		c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to log runtime conflict: %w", err)
	}
	return nil
}

// ListRuntimeConflicts returns the newest conflicts, optionally for one stage
func (s *SQLStore) ListRuntimeConflicts(ctx context.Context, stage paper.StageID, limit int) ([]*skill.RuntimeConflict, error) {
	if limit <= 0 {
		limit = DefaultConflictLimit
	}

	rows, err := s.getQuerier(ctx).QueryContext(ctx, listConflictsQuery, string(stage), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runtime conflicts: %w", err)
	}
	defer rows.Close()

	var conflicts []*skill.RuntimeConflict
	for rows.Next() {
		var c skill.RuntimeConflict
		var stageScope string
		var skillID, requestID sql.NullString
		var version sql.NullInt64

		err := rows.Scan(
			&c.ID,
			&stageScope,
			&skillID,
			&version,
			&c.Rule,
			&c.Message,
			pq.Array(&c.IssueCodes),
			&c.Severity,
			&c.Source,
			&requestID,
			&c.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan runtime conflict: %w", err)
		}

		c.StageScope = paper.StageID(stageScope)
		c.SkillID = skillID.String
		c.RequestID = requestID.String
		c.Version = int(version.Int64)
		conflicts = append(conflicts, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runtime conflicts: %w", err)
	}
	return conflicts, nil
}

// DeleteRuntimeConflictsBefore behaves like PostgresStore.DeleteRuntimeConflictsBefore.
func (s *SQLStore) DeleteRuntimeConflictsBefore(ctx context.Context, horizon time.Time) (int, error) {
	res, err := s.getQuerier(ctx).ExecContext(ctx, deleteConflictsQuery, horizon)
	if err != nil {
		return 0, fmt.Errorf("failed to delete runtime conflicts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to delete runtime conflicts: %w", err)
	}
	return int(n), nil
}

// GetPaperSession retrieves a paper session by ID
func (s *SQLStore) GetPaperSession(ctx context.Context, sessionID string) (*paper.Session, error) {
	query := `
		SELECT id, current_stage, stage_message_boundaries, paper_memory_digest
		FROM contextgov_paper_sessions
		WHERE id = $1
	`

	var session paper.Session
	var currentStage string
	var boundariesJSON, digestJSON []byte

	err := s.getQuerier(ctx).QueryRowContext(ctx, query, sessionID).Scan(
		&session.ID,
		&currentStage,
		&boundariesJSON,
		&digestJSON,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get paper session: %w", err)
	}

	session.CurrentStage = paper.StageID(currentStage)
	if err := decodeSessionJSON(&session, boundariesJSON, digestJSON); err != nil {
		return nil, err
	}
	return &session, nil
}

// SavePaperSession upserts a paper session
func (s *SQLStore) SavePaperSession(ctx context.Context, session *paper.Session) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}

	boundariesJSON, digestJSON, err := encodeSessionJSON(session)
	if err != nil {
		return err
	}

	// lib/pq sends []byte as bytea; JSONB wants text.
	_, err = s.getQuerier(ctx).ExecContext(ctx, upsertSessionQuery,
		session.ID, string(session.CurrentStage), string(boundariesJSON), string(digestJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save paper session: %w", err)
	}
	return nil
}

var _ Store = (*SQLStore)(nil)
