package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/makalah-ai/contextgov/paper"
	"github.com/makalah-ai/contextgov/skill"
)

// txContextKey is the context key for storing pgx.Tx
type txContextKey struct{}

// WithTx returns a new context with the given transaction
func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

// TxFromContext retrieves the transaction from context, or nil if not present
func TxFromContext(ctx context.Context) pgx.Tx {
	if tx, ok := ctx.Value(txContextKey{}).(pgx.Tx); ok {
		return tx
	}
	return nil
}

// querier is a common interface for pgxpool.Pool and pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using PostgreSQL with pgx
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate applies Schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.getQuerier(ctx).Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// getQuerier returns the transaction from context if present, otherwise the pool
func (s *PostgresStore) getQuerier(ctx context.Context) querier {
	if tx := TxFromContext(ctx); tx != nil {
		return tx
	}
	return s.pool
}

// inTx runs fn inside the context's transaction, or a new one.
func (s *PostgresStore) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if TxFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(WithTx(ctx, tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetActiveSkill returns the active skill of a stage
func (s *PostgresStore) GetActiveSkill(ctx context.Context, stage paper.StageID) (*skill.StageSkill, error) {
	query := `
		SELECT s.skill_id, s.stage_scope, s.name, s.description, v.version, v.content
		FROM contextgov_stage_skills s
		JOIN contextgov_stage_skill_versions v ON v.skill_ref_id = s.id
		WHERE s.stage_scope = $1 AND v.status = 'active'
	`

	var sk skill.StageSkill
	var stageScope string
	err := s.getQuerier(ctx).QueryRow(ctx, query, string(stage)).Scan(
		&sk.SkillID,
		&stageScope,
		&sk.Name,
		&sk.Description,
		&sk.Version,
		&sk.Content,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: no active skill for stage %s", skill.ErrSkillNotFound, stage)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active skill: %w", err)
	}

	sk.StageScope = paper.StageID(stageScope)
	return &sk, nil
}

// GetAuditCandidate returns the version of a stage's skill that would be
// checked before activation: newest draft, else newest published, else active
func (s *PostgresStore) GetAuditCandidate(ctx context.Context, stage paper.StageID) (*skill.StageSkill, skill.VersionStatus, error) {
	skillQuery := `
		SELECT id, skill_id, name, description
		FROM contextgov_stage_skills
		WHERE stage_scope = $1
	`

	q := s.getQuerier(ctx)
	sk := &skill.StageSkill{StageScope: stage}
	var refID string
	err := q.QueryRow(ctx, skillQuery, string(stage)).Scan(&refID, &sk.SkillID, &sk.Name, &sk.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", fmt.Errorf("%w: no skill for stage %s", skill.ErrSkillNotFound, stage)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to get skill: %w", err)
	}

	var status string
	err = q.QueryRow(ctx, candidateQuery, refID).Scan(&sk.Version, &status, &sk.Content)
	if errors.Is(err, pgx.ErrNoRows) {
		return sk, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to get candidate version: %w", err)
	}

	return sk, skill.VersionStatus(status), nil
}

// candidateQuery picks the audit candidate among a skill's versions.
const candidateQuery = `
	SELECT version, status, content
	FROM contextgov_stage_skill_versions
	WHERE skill_ref_id = $1 AND status IN ('draft', 'published', 'active')
	ORDER BY CASE status WHEN 'draft' THEN 0 WHEN 'published' THEN 1 ELSE 2 END, version DESC
	LIMIT 1
`

// GetSkillVersion returns one stored version of a skill with its status
func (s *PostgresStore) GetSkillVersion(ctx context.Context, skillID string, version int) (*skill.StageSkill, skill.VersionStatus, error) {
	var sk skill.StageSkill
	var stageScope, status string
	err := s.getQuerier(ctx).QueryRow(ctx, getVersionQuery, skillID, version).Scan(
		&sk.SkillID,
		&stageScope,
		&sk.Name,
		&sk.Description,
		&sk.Version,
		&sk.Content,
		&status,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", fmt.Errorf("%w: %s v%d", ErrVersionNotFound, skillID, version)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to get skill version: %w", err)
	}

	sk.StageScope = paper.StageID(stageScope)
	return &sk, skill.VersionStatus(status), nil
}

const getVersionQuery = `
	SELECT s.skill_id, s.stage_scope, s.name, s.description, v.version, v.content, v.status
	FROM contextgov_stage_skills s
	JOIN contextgov_stage_skill_versions v ON v.skill_ref_id = s.id
	WHERE s.skill_id = $1 AND v.version = $2
`

// SaveSkillVersion upserts the skill row and stores its content as a version.
// A zero Version is assigned the next number and written back. Saving an
// active version demotes the previous active one to published.
func (s *PostgresStore) SaveSkillVersion(ctx context.Context, sk *skill.StageSkill, status skill.VersionStatus) error {
	if !sk.StageScope.IsValid() {
		return fmt.Errorf("%w: %q", paper.ErrUnknownStage, sk.StageScope)
	}
	if sk.SkillID == "" {
		sk.SkillID = paper.SkillID(sk.StageScope)
	}

	return s.inTx(ctx, func(ctx context.Context) error {
		q := s.getQuerier(ctx)

		var refID string
		err := q.QueryRow(ctx, upsertSkillQuery,
			uuid.New().String(), sk.SkillID, string(sk.StageScope), sk.Name, sk.Description,
		).Scan(&refID)
		if err != nil {
			return fmt.Errorf("failed to upsert skill: %w", err)
		}

		if sk.Version <= 0 {
			err := q.QueryRow(ctx, nextVersionQuery, refID).Scan(&sk.Version)
			if err != nil {
				return fmt.Errorf("failed to assign version: %w", err)
			}
		}

		if status == skill.StatusActive {
			if _, err := q.Exec(ctx, demoteActiveQuery, refID); err != nil {
				return fmt.Errorf("failed to demote active version: %w", err)
			}
		}

		_, err = q.Exec(ctx, upsertVersionQuery, uuid.New().String(), refID, sk.Version, string(status), sk.Content)
		if err != nil {
			return fmt.Errorf("failed to save skill version: %w", err)
		}
		return nil
	})
}

const (
	upsertSkillQuery = `
		INSERT INTO contextgov_stage_skills (id, skill_id, stage_scope, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (skill_id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			updated_at = NOW()
		RETURNING id
	`

	nextVersionQuery = `
		SELECT COALESCE(MAX(version), 0) + 1
		FROM contextgov_stage_skill_versions
		WHERE skill_ref_id = $1
	`

	demoteActiveQuery = `
		UPDATE contextgov_stage_skill_versions
		SET status = 'published', updated_at = NOW()
		WHERE skill_ref_id = $1 AND status = 'active'
	`

	upsertVersionQuery = `
		INSERT INTO contextgov_stage_skill_versions (id, skill_ref_id, version, status, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (skill_ref_id, version) DO UPDATE SET
			status = EXCLUDED.status,
			content = EXCLUDED.content,
			updated_at = NOW()
	`

	activateVersionQuery = `
		UPDATE contextgov_stage_skill_versions v
		SET status = 'active', updated_at = NOW()
		FROM contextgov_stage_skills s
		WHERE v.skill_ref_id = s.id AND s.skill_id = $1 AND v.version = $2
		RETURNING v.skill_ref_id
	`

	demoteOtherActiveQuery = `
		UPDATE contextgov_stage_skill_versions v
		SET status = 'published', updated_at = NOW()
		FROM contextgov_stage_skills s
		WHERE v.skill_ref_id = s.id AND s.skill_id = $1 AND v.status = 'active' AND v.version <> $2
	`
)

// ActivateSkillVersion makes a version the active one of its skill
func (s *PostgresStore) ActivateSkillVersion(ctx context.Context, skillID string, version int) error {
	return s.inTx(ctx, func(ctx context.Context) error {
		q := s.getQuerier(ctx)

		if _, err := q.Exec(ctx, demoteOtherActiveQuery, skillID, version); err != nil {
			return fmt.Errorf("failed to demote active version: %w", err)
		}

		var refID string
		err := q.QueryRow(ctx, activateVersionQuery, skillID, version).Scan(&refID)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: %s v%d", ErrVersionNotFound, skillID, version)
		}
		if err != nil {
			return fmt.Errorf("failed to activate version: %w", err)
		}
		return nil
	})
}

// LogRuntimeConflict appends a runtime conflict record
func (s *PostgresStore) LogRuntimeConflict(ctx context.Context, c *skill.RuntimeConflict) error {
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

	_, err := s.getQuerier(ctx).Exec(ctx, insertConflictQuery,
		c.ID,
		string(c.StageScope),
		nullString(c.SkillID),
		nullInt(c.Version),
		c.Rule,
		c.Message,
		issueCodes,
		defaultString(c.Severity, skill.SeverityWarning),
		defaultString(c.Source, skill.ConflictSourceResolver),
		nullString(c.RequestID),
		c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to log runtime conflict: %w", err)
	}
	return nil
}

const insertConflictQuery = `
	INSERT INTO contextgov_runtime_conflicts
		(id, stage_scope, skill_id, version, rule, message, issue_codes, severity, source, request_id, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`

// ListRuntimeConflicts returns the newest conflicts, optionally for one stage
func (s *PostgresStore) ListRuntimeConflicts(ctx context.Context, stage paper.StageID, limit int) ([]*skill.RuntimeConflict, error) {
	if limit <= 0 {
		limit = DefaultConflictLimit
	}

	rows, err := s.getQuerier(ctx).Query(ctx, listConflictsQuery, string(stage), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runtime conflicts: %w", err)
	}
	defer rows.Close()

	var conflicts []*skill.RuntimeConflict
	for rows.Next() {
		var c skill.RuntimeConflict
		var stageScope string
		var skillID, requestID *string
		var version *int

		err := rows.Scan(
			&c.ID,
			&stageScope,
			&skillID,
			&version,
			&c.Rule,
			&c.Message,
			&c.IssueCodes,
			&c.Severity,
			&c.Source,
			&requestID,
			&c.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan runtime conflict: %w", err)
		}

		c.StageScope = paper.StageID(stageScope)
		c.SkillID = derefString(skillID)
		c.RequestID = derefString(requestID)
		if version != nil {
			c.Version = *version
		}
		conflicts = append(conflicts, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runtime conflicts: %w", err)
	}

	return conflicts, nil
}

const listConflictsQuery = `
	SELECT id, stage_scope, skill_id, version, rule, message, issue_codes,
	       severity, source, request_id, created_at
	FROM contextgov_runtime_conflicts
	WHERE $1 = '' OR stage_scope = $1
	ORDER BY created_at DESC
	LIMIT $2
`

// DeleteRuntimeConflictsBefore removes conflicts created before horizon and
// returns how many were removed
func (s *PostgresStore) DeleteRuntimeConflictsBefore(ctx context.Context, horizon time.Time) (int, error) {
	tag, err := s.getQuerier(ctx).Exec(ctx, deleteConflictsQuery, horizon)
	if err != nil {
		return 0, fmt.Errorf("failed to delete runtime conflicts: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

const deleteConflictsQuery = `DELETE FROM contextgov_runtime_conflicts WHERE created_at < $1`

// GetPaperSession retrieves a paper session by ID
func (s *PostgresStore) GetPaperSession(ctx context.Context, sessionID string) (*paper.Session, error) {
	query := `
		SELECT id, current_stage, stage_message_boundaries, paper_memory_digest
		FROM contextgov_paper_sessions
		WHERE id = $1
	`

	var session paper.Session
	var currentStage string
	var boundariesJSON, digestJSON []byte

	err := s.getQuerier(ctx).QueryRow(ctx, query, sessionID).Scan(
		&session.ID,
		&currentStage,
		&boundariesJSON,
		&digestJSON,
	)
	if errors.Is(err, pgx.ErrNoRows) {
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
func (s *PostgresStore) SavePaperSession(ctx context.Context, session *paper.Session) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}

	boundariesJSON, digestJSON, err := encodeSessionJSON(session)
	if err != nil {
		return err
	}

	_, err = s.getQuerier(ctx).Exec(ctx, upsertSessionQuery,
		session.ID, string(session.CurrentStage), boundariesJSON, digestJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save paper session: %w", err)
	}
	return nil
}

const upsertSessionQuery = `
	INSERT INTO contextgov_paper_sessions (id, current_stage, stage_message_boundaries, paper_memory_digest, updated_at)
	VALUES ($1, $2, $3, $4, NOW())
	ON CONFLICT (id) DO UPDATE SET
		current_stage = EXCLUDED.current_stage,
		stage_message_boundaries = EXCLUDED.stage_message_boundaries,
		paper_memory_digest = EXCLUDED.paper_memory_digest,
		updated_at = NOW()
`

func encodeSessionJSON(session *paper.Session) ([]byte, []byte, error) {
	boundaries := session.StageMessageBoundaries
	if boundaries == nil {
		boundaries = []paper.StageMessageBoundary{}
	}
	digest := session.MemoryDigest
	if digest == nil {
		digest = []paper.MemoryEntry{}
	}

	boundariesJSON, err := json.Marshal(boundaries)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal stage boundaries: %w", err)
	}
	digestJSON, err := json.Marshal(digest)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal memory digest: %w", err)
	}
	return boundariesJSON, digestJSON, nil
}

func decodeSessionJSON(session *paper.Session, boundariesJSON, digestJSON []byte) error {
	if len(boundariesJSON) > 0 {
		if err := json.Unmarshal(boundariesJSON, &session.StageMessageBoundaries); err != nil {
			return fmt.Errorf("failed to unmarshal stage boundaries: %w", err)
		}
	}
	if len(digestJSON) > 0 {
		if err := json.Unmarshal(digestJSON, &session.MemoryDigest); err != nil {
			return fmt.Errorf("failed to unmarshal memory digest: %w", err)
		}
	}
	return nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullInt(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

var _ Store = (*PostgresStore)(nil)
