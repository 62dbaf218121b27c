package skill

import (
	"context"
	"errors"
	"fmt"

	"github.com/makalah-ai/contextgov/paper"
)

// VersionStatus is the lifecycle state of a skill version.
type VersionStatus string

const (
	StatusDraft     VersionStatus = "draft"
	StatusPublished VersionStatus = "published"
	StatusActive    VersionStatus = "active"
)

// CandidateStore is implemented by stores that can return the version an
// operator is about to activate.
type CandidateStore interface {
	// GetAuditCandidate returns the newest draft of stage's skill, else the
	// newest published version, else the active one. A nil skill means the
	// stage has no skill; an empty status means the skill has no version.
	GetAuditCandidate(ctx context.Context, stage paper.StageID) (*StageSkill, VersionStatus, error)
}

// AuditSource describes what an audit entry was checked against.
type AuditSource string

const (
	AuditMissingSkill    AuditSource = "missing_skill"
	AuditMissingVersion  AuditSource = "missing_version"
	AuditLatestDraft     AuditSource = "latest_draft"
	AuditLatestPublished AuditSource = "latest_published"
	AuditActive          AuditSource = "active"
)

// AuditEntry is the dry-run outcome of one stage.
type AuditEntry struct {
	StageScope paper.StageID `json:"stageScope"`
	SkillID    string        `json:"skillId,omitempty"`
	Version    int           `json:"version,omitempty"`
	OK         bool          `json:"ok"`
	Issues     []string      `json:"issues"`
	Source     AuditSource   `json:"source"`
}

// AuditReport is the dry run over all 13 stages.
type AuditReport struct {
	Success      bool         `json:"success"`
	TotalStages  int          `json:"totalStages"`
	PassedStages int          `json:"passedStages"`
	FailedStages int          `json:"failedStages"`
	Results      []AuditEntry `json:"results"`
}

// Audit validates the skill every stage would use after activation. Stores
// implementing CandidateStore are asked for their pending version; others
// are checked against the active skill. Unlike Resolve, store errors are
// returned.
func (r *Resolver) Audit(ctx context.Context) (*AuditReport, error) {
	if r.store == nil {
		return nil, ErrNoStore
	}

	stages := paper.Stages()
	report := &AuditReport{TotalStages: len(stages)}

	for _, stage := range stages {
		candidate, status, err := r.auditCandidate(ctx, stage)
		if err != nil {
			return nil, fmt.Errorf("audit %s: %w", stage, err)
		}

		entry := AuditEntry{StageScope: stage}
		switch {
		case candidate == nil:
			entry.Source = AuditMissingSkill
			entry.Issues = []string{"Skill belum dibuat untuk stage ini."}
		case status == "":
			entry.SkillID = candidate.SkillID
			entry.Source = AuditMissingVersion
			entry.Issues = []string{"Belum ada versi untuk skill ini."}
		default:
			validation := r.validator.Validate(stage, *candidate)
			entry.SkillID = candidate.SkillID
			entry.Version = candidate.Version
			entry.OK = validation.OK
			entry.Source = auditSource(status)
			entry.Issues = make([]string, 0, len(validation.Issues))
			for _, issue := range validation.Issues {
				entry.Issues = append(entry.Issues, issue.Message)
			}
		}

		if entry.OK {
			report.PassedStages++
		} else {
			report.FailedStages++
		}
		report.Results = append(report.Results, entry)
	}

	report.Success = report.FailedStages == 0
	r.logger.Info("skill audit complete",
		"passed", report.PassedStages,
		"failed", report.FailedStages,
	)
	return report, nil
}

func (r *Resolver) auditCandidate(ctx context.Context, stage paper.StageID) (*StageSkill, VersionStatus, error) {
	if cs, ok := r.store.(CandidateStore); ok {
		candidate, status, err := cs.GetAuditCandidate(ctx, stage)
		if errors.Is(err, ErrSkillNotFound) {
			return nil, "", nil
		}
		return candidate, status, err
	}

	active, err := r.store.GetActiveSkill(ctx, stage)
	if errors.Is(err, ErrSkillNotFound) || (err == nil && active == nil) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	return active, StatusActive, nil
}

func auditSource(status VersionStatus) AuditSource {
	switch status {
	case StatusDraft:
		return AuditLatestDraft
	case StatusPublished:
		return AuditLatestPublished
	default:
		return AuditActive
	}
}
