package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/makalah-ai/contextgov/paper"
	"github.com/makalah-ai/contextgov/skill"
)

// skillFile is a stage skill read from disk. Files are Markdown with an
// optional YAML front matter block:
//
//	---
//	stageScope: abstrak
//	name: Abstrak
//	description: Stage instruction for abstrak.
//	version: 3
//	status: draft
//	---
//	## Objective
//	...
//
// Without front matter the stage is taken from the file name.
type skillFile struct {
	Path   string
	Skill  skill.StageSkill
	Status skill.VersionStatus
}

type frontMatter struct {
	skill.StageSkill `yaml:",inline"`
	Status           skill.VersionStatus `yaml:"status"`
}

var frontMatterDelim = []byte("---")

// splitFrontMatter returns the YAML block and the body. ok is false when the
// document has no front matter.
func splitFrontMatter(data []byte) (meta, body []byte, ok bool) {
	data = bytes.TrimPrefix(data, []byte("\ufeff"))
	if !bytes.HasPrefix(data, frontMatterDelim) {
		return nil, data, false
	}

	lines := bytes.SplitAfter(data, []byte("\n"))
	if len(lines) < 2 || !bytes.Equal(bytes.TrimSpace(lines[0]), frontMatterDelim) {
		return nil, data, false
	}

	offset := len(lines[0])
	for _, line := range lines[1:] {
		if bytes.Equal(bytes.TrimSpace(line), frontMatterDelim) {
			return data[len(lines[0]):offset], data[offset+len(line):], true
		}
		offset += len(line)
	}
	return nil, data, false
}

func parseSkillFile(path string, data []byte) (*skillFile, error) {
	var fm frontMatter
	meta, body, ok := splitFrontMatter(data)
	if ok {
		if err := yaml.Unmarshal(meta, &fm); err != nil {
			return nil, fmt.Errorf("%s: parse front matter: %w", path, err)
		}
	}

	stageName := string(fm.StageScope)
	if stageName == "" {
		stageName = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	stage, err := paper.ParseStage(stageName)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	sk := fm.StageSkill
	sk.StageScope = stage
	sk.Content = string(body)
	if sk.SkillID == "" {
		sk.SkillID = paper.SkillID(stage)
	}
	if sk.Name == "" {
		sk.Name = sk.SkillID
	}

	status := fm.Status
	if status == "" {
		status = skill.StatusActive
	}
	switch status {
	case skill.StatusDraft, skill.StatusPublished, skill.StatusActive:
	default:
		return nil, fmt.Errorf("%s: unknown status %q", path, status)
	}

	return &skillFile{Path: path, Skill: sk, Status: status}, nil
}

func loadSkillFile(path string) (*skillFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseSkillFile(path, data)
}

// loadSkillDir reads every .md file in dir.
func loadSkillDir(dir string) ([]*skillFile, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	files := make([]*skillFile, 0, len(paths))
	for _, p := range paths {
		f, err := loadSkillFile(p)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// dirStore serves skill files as a read-only skill store, so skill folders
// can be audited before they are imported.
type dirStore struct {
	byStage map[paper.StageID][]*skillFile
}

func newDirStore(files []*skillFile) *dirStore {
	s := &dirStore{byStage: make(map[paper.StageID][]*skillFile)}
	for _, f := range files {
		s.byStage[f.Skill.StageScope] = append(s.byStage[f.Skill.StageScope], f)
	}
	return s
}

func (s *dirStore) newest(stage paper.StageID, status skill.VersionStatus) *skillFile {
	var best *skillFile
	for _, f := range s.byStage[stage] {
		if f.Status == status && (best == nil || f.Skill.Version > best.Skill.Version) {
			best = f
		}
	}
	return best
}

func (s *dirStore) GetActiveSkill(ctx context.Context, stage paper.StageID) (*skill.StageSkill, error) {
	f := s.newest(stage, skill.StatusActive)
	if f == nil {
		return nil, skill.ErrSkillNotFound
	}
	sk := f.Skill
	return &sk, nil
}

func (s *dirStore) GetAuditCandidate(ctx context.Context, stage paper.StageID) (*skill.StageSkill, skill.VersionStatus, error) {
	for _, status := range []skill.VersionStatus{skill.StatusDraft, skill.StatusPublished, skill.StatusActive} {
		if f := s.newest(stage, status); f != nil {
			sk := f.Skill
			return &sk, status, nil
		}
	}
	return nil, "", skill.ErrSkillNotFound
}

func (s *dirStore) LogRuntimeConflict(ctx context.Context, c *skill.RuntimeConflict) error {
	return nil
}
