package storage

import (
	_ "embed"
)

// Schema is the DDL for every table the stores use. It is idempotent.
//
//go:embed schema.sql
var Schema string

// Tables lists the tables created by Schema, children first.
var Tables = []string{
	"contextgov_runtime_conflicts",
	"contextgov_stage_skill_versions",
	"contextgov_stage_skills",
	"contextgov_paper_sessions",
}
