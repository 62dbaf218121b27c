// Package paper holds the document-authoring domain shared by the compaction
// chain and the stage skill resolver: the fixed stage order, stage labels,
// search partitions, output-key whitelists, stage boundaries and the decision
// digest.
package paper

import (
	"fmt"
	"strings"
)

// StageID identifies one authoring stage.
type StageID string

const (
	StageGagasan           StageID = "gagasan"
	StageTopik             StageID = "topik"
	StageOutline           StageID = "outline"
	StageAbstrak           StageID = "abstrak"
	StagePendahuluan       StageID = "pendahuluan"
	StageTinjauanLiteratur StageID = "tinjauan_literatur"
	StageMetodologi        StageID = "metodologi"
	StageHasil             StageID = "hasil"
	StageDiskusi           StageID = "diskusi"
	StageKesimpulan        StageID = "kesimpulan"
	StageDaftarPustaka     StageID = "daftar_pustaka"
	StageLampiran          StageID = "lampiran"
	StageJudul             StageID = "judul"

	// StageCompleted is the terminal pseudo-stage reached after judul.
	StageCompleted StageID = "completed"
)

// stageOrder is the fixed total order of the 13 authoring stages.
var stageOrder = []StageID{
	StageGagasan,
	StageTopik,
	StageOutline,
	StageAbstrak,
	StagePendahuluan,
	StageTinjauanLiteratur,
	StageMetodologi,
	StageHasil,
	StageDiskusi,
	StageKesimpulan,
	StageDaftarPustaka,
	StageLampiran,
	StageJudul,
}

var stageLabels = map[StageID]string{
	StageGagasan:           "Gagasan Paper",
	StageTopik:             "Penentuan Topik",
	StageOutline:           "Menyusun Outline",
	StageAbstrak:           "Penyusunan Abstrak",
	StagePendahuluan:       "Pendahuluan",
	StageTinjauanLiteratur: "Tinjauan Literatur",
	StageMetodologi:        "Metodologi",
	StageHasil:             "Hasil Penelitian",
	StageDiskusi:           "Diskusi",
	StageKesimpulan:        "Kesimpulan",
	StageDaftarPustaka:     "Daftar Pustaka",
	StageLampiran:          "Lampiran",
	StageJudul:             "Pemilihan Judul",
	StageCompleted:         "Selesai",
}

// Stages returns the 13 authoring stages in order.
func Stages() []StageID {
	out := make([]StageID, len(stageOrder))
	copy(out, stageOrder)
	return out
}

// ParseStage converts s into a StageID, accepting the 13 stages and completed.
func ParseStage(s string) (StageID, error) {
	id := StageID(strings.TrimSpace(strings.ToLower(s)))
	if id == StageCompleted || id.IsValid() {
		return id, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStage, s)
}

// IsValid reports whether s is one of the 13 authoring stages. The completed
// pseudo-stage is not an authoring stage.
func (s StageID) IsValid() bool {
	return s.Index() >= 0
}

// Index returns the zero-based position of s in the stage order, or -1.
// StageCompleted sorts after every authoring stage but has no index.
func (s StageID) Index() int {
	for i, id := range stageOrder {
		if id == s {
			return i
		}
	}
	return -1
}

// Label returns the human-readable stage label. Unknown ids are returned as is.
func (s StageID) Label() string {
	if label, ok := stageLabels[s]; ok {
		return label
	}
	return string(s)
}

// Next returns the stage following s. judul is followed by completed;
// completed and unknown stages have no successor.
func (s StageID) Next() (StageID, bool) {
	i := s.Index()
	if i < 0 {
		return "", false
	}
	if i == len(stageOrder)-1 {
		return StageCompleted, true
	}
	return stageOrder[i+1], true
}

// Before reports whether s comes strictly before other in the stage order.
func (s StageID) Before(other StageID) bool {
	return rank(s) < rank(other)
}

// StagesBefore returns every stage strictly before s, oldest first. These are
// the valid rewind targets from s.
func StagesBefore(s StageID) []StageID {
	r := rank(s)
	if r <= 0 {
		return nil
	}
	if r > len(stageOrder) {
		r = len(stageOrder)
	}
	return Stages()[:r]
}

// rank orders completed after every authoring stage and unknown ids first.
func rank(s StageID) int {
	if s == StageCompleted {
		return len(stageOrder)
	}
	return s.Index()
}

// SearchPolicy is the web-search posture assigned to a stage.
type SearchPolicy string

const (
	SearchActive  SearchPolicy = "active"
	SearchPassive SearchPolicy = "passive"
)

var activeSearchStages = map[StageID]bool{
	StageGagasan:           true,
	StageTopik:             true,
	StagePendahuluan:       true,
	StageTinjauanLiteratur: true,
	StageMetodologi:        true,
	StageDiskusi:           true,
}

// ExpectedSearchPolicy returns the partition s belongs to.
func ExpectedSearchPolicy(s StageID) SearchPolicy {
	if activeSearchStages[s] {
		return SearchActive
	}
	return SearchPassive
}

// IsPostOutline reports whether s logically follows the outline stage and
// must therefore read the living outline checklist.
func IsPostOutline(s StageID) bool {
	return s.IsValid() && StageOutline.Before(s)
}

// SkillID returns the conventional skill identifier for a stage.
func SkillID(s StageID) string {
	return strings.ReplaceAll(string(s), "_", "-") + "-skill"
}
