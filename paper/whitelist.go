package paper

import "errors"

// ErrUnknownStage is returned when a stage identifier is not recognised.
var ErrUnknownStage = errors.New("unknown stage")

// commonStageKeys are accepted by every stage.
var commonStageKeys = []string{
	"ringkasan", "ringkasanDetail", "webSearchReferences", "artifactId", "validatedAt", "revisionCount",
}

var stageSpecificKeys = map[StageID][]string{
	StageGagasan:           {"ideKasar", "analisis", "angle", "novelty", "referensiAwal"},
	StageTopik:             {"definitif", "angleSpesifik", "argumentasiKebaruan", "researchGap", "referensiPendukung"},
	StageOutline:           {"sections", "totalWordCount", "completenessScore"},
	StageAbstrak:           {"ringkasanPenelitian", "keywords", "wordCount"},
	StagePendahuluan:       {"latarBelakang", "rumusanMasalah", "researchGapAnalysis", "tujuanPenelitian", "signifikansiPenelitian", "hipotesis", "sitasiAPA"},
	StageTinjauanLiteratur: {"kerangkaTeoretis", "reviewLiteratur", "gapAnalysis", "justifikasiPenelitian", "referensi"},
	StageMetodologi:        {"desainPenelitian", "metodePerolehanData", "teknikAnalisis", "etikaPenelitian", "alatInstrumen", "pendekatanPenelitian"},
	StageHasil:             {"temuanUtama", "metodePenyajian", "dataPoints"},
	StageDiskusi:           {"interpretasiTemuan", "perbandinganLiteratur", "implikasiTeoretis", "implikasiPraktis", "keterbatasanPenelitian", "saranPenelitianMendatang", "sitasiTambahan"},
	StageKesimpulan:        {"ringkasanHasil", "jawabanRumusanMasalah", "implikasiPraktis", "saranPraktisi", "saranPeneliti", "saranKebijakan"},
	StageDaftarPustaka:     {"entries", "totalCount", "incompleteCount", "duplicatesMerged"},
	StageLampiran:          {"items", "tidakAdaLampiran", "alasanTidakAda"},
	StageJudul:             {"opsiJudul", "judulTerpilih", "alasanPemilihan"},
}

// StageKeyWhitelist returns the result-field keys a stage may persist. It
// returns nil for completed and unknown stages.
func StageKeyWhitelist(s StageID) []string {
	specific, ok := stageSpecificKeys[s]
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(commonStageKeys)+len(specific))
	keys = append(keys, commonStageKeys[:2]...)
	keys = append(keys, specific...)
	keys = append(keys, commonStageKeys[2:]...)
	return keys
}

// IsWhitelistedKey reports whether key is in the whitelist of stage s.
func IsWhitelistedKey(s StageID, key string) bool {
	for _, k := range StageKeyWhitelist(s) {
		if k == key {
			return true
		}
	}
	return false
}

// UnknownStageDataKeys returns the keys not allowed for stage s, in input
// order. Stages without a whitelist accept everything.
func UnknownStageDataKeys(s StageID, keys []string) []string {
	if StageKeyWhitelist(s) == nil {
		return nil
	}
	var unknown []string
	for _, k := range keys {
		if !IsWhitelistedKey(s, k) {
			unknown = append(unknown, k)
		}
	}
	return unknown
}
