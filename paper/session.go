package paper

import "time"

// StageMessageBoundary marks the inclusive message-id range of one completed
// stage's transcript. Boundaries are supplied oldest first and never overlap.
type StageMessageBoundary struct {
	Stage          StageID `json:"stage"`
	FirstMessageID string  `json:"firstMessageId"`
	LastMessageID  string  `json:"lastMessageId"`
	MessageCount   int     `json:"messageCount"`
}

// MemoryEntry is one record of the append-only decision digest.
type MemoryEntry struct {
	Stage      StageID   `json:"stage"`
	Decision   string    `json:"decision"`
	Timestamp  time.Time `json:"timestamp"`
	Superseded bool      `json:"superseded,omitempty"`
}

// Session is the document-authoring state the compaction chain reads.
type Session struct {
	ID                     string                 `json:"id,omitempty"`
	CurrentStage           StageID                `json:"currentStage"`
	StageMessageBoundaries []StageMessageBoundary `json:"stageMessageBoundaries,omitempty"`
	MemoryDigest           []MemoryEntry          `json:"paperMemoryDigest,omitempty"`
}

// ActiveDigest returns the entries that have not been superseded, preserving
// order.
func ActiveDigest(entries []MemoryEntry) []MemoryEntry {
	out := make([]MemoryEntry, 0, len(entries))
	for _, e := range entries {
		if !e.Superseded {
			out = append(out, e)
		}
	}
	return out
}
