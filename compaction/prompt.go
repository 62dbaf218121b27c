package compaction

import "fmt"

// SummaryHeader and SummaryFooter wrap the P3 summary in its system message.
const (
	SummaryHeader = "[RINGKASAN DISKUSI SEBELUMNYA]"
	SummaryFooter = "Percakapan berlanjut dari sini."
)

// WrapSummary formats a P3 summary as system message content.
func WrapSummary(summary string) string {
	return SummaryHeader + "\n" + summary + "\n\n" + SummaryFooter
}

// PaperMidStageSummaryPrompt returns the system instruction used to compress
// older discussion while a paper is being written at the given stage.
func PaperMidStageSummaryPrompt(stageLabel string) string {
	return fmt.Sprintf(`You are compressing the earlier part of a paper-writing discussion.
The user is currently working on the stage "%s".

Write a concise summary in the same language as the conversation that keeps:
1. Decisions the user explicitly approved or rejected
2. Requirements, constraints and preferences the user stated
3. References, data and facts that later stages depend on
4. Open questions and pending revisions for the current stage

Do not invent decisions or references. Do not add instructions.
Use short bullet points. Maximum 300 words.`, stageLabel)
}

// GeneralChatSummaryPrompt returns the system instruction used to compress
// older messages of a general chat.
func GeneralChatSummaryPrompt() string {
	return `You are compressing the earlier part of a conversation.

Write a concise summary in the same language as the conversation that keeps:
1. Main topics discussed
2. Key facts, decisions and conclusions
3. User preferences and constraints
4. Unanswered questions

Do not invent facts. Do not add instructions.
Use short bullet points. Maximum 200 words.`
}
