package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf16"
)

// Role represents the message role
type Role string

const (
	// RoleUser represents a user message
	RoleUser Role = "user"

	// RoleAssistant represents an assistant message
	RoleAssistant Role = "assistant"

	// RoleSystem represents a system message
	RoleSystem Role = "system"
)

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Message represents one conversation message handed to the governor.
// Messages are treated as immutable values; every reduction returns a new slice.
type Message struct {
	ID      string  `json:"id,omitempty"`
	Role    Role    `json:"role"`
	Content Content `json:"content"`
}

// NewText builds a plain-text message.
func NewText(role Role, text string) Message {
	return Message{Role: role, Content: PlainText(text)}
}

// NewTextWithID builds a plain-text message carrying a persisted message id.
func NewTextWithID(id string, role Role, text string) Message {
	return Message{ID: id, Role: role, Content: PlainText(text)}
}

// IsSystem reports whether the message has the system role.
func (m Message) IsSystem() bool {
	return m.Role == RoleSystem
}

// MessageIDExtractor returns the persisted id of a message, or "" when the
// message has none (tool-call messages, synthetic messages).
type MessageIDExtractor func(Message) string

// MessageID is the default extractor: it returns the ID field.
func MessageID(m Message) string {
	return m.ID
}

// ContentType represents the type of content part
type ContentType string

const (
	// ContentTypeText represents text content
	ContentTypeText ContentType = "text"

	// ContentTypeToolCall represents a tool invocation part
	ContentTypeToolCall ContentType = "tool-call"

	// ContentTypeToolResult represents a tool result part
	ContentTypeToolResult ContentType = "tool-result"

	// ContentTypeFile represents an attached file part
	ContentTypeFile ContentType = "file"
)

// ContentPart represents one typed part of a multi-part message
type ContentPart struct {
	Type ContentType `json:"type"`
	Text string      `json:"text,omitempty"`

	// Tool fields
	ToolName   string `json:"toolName,omitempty"`
	ToolCallID string `json:"toolCallId,omitempty"`
}

type contentKind uint8

const (
	contentPlain contentKind = iota
	contentParts
)

// Content is either plain text or a list of typed parts. The zero value is
// empty plain text.
type Content struct {
	kind  contentKind
	text  string
	parts []ContentPart
}

// PlainText returns string content.
func PlainText(s string) Content {
	return Content{kind: contentPlain, text: s}
}

// Parts returns multi-part content.
func Parts(parts ...ContentPart) Content {
	cp := make([]ContentPart, len(parts))
	copy(cp, parts)
	return Content{kind: contentParts, parts: cp}
}

// IsPlain reports whether the content is a plain string.
func (c Content) IsPlain() bool {
	return c.kind == contentPlain
}

// String returns the plain text, or "" for multi-part content.
func (c Content) String() string {
	if c.kind != contentPlain {
		return ""
	}
	return c.text
}

// PartList returns a copy of the parts of multi-part content.
func (c Content) PartList() []ContentPart {
	if c.kind != contentParts {
		return nil
	}
	cp := make([]ContentPart, len(c.parts))
	copy(cp, c.parts)
	return cp
}

// Text extracts readable text: the plain string, or the text parts joined
// with newlines.
func (c Content) Text() string {
	if c.kind == contentPlain {
		return c.text
	}
	var texts []string
	for _, p := range c.parts {
		if p.Type == ContentTypeText && p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// Length returns the UTF-16 code unit length of plain content. Multi-part
// content counts as 0, matching how the estimator treats non-string content.
func (c Content) Length() int {
	if c.kind != contentPlain {
		return 0
	}
	return UTF16Len(c.text)
}

// UTF16Len returns the number of UTF-16 code units needed to encode s.
func UTF16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// MarshalJSON encodes plain content as a JSON string and parts as an array.
func (c Content) MarshalJSON() ([]byte, error) {
	if c.kind == contentParts {
		if c.parts == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(c.parts)
	}
	return json.Marshal(c.text)
}

// UnmarshalJSON accepts either a JSON string or an array of parts.
func (c *Content) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*c = PlainText("")
		return nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = PlainText(s)
		return nil
	case '[':
		var parts []ContentPart
		if err := json.Unmarshal(data, &parts); err != nil {
			return err
		}
		*c = Content{kind: contentParts, parts: parts}
		return nil
	default:
		return fmt.Errorf("content must be a string or an array of parts, got %s", trimmed[:1])
	}
}
