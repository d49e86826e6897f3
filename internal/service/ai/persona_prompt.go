package ai

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/dealer-chat/backend/internal/model/persona"
)

// PromptBuilder renders a persona into the system instruction sent ahead of
// the conversation history.
type PromptBuilder struct{}

// NewPromptBuilder creates a prompt builder.
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildSystemPrompt creates the system prompt for a dealership persona.
func (pb *PromptBuilder) BuildSystemPrompt(p persona.Persona) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(p.Intro))

	writeSection(&b, "Guidelines:", bulletList(p.Guidelines))
	writeSection(&b, "For service bookings:", bulletList(p.BookingRules))
	writeSection(&b, "You can assist with:", bulletList(p.Capabilities))
	writeSection(&b, "If you cannot help with a request or if the question is not automotive-related:", numberedList(p.FallbackSteps))

	return b.String()
}

func writeSection(b *strings.Builder, title, body string) {
	if body == "" {
		return
	}
	b.WriteString("\n\n")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(body)
}

func bulletList(items []string) string {
	if len(items) == 0 {
		return ""
	}
	return "- " + strings.Join(items, "\n- ")
}

func numberedList(items []string) string {
	lines := make([]string, 0, len(items))
	for i, item := range items {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, item))
	}
	return strings.Join(lines, "\n")
}
