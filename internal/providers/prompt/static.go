package prompt

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// StaticCompleter is a deterministic offline completer used when no LLM
// credentials are configured. The output is obviously synthetic but keeps
// the response shape realistic for local development.
type StaticCompleter struct {
	titler cases.Caser
}

// NewStaticCompleter constructs a StaticCompleter.
func NewStaticCompleter() *StaticCompleter {
	return &StaticCompleter{titler: cases.Title(language.English)}
}

// Complete implements Completer.
func (s *StaticCompleter) Complete(_ context.Context, req CompletionRequest) (string, error) {
	topic := strings.TrimSpace(req.Prompt)
	if topic == "" {
		topic = "your topic"
	}
	if len(topic) > 120 {
		topic = topic[:120]
	}
	heading := s.titler.String(firstLine(topic))
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "# %s\n\n", heading)
	fmt.Fprintf(sb, "This is locally generated placeholder content. Configure an LLM API key to receive real completions.\n\n")
	fmt.Fprintf(sb, "Requested prompt: %s\n", topic)
	return sb.String(), nil
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return s
}

var _ Completer = (*StaticCompleter)(nil)
