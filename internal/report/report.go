package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/concuject/concuject/internal/bugmodel"
)

// Summary renders a bug's BugLog as Markdown: one section per item, in
// the order the builder produced them.
func Summary(bugID int, log *bugmodel.BugLog) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Bug %d\n\n", bugID)
	for _, item := range log.Items {
		switch item.Type {
		case "next":
			fmt.Fprintf(&b, "- thread %d reaches `%s:%d`\n", item.Thread, item.File, item.Line)
		case "pattern":
			fmt.Fprintf(&b, "- pattern **%s** at:\n", item.Name)
			for _, loc := range item.Locations {
				fmt.Fprintf(&b, "  - thread %d: `%s:%d`\n", loc.Thread, loc.File, loc.Line)
			}
		case "assume":
			fmt.Fprintf(&b, "- assume resolved to **%s**\n", item.Outcome)
		}
	}
	return b.String()
}

// RenderHTML converts a Markdown summary (typically Summary's output) to
// HTML.
func RenderHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("report: rendering markdown: %w", err)
	}
	return buf.String(), nil
}
