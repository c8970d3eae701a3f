package storage

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExportMarkdown renders a run as a markdown document.
func ExportMarkdown(run *Run) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("# Run %s\n\n", run.ID))
	b.WriteString(fmt.Sprintf("- **Requester:** %s\n", run.RequesterID))
	b.WriteString(fmt.Sprintf("- **Outcome:** %s\n", run.Outcome))
	b.WriteString(fmt.Sprintf("- **Duration:** %s\n", run.Duration))
	b.WriteString(fmt.Sprintf("- **Created:** %s\n", run.CreatedAt.Format("2006-01-02 15:04:05")))
	b.WriteString("\n## Source\n\n```\n")
	b.WriteString(run.Source)
	b.WriteString("\n```\n")

	if len(run.Inputs) > 0 {
		b.WriteString("\n## Inputs\n\n")
		for i, in := range run.Inputs {
			b.WriteString(fmt.Sprintf("%d. `%s`\n", i+1, in))
		}
	}

	if run.Output != "" {
		b.WriteString("\n## Output\n\n```\n")
		b.WriteString(run.Output)
		b.WriteString("\n```\n")
	}

	return b.String()
}

// ExportJSON renders a run as formatted JSON.
func ExportJSON(run *Run) ([]byte, error) {
	return json.MarshalIndent(run, "", "  ")
}
