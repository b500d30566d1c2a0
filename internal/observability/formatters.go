// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/auto-apply/internal/host"
	"github.com/jonathan/auto-apply/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintRecord outputs a human-readable summary of an application record.
func (p *Printer) PrintRecord(record *types.ApplicationRecord) {
	if record == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Company:  %s\n", record.Company))
	sb.WriteString(fmt.Sprintf("Job URL:  %s\n", record.JobURL))
	sb.WriteString(fmt.Sprintf("Status:   %s\n", record.Status))
	if record.Method != "" {
		sb.WriteString(fmt.Sprintf("Method:   %s\n", record.Method))
	}

	if record.Error != nil {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("Error:    %s\n", record.Error.Kind))
		sb.WriteString(fmt.Sprintf("          %s\n", record.Error.Message))
	}

	if record.Evidence != nil {
		ev := record.Evidence
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("Fields:     %d filled of %d extracted\n", ev.FieldsFilled, ev.FieldsExtracted))
		sb.WriteString(fmt.Sprintf("Confidence: %d\n", ev.Confidence))
		sb.WriteString(fmt.Sprintf("Attempts:   %d\n", ev.Attempts))
		if ev.Provenance != "" {
			sb.WriteString(fmt.Sprintf("Artifact:   %s\n", ev.Provenance))
		}
		if ev.FinalURL != "" {
			sb.WriteString(fmt.Sprintf("Final URL:  %s\n", ev.FinalURL))
		}
		if ev.Verification != nil {
			v := ev.Verification
			sb.WriteString(fmt.Sprintf("Email:      detected=%t resolved=%t attempts=%d\n",
				v.Detected, v.Resolved, v.Attempts))
		}
	}

	p.printBox("APPLICATION RECORD", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRecordList outputs a compact listing of records, newest first.
func (p *Printer) PrintRecordList(records []types.ApplicationRecord) {
	if len(records) == 0 {
		p.printBox("APPLICATIONS", "No records found")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total: %d\n\n", len(records)))

	count := min(len(records), maxItemsToShow)
	for i := 0; i < count; i++ {
		r := records[i]
		sb.WriteString(fmt.Sprintf("#%d  %s\n", i+1, r.Company))
		sb.WriteString(fmt.Sprintf("    Status: %s", r.Status))
		if r.Error != nil {
			sb.WriteString(fmt.Sprintf(" (%s)", r.Error.Kind))
		}
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("    %s\n", r.CreatedAt.Format("2006-01-02 15:04")))
		if i < count-1 {
			sb.WriteString("\n")
		}
	}

	if len(records) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more records", len(records)-maxItemsToShow))
	}

	p.printBox("APPLICATIONS", sb.String())
}

// PrintStats outputs a host activity snapshot.
func (p *Printer) PrintStats(stats host.Stats) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Started:          %d\n", stats.Started))
	sb.WriteString(fmt.Sprintf("Submitted:        %d\n", stats.Submitted))
	sb.WriteString(fmt.Sprintf("Manual required:  %d\n", stats.Manual))
	sb.WriteString(fmt.Sprintf("Failed:           %d\n", stats.Failed))
	sb.WriteString(fmt.Sprintf("Errors:           %d\n", stats.Errors))
	sb.WriteString(fmt.Sprintf("Active:           %d\n", stats.Active))
	sb.WriteString(fmt.Sprintf("Queued:           %d", stats.QueueDepth))

	p.printBox("HOST ACTIVITY", sb.String())
}
