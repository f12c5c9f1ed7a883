// Package report renders pipeline results for the terminal.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"blockci/internal/core"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f97316"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#22c55e"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#eab308"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	outputStyle  = lipgloss.NewStyle().PaddingLeft(6).Foreground(lipgloss.Color("#5a5a70"))
)

// Options controls how much detail Render prints.
type Options struct {
	Verbose bool // print captured stdout/stderr of every step
}

// Render writes a human-readable summary of res to w.
// Output of failed steps is always printed.
func Render(w io.Writer, res *core.RunResult, opts Options) error {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Pipeline: "+res.Pipeline) + "\n")

	for _, stage := range res.Stages {
		switch {
		case stage.Skipped:
			b.WriteString(dimStyle.Render("⏭  "+stage.Name+" (skipped)") + "\n")
			continue
		case stage.Success:
			b.WriteString(successStyle.Render("✔ "+stage.Name) + " " + duration(stage.Duration) + "\n")
		default:
			b.WriteString(errorStyle.Render("✘ "+stage.Name) + " " + duration(stage.Duration) + "\n")
		}

		for _, st := range stage.Steps {
			b.WriteString("   " + stepLine(st) + "\n")
			if opts.Verbose || !st.Success {
				writeOutput(&b, st)
			}
		}
	}

	b.WriteString("\n")
	if res.Success {
		b.WriteString(successStyle.Render("✅ Pipeline completed successfully") + " " + duration(res.Duration) + "\n")
	} else if failed, ok := res.FailedStage(); ok {
		b.WriteString(errorStyle.Render("❌ Pipeline failed at stage: "+failed.Name) + " " + duration(res.Duration) + "\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func stepLine(st core.StepResult) string {
	switch {
	case st.Success:
		return successStyle.Render("✔ "+st.Name) + " " + duration(st.Duration)
	case st.ContinueOnError:
		return warningStyle.Render("⚠ "+st.Name+" (continued: "+st.Error+")") + " " + duration(st.Duration)
	default:
		return errorStyle.Render("✘ "+st.Name+" ("+st.Error+")") + " " + duration(st.Duration)
	}
}

func writeOutput(b *strings.Builder, st core.StepResult) {
	if out := strings.TrimRight(st.Stdout, "\n"); out != "" {
		b.WriteString(outputStyle.Render(out) + "\n")
	}
	if errOut := strings.TrimRight(st.Stderr, "\n"); errOut != "" {
		b.WriteString(outputStyle.Render(errOut) + "\n")
	}
}

func duration(d time.Duration) string {
	return dimStyle.Render(fmt.Sprintf("(%s)", d.Round(time.Millisecond)))
}
