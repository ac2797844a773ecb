package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/fortify-report/bootstrap/internal/model"
)

// MarkdownWriter outputs results as a Markdown report that can be attached
// to a support ticket.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the result in Markdown format.
func (w *MarkdownWriter) Write(result *model.PipelineResult) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, result)
	w.writeSteps(md, result)
	w.writeRemediation(md, result)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the run information and the overall alert.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, result *model.PipelineResult) {
	md.H1("fortify-bootstrap Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run ID", "`" + result.RunID + "`"},
			{"Command", string(result.Mode)},
			{"Shell", result.Shell},
			{"Started", result.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", result.Duration.Round(time.Millisecond).String()},
			{"Exit Code", strconv.Itoa(result.ExitCode())},
		},
	})
	md.PlainText("")

	switch {
	case result.FailedStep != nil:
		md.Cautionf("Bootstrap halted at step %d (%s): %s",
			result.FailedStep.Index, result.FailedStep.Name, result.FailedStep.Message)
	case result.Cancelled:
		md.Importantf("Bootstrap was interrupted after %d step(s).", len(result.Steps))
	case len(result.Warnings) > 0:
		md.Warningf("Bootstrap completed with %d warning(s).", len(result.Warnings))
	default:
		md.Tip("All checks passed.")
	}
	md.PlainText("")
}

// writeSteps writes the step table and the status distribution.
func (w *MarkdownWriter) writeSteps(md *markdown.Markdown, result *model.PipelineResult) {
	md.H2("Steps")
	md.PlainText("")

	rows := make([][]string, len(result.Steps))
	for i, s := range result.Steps {
		rows[i] = []string{
			strconv.Itoa(s.Index),
			s.Name,
			s.Severity.String(),
			statusBadge(s.Status),
			escapeCell(s.Message),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "Step", "Severity", "Status", "Message"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(result.Steps) > 0 {
		w.writePieChart(md, result)
	}
}

// writePieChart writes a mermaid pie chart of step outcomes.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, result *model.PipelineResult) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Step Outcomes"),
		piechart.WithShowData(true),
	)

	counts := make(map[model.Status]int)
	for _, s := range result.Steps {
		counts[s.Status]++
	}
	for _, status := range []model.Status{model.StatusPass, model.StatusWarning, model.StatusFatal, model.StatusSkipped} {
		if counts[status] > 0 {
			chart.LabelAndIntValue(string(status), uint64(counts[status])) //nolint:gosec // counts are small and non-negative
		}
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeRemediation writes the suggestions of every step that did not pass.
func (w *MarkdownWriter) writeRemediation(md *markdown.Markdown, result *model.PipelineResult) {
	md.H2("Remediation")
	md.PlainText("")

	written := false
	for _, s := range result.Steps {
		if s.Status != model.StatusFatal && s.Status != model.StatusWarning {
			continue
		}
		written = true

		md.PlainTextf("### %s %s", statusBadge(s.Status), s.Name)
		md.PlainText("")
		if len(s.Remediation) > 0 {
			md.BulletList(s.Remediation...)
			md.PlainText("")
		}
		if s.Detail != "" {
			md.Details("Diagnostic output", "\n```\n"+s.Detail+"\n```\n")
			md.PlainText("")
		}
	}

	if !written {
		md.PlainText("Nothing to fix.")
		md.PlainText("")
	}
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by fortify-bootstrap at %s*", time.Now().Format(time.RFC3339))
}

func statusBadge(status model.Status) string {
	switch status {
	case model.StatusPass:
		return "✅ pass"
	case model.StatusWarning:
		return "⚠️ warning"
	case model.StatusFatal:
		return "❌ fatal"
	case model.StatusSkipped:
		return "⏭️ skipped"
	default:
		return fmt.Sprintf("%q", string(status))
	}
}

// escapeCell keeps a message on one table row.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}
