// ABOUTME: Lipgloss styles and renderers for the build summary and build failures.
package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/2389-research/sitekit/site"
	"github.com/charmbracelet/lipgloss"
)

var (
	// Summary box
	BorderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170"))

	LabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Width(10)
	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	SuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	ErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// renderSummary formats a completed build report as a bordered box.
func renderSummary(report *site.Report, output string) string {
	rows := [][2]string{
		{"Output", output},
		{"Files", fmt.Sprintf("%d", report.Files)},
		{"Injected", fmt.Sprintf("%d", report.Injected)},
		{"Copied", fmt.Sprintf("%d", report.Copied)},
	}
	if report.Rendered > 0 {
		rows = append(rows, [2]string{"Markdown", fmt.Sprintf("%d", report.Rendered)})
	}
	rows = append(rows,
		[2]string{"Build", report.ID},
		[2]string{"Took", report.Duration.Round(time.Millisecond).String()},
	)

	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, TitleStyle.Render("sitekit build")+" "+SuccessStyle.Render("ok"))
	for _, row := range rows {
		lines = append(lines, LabelStyle.Render(row[0])+ValueStyle.Render(row[1]))
	}
	return BorderStyle.Render(strings.Join(lines, "\n"))
}

// renderFailure formats a build error for stderr.
func renderFailure(err error) string {
	return ErrorStyle.Render("build failed:") + " " + err.Error()
}
