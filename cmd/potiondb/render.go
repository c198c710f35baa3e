package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"potiondb/internal/integrity"
	"potiondb/internal/model"
)

var (
	colorTitle  = lipgloss.Color("#c4a7e7")
	colorWarn   = lipgloss.Color("#f6c177")
	colorOK     = lipgloss.Color("#9ccfd8")
	colorSubtle = lipgloss.Color("#908caa")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorTitle)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorWarn)

	okStyle = lipgloss.NewStyle().
		Foreground(colorOK)

	itemStyle = lipgloss.NewStyle().
			PaddingLeft(2)

	mutedStyle = lipgloss.NewStyle().
			Foreground(colorSubtle)

	promptStyle = lipgloss.NewStyle().
			Bold(true)
)

// renderReport formats an inspection report for the terminal.
func renderReport(rep integrity.Report) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Dataset inspection") + "\n")
	if rep.Clean() {
		b.WriteString(okStyle.Render("No problems found.") + "\n")
		return b.String()
	}
	for _, s := range rep.Sections() {
		if len(s.Items) == 0 {
			continue
		}
		b.WriteString(sectionStyle.Render(fmt.Sprintf("%s (%d)", s.Title, len(s.Items))) + "\n")
		for _, it := range s.Items {
			b.WriteString(itemStyle.Render("- "+it) + "\n")
		}
	}
	return b.String()
}

// renderTree prints the origin tree indented by depth.
func renderTree(tree *model.Tree) string {
	var b strings.Builder
	tree.Walk(func(id model.NodeID, depth int) bool {
		label := tree.Label(id)
		if depth == 0 {
			label = titleStyle.Render(label)
		}
		fmt.Fprintf(&b, "%s%s\n", strings.Repeat("  ", depth), label)
		return true
	})
	return b.String()
}
