package status

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"keysync/internal/interpolation"
)

// maxListed caps the keys printed per catalog unless verbose output was asked for.
const maxListed = 10

// Render writes rep to w. Colors are used only when w is a terminal.
func Render(w io.Writer, rep *Report, verbose bool) error {
	r := lipgloss.NewRenderer(w)
	var (
		header = r.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
		name   = r.NewStyle().Width(24)
		good   = r.NewStyle().Foreground(lipgloss.Color("42"))
		warn   = r.NewStyle().Foreground(lipgloss.Color("208"))
		bad    = r.NewStyle().Foreground(lipgloss.Color("196"))
		dim    = r.NewStyle().Foreground(lipgloss.Color("240")).PaddingLeft(4)
	)

	var b strings.Builder
	locale := ""
	for _, c := range rep.Catalogs {
		if c.Locale != locale {
			if locale != "" {
				b.WriteByte('\n')
			}
			locale = c.Locale
			title := locale
			if locale == rep.Primary {
				title += " (primary)"
			}
			b.WriteString(header.Render(title) + "\n")
		}

		ns := c.Namespace
		if ns == "" {
			ns = "-"
		}
		if c.Err != nil {
			b.WriteString("  " + name.Render(ns) + bad.Render("error: "+c.Err.Error()) + "\n")
			continue
		}

		style := good
		switch {
		case c.Translated < c.Total:
			style = warn
		case len(c.Mismatches) > 0:
			style = bad
		}
		counts := fmt.Sprintf("%d/%d  %5.1f%%", c.Translated, c.Total, c.Ratio()*100)
		b.WriteString("  " + name.Render(ns) + style.Render(counts) + "\n")

		if len(c.Missing) > 0 {
			b.WriteString(dim.Render("missing: "+list(c.Missing, verbose)) + "\n")
		}
		for i, m := range c.Mismatches {
			if i == maxListed && !verbose {
				b.WriteString(dim.Render(fmt.Sprintf("... %d more placeholder mismatches", len(c.Mismatches)-i)) + "\n")
				break
			}
			b.WriteString(dim.Render(m.Key+": "+interpolation.Describe(m.Missing, m.Extra)) + "\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func list(keys []string, verbose bool) string {
	if verbose || len(keys) <= maxListed {
		return strings.Join(keys, ", ")
	}
	return strings.Join(keys[:maxListed], ", ") + fmt.Sprintf(" and %d more", len(keys)-maxListed)
}
