package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"

	"github.com/dshills/sharedparams/internal/definition"
	"github.com/dshills/sharedparams/internal/session"
)

// styles holds the lipgloss styles used for headings. The zero value
// renders plain text.
type styles struct {
	enabled bool

	Title lipgloss.Style
	Group lipgloss.Style
	Muted lipgloss.Style
	Error lipgloss.Style
	OK    lipgloss.Style
}

func newStyles(color bool) styles {
	if !color {
		return styles{}
	}
	return styles{
		enabled: true,

		Title: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED")),
		Group: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2563EB")),
		Muted: lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")),
		Error: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#DC2626")),
		OK:    lipgloss.NewStyle().Foreground(lipgloss.Color("#16A34A")),
	}
}

func (st styles) render(style lipgloss.Style, s string) string {
	if !st.enabled {
		return s
	}
	return style.Render(s)
}

// showOptions narrows what writeDocument prints.
type showOptions struct {
	group int // only this group, 0 for all
	guids bool
}

// writeDocument prints a session's document grouped by parameter group.
func writeDocument(w io.Writer, st styles, s *session.Session, opts showOptions) error {
	doc := s.Document()
	info := doc.TextInfo()
	meta := doc.Meta()

	title := fmt.Sprintf("%s  version %d.%d  %s %s", s.Path(), meta.Version, meta.MinVersion, info.Encoding, info.LineEnding)
	if s.ReadOnly() {
		title += "  [read-only]"
	}
	if _, err := fmt.Fprintln(w, st.render(st.Title, title)); err != nil {
		return err
	}

	groups := doc.Groups()
	if len(groups) == 0 {
		_, err := fmt.Fprintln(w, st.render(st.Muted, "(no groups)"))
		return err
	}

	for _, g := range groups {
		if opts.group != 0 && g.ID != opts.group {
			continue
		}
		params := doc.ParametersInGroup(g.ID)
		heading := fmt.Sprintf("Group %d  %s  (%d)", g.ID, g.Name, len(params))
		if _, err := fmt.Fprintln(w, st.render(st.Group, heading)); err != nil {
			return err
		}
		if len(params) == 0 {
			if _, err := fmt.Fprintln(w, "  "+st.render(st.Muted, "(no parameters)")); err != nil {
				return err
			}
			continue
		}
		if err := writeParameters(w, params, opts.guids); err != nil {
			return err
		}
	}
	return nil
}

func writeParameters(w io.Writer, params []definition.Parameter, guids bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := []string{"NAME", "TYPE", "VISIBLE", "MODIFIABLE", "DESCRIPTION"}
	if guids {
		header = append(header, "GUID")
	}
	fmt.Fprintln(tw, "  "+strings.Join(header, "\t"))

	for _, p := range params {
		row := []string{
			p.Name,
			p.Type.String(),
			yesNo(p.Visible),
			yesNo(p.UserModifiable),
			p.Description,
		}
		if guids {
			row = append(row, p.GUID.String())
		}
		fmt.Fprintln(tw, "  "+strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func parseGroupID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid group id %q: must be a positive integer", s)
	}
	return id, nil
}
