package tui

import (
	"fmt"
	"strings"
)

// View renders the current screen
func (m Model) View() string {
	switch m.view {
	case viewForm:
		return m.form.View()
	case viewDetail:
		return m.detailView()
	case viewConfirmDelete:
		return m.confirmView()
	default:
		return m.listView()
	}
}

func (m Model) listView() string {
	var b strings.Builder

	b.WriteString(HeaderStyle.Render("ironplan — Projects"))
	b.WriteString("\n\n")

	switch {
	case m.loading:
		b.WriteString(ListStyle.Render("Loading projects..."))
	case len(m.projects) == 0:
		b.WriteString(ListStyle.Render("No projects yet. Press 'n' to create one."))
	default:
		var rows strings.Builder
		for i, p := range m.projects {
			badge := StatusStyle(string(p.Status)).Render(fmt.Sprintf("%-9s", p.Status))
			line := fmt.Sprintf("%s  %-30s  %s → %s  %d member(s)",
				badge,
				truncate(p.Title, 30),
				p.StartDate.Calendar(),
				p.EndDate.Calendar(),
				len(p.Team))
			if i == m.cursor {
				rows.WriteString(ItemSelectedStyle.Render("> " + line))
			} else {
				rows.WriteString(ItemStyle.Render("  " + line))
			}
			rows.WriteString("\n")
		}
		b.WriteString(ListStyle.Render(rows.String()))
	}

	b.WriteString("\n")
	b.WriteString(m.statusBar("n new · enter open · d delete · r refresh · q quit"))
	return b.String()
}

func (m Model) detailView() string {
	if m.detail == nil {
		return m.listView()
	}
	p := m.detail

	var b strings.Builder
	b.WriteString(HeaderStyle.Render(p.Title))
	b.WriteString("\n\n")

	row := func(label, value string) {
		b.WriteString(DetailLabelStyle.Render(label))
		b.WriteString(value)
		b.WriteString("\n")
	}

	row("Status", StatusStyle(string(p.Status)).Render(string(p.Status)))
	row("Description", p.Description)
	row("Start date", p.StartDate.Calendar())
	row("End date", p.EndDate.Calendar())
	row("Public", fmt.Sprintf("%v", p.IsPublic))
	if len(p.Tags) > 0 {
		row("Tags", strings.Join(p.Tags, ", "))
	}
	row("Owner", fmt.Sprintf("%s <%s>", p.CreatedBy.Name, p.CreatedBy.Email))

	b.WriteString("\n")
	b.WriteString(DetailLabelStyle.Render("Team"))
	b.WriteString("\n")
	for _, member := range p.Team {
		b.WriteString(fmt.Sprintf("  • %s <%s> (%s)\n", member.User.Name, member.User.Email, member.Role))
	}

	b.WriteString("\n")
	b.WriteString(m.statusBar("esc back · d delete · q quit"))
	return b.String()
}

func (m Model) confirmView() string {
	modal := ModalStyle.Render("Delete this project?\n\nPress 'y' to confirm, any other key to cancel.")
	return m.listView() + "\n" + modal
}

func (m Model) statusBar(help string) string {
	left := m.message
	if left == "" {
		left = help
	} else {
		left = left + "  ·  " + help
	}
	return StatusBarStyle.Render(left)
}
