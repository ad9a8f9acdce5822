package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/existflow/ironplan/internal/api"
	"github.com/existflow/ironplan/internal/db"
)

// formSubmitMsg is dispatched when the form is submitted
type formSubmitMsg struct {
	input api.CreateProjectInput
}

// formCancelMsg is dispatched when the user backs out of the form
type formCancelMsg struct{}

// formBindings holds field values on the heap so huh's Value() pointers
// stay valid across Bubble Tea model copies. Each field edit writes only
// its own binding.
type formBindings struct {
	title        string
	description  string
	status       string
	startDate    string
	endDate      string
	isPublic     bool
	tags         string // comma separated
	memberEmails string // comma separated
}

// formModel is the create-project form. While a create request is in
// flight the form accepts no input at all, so it cannot be resubmitted
// or cancelled mid-request.
type formModel struct {
	form       *huh.Form
	fb         *formBindings
	draftID    string
	submitting bool
	errMsg     string
	width      int
	height     int
}

func newForm(width, height int) formModel {
	return formModel{
		fb:     &formBindings{status: "active"},
		width:  width,
		height: height,
	}
}

// Start initializes the form, resuming from a saved draft when one is
// given.
func (m *formModel) Start(d *db.Draft) tea.Cmd {
	m.submitting = false
	m.errMsg = ""

	if d != nil {
		m.draftID = d.ID
		m.fb.title = d.Title
		m.fb.description = d.Description
		m.fb.status = d.Status
		m.fb.startDate = d.StartDate
		m.fb.endDate = d.EndDate
		m.fb.isPublic = d.IsPublic
		m.fb.tags = strings.Join(d.Tags, ",")
		m.fb.memberEmails = strings.Join(d.MemberEmails, ",")
	} else {
		m.draftID = ""
		*m.fb = formBindings{status: "active"}
	}

	m.form = m.build()
	return m.form.Init()
}

func (m *formModel) build() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Placeholder("Enter project title").
				Value(&m.fb.title).
				Validate(validateRequired("Title")),
			huh.NewText().
				Title("Description").
				Placeholder("Enter project description").
				Value(&m.fb.description).
				Validate(validateRequired("Description")),
			huh.NewSelect[string]().
				Title("Status").
				Options(
					huh.NewOption("Active", "active"),
					huh.NewOption("Completed", "completed"),
					huh.NewOption("On Hold", "on-hold"),
				).
				Value(&m.fb.status),
			huh.NewInput().
				Title("Start Date").
				Placeholder("YYYY-MM-DD").
				Value(&m.fb.startDate).
				Validate(validateDate("Start date")),
			huh.NewInput().
				Title("End Date").
				Placeholder("YYYY-MM-DD").
				Value(&m.fb.endDate).
				Validate(validateDate("End date")),
			huh.NewConfirm().
				Title("Public project?").
				Value(&m.fb.isPublic),
			huh.NewInput().
				Title("Tags").
				Placeholder("comma,separated (optional)").
				Value(&m.fb.tags),
			huh.NewInput().
				Title("Team member emails").
				Placeholder("a@x.com,b@x.com (optional)").
				Value(&m.fb.memberEmails),
		),
	).WithWidth(m.formWidth()).WithShowHelp(true)
}

// Update handles messages for the form
func (m formModel) Update(msg tea.Msg) (formModel, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	// Submit and cancel are disabled while the request is in flight
	if m.submitting {
		if _, ok := msg.(tea.KeyMsg); ok {
			return m, nil
		}
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted && !m.submitting {
		m.submitting = true
		input := m.input()
		return m, func() tea.Msg { return formSubmitMsg{input: input} }
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return formCancelMsg{} }
	}

	return m, cmd
}

// fail surfaces a create failure and re-enables the form for retry
func (m *formModel) fail(msg string) tea.Cmd {
	m.submitting = false
	m.errMsg = msg
	m.form = m.build()
	return m.form.Init()
}

// input assembles the request body from the draft record
func (m formModel) input() api.CreateProjectInput {
	return api.CreateProjectInput{
		Title:              m.fb.title,
		Description:        m.fb.description,
		Status:             m.fb.status,
		StartDate:          m.fb.startDate,
		EndDate:            m.fb.endDate,
		IsPublic:           m.fb.isPublic,
		Tags:               splitCSV(m.fb.tags),
		TeamMembersByEmail: splitCSV(m.fb.memberEmails),
	}
}

// draft captures the current field values for local persistence
func (m formModel) draft() *db.Draft {
	return &db.Draft{
		ID:           m.draftID,
		Title:        m.fb.title,
		Description:  m.fb.description,
		Status:       m.fb.status,
		StartDate:    m.fb.startDate,
		EndDate:      m.fb.endDate,
		IsPublic:     m.fb.isPublic,
		Tags:         splitCSV(m.fb.tags),
		MemberEmails: splitCSV(m.fb.memberEmails),
	}
}

// empty reports whether nothing has been typed yet
func (m formModel) empty() bool {
	return m.fb.title == "" && m.fb.description == "" &&
		m.fb.startDate == "" && m.fb.endDate == "" &&
		m.fb.tags == "" && m.fb.memberEmails == ""
}

// View renders the form
func (m formModel) View() string {
	if m.form == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(HeaderStyle.Render("Create New Project"))
	b.WriteString("\n")
	if m.errMsg != "" {
		b.WriteString(ErrorStyle.Render(m.errMsg))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	if m.submitting {
		b.WriteString(m.form.View())
		b.WriteString("\n")
		b.WriteString(HelpStyle.Render("Creating..."))
	} else {
		b.WriteString(m.form.View())
	}
	return b.String()
}

func (m formModel) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func validateRequired(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func validateDate(field string) func(string) error {
	return func(s string) error {
		s = strings.TrimSpace(s)
		if s == "" {
			return fmt.Errorf("%s is required", field)
		}
		if _, err := time.Parse("2006-01-02", s); err != nil {
			return fmt.Errorf("invalid date, use YYYY-MM-DD")
		}
		return nil
	}
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
