package tui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/existflow/ironplan/internal/api"
	"github.com/existflow/ironplan/internal/db"
	"github.com/existflow/ironplan/internal/logger"
	"github.com/existflow/ironplan/internal/model"
)

// createFailedFallback is shown when the server did not supply a message
const createFailedFallback = "Failed to create project"

// viewState represents which screen is showing
type viewState int

const (
	viewList viewState = iota
	viewDetail
	viewForm
	viewConfirmDelete
)

// Model is the main TUI model
type Model struct {
	client *api.Client
	drafts *db.DB // nil when the local database is unavailable

	projects []model.ProjectView
	cursor   int

	view          viewState
	form          formModel
	detail        *model.ProjectView
	confirmDelete bool
	pendingDelete string

	width   int
	height  int
	loading bool
	message string
}

// NewModel creates a new TUI model
func NewModel(client *api.Client, drafts *db.DB, confirmDelete bool) Model {
	logger.Info("Initializing TUI model")
	return Model{
		client:        client,
		drafts:        drafts,
		confirmDelete: confirmDelete,
		form:          newForm(80, 24),
		loading:       true,
	}
}

// projectsMsg carries the result of a list request
type projectsMsg struct {
	views []model.ProjectView
	err   error
}

// createdMsg carries the result of a create request
type createdMsg struct {
	view *model.ProjectView
	err  error
}

// deletedMsg carries the result of a delete request
type deletedMsg struct {
	err error
}

// draftMsg carries the saved draft to resume, if any
type draftMsg struct {
	draft *db.Draft
}

// Init kicks off the initial list load
func (m Model) Init() tea.Cmd {
	return m.loadProjects()
}

func (m Model) loadProjects() tea.Cmd {
	return func() tea.Msg {
		views, err := m.client.ListProjects()
		return projectsMsg{views: views, err: err}
	}
}

func (m Model) createProject(input api.CreateProjectInput) tea.Cmd {
	return func() tea.Msg {
		view, err := m.client.CreateProject(input)
		return createdMsg{view: view, err: err}
	}
}

func (m Model) deleteProject(id string) tea.Cmd {
	return func() tea.Msg {
		return deletedMsg{err: m.client.DeleteProject(id)}
	}
}

func (m Model) loadDraft() tea.Cmd {
	if m.drafts == nil {
		return func() tea.Msg { return draftMsg{} }
	}
	return func() tea.Msg {
		d, err := m.drafts.LatestDraft(context.Background())
		if err != nil {
			logger.Warn("Failed to load draft", logger.F("error", err))
		}
		return draftMsg{draft: d}
	}
}

func (m Model) saveDraft() {
	if m.drafts == nil || m.form.empty() {
		return
	}
	if err := m.drafts.SaveDraft(context.Background(), m.form.draft()); err != nil {
		logger.Warn("Failed to save draft", logger.F("error", err))
	}
}

func (m Model) clearDraft() {
	if m.drafts == nil || m.form.draftID == "" {
		return
	}
	if err := m.drafts.DeleteDraft(context.Background(), m.form.draftID); err != nil {
		logger.Warn("Failed to delete draft", logger.F("error", err))
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.form.width = msg.Width
		m.form.height = msg.Height
		return m, nil

	case projectsMsg:
		m.loading = false
		if msg.err != nil {
			logger.Error("Failed to load projects", logger.F("error", msg.err))
			m.message = msg.err.Error()
			return m, nil
		}
		m.projects = msg.views
		if m.cursor >= len(m.projects) {
			m.cursor = 0
		}
		return m, nil

	case draftMsg:
		m.view = viewForm
		return m, m.form.Start(msg.draft)

	case formSubmitMsg:
		logger.Info("Submitting project", logger.F("title", msg.input.Title))
		return m, m.createProject(msg.input)

	case formCancelMsg:
		m.saveDraft()
		m.view = viewList
		return m, nil

	case createdMsg:
		if msg.err != nil {
			logger.Error("Create failed", logger.F("error", msg.err))
			return m, m.form.fail(createErrorMessage(msg.err))
		}
		m.clearDraft()
		m.view = viewList
		m.loading = true
		m.message = "Created project: " + msg.view.Title
		return m, m.loadProjects()

	case deletedMsg:
		if msg.err != nil {
			m.message = msg.err.Error()
			return m, nil
		}
		m.message = "Project deleted successfully"
		m.loading = true
		return m, m.loadProjects()

	case tea.KeyMsg:
		switch m.view {
		case viewForm:
			var cmd tea.Cmd
			m.form, cmd = m.form.Update(msg)
			return m, cmd
		case viewConfirmDelete:
			return m.handleConfirmKeys(msg)
		case viewDetail:
			return m.handleDetailKeys(msg)
		default:
			return m.handleListKeys(msg)
		}
	}

	// Everything else (spinner ticks, form internals) goes to the form
	if m.view == viewForm {
		var cmd tea.Cmd
		m.form, cmd = m.form.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.projects)-1 {
			m.cursor++
		}

	case key.Matches(msg, keys.Enter):
		if m.cursor < len(m.projects) {
			p := m.projects[m.cursor]
			m.detail = &p
			m.view = viewDetail
		}

	case key.Matches(msg, keys.New):
		return m, m.loadDraft()

	case key.Matches(msg, keys.Delete):
		if m.cursor < len(m.projects) {
			m.pendingDelete = m.projects[m.cursor].ID.Hex()
			if m.confirmDelete {
				m.view = viewConfirmDelete
				return m, nil
			}
			m.loading = true
			return m, m.deleteProject(m.pendingDelete)
		}

	case key.Matches(msg, keys.Refresh):
		m.loading = true
		m.message = ""
		return m, m.loadProjects()
	}
	return m, nil
}

func (m Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Escape), key.Matches(msg, keys.Enter):
		m.detail = nil
		m.view = viewList

	case key.Matches(msg, keys.Delete):
		if m.detail != nil {
			m.pendingDelete = m.detail.ID.Hex()
			m.detail = nil
			if m.confirmDelete {
				m.view = viewConfirmDelete
				return m, nil
			}
			m.view = viewList
			m.loading = true
			return m, m.deleteProject(m.pendingDelete)
		}
	}
	return m, nil
}

func (m Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		m.view = viewList
		m.loading = true
		return m, m.deleteProject(m.pendingDelete)
	default:
		m.pendingDelete = ""
		m.view = viewList
	}
	return m, nil
}

// createErrorMessage prefers the server-supplied message and falls back
// to a fixed string when the response body had none (or the request never
// reached the server).
func createErrorMessage(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return createFailedFallback
}
