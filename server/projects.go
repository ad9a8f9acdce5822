package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/existflow/ironplan/internal/logger"
	"github.com/existflow/ironplan/internal/model"
	"github.com/existflow/ironplan/server/store"
)

type createProjectRequest struct {
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	StartDate          model.Date `json:"startDate"`
	EndDate            model.Date `json:"endDate"`
	IsPublic           bool       `json:"isPublic"`
	Tags               []string   `json:"tags"`
	TeamMembersByEmail []string   `json:"teamMembersByEmail"`
	// No status field: a project always starts out active, even though
	// the form includes status in its draft.
}

// listProjects returns all projects owned by the requester, newest first
func (s *Server) listProjects(c echo.Context) error {
	user := currentUser(c)

	views, err := s.projects.List(c.Request().Context(), user.ID)
	if err != nil {
		logger.Error("failed to fetch projects", logger.F("error", err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Error fetching projects"})
	}

	return c.JSON(http.StatusOK, views)
}

// getProject returns a single owned project. A project that exists but
// belongs to someone else looks identical to one that doesn't exist.
func (s *Server) getProject(c echo.Context) error {
	user := currentUser(c)

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"message": "Project not found"})
	}

	view, err := s.projects.Get(c.Request().Context(), id, user.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"message": "Project not found"})
		}
		logger.Error("failed to fetch project", logger.F("error", err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Error fetching project"})
	}

	return c.JSON(http.StatusOK, view)
}

// createProject builds a project owned by the requester, resolves team
// member emails to users, and returns the stored project in expanded form
func (s *Server) createProject(c echo.Context) error {
	user := currentUser(c)
	ctx := c.Request().Context()

	var req createProjectRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid request body"})
	}

	project := &model.Project{
		Title:       req.Title,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		IsPublic:    req.IsPublic,
		Tags:        req.Tags,
		CreatedBy:   user.ID,
		Team: []model.TeamMember{
			{User: user.ID, Role: model.RoleAdmin},
		},
	}

	if len(req.TeamMembersByEmail) > 0 {
		members, err := s.users.FindByEmails(ctx, req.TeamMembersByEmail)
		if err != nil {
			logger.Error("failed to resolve team members", logger.F("error", err))
			return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Error creating project"})
		}

		// Dedupe against the team as it stands, so a resolved user (the
		// creator included) is never added twice
		onTeam := make(map[primitive.ObjectID]struct{}, len(project.Team))
		for _, m := range project.Team {
			onTeam[m.User] = struct{}{}
		}
		for _, u := range members {
			if _, ok := onTeam[u.ID]; ok {
				continue
			}
			project.Team = append(project.Team, model.TeamMember{User: u.ID, Role: model.RoleMember})
			onTeam[u.ID] = struct{}{}
		}
	}

	view, err := s.projects.Create(ctx, project)
	if err != nil {
		var ve *model.ValidationError
		if errors.As(err, &ve) {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": ve.Message})
		}
		logger.Error("failed to create project", logger.F("error", err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Error creating project"})
	}

	logger.Info("project created",
		logger.F("project", view.ID.Hex()),
		logger.F("owner", user.ID.Hex()),
		logger.F("team_size", len(view.Team)))

	return c.JSON(http.StatusCreated, view)
}

// updateProject applies a partial update to an owned project. A team
// field in the body is dropped without comment, so a caller trying to
// change membership here gets a successful response with the team
// untouched.
func (s *Server) updateProject(c echo.Context) error {
	user := currentUser(c)

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"message": "Project not found"})
	}

	var upd model.ProjectUpdate
	if err := c.Bind(&upd); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid request body"})
	}

	view, err := s.projects.Update(c.Request().Context(), id, user.ID, upd)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"message": "Project not found"})
		}
		var ve *model.ValidationError
		if errors.As(err, &ve) {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": ve.Message})
		}
		logger.Error("failed to update project", logger.F("error", err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Error updating project"})
	}

	return c.JSON(http.StatusOK, view)
}

// deleteProject removes an owned project
func (s *Server) deleteProject(c echo.Context) error {
	user := currentUser(c)

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"message": "Project not found"})
	}

	if err := s.projects.Delete(c.Request().Context(), id, user.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"message": "Project not found"})
		}
		logger.Error("failed to delete project", logger.F("error", err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Error deleting project"})
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Project deleted successfully"})
}
