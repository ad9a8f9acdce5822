package model

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Status of a project
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusOnHold    Status = "on-hold"
)

// Valid reports whether s is a known project status
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusOnHold:
		return true
	}
	return false
}

// Role of a team member within a project
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// TeamMember links a user to a project with a role
type TeamMember struct {
	User primitive.ObjectID `bson:"user" json:"user"`
	Role Role               `bson:"role" json:"role"`
}

// Project is a stored project document. The creator is always present in
// Team with the admin role; CreatedBy never changes after creation.
type Project struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	Status      Status             `bson:"status" json:"status"`
	StartDate   Date               `bson:"startDate" json:"startDate"`
	EndDate     Date               `bson:"endDate" json:"endDate"`
	IsPublic    bool               `bson:"isPublic" json:"isPublic"`
	Tags        []string           `bson:"tags,omitempty" json:"tags,omitempty"`
	CreatedBy   primitive.ObjectID `bson:"createdBy" json:"createdBy"`
	Team        []TeamMember       `bson:"team" json:"team"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}

// ValidationError reports a document constraint violation. Its message is
// returned verbatim to API callers.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func required(field string) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf("%s is required", field)}
}

// Validate checks document constraints before a write. Date ordering is
/// deliberately unchecked: a start date after the end date is accepted.
func (p *Project) Validate() error {
	if p.Title == "" {
		return required("title")
	}
	if p.Description == "" {
		return required("description")
	}
	if p.Status == "" {
		p.Status = StatusActive
	}
	if !p.Status.Valid() {
		return &ValidationError{Field: "status", Message: fmt.Sprintf("invalid status: %s", p.Status)}
	}
	if p.StartDate.IsZero() {
		return required("startDate")
	}
	if p.EndDate.IsZero() {
		return required("endDate")
	}
	return nil
}

// HasMember reports whether the user is already on the team
func (p *Project) HasMember(userID primitive.ObjectID) bool {
	for _, m := range p.Team {
		if m.User == userID {
			return true
		}
	}
	return false
}

// ProjectUpdate carries a partial update. Every field is optional; absent
// fields are left untouched. Team and createdBy intentionally have no
// counterpart here: team membership cannot be changed through the update
// path, and the owner is fixed at creation. Unknown body fields (team
// included) are dropped silently.
type ProjectUpdate struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Status      *Status   `json:"status"`
	StartDate   *Date     `json:"startDate"`
	EndDate     *Date     `json:"endDate"`
	IsPublic    *bool     `json:"isPublic"`
	Tags        *[]string `json:"tags"`
}

// Apply merges the update into p
func (u ProjectUpdate) Apply(p *Project) {
	if u.Title != nil {
		p.Title = *u.Title
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Status != nil {
		p.Status = *u.Status
	}
	if u.StartDate != nil {
		p.StartDate = *u.StartDate
	}
	if u.EndDate != nil {
		p.EndDate = *u.EndDate
	}
	if u.IsPublic != nil {
		p.IsPublic = *u.IsPublic
	}
	if u.Tags != nil {
		p.Tags = *u.Tags
	}
}

// UserRef is the expanded form of a user reference in responses
type UserRef struct {
	ID    primitive.ObjectID `json:"id"`
	Name  string             `json:"name"`
	Email string             `json:"email"`
}

// TeamMemberView is a team entry with its user reference expanded
type TeamMemberView struct {
	User UserRef `json:"user"`
	Role Role    `json:"role"`
}

/// ProjectView is the response shape of a project: createdBy and each team
// entry carry the referenced user's name and email instead of a bare id.
type ProjectView struct {
	ID          primitive.ObjectID `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Status      Status             `json:"status"`
	StartDate   Date               `json:"startDate"`
	EndDate     Date               `json:"endDate"`
	IsPublic    bool               `json:"isPublic"`
	Tags        []string           `json:"tags,omitempty"`
	CreatedBy   UserRef            `json:"createdBy"`
	Team        []TeamMemberView   `json:"team"`
	CreatedAt   time.Time          `json:"createdAt"`
}
