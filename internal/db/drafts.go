package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Draft is a project form draft saved locally so a cancelled session can
// be picked up again. Nothing here has been sent to the server.
type Draft struct {
	ID           string
	Title        string
	Description  string
	Status       string
	StartDate    string // calendar form, YYYY-MM-DD
	EndDate      string
	IsPublic     bool
	Tags         []string
	MemberEmails []string
	UpdatedAt    time.Time
}

// SaveDraft inserts or replaces a draft. A new draft gets a generated id.
func (db *DB) SaveDraft(ctx context.Context, d *Draft) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	d.UpdatedAt = time.Now()

	_, err := db.ExecContext(ctx, `
		INSERT INTO drafts (id, title, description, status, start_date, end_date, is_public, tags, member_emails, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			status = excluded.status,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			is_public = excluded.is_public,
			tags = excluded.tags,
			member_emails = excluded.member_emails,
			updated_at = excluded.updated_at`,
		d.ID, d.Title, d.Description, d.Status, d.StartDate, d.EndDate,
		boolToInt(d.IsPublic), joinList(d.Tags), joinList(d.MemberEmails),
		d.UpdatedAt.Format(time.RFC3339))
	return err
}

// LatestDraft returns the most recently saved draft, or nil if there is
// none.
func (db *DB) LatestDraft(ctx context.Context) (*Draft, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, title, description, status, start_date, end_date, is_public, tags, member_emails, updated_at
		FROM drafts ORDER BY updated_at DESC LIMIT 1`)

	var d Draft
	var isPublic int
	var tags, members, updatedAt string
	err := row.Scan(&d.ID, &d.Title, &d.Description, &d.Status, &d.StartDate, &d.EndDate,
		&isPublic, &tags, &members, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	d.IsPublic = isPublic != 0
	d.Tags = splitList(tags)
	d.MemberEmails = splitList(members)
	d.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &d, nil
}

// DeleteDraft removes a draft, normally after a successful submission
func (db *DB) DeleteDraft(ctx context.Context, id string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM drafts WHERE id = ?`, id)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func joinList(items []string) string {
	return strings.Join(items, ",")
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
