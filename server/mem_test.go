package server

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/existflow/ironplan/internal/model"
	"github.com/existflow/ironplan/server/store"
)

// In-memory store fakes mirroring the mongo implementations, so handler
// behavior can be exercised without a running database.

type memUserStore struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*model.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[primitive.ObjectID]*model.User)}
}

func (s *memUserStore) Create(ctx context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return store.ErrDuplicate
		}
	}
	u.ID = primitive.NewObjectID()
	u.CreatedAt = time.Now().UTC()
	s.users[u.ID] = u
	return nil
}

func (s *memUserStore) FindByID(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

func (s *memUserStore) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *memUserStore) FindByEmails(ctx context.Context, emails []string) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wanted := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		wanted[e] = struct{}{}
	}
	var out []model.User
	for _, u := range s.users {
		if _, ok := wanted[u.Email]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (s *memUserStore) ref(id primitive.ObjectID) model.UserRef {
	if u, ok := s.users[id]; ok {
		return u.Ref()
	}
	return model.UserRef{ID: id}
}

type memSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: make(map[string]*model.Session)}
}

func (s *memSessionStore) Create(ctx context.Context, sess *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.ID = primitive.NewObjectID()
	sess.CreatedAt = time.Now().UTC()
	s.sessions[sess.Token] = sess
	return nil
}

func (s *memSessionStore) Get(ctx context.Context, token string) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[token]; ok {
		return sess, nil
	}
	return nil, store.ErrNotFound
}

func (s *memSessionStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

type memProjectStore struct {
	mu       sync.Mutex
	users    *memUserStore
	projects map[primitive.ObjectID]*model.Project
	seq      int
}

func newMemProjectStore(users *memUserStore) *memProjectStore {
	return &memProjectStore{
		users:    users,
		projects: make(map[primitive.ObjectID]*model.Project),
	}
}

func (s *memProjectStore) List(ctx context.Context, owner primitive.ObjectID) ([]model.ProjectView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var owned []*model.Project
	for _, p := range s.projects {
		if p.CreatedBy == owner {
			owned = append(owned, p)
		}
	}
	sort.Slice(owned, func(i, j int) bool {
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})
	views := make([]model.ProjectView, 0, len(owned))
	for _, p := range owned {
		views = append(views, s.expand(p))
	}
	return views, nil
}

func (s *memProjectStore) Get(ctx context.Context, id, owner primitive.ObjectID) (*model.ProjectView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok || p.CreatedBy != owner {
		return nil, store.ErrNotFound
	}
	view := s.expand(p)
	return &view, nil
}

func (s *memProjectStore) Create(ctx context.Context, p *model.Project) (*model.ProjectView, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	p.ID = primitive.NewObjectID()
	// Distinct timestamps keep list ordering deterministic
	p.CreatedAt = time.Now().UTC().Add(time.Duration(s.seq) * time.Millisecond)
	stored := *p
	stored.Team = append([]model.TeamMember(nil), p.Team...)
	s.projects[p.ID] = &stored
	view := s.expand(&stored)
	return &view, nil
}

func (s *memProjectStore) Update(ctx context.Context, id, owner primitive.ObjectID, upd model.ProjectUpdate) (*model.ProjectView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok || p.CreatedBy != owner {
		return nil, store.ErrNotFound
	}
	merged := *p
	upd.Apply(&merged)
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	s.projects[id] = &merged
	view := s.expand(&merged)
	return &view, nil
}

func (s *memProjectStore) Delete(ctx context.Context, id, owner primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok || p.CreatedBy != owner {
		return store.ErrNotFound
	}
	delete(s.projects, id)
	return nil
}

func (s *memProjectStore) expand(p *model.Project) model.ProjectView {
	team := make([]model.TeamMemberView, 0, len(p.Team))
	for _, m := range p.Team {
		team = append(team, model.TeamMemberView{User: s.users.ref(m.User), Role: m.Role})
	}
	return model.ProjectView{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Status:      p.Status,
		StartDate:   p.StartDate,
		EndDate:     p.EndDate,
		IsPublic:    p.IsPublic,
		Tags:        p.Tags,
		CreatedBy:   s.users.ref(p.CreatedBy),
		Team:        team,
		CreatedAt:   p.CreatedAt,
	}
}

// raw returns the stored document, bypassing ownership checks, for
// assertions on persisted state
func (s *memProjectStore) raw(id primitive.ObjectID) *model.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projects[id]
}

func (s *memProjectStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.projects)
}
