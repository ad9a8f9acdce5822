package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/existflow/ironplan/internal/model"
)

// ProjectStore provides persistence operations for projects. Every read
// and write is scoped to the owning user; a document belonging to someone
// else behaves exactly like a missing one.
type ProjectStore struct {
	col   *mongo.Collection
	users *mongo.Collection
}

// List returns all projects owned by the user, newest first, with user
// references expanded.
func (s *ProjectStore) List(ctx context.Context, owner primitive.ObjectID) ([]model.ProjectView, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := s.col.Find(ctx, bson.M{"createdBy": owner}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var projects []model.Project
	if err := cur.All(ctx, &projects); err != nil {
		return nil, err
	}

	return s.expand(ctx, projects)
}

// Get returns a single owned project with user references expanded
func (s *ProjectStore) Get(ctx context.Context, id, owner primitive.ObjectID) (*model.ProjectView, error) {
	var p model.Project
	err := s.col.FindOne(ctx, bson.M{"_id": id, "createdBy": owner}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	views, err := s.expand(ctx, []model.Project{p})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// Create validates and inserts the project, then re-reads it in expanded
// form. The insert and the re-read are two separate store accesses; there
// is no transaction around them.
func (s *ProjectStore) Create(ctx context.Context, p *model.Project) (*model.ProjectView, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	p.ID = primitive.NewObjectID()
	p.CreatedAt = time.Now().UTC()

	if _, err := s.col.InsertOne(ctx, p); err != nil {
		return nil, err
	}

	return s.Get(ctx, p.ID, p.CreatedBy)
}

// Update applies a partial update to an owned project, re-validating the
// merged document before writing. Only the fields present in upd are set;
// team membership and ownership never change through this path.
func (s *ProjectStore) Update(ctx context.Context, id, owner primitive.ObjectID, upd model.ProjectUpdate) (*model.ProjectView, error) {
	var p model.Project
	err := s.col.FindOne(ctx, bson.M{"_id": id, "createdBy": owner}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	upd.Apply(&p)
	if err := p.Validate(); err != nil {
		return nil, err
	}

	set := bson.M{}
	if upd.Title != nil {
		set["title"] = p.Title
	}
	if upd.Description != nil {
		set["description"] = p.Description
	}
	if upd.Status != nil {
		set["status"] = p.Status
	}
	if upd.StartDate != nil {
		set["startDate"] = p.StartDate
	}
	if upd.EndDate != nil {
		set["endDate"] = p.EndDate
	}
	if upd.IsPublic != nil {
		set["isPublic"] = p.IsPublic
	}
	if upd.Tags != nil {
		set["tags"] = p.Tags
	}

	if len(set) > 0 {
		filter := bson.M{"_id": id, "createdBy": owner}
		if _, err := s.col.UpdateOne(ctx, filter, bson.M{"$set": set}); err != nil {
			return nil, err
		}
	}

	return s.Get(ctx, id, owner)
}

// Delete removes an owned project
func (s *ProjectStore) Delete(ctx context.Context, id, owner primitive.ObjectID) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id, "createdBy": owner})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// expand replaces user references (createdBy and team entries) with the
// referenced users' name and email. All users for a batch of projects are
// fetched in a single query.
func (s *ProjectStore) expand(ctx context.Context, projects []model.Project) ([]model.ProjectView, error) {
	ids := make([]primitive.ObjectID, 0, len(projects)*2)
	seen := make(map[primitive.ObjectID]struct{})
	add := func(id primitive.ObjectID) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	for _, p := range projects {
		add(p.CreatedBy)
		for _, m := range p.Team {
			add(m.User)
		}
	}

	refs := make(map[primitive.ObjectID]model.UserRef, len(ids))
	if len(ids) > 0 {
		cur, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
		if err != nil {
			return nil, err
		}
		defer cur.Close(ctx)

		var users []model.User
		if err := cur.All(ctx, &users); err != nil {
			return nil, err
		}
		for i := range users {
			refs[users[i].ID] = users[i].Ref()
		}
	}

	ref := func(id primitive.ObjectID) model.UserRef {
		if r, ok := refs[id]; ok {
			return r
		}
		// Referenced user no longer exists; keep the bare id
		return model.UserRef{ID: id}
	}

	views := make([]model.ProjectView, 0, len(projects))
	for _, p := range projects {
		team := make([]model.TeamMemberView, 0, len(p.Team))
		for _, m := range p.Team {
			team = append(team, model.TeamMemberView{User: ref(m.User), Role: m.Role})
		}
		views = append(views, model.ProjectView{
			ID:          p.ID,
			Title:       p.Title,
			Description: p.Description,
			Status:      p.Status,
			StartDate:   p.StartDate,
			EndDate:     p.EndDate,
			IsPublic:    p.IsPublic,
			Tags:        p.Tags,
			CreatedBy:   ref(p.CreatedBy),
			Team:        team,
			CreatedAt:   p.CreatedAt,
		})
	}
	return views, nil
}
