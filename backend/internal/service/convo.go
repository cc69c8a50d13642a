package service

import (
	"context"
	"errors"

	"github.com/threadline-dev/threadline/shared/domain"
	internal_errors "github.com/threadline-dev/threadline/shared/errors"
)

const (
	// fetchThreadById shows the convo, its replies and their replies.
	convoViewDepth = 2
	// listings and timelines show each convo with its direct replies.
	listViewDepth = 1
)

type ConvoService interface {
	Create(ctx context.Context, data domain.ConvoCreationData) (domain.ConvoId, error)
	AddReply(ctx context.Context, data domain.ConvoCreationData) (domain.ConvoId, error)
	Get(ctx context.Context, id domain.ConvoId) (*domain.ConvoView, error)
	List(ctx context.Context, page, pageSize int) (domain.ConvoPage, error)
	Delete(ctx context.Context, id domain.ConvoId, pathHint string) (domain.DeletionReport, error)
	DeleteAs(ctx context.Context, user domain.User, id domain.ConvoId, pathHint string) (domain.DeletionReport, error)
}

type Convo struct {
	storage     ConvoStorage
	validator   ConvoValidator
	deleter     ConvoDeleter
	invalidator Invalidator
	renderer    TextRenderer
	maxPageSize int
}

type ConvoStorage interface {
	CreateConvo(ctx context.Context, data domain.ConvoCreationData) (domain.Convo, error)
	GetConvo(ctx context.Context, id domain.ConvoId) (domain.Convo, error)
	ListTopLevel(ctx context.Context, offset, limit int) ([]domain.Convo, error)
	CountTopLevel(ctx context.Context) (int, error)
	Populate(ctx context.Context, convos []domain.Convo, depth int) ([]*domain.ConvoView, error)
	GetUser(ctx context.Context, id domain.UserId) (domain.User, error)
	GetCommunity(ctx context.Context, id domain.CommunityId) (domain.Community, error)
}

type ConvoValidator interface {
	Text(text domain.ConvoText) error
}

func NewConvo(storage ConvoStorage, validator ConvoValidator, deleter ConvoDeleter, invalidator Invalidator, renderer TextRenderer, maxPageSize int) ConvoService {
	if invalidator == nil {
		invalidator = noopInvalidator{}
	}
	return &Convo{
		storage:     storage,
		validator:   validator,
		deleter:     deleter,
		invalidator: invalidator,
		renderer:    renderer,
		maxPageSize: maxPageSize,
	}
}

// Create posts a new top-level convo.
func (s *Convo) Create(ctx context.Context, data domain.ConvoCreationData) (domain.ConvoId, error) {
	if err := s.validator.Text(data.Text); err != nil {
		return "", err
	}
	if err := s.checkAuthor(ctx, data.AuthorId); err != nil {
		return "", err
	}
	if data.CommunityId != "" {
		if _, err := s.storage.GetCommunity(ctx, data.CommunityId); err != nil {
			return "", err
		}
	}

	data.ParentId = ""
	convo, err := s.storage.CreateConvo(ctx, data)
	if err != nil {
		return "", err
	}

	invalidate(ctx, s.invalidator, affectedViews(data.Path, convo, []domain.UserId{convo.AuthorId}, nonEmpty(convo.CommunityId)))
	return convo.Id, nil
}

// AddReply appends a reply to data.ParentId. The reply carries no community.
func (s *Convo) AddReply(ctx context.Context, data domain.ConvoCreationData) (domain.ConvoId, error) {
	if err := s.validator.Text(data.Text); err != nil {
		return "", err
	}
	if _, err := s.storage.GetConvo(ctx, data.ParentId); err != nil {
		return "", err
	}
	if err := s.checkAuthor(ctx, data.AuthorId); err != nil {
		return "", err
	}

	data.CommunityId = ""
	reply, err := s.storage.CreateConvo(ctx, data)
	if err != nil {
		return "", err
	}

	invalidate(ctx, s.invalidator, affectedViews(data.Path, reply, nil, nil))
	return reply.Id, nil
}

func (s *Convo) checkAuthor(ctx context.Context, authorId domain.UserId) error {
	if authorId == "" {
		return &internal_errors.ValidationError{Message: "Author is required"}
	}
	author, err := s.storage.GetUser(ctx, authorId)
	if errors.Is(err, internal_errors.ErrNotFound) {
		// signed in with the identity provider but never onboarded
		return &internal_errors.ForbiddenError{Message: "Finish onboarding before posting"}
	}
	if err != nil {
		return err
	}
	if !author.Onboarded {
		return &internal_errors.ForbiddenError{Message: "Finish onboarding before posting"}
	}
	return nil
}

func (s *Convo) Get(ctx context.Context, id domain.ConvoId) (*domain.ConvoView, error) {
	convo, err := s.storage.GetConvo(ctx, id)
	if err != nil {
		return nil, err
	}
	views, err := s.storage.Populate(ctx, []domain.Convo{convo}, convoViewDepth)
	if err != nil {
		return nil, err
	}
	renderViews(s.renderer, views)
	return views[0], nil
}

// List returns a page of top-level convos, newest first. page < 1 is treated as 1 and
// pageSize is clamped to [1, maxPageSize].
func (s *Convo) List(ctx context.Context, page, pageSize int) (domain.ConvoPage, error) {
	page = max(page, 1)
	pageSize = min(max(pageSize, 1), s.maxPageSize)
	skip := (page - 1) * pageSize

	convos, err := s.storage.ListTopLevel(ctx, skip, pageSize)
	if err != nil {
		return domain.ConvoPage{}, err
	}
	total, err := s.storage.CountTopLevel(ctx)
	if err != nil {
		return domain.ConvoPage{}, err
	}
	views, err := s.storage.Populate(ctx, convos, listViewDepth)
	if err != nil {
		return domain.ConvoPage{}, err
	}
	renderViews(s.renderer, views)

	return domain.ConvoPage{
		Convos:  views,
		Page:    page,
		HasNext: total > skip+len(convos),
	}, nil
}

func (s *Convo) Delete(ctx context.Context, id domain.ConvoId, pathHint string) (domain.DeletionReport, error) {
	return s.deleter.Delete(ctx, id, pathHint)
}

// DeleteAs deletes on behalf of user: only the author or an admin may do so.
func (s *Convo) DeleteAs(ctx context.Context, user domain.User, id domain.ConvoId, pathHint string) (domain.DeletionReport, error) {
	convo, err := s.storage.GetConvo(ctx, id)
	if err != nil {
		return domain.DeletionReport{}, err
	}
	if !user.Admin && (convo.AuthorId == "" || convo.AuthorId != user.Id) {
		return domain.DeletionReport{}, &internal_errors.ForbiddenError{Message: "Only the author can delete this convo"}
	}
	return s.deleter.Delete(ctx, id, pathHint)
}

func nonEmpty(ids ...string) []string {
	var out []string
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}
