package service

import (
	"context"

	"github.com/threadline-dev/threadline/shared/domain"
)

type UserService interface {
	Onboard(ctx context.Context, data domain.UserProfileData) (domain.User, error)
	Get(ctx context.Context, id domain.UserId) (domain.User, error)
	Convos(ctx context.Context, id domain.UserId) ([]*domain.ConvoView, error)
}

type User struct {
	storage     UserStorage
	validator   UserValidator
	invalidator Invalidator
	renderer    TextRenderer
}

type UserStorage interface {
	UpsertUser(ctx context.Context, data domain.UserProfileData) (domain.User, error)
	GetUser(ctx context.Context, id domain.UserId) (domain.User, error)
	ConvosOfUser(ctx context.Context, id domain.UserId) ([]domain.Convo, error)
	Populate(ctx context.Context, convos []domain.Convo, depth int) ([]*domain.ConvoView, error)
}

type UserValidator interface {
	Username(username domain.Username) error
	Name(name string) error
}

func NewUser(storage UserStorage, validator UserValidator, invalidator Invalidator, renderer TextRenderer) UserService {
	if invalidator == nil {
		invalidator = noopInvalidator{}
	}
	return &User{storage, validator, invalidator, renderer}
}

// Onboard stores the profile of data.Id and marks the user onboarded.
func (s *User) Onboard(ctx context.Context, data domain.UserProfileData) (domain.User, error) {
	if err := s.validator.Username(data.Username); err != nil {
		return domain.User{}, err
	}
	if err := s.validator.Name(data.Name); err != nil {
		return domain.User{}, err
	}

	user, err := s.storage.UpsertUser(ctx, data)
	if err != nil {
		return domain.User{}, err
	}

	// author summaries are embedded in every populated view
	invalidate(ctx, s.invalidator, []string{ConvosViewPrefix, UsersViewPrefix, CommunitiesViewPrefix})
	return user, nil
}

func (s *User) Get(ctx context.Context, id domain.UserId) (domain.User, error) {
	return s.storage.GetUser(ctx, id)
}

// Convos is the user's timeline: their top-level convos, newest first.
func (s *User) Convos(ctx context.Context, id domain.UserId) ([]*domain.ConvoView, error) {
	if _, err := s.storage.GetUser(ctx, id); err != nil {
		return nil, err
	}
	convos, err := s.storage.ConvosOfUser(ctx, id)
	if err != nil {
		return nil, err
	}
	views, err := s.storage.Populate(ctx, convos, listViewDepth)
	if err != nil {
		return nil, err
	}
	renderViews(s.renderer, views)
	return views, nil
}
