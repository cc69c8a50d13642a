package service

import (
	"context"

	"github.com/threadline-dev/threadline/shared/domain"
)

type CommunityService interface {
	Create(ctx context.Context, data domain.CommunityCreationData) (domain.Community, error)
	Get(ctx context.Context, id domain.CommunityId) (domain.Community, error)
	Convos(ctx context.Context, id domain.CommunityId) ([]*domain.ConvoView, error)
}

type Community struct {
	storage   CommunityStorage
	validator CommunityValidator
	renderer  TextRenderer
}

type CommunityStorage interface {
	CreateCommunity(ctx context.Context, data domain.CommunityCreationData) (domain.Community, error)
	GetCommunity(ctx context.Context, id domain.CommunityId) (domain.Community, error)
	ConvosOfCommunity(ctx context.Context, id domain.CommunityId) ([]domain.Convo, error)
	GetUser(ctx context.Context, id domain.UserId) (domain.User, error)
	Populate(ctx context.Context, convos []domain.Convo, depth int) ([]*domain.ConvoView, error)
}

type CommunityValidator interface {
	Slug(slug domain.Slug) error
	Name(name string) error
}

func NewCommunity(storage CommunityStorage, validator CommunityValidator, renderer TextRenderer) CommunityService {
	return &Community{storage, validator, renderer}
}

func (s *Community) Create(ctx context.Context, data domain.CommunityCreationData) (domain.Community, error) {
	if err := s.validator.Slug(data.Slug); err != nil {
		return domain.Community{}, err
	}
	if err := s.validator.Name(data.Name); err != nil {
		return domain.Community{}, err
	}
	if _, err := s.storage.GetUser(ctx, data.CreatedBy); err != nil {
		return domain.Community{}, err
	}
	return s.storage.CreateCommunity(ctx, data)
}

func (s *Community) Get(ctx context.Context, id domain.CommunityId) (domain.Community, error) {
	return s.storage.GetCommunity(ctx, id)
}

func (s *Community) Convos(ctx context.Context, id domain.CommunityId) ([]*domain.ConvoView, error) {
	if _, err := s.storage.GetCommunity(ctx, id); err != nil {
		return nil, err
	}
	convos, err := s.storage.ConvosOfCommunity(ctx, id)
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
