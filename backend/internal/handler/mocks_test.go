package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/threadline-dev/threadline/shared/config"
	"github.com/threadline-dev/threadline/shared/domain"
	mw "github.com/threadline-dev/threadline/shared/middleware"
)

type MockConvoService struct {
	CreateFunc   func(ctx context.Context, data domain.ConvoCreationData) (domain.ConvoId, error)
	AddReplyFunc func(ctx context.Context, data domain.ConvoCreationData) (domain.ConvoId, error)
	GetFunc      func(ctx context.Context, id domain.ConvoId) (*domain.ConvoView, error)
	ListFunc     func(ctx context.Context, page, pageSize int) (domain.ConvoPage, error)
	DeleteAsFunc func(ctx context.Context, user domain.User, id domain.ConvoId, pathHint string) (domain.DeletionReport, error)
}

func (m *MockConvoService) Create(ctx context.Context, data domain.ConvoCreationData) (domain.ConvoId, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, data)
	}
	return "new-id", nil
}

func (m *MockConvoService) AddReply(ctx context.Context, data domain.ConvoCreationData) (domain.ConvoId, error) {
	if m.AddReplyFunc != nil {
		return m.AddReplyFunc(ctx, data)
	}
	return "reply-id", nil
}

func (m *MockConvoService) Get(ctx context.Context, id domain.ConvoId) (*domain.ConvoView, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return &domain.ConvoView{Convo: domain.Convo{Id: id}}, nil
}

func (m *MockConvoService) List(ctx context.Context, page, pageSize int) (domain.ConvoPage, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, page, pageSize)
	}
	return domain.ConvoPage{Page: page}, nil
}

func (m *MockConvoService) Delete(ctx context.Context, id domain.ConvoId, pathHint string) (domain.DeletionReport, error) {
	return domain.DeletionReport{ConvoId: id, Closure: []domain.ConvoId{id}}, nil
}

func (m *MockConvoService) DeleteAs(ctx context.Context, user domain.User, id domain.ConvoId, pathHint string) (domain.DeletionReport, error) {
	if m.DeleteAsFunc != nil {
		return m.DeleteAsFunc(ctx, user, id, pathHint)
	}
	return domain.DeletionReport{ConvoId: id, Closure: []domain.ConvoId{id}}, nil
}

type MockUserService struct {
	OnboardFunc func(ctx context.Context, data domain.UserProfileData) (domain.User, error)
	GetFunc     func(ctx context.Context, id domain.UserId) (domain.User, error)
	ConvosFunc  func(ctx context.Context, id domain.UserId) ([]*domain.ConvoView, error)
}

func (m *MockUserService) Onboard(ctx context.Context, data domain.UserProfileData) (domain.User, error) {
	if m.OnboardFunc != nil {
		return m.OnboardFunc(ctx, data)
	}
	return domain.User{Id: data.Id, Username: data.Username, Name: data.Name, Onboarded: true}, nil
}

func (m *MockUserService) Get(ctx context.Context, id domain.UserId) (domain.User, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return domain.User{Id: id}, nil
}

func (m *MockUserService) Convos(ctx context.Context, id domain.UserId) ([]*domain.ConvoView, error) {
	if m.ConvosFunc != nil {
		return m.ConvosFunc(ctx, id)
	}
	return nil, nil
}

type MockCommunityService struct {
	CreateFunc func(ctx context.Context, data domain.CommunityCreationData) (domain.Community, error)
	GetFunc    func(ctx context.Context, id domain.CommunityId) (domain.Community, error)
	ConvosFunc func(ctx context.Context, id domain.CommunityId) ([]*domain.ConvoView, error)
}

func (m *MockCommunityService) Create(ctx context.Context, data domain.CommunityCreationData) (domain.Community, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, data)
	}
	return domain.Community{Id: "community-id", Slug: data.Slug, Name: data.Name, CreatedBy: data.CreatedBy}, nil
}

func (m *MockCommunityService) Get(ctx context.Context, id domain.CommunityId) (domain.Community, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return domain.Community{Id: id}, nil
}

func (m *MockCommunityService) Convos(ctx context.Context, id domain.CommunityId) ([]*domain.ConvoView, error) {
	if m.ConvosFunc != nil {
		return m.ConvosFunc(ctx, id)
	}
	return nil, nil
}

func testConfig() *config.Config {
	return &config.Config{Public: config.Public{PageSize: 20, MaxPageSize: 100}}
}

func newTestHandler(convo *MockConvoService, health HealthChecker) *Handler {
	return New(convo, &MockUserService{}, &MockCommunityService{}, testConfig(), health)
}

// routes mounts the handlers without auth middleware; tests put the user into the
// request context themselves.
func routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/v1/convos", h.ListConvos)
	r.Post("/v1/convos", h.CreateConvo)
	r.Get("/v1/convos/{id}", h.GetConvo)
	r.Post("/v1/convos/{id}/replies", h.AddReply)
	r.Delete("/v1/convos/{id}", h.DeleteConvo)
	r.Put("/v1/users/me", h.Onboard)
	r.Get("/v1/users/{id}", h.GetUser)
	r.Get("/v1/users/{id}/convos", h.UserConvos)
	r.Post("/v1/communities", h.CreateCommunity)
	r.Get("/v1/communities/{id}", h.GetCommunity)
	r.Get("/v1/communities/{id}/convos", h.CommunityConvos)
	return r
}

func do(t *testing.T, h *Handler, method, target, body string, user *domain.User) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	if user != nil {
		req = req.WithContext(context.WithValue(req.Context(), mw.UserClaimsKey, user))
	}
	rr := httptest.NewRecorder()
	routes(h).ServeHTTP(rr, req)
	return rr
}
