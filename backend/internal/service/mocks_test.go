package service

import (
	"context"
	"sync"

	"github.com/threadline-dev/threadline/shared/domain"
	internal_errors "github.com/threadline-dev/threadline/shared/errors"
)

// --- Storage mock ---

type MockStorage struct {
	mu sync.Mutex

	runInTxFunc             func(ctx context.Context, fn func(ctx context.Context) error) error
	getConvoFunc            func(ctx context.Context, id domain.ConvoId) (domain.Convo, error)
	childrenOfFunc          func(ctx context.Context, parentIds []domain.ConvoId) ([]domain.Convo, error)
	deleteConvosFunc        func(ctx context.Context, ids []domain.ConvoId) (int64, error)
	pullUserConvosFunc      func(ctx context.Context, userIds []domain.UserId, convoIds []domain.ConvoId) (int64, error)
	pullCommunityConvosFunc func(ctx context.Context, communityIds []domain.CommunityId, convoIds []domain.ConvoId) (int64, error)
	pullChildrenFunc        func(ctx context.Context, ids []domain.ConvoId) (int64, error)

	createConvoFunc       func(ctx context.Context, data domain.ConvoCreationData) (domain.Convo, error)
	listTopLevelFunc      func(ctx context.Context, offset, limit int) ([]domain.Convo, error)
	countTopLevelFunc     func(ctx context.Context) (int, error)
	populateFunc          func(ctx context.Context, convos []domain.Convo, depth int) ([]*domain.ConvoView, error)
	getUserFunc           func(ctx context.Context, id domain.UserId) (domain.User, error)
	getCommunityFunc      func(ctx context.Context, id domain.CommunityId) (domain.Community, error)
	upsertUserFunc        func(ctx context.Context, data domain.UserProfileData) (domain.User, error)
	convosOfUserFunc      func(ctx context.Context, id domain.UserId) ([]domain.Convo, error)
	createCommunityFunc   func(ctx context.Context, data domain.CommunityCreationData) (domain.Community, error)
	convosOfCommunityFunc func(ctx context.Context, id domain.CommunityId) ([]domain.Convo, error)

	removeStaleChildLinksFunc         func(ctx context.Context) (int64, error)
	restoreMissingChildLinksFunc      func(ctx context.Context) (int64, error)
	orphanReplyIdsFunc                func(ctx context.Context) ([]domain.ConvoId, error)
	removeDanglingUserConvosFunc      func(ctx context.Context) (int64, error)
	removeDanglingCommunityConvosFunc func(ctx context.Context) (int64, error)

	calls []string
}

func (m *MockStorage) record(name string) {
	m.mu.Lock()
	m.calls = append(m.calls, name)
	m.mu.Unlock()
}

func (m *MockStorage) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *MockStorage) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.record("RunInTx")
	if m.runInTxFunc != nil {
		return m.runInTxFunc(ctx, fn)
	}
	return fn(ctx)
}

func (m *MockStorage) GetConvo(ctx context.Context, id domain.ConvoId) (domain.Convo, error) {
	m.record("GetConvo")
	if m.getConvoFunc != nil {
		return m.getConvoFunc(ctx, id)
	}
	return domain.Convo{}, internal_errors.NotFound("convo", id)
}

func (m *MockStorage) ChildrenOf(ctx context.Context, parentIds []domain.ConvoId) ([]domain.Convo, error) {
	m.record("ChildrenOf")
	if m.childrenOfFunc != nil {
		return m.childrenOfFunc(ctx, parentIds)
	}
	return nil, nil
}

func (m *MockStorage) DeleteConvos(ctx context.Context, ids []domain.ConvoId) (int64, error) {
	m.record("DeleteConvos")
	if m.deleteConvosFunc != nil {
		return m.deleteConvosFunc(ctx, ids)
	}
	return int64(len(ids)), nil
}

func (m *MockStorage) PullUserConvos(ctx context.Context, userIds []domain.UserId, convoIds []domain.ConvoId) (int64, error) {
	m.record("PullUserConvos")
	if m.pullUserConvosFunc != nil {
		return m.pullUserConvosFunc(ctx, userIds, convoIds)
	}
	return 0, nil
}

func (m *MockStorage) PullCommunityConvos(ctx context.Context, communityIds []domain.CommunityId, convoIds []domain.ConvoId) (int64, error) {
	m.record("PullCommunityConvos")
	if m.pullCommunityConvosFunc != nil {
		return m.pullCommunityConvosFunc(ctx, communityIds, convoIds)
	}
	return 0, nil
}

func (m *MockStorage) PullChildren(ctx context.Context, ids []domain.ConvoId) (int64, error) {
	m.record("PullChildren")
	if m.pullChildrenFunc != nil {
		return m.pullChildrenFunc(ctx, ids)
	}
	return 0, nil
}

func (m *MockStorage) CreateConvo(ctx context.Context, data domain.ConvoCreationData) (domain.Convo, error) {
	m.record("CreateConvo")
	if m.createConvoFunc != nil {
		return m.createConvoFunc(ctx, data)
	}
	return domain.Convo{
		Id:          "new-id",
		Text:        data.Text,
		AuthorId:    data.AuthorId,
		CommunityId: data.CommunityId,
		ParentId:    data.ParentId,
	}, nil
}

func (m *MockStorage) ListTopLevel(ctx context.Context, offset, limit int) ([]domain.Convo, error) {
	m.record("ListTopLevel")
	if m.listTopLevelFunc != nil {
		return m.listTopLevelFunc(ctx, offset, limit)
	}
	return nil, nil
}

func (m *MockStorage) CountTopLevel(ctx context.Context) (int, error) {
	m.record("CountTopLevel")
	if m.countTopLevelFunc != nil {
		return m.countTopLevelFunc(ctx)
	}
	return 0, nil
}

func (m *MockStorage) Populate(ctx context.Context, convos []domain.Convo, depth int) ([]*domain.ConvoView, error) {
	m.record("Populate")
	if m.populateFunc != nil {
		return m.populateFunc(ctx, convos, depth)
	}
	views := make([]*domain.ConvoView, 0, len(convos))
	for _, c := range convos {
		views = append(views, &domain.ConvoView{Convo: c})
	}
	return views, nil
}

func (m *MockStorage) GetUser(ctx context.Context, id domain.UserId) (domain.User, error) {
	m.record("GetUser")
	if m.getUserFunc != nil {
		return m.getUserFunc(ctx, id)
	}
	return domain.User{Id: id, Username: "user", Onboarded: true}, nil
}

func (m *MockStorage) GetCommunity(ctx context.Context, id domain.CommunityId) (domain.Community, error) {
	m.record("GetCommunity")
	if m.getCommunityFunc != nil {
		return m.getCommunityFunc(ctx, id)
	}
	return domain.Community{Id: id, Slug: "community"}, nil
}

func (m *MockStorage) UpsertUser(ctx context.Context, data domain.UserProfileData) (domain.User, error) {
	m.record("UpsertUser")
	if m.upsertUserFunc != nil {
		return m.upsertUserFunc(ctx, data)
	}
	return domain.User{Id: data.Id, Username: data.Username, Name: data.Name, Onboarded: true}, nil
}

func (m *MockStorage) ConvosOfUser(ctx context.Context, id domain.UserId) ([]domain.Convo, error) {
	m.record("ConvosOfUser")
	if m.convosOfUserFunc != nil {
		return m.convosOfUserFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockStorage) CreateCommunity(ctx context.Context, data domain.CommunityCreationData) (domain.Community, error) {
	m.record("CreateCommunity")
	if m.createCommunityFunc != nil {
		return m.createCommunityFunc(ctx, data)
	}
	return domain.Community{Id: "community-id", Slug: data.Slug, Name: data.Name, CreatedBy: data.CreatedBy}, nil
}

func (m *MockStorage) ConvosOfCommunity(ctx context.Context, id domain.CommunityId) ([]domain.Convo, error) {
	m.record("ConvosOfCommunity")
	if m.convosOfCommunityFunc != nil {
		return m.convosOfCommunityFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockStorage) RemoveStaleChildLinks(ctx context.Context) (int64, error) {
	m.record("RemoveStaleChildLinks")
	if m.removeStaleChildLinksFunc != nil {
		return m.removeStaleChildLinksFunc(ctx)
	}
	return 0, nil
}

func (m *MockStorage) RestoreMissingChildLinks(ctx context.Context) (int64, error) {
	m.record("RestoreMissingChildLinks")
	if m.restoreMissingChildLinksFunc != nil {
		return m.restoreMissingChildLinksFunc(ctx)
	}
	return 0, nil
}

func (m *MockStorage) OrphanReplyIds(ctx context.Context) ([]domain.ConvoId, error) {
	m.record("OrphanReplyIds")
	if m.orphanReplyIdsFunc != nil {
		return m.orphanReplyIdsFunc(ctx)
	}
	return nil, nil
}

func (m *MockStorage) RemoveDanglingUserConvos(ctx context.Context) (int64, error) {
	m.record("RemoveDanglingUserConvos")
	if m.removeDanglingUserConvosFunc != nil {
		return m.removeDanglingUserConvosFunc(ctx)
	}
	return 0, nil
}

func (m *MockStorage) RemoveDanglingCommunityConvos(ctx context.Context) (int64, error) {
	m.record("RemoveDanglingCommunityConvos")
	if m.removeDanglingCommunityConvosFunc != nil {
		return m.removeDanglingCommunityConvosFunc(ctx)
	}
	return 0, nil
}

// --- Collaborator mocks ---

type MockInvalidator struct {
	mu       sync.Mutex
	err      error
	prefixes [][]string
}

func (m *MockInvalidator) Invalidate(_ context.Context, prefixes ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefixes = append(m.prefixes, prefixes)
	return m.err
}

func (m *MockInvalidator) All() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []string
	for _, p := range m.prefixes {
		all = append(all, p...)
	}
	return all
}

type MockDeleter struct {
	mu         sync.Mutex
	deleteFunc func(ctx context.Context, id domain.ConvoId, pathHint string) (domain.DeletionReport, error)
	deleted    []domain.ConvoId
}

func (m *MockDeleter) Delete(ctx context.Context, id domain.ConvoId, pathHint string) (domain.DeletionReport, error) {
	m.mu.Lock()
	m.deleted = append(m.deleted, id)
	m.mu.Unlock()
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id, pathHint)
	}
	return domain.DeletionReport{ConvoId: id, Closure: []domain.ConvoId{id}}, nil
}

type MockValidator struct {
	textFunc func(text domain.ConvoText) error
}

func (m *MockValidator) Text(text domain.ConvoText) error {
	if m.textFunc != nil {
		return m.textFunc(text)
	}
	return nil
}

func (m *MockValidator) Username(domain.Username) error { return nil }
func (m *MockValidator) Name(string) error              { return nil }
func (m *MockValidator) Slug(domain.Slug) error         { return nil }

type paragraphRenderer struct{}

func (paragraphRenderer) Render(text string) string { return "<p>" + text + "</p>" }
