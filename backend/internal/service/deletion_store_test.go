package service

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threadline-dev/threadline/backend/internal/storage/sqldb"
	"github.com/threadline-dev/threadline/shared/config"
	"github.com/threadline-dev/threadline/shared/domain"
	internal_errors "github.com/threadline-dev/threadline/shared/errors"
	"github.com/threadline-dev/threadline/shared/storage/dbutil"
)

// These tests run the real engine against an in-memory sqlite store.

type fixture struct {
	t     *testing.T
	db    *sqlx.DB
	store *sqldb.Storage
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	db, err := dbutil.Connect(ctx, config.Database{
		Driver:     config.DriverSqlite,
		SqlitePath: ":memory:",
	}, dbutil.LightweightConnectionConfig())
	require.NoError(t, err)
	s := sqldb.NewFromDB(db)
	t.Cleanup(func() { _ = s.Cleanup() })
	require.NoError(t, s.Migrate(ctx))
	return fixture{t: t, db: db, store: s}
}

func (f fixture) user(username string) domain.UserId {
	u, err := f.store.UpsertUser(context.Background(), domain.UserProfileData{Id: "id-" + username, Username: username, Name: username})
	require.NoError(f.t, err)
	return u.Id
}

func (f fixture) community(slug string) domain.CommunityId {
	c, err := f.store.CreateCommunity(context.Background(), domain.CommunityCreationData{Slug: slug, Name: slug, CreatedBy: "x"})
	require.NoError(f.t, err)
	return c.Id
}

func (f fixture) convo(text string, author domain.UserId, community domain.CommunityId, parent domain.ConvoId) domain.ConvoId {
	c, err := f.store.CreateConvo(context.Background(), domain.ConvoCreationData{
		Text: text, AuthorId: author, CommunityId: community, ParentId: parent,
	})
	require.NoError(f.t, err)
	return c.Id
}

// link pushes a convo id into a user's or community's set directly.
func (f fixture) link(table, ownerColumn, owner string, convo domain.ConvoId) {
	_, err := f.db.Exec("INSERT INTO "+table+" ("+ownerColumn+", convo_id) VALUES (?, ?)", owner, convo)
	require.NoError(f.t, err)
}

func (f fixture) exists(id domain.ConvoId) bool {
	_, err := f.store.GetConvo(context.Background(), id)
	if err == nil {
		return true
	}
	require.ErrorIs(f.t, err, internal_errors.ErrNotFound)
	return false
}

func TestEngine_Idempotence(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user("alice")
	root := f.convo("root", alice, "", "")
	f.convo("reply", alice, "", root)
	deleter := NewDeleter(f.store, nil)

	report, err := deleter.Delete(ctx, root, "")
	require.NoError(t, err)
	assert.Len(t, report.Closure, 2)

	before, err := f.store.Counts(ctx)
	require.NoError(t, err)

	_, err = deleter.Delete(ctx, root, "")
	assert.ErrorIs(t, err, internal_errors.ErrNotFound)

	after, err := f.store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestEngine_ClosureCompleteness(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (fixture, []domain.ConvoId) {
		f := newFixture(t)
		alice := f.user("alice")
		root := f.convo("root", alice, "", "")
		child := f.convo("child", alice, "", root)
		grandchild := f.convo("grandchild", alice, "", child)
		great := f.convo("great-grandchild", alice, "", grandchild)
		return f, []domain.ConvoId{root, child, grandchild, great}
	}

	t.Run("deleting the root removes all four", func(t *testing.T) {
		f, chain := setup(t)
		report, err := NewDeleter(f.store, nil).Delete(ctx, chain[0], "")
		require.NoError(t, err)
		assert.ElementsMatch(t, chain, report.Closure)
		for _, id := range chain {
			assert.False(t, f.exists(id))
		}
		counts, err := f.store.Counts(ctx)
		require.NoError(t, err)
		assert.Zero(t, counts.Convos)
		assert.Zero(t, counts.Children)
		assert.Zero(t, counts.UserConvos)
	})

	t.Run("deleting the child keeps the root and unlinks the child", func(t *testing.T) {
		f, chain := setup(t)
		report, err := NewDeleter(f.store, nil).Delete(ctx, chain[1], "")
		require.NoError(t, err)
		assert.ElementsMatch(t, chain[1:], report.Closure)
		assert.True(t, f.exists(chain[0]))
		for _, id := range chain[1:] {
			assert.False(t, f.exists(id))
		}
		children, err := f.store.ChildIdsOf(ctx, chain[0])
		require.NoError(t, err)
		assert.Empty(t, children)
	})
}

func TestEngine_NoDanglingReferences(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user("alice")
	bob := f.user("bob")
	gophers := f.community("gophers")

	unrelated := f.convo("unrelated", alice, gophers, "")
	target := f.convo("target", alice, gophers, "")
	reply := f.convo("reply", bob, "", target)
	deepReply := f.convo("deep", alice, "", reply)
	// sets may also hold reply ids (imported data); those are pulled as well
	f.link("user_convos", "user_id", bob, reply)
	f.link("user_convos", "user_id", alice, deepReply)
	f.link("community_convos", "community_id", gophers, reply)

	_, err := NewDeleter(f.store, nil).Delete(ctx, target, "")
	require.NoError(t, err)

	aliceConvos, err := f.store.ConvoIdsOfUser(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []domain.ConvoId{unrelated}, aliceConvos)

	bobConvos, err := f.store.ConvoIdsOfUser(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, bobConvos)

	communityConvos, err := f.store.ConvoIdsOfCommunity(ctx, gophers)
	require.NoError(t, err)
	assert.Equal(t, []domain.ConvoId{unrelated}, communityConvos)
}

func TestEngine_UnsetReferencesAreSkipped(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user("alice")
	root := f.convo("root", alice, "", "")
	anonymous := f.convo("anonymous", "", "", root)
	f.convo("anonymous child", "", "", anonymous)

	report, err := NewDeleter(f.store, nil).Delete(ctx, root, "")
	require.NoError(t, err)
	assert.Len(t, report.Closure, 3)
	assert.Equal(t, []domain.UserId{alice}, report.Authors)
	assert.Empty(t, report.Communities)
}

func TestEngine_SiblingIsolation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user("alice")
	root := f.convo("root", alice, "", "")
	left := f.convo("left", alice, "", root)
	right := f.convo("right", alice, "", root)
	rightChild := f.convo("right child", alice, "", right)

	_, err := NewDeleter(f.store, nil).Delete(ctx, left, "")
	require.NoError(t, err)

	assert.True(t, f.exists(right))
	assert.True(t, f.exists(rightChild))
	children, err := f.store.ChildIdsOf(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, []domain.ConvoId{right}, children)
	grandchildren, err := f.store.ChildIdsOf(ctx, right)
	require.NoError(t, err)
	assert.Equal(t, []domain.ConvoId{rightChild}, grandchildren)
}

func TestEngine_Scenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user("alice")
	bob := f.user("bob")
	gophers := f.community("gophers")

	r := f.convo("R", alice, gophers, "")
	a := f.convo("A", bob, "", r)
	b := f.convo("B", alice, "", r)
	a1 := f.convo("A1", alice, "", a)
	f.link("user_convos", "user_id", bob, a)
	f.link("user_convos", "user_id", alice, a1)
	f.link("user_convos", "user_id", alice, b)

	invalidator := &MockInvalidator{}
	report, err := NewDeleter(f.store, invalidator).Delete(ctx, a, "/v1/convos/"+r)
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.ConvoId{a, a1}, report.Closure)

	assert.False(t, f.exists(a))
	assert.False(t, f.exists(a1))
	assert.True(t, f.exists(r))
	assert.True(t, f.exists(b))

	children, err := f.store.ChildIdsOf(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, []domain.ConvoId{b}, children)

	aliceConvos, err := f.store.ConvoIdsOfUser(ctx, alice)
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.ConvoId{r, b}, aliceConvos)
	bobConvos, err := f.store.ConvoIdsOfUser(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, bobConvos)
	communityConvos, err := f.store.ConvoIdsOfCommunity(ctx, gophers)
	require.NoError(t, err)
	assert.Equal(t, []domain.ConvoId{r}, communityConvos)

	assert.Contains(t, invalidator.All(), "/v1/convos/"+r)
}

func TestEngine_NonexistentId(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user("alice")
	root := f.convo("root", alice, "", "")
	f.convo("reply", alice, "", root)

	before, err := f.store.Counts(ctx)
	require.NoError(t, err)

	_, err = NewDeleter(f.store, nil).Delete(ctx, "nonexistent-id", "")
	assert.ErrorIs(t, err, internal_errors.ErrNotFound)

	after, err := f.store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRepair_WithStore(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user("alice")
	parent := f.convo("parent", alice, "", "")
	orphan := f.convo("orphan", alice, "", parent)
	orphanChild := f.convo("orphan child", alice, "", orphan)

	// the parent row vanished without the engine
	_, err := f.db.ExecContext(ctx, "DELETE FROM convos WHERE id = ?", parent)
	require.NoError(t, err)

	repairer := NewRepairer(f.store, NewDeleter(f.store, nil))
	require.NoError(t, repairer.RunRepair(ctx))

	stats := repairer.LastStats()
	assert.Equal(t, 1, stats.OrphansDeleted)
	assert.False(t, f.exists(orphan))
	assert.False(t, f.exists(orphanChild))

	counts, err := f.store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, sqldb.Counts{Users: 1}, counts)
}
