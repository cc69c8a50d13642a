package sqldb

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/threadline-dev/threadline/shared/domain"
	"github.com/threadline-dev/threadline/shared/storage/dbutil"
)

type childRow struct {
	LinkParent string `db:"link_parent"`
	convoRow
}

type replyCountRow struct {
	ParentId string `db:"parent_id"`
	Count    int    `db:"n"`
}

// Populate expands convos into views: author and community summaries on every level,
// children followed through the children sequence down to depth levels.
// Depth 0 only resolves references of the given convos.
func (s *Storage) Populate(ctx context.Context, convos []domain.Convo, depth int) ([]*domain.ConvoView, error) {
	roots := make([]*domain.ConvoView, 0, len(convos))
	for _, c := range convos {
		roots = append(roots, &domain.ConvoView{Convo: c})
	}

	all := append([]*domain.ConvoView(nil), roots...)
	level := roots
	for d := 0; d < depth && len(level) > 0; d++ {
		next, err := s.expandChildren(ctx, level)
		if err != nil {
			return nil, err
		}
		all = append(all, next...)
		level = next
	}
	if err := s.countReplies(ctx, level); err != nil {
		return nil, err
	}
	if err := s.resolveReferences(ctx, all); err != nil {
		return nil, err
	}
	return roots, nil
}

func (s *Storage) expandChildren(ctx context.Context, level []*domain.ConvoView) ([]*domain.ConvoView, error) {
	byId := make(map[domain.ConvoId][]*domain.ConvoView, len(level))
	ids := make([]domain.ConvoId, 0, len(level))
	for _, v := range level {
		if _, ok := byId[v.Id]; !ok {
			ids = append(ids, v.Id)
		}
		byId[v.Id] = append(byId[v.Id], v)
	}

	columns := []string{"l.parent_id AS link_parent"}
	for _, c := range convoColumns {
		columns = append(columns, "c."+c)
	}

	var next []*domain.ConvoView
	err := dbutil.InChunks(ids, func(chunk []domain.ConvoId) error {
		var rows []childRow
		err := s.selectInto(ctx, &rows, s.sb.
			Select(columns...).
			From("convo_children l").
			Join("convos c ON c.id = l.child_id").
			Where(sq.Eq{"l.parent_id": chunk}).
			OrderBy("l.parent_id", "l.position", "l.child_id"))
		if err != nil {
			return fmt.Errorf("failed to populate children: %w", err)
		}
		for _, r := range rows {
			for _, parent := range byId[r.LinkParent] {
				child := &domain.ConvoView{Convo: r.toDomain()}
				parent.Children = append(parent.Children, child)
				next = append(next, child)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, v := range level {
		v.ReplyCount = len(v.Children)
	}
	return next, nil
}

// countReplies fills ReplyCount for the deepest level, whose children are not expanded.
func (s *Storage) countReplies(ctx context.Context, level []*domain.ConvoView) error {
	ids := make([]domain.ConvoId, 0, len(level))
	for _, v := range level {
		ids = append(ids, v.Id)
	}

	counts := make(map[domain.ConvoId]int, len(ids))
	err := dbutil.InChunks(ids, func(chunk []domain.ConvoId) error {
		var rows []replyCountRow
		err := s.selectInto(ctx, &rows, s.sb.
			Select("l.parent_id", "COUNT(*) AS n").
			From("convo_children l").
			Join("convos c ON c.id = l.child_id").
			Where(sq.Eq{"l.parent_id": chunk}).
			GroupBy("l.parent_id"))
		if err != nil {
			return fmt.Errorf("failed to count replies: %w", err)
		}
		for _, r := range rows {
			counts[r.ParentId] = r.Count
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, v := range level {
		v.ReplyCount = counts[v.Id]
	}
	return nil
}

func (s *Storage) resolveReferences(ctx context.Context, views []*domain.ConvoView) error {
	var userIds []domain.UserId
	var communityIds []domain.CommunityId
	for _, v := range views {
		if v.AuthorId != "" {
			userIds = append(userIds, v.AuthorId)
		}
		if v.CommunityId != "" {
			communityIds = append(communityIds, v.CommunityId)
		}
	}

	users, err := s.usersByIds(ctx, dedup(userIds))
	if err != nil {
		return err
	}
	communities, err := s.communitiesByIds(ctx, dedup(communityIds))
	if err != nil {
		return err
	}

	for _, v := range views {
		if u, ok := users[v.AuthorId]; ok {
			v.Author = u.Summary()
		}
		if c, ok := communities[v.CommunityId]; ok {
			v.Community = c.Summary()
		}
	}
	return nil
}

func dedup(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
