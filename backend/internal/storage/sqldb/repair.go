package sqldb

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/threadline-dev/threadline/shared/domain"
)

// Consistency sweep primitives. parent_id on convos is authoritative; the link tables
// are brought in line with it.

// RemoveStaleChildLinks deletes children rows whose parent is gone, whose child is gone,
// or whose child no longer points at the parent.
func (s *Storage) RemoveStaleChildLinks(ctx context.Context) (int64, error) {
	n, err := s.exec(ctx, s.sb.Delete("convo_children").Where(sq.Or{
		sq.Expr("NOT EXISTS (SELECT 1 FROM convos p WHERE p.id = convo_children.parent_id)"),
		sq.Expr(`NOT EXISTS (
            SELECT 1 FROM convos c
            WHERE c.id = convo_children.child_id AND c.parent_id = convo_children.parent_id
        )`),
	}))
	if err != nil {
		return 0, fmt.Errorf("failed to remove stale child links: %w", err)
	}
	return n, nil
}

// RestoreMissingChildLinks appends a children row for every reply whose parent exists
// but does not list it. Restored rows go after the existing ones, oldest first.
func (s *Storage) RestoreMissingChildLinks(ctx context.Context) (int64, error) {
	n, err := s.exec(ctx, s.sb.Insert("convo_children").
		Columns("parent_id", "child_id", "position").
		Select(s.sb.
			Select(
				"c.parent_id",
				"c.id",
				"(SELECT COALESCE(MAX(cc.position), 0) FROM convo_children cc WHERE cc.parent_id = c.parent_id)"+
					" + ROW_NUMBER() OVER (PARTITION BY c.parent_id ORDER BY c.created_at, c.id)",
			).
			From("convos c").
			Where(sq.NotEq{"c.parent_id": nil}).
			Where(sq.Expr("EXISTS (SELECT 1 FROM convos p WHERE p.id = c.parent_id)")).
			Where(sq.Expr(`NOT EXISTS (
                SELECT 1 FROM convo_children l WHERE l.parent_id = c.parent_id AND l.child_id = c.id
            )`))))
	if err != nil {
		return 0, fmt.Errorf("failed to restore child links: %w", err)
	}
	return n, nil
}

// OrphanReplyIds lists replies whose parent no longer exists.
func (s *Storage) OrphanReplyIds(ctx context.Context) ([]domain.ConvoId, error) {
	var ids []domain.ConvoId
	err := s.selectInto(ctx, &ids, s.sb.
		Select("c.id").
		From("convos c").
		Where(sq.NotEq{"c.parent_id": nil}).
		Where(sq.Expr("NOT EXISTS (SELECT 1 FROM convos p WHERE p.id = c.parent_id)")).
		OrderBy("c.id"))
	if err != nil {
		return nil, fmt.Errorf("failed to list orphan replies: %w", err)
	}
	return ids, nil
}

// RemoveDanglingUserConvos drops user_convos rows whose convo is gone or authored by
// someone else.
func (s *Storage) RemoveDanglingUserConvos(ctx context.Context) (int64, error) {
	n, err := s.exec(ctx, s.sb.Delete("user_convos").Where(sq.Expr(`NOT EXISTS (
        SELECT 1 FROM convos c
        WHERE c.id = user_convos.convo_id AND c.author_id = user_convos.user_id
    )`)))
	if err != nil {
		return 0, fmt.Errorf("failed to remove dangling user convos: %w", err)
	}
	return n, nil
}

// RemoveDanglingCommunityConvos is RemoveDanglingUserConvos for communities.
func (s *Storage) RemoveDanglingCommunityConvos(ctx context.Context) (int64, error) {
	n, err := s.exec(ctx, s.sb.Delete("community_convos").Where(sq.Expr(`NOT EXISTS (
        SELECT 1 FROM convos c
        WHERE c.id = community_convos.convo_id AND c.community_id = community_convos.community_id
    )`)))
	if err != nil {
		return 0, fmt.Errorf("failed to remove dangling community convos: %w", err)
	}
	return n, nil
}
