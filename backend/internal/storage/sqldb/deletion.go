package sqldb

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/threadline-dev/threadline/shared/domain"
	"github.com/threadline-dev/threadline/shared/storage/dbutil"
)

// Primitives used by the cascading delete. Every one of them is a set operation that
// is safe to repeat: rows that are already gone are simply not matched.

// DeleteConvos removes every convo whose id is in ids.
func (s *Storage) DeleteConvos(ctx context.Context, ids []domain.ConvoId) (int64, error) {
	var total int64
	err := dbutil.InChunks(ids, func(chunk []domain.ConvoId) error {
		n, err := s.exec(ctx, s.sb.Delete("convos").Where(sq.Eq{"id": chunk}))
		if err != nil {
			return fmt.Errorf("failed to delete convos: %w", err)
		}
		total += n
		return nil
	})
	return total, err
}

// PullUserConvos removes convoIds from the convos set of every user in userIds.
func (s *Storage) PullUserConvos(ctx context.Context, userIds []domain.UserId, convoIds []domain.ConvoId) (int64, error) {
	return s.pull(ctx, "user_convos", "user_id", userIds, convoIds)
}

// PullCommunityConvos removes convoIds from the convos set of every community in communityIds.
func (s *Storage) PullCommunityConvos(ctx context.Context, communityIds []domain.CommunityId, convoIds []domain.ConvoId) (int64, error) {
	return s.pull(ctx, "community_convos", "community_id", communityIds, convoIds)
}

func (s *Storage) pull(ctx context.Context, table, ownerColumn string, owners, convoIds []string) (int64, error) {
	var total int64
	err := dbutil.InChunks(owners, func(ownerChunk []string) error {
		return dbutil.InChunks(convoIds, func(convoChunk []string) error {
			n, err := s.exec(ctx, s.sb.Delete(table).Where(sq.Eq{
				ownerColumn: ownerChunk,
				"convo_id":  convoChunk,
			}))
			if err != nil {
				return fmt.Errorf("failed to pull convos from %s: %w", table, err)
			}
			total += n
			return nil
		})
	})
	return total, err
}

// PullChildren drops ids from every children sequence and drops the sequences owned by ids.
func (s *Storage) PullChildren(ctx context.Context, ids []domain.ConvoId) (int64, error) {
	var total int64
	err := dbutil.InChunks(ids, func(chunk []domain.ConvoId) error {
		n, err := s.exec(ctx, s.sb.Delete("convo_children").Where(sq.Or{
			sq.Eq{"child_id": chunk},
			sq.Eq{"parent_id": chunk},
		}))
		if err != nil {
			return fmt.Errorf("failed to pull children: %w", err)
		}
		total += n
		return nil
	})
	return total, err
}
