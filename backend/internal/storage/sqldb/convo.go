package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/threadline-dev/threadline/shared/domain"
	internal_errors "github.com/threadline-dev/threadline/shared/errors"
	"github.com/threadline-dev/threadline/shared/storage/dbutil"
)

var convoColumns = []string{"id", "text", "author_id", "community_id", "parent_id", "created_at"}

type convoRow struct {
	Id          string         `db:"id"`
	Text        string         `db:"text"`
	AuthorId    sql.NullString `db:"author_id"`
	CommunityId sql.NullString `db:"community_id"`
	ParentId    sql.NullString `db:"parent_id"`
	CreatedAt   time.Time      `db:"created_at"`
}

func (r convoRow) toDomain() domain.Convo {
	return domain.Convo{
		Id:          r.Id,
		Text:        r.Text,
		AuthorId:    r.AuthorId.String,
		CommunityId: r.CommunityId.String,
		ParentId:    r.ParentId.String,
		CreatedAt:   r.CreatedAt,
	}
}

func toDomainConvos(rows []convoRow) []domain.Convo {
	convos := make([]domain.Convo, 0, len(rows))
	for _, r := range rows {
		convos = append(convos, r.toDomain())
	}
	return convos
}

// CreateConvo inserts a leaf convo and pushes its id into the back-references that
// point at it: the parent's children for replies, the author's and community's convos
// for top-level posts. All writes share one transaction.
func (s *Storage) CreateConvo(ctx context.Context, data domain.ConvoCreationData) (domain.Convo, error) {
	convo := domain.Convo{
		Id:          uuid.NewString(),
		Text:        data.Text,
		AuthorId:    data.AuthorId,
		CommunityId: data.CommunityId,
		ParentId:    data.ParentId,
		CreatedAt:   s.now(),
	}

	err := s.RunInTx(ctx, func(ctx context.Context) error {
		_, err := s.exec(ctx, s.sb.Insert("convos").
			Columns(convoColumns...).
			Values(convo.Id, convo.Text, nullable(convo.AuthorId), nullable(convo.CommunityId), nullable(convo.ParentId), convo.CreatedAt))
		if err != nil {
			return fmt.Errorf("failed to insert convo: %w", err)
		}

		if convo.ParentId != "" {
			if err := s.appendChild(ctx, convo.ParentId, convo.Id); err != nil {
				return err
			}
			return nil
		}

		if convo.AuthorId != "" {
			if _, err := s.exec(ctx, s.sb.Insert("user_convos").
				Columns("user_id", "convo_id").
				Values(convo.AuthorId, convo.Id)); err != nil {
				return fmt.Errorf("failed to push convo into user: %w", err)
			}
		}
		if convo.CommunityId != "" {
			if _, err := s.exec(ctx, s.sb.Insert("community_convos").
				Columns("community_id", "convo_id").
				Values(convo.CommunityId, convo.Id)); err != nil {
				return fmt.Errorf("failed to push convo into community: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return domain.Convo{}, err
	}
	return convo, nil
}

func (s *Storage) appendChild(ctx context.Context, parentId, childId domain.ConvoId) error {
	var position int64
	err := s.getInto(ctx, &position, s.sb.
		Select("COALESCE(MAX(position), 0) + 1").
		From("convo_children").
		Where(sq.Eq{"parent_id": parentId}))
	if err != nil {
		return fmt.Errorf("failed to compute child position: %w", err)
	}

	_, err = s.exec(ctx, s.sb.Insert("convo_children").
		Columns("parent_id", "child_id", "position").
		Values(parentId, childId, position))
	if err != nil {
		return fmt.Errorf("failed to push child into parent: %w", err)
	}
	return nil
}

func (s *Storage) GetConvo(ctx context.Context, id domain.ConvoId) (domain.Convo, error) {
	var row convoRow
	err := s.getInto(ctx, &row, s.sb.Select(convoColumns...).From("convos").Where(sq.Eq{"id": id}))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Convo{}, internal_errors.NotFound("convo", id)
		}
		return domain.Convo{}, fmt.Errorf("failed to fetch convo: %w", err)
	}
	return row.toDomain(), nil
}

// ChildrenOf returns every convo whose parent_id is one of parentIds.
func (s *Storage) ChildrenOf(ctx context.Context, parentIds []domain.ConvoId) ([]domain.Convo, error) {
	var children []domain.Convo
	err := dbutil.InChunks(parentIds, func(chunk []domain.ConvoId) error {
		var rows []convoRow
		err := s.selectInto(ctx, &rows, s.sb.
			Select(convoColumns...).
			From("convos").
			Where(sq.Eq{"parent_id": chunk}).
			OrderBy("created_at", "id"))
		if err != nil {
			return fmt.Errorf("failed to fetch child convos: %w", err)
		}
		children = append(children, toDomainConvos(rows)...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return children, nil
}

func (s *Storage) ListTopLevel(ctx context.Context, offset, limit int) ([]domain.Convo, error) {
	var rows []convoRow
	err := s.selectInto(ctx, &rows, s.sb.
		Select(convoColumns...).
		From("convos").
		Where(sq.Eq{"parent_id": nil}).
		OrderBy("created_at DESC", "id DESC").
		Offset(uint64(offset)).
		Limit(uint64(limit)))
	if err != nil {
		return nil, fmt.Errorf("failed to list convos: %w", err)
	}
	return toDomainConvos(rows), nil
}

func (s *Storage) CountTopLevel(ctx context.Context) (int, error) {
	var count int
	err := s.getInto(ctx, &count, s.sb.Select("COUNT(*)").From("convos").Where(sq.Eq{"parent_id": nil}))
	if err != nil {
		return 0, fmt.Errorf("failed to count convos: %w", err)
	}
	return count, nil
}

// ConvosOfUser follows User.convos.
func (s *Storage) ConvosOfUser(ctx context.Context, userId domain.UserId) ([]domain.Convo, error) {
	return s.convosVia(ctx, "user_convos", "user_id", userId)
}

// ConvosOfCommunity follows Community.convos.
func (s *Storage) ConvosOfCommunity(ctx context.Context, communityId domain.CommunityId) ([]domain.Convo, error) {
	return s.convosVia(ctx, "community_convos", "community_id", communityId)
}

func (s *Storage) convosVia(ctx context.Context, linkTable, ownerColumn, ownerId string) ([]domain.Convo, error) {
	columns := make([]string, len(convoColumns))
	for i, c := range convoColumns {
		columns[i] = "c." + c
	}

	var rows []convoRow
	err := s.selectInto(ctx, &rows, s.sb.
		Select(columns...).
		From("convos c").
		Join(fmt.Sprintf("%s l ON l.convo_id = c.id", linkTable)).
		Where(sq.Eq{"l." + ownerColumn: ownerId}).
		OrderBy("c.created_at DESC", "c.id DESC"))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch convos from %s: %w", linkTable, err)
	}
	return toDomainConvos(rows), nil
}

// ConvoIdsOfUser returns the raw User.convos set, including ids that may dangle.
func (s *Storage) ConvoIdsOfUser(ctx context.Context, userId domain.UserId) ([]domain.ConvoId, error) {
	var ids []domain.ConvoId
	err := s.selectInto(ctx, &ids, s.sb.Select("convo_id").From("user_convos").
		Where(sq.Eq{"user_id": userId}).OrderBy("convo_id"))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user convo ids: %w", err)
	}
	return ids, nil
}

// ConvoIdsOfCommunity returns the raw Community.convos set.
func (s *Storage) ConvoIdsOfCommunity(ctx context.Context, communityId domain.CommunityId) ([]domain.ConvoId, error) {
	var ids []domain.ConvoId
	err := s.selectInto(ctx, &ids, s.sb.Select("convo_id").From("community_convos").
		Where(sq.Eq{"community_id": communityId}).OrderBy("convo_id"))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch community convo ids: %w", err)
	}
	return ids, nil
}

// ChildIdsOf returns the raw Convo.children sequence in order.
func (s *Storage) ChildIdsOf(ctx context.Context, parentId domain.ConvoId) ([]domain.ConvoId, error) {
	var ids []domain.ConvoId
	err := s.selectInto(ctx, &ids, s.sb.Select("child_id").From("convo_children").
		Where(sq.Eq{"parent_id": parentId}).OrderBy("position", "child_id"))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch child ids: %w", err)
	}
	return ids, nil
}
