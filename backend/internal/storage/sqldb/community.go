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

var communityColumns = []string{"id", "slug", "name", "image", "bio", "created_by", "created_at"}

type communityRow struct {
	Id        string    `db:"id"`
	Slug      string    `db:"slug"`
	Name      string    `db:"name"`
	Image     string    `db:"image"`
	Bio       string    `db:"bio"`
	CreatedBy string    `db:"created_by"`
	CreatedAt time.Time `db:"created_at"`
}

func (r communityRow) toDomain() domain.Community {
	return domain.Community{
		Id:        r.Id,
		Slug:      r.Slug,
		Name:      r.Name,
		Image:     r.Image,
		Bio:       r.Bio,
		CreatedBy: r.CreatedBy,
		CreatedAt: r.CreatedAt,
	}
}

func (s *Storage) CreateCommunity(ctx context.Context, data domain.CommunityCreationData) (domain.Community, error) {
	community := domain.Community{
		Id:        uuid.NewString(),
		Slug:      data.Slug,
		Name:      data.Name,
		Image:     data.Image,
		Bio:       data.Bio,
		CreatedBy: data.CreatedBy,
		CreatedAt: s.now(),
	}
	_, err := s.exec(ctx, s.sb.Insert("communities").
		Columns(communityColumns...).
		Values(community.Id, community.Slug, community.Name, community.Image, community.Bio, community.CreatedBy, community.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Community{}, &internal_errors.ConflictError{Message: fmt.Sprintf("community %s already exists", data.Slug)}
		}
		return domain.Community{}, fmt.Errorf("failed to insert community: %w", err)
	}
	return community, nil
}

func (s *Storage) GetCommunity(ctx context.Context, id domain.CommunityId) (domain.Community, error) {
	var row communityRow
	err := s.getInto(ctx, &row, s.sb.Select(communityColumns...).From("communities").Where(sq.Eq{"id": id}))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Community{}, internal_errors.NotFound("community", id)
		}
		return domain.Community{}, fmt.Errorf("failed to fetch community: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Storage) communitiesByIds(ctx context.Context, ids []domain.CommunityId) (map[domain.CommunityId]domain.Community, error) {
	communities := make(map[domain.CommunityId]domain.Community, len(ids))
	err := dbutil.InChunks(ids, func(chunk []domain.CommunityId) error {
		var rows []communityRow
		if err := s.selectInto(ctx, &rows, s.sb.Select(communityColumns...).From("communities").Where(sq.Eq{"id": chunk})); err != nil {
			return fmt.Errorf("failed to fetch communities: %w", err)
		}
		for _, r := range rows {
			communities[r.Id] = r.toDomain()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return communities, nil
}
