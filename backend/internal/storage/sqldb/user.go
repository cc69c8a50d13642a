package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/threadline-dev/threadline/shared/domain"
	internal_errors "github.com/threadline-dev/threadline/shared/errors"
	"github.com/threadline-dev/threadline/shared/storage/dbutil"
)

var userColumns = []string{"id", "username", "name", "image", "bio", "onboarded", "created_at"}

type userRow struct {
	Id        string    `db:"id"`
	Username  string    `db:"username"`
	Name      string    `db:"name"`
	Image     string    `db:"image"`
	Bio       string    `db:"bio"`
	Onboarded bool      `db:"onboarded"`
	CreatedAt time.Time `db:"created_at"`
}

func (r userRow) toDomain() domain.User {
	return domain.User{
		Id:        r.Id,
		Username:  r.Username,
		Name:      r.Name,
		Image:     r.Image,
		Bio:       r.Bio,
		Onboarded: r.Onboarded,
		CreatedAt: r.CreatedAt,
	}
}

// UpsertUser stores the profile and marks the user onboarded. created_at is kept on update.
func (s *Storage) UpsertUser(ctx context.Context, data domain.UserProfileData) (domain.User, error) {
	_, err := s.exec(ctx, s.sb.Insert("users").
		Columns(userColumns...).
		Values(data.Id, data.Username, data.Name, data.Image, data.Bio, true, s.now()).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
            username = EXCLUDED.username,
            name = EXCLUDED.name,
            image = EXCLUDED.image,
            bio = EXCLUDED.bio,
            onboarded = EXCLUDED.onboarded`))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.User{}, &internal_errors.ConflictError{Message: fmt.Sprintf("username %s is taken", data.Username)}
		}
		return domain.User{}, fmt.Errorf("failed to upsert user: %w", err)
	}
	return s.GetUser(ctx, data.Id)
}

func (s *Storage) GetUser(ctx context.Context, id domain.UserId) (domain.User, error) {
	var row userRow
	err := s.getInto(ctx, &row, s.sb.Select(userColumns...).From("users").Where(sq.Eq{"id": id}))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, internal_errors.NotFound("user", id)
		}
		return domain.User{}, fmt.Errorf("failed to fetch user: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Storage) usersByIds(ctx context.Context, ids []domain.UserId) (map[domain.UserId]domain.User, error) {
	users := make(map[domain.UserId]domain.User, len(ids))
	err := dbutil.InChunks(ids, func(chunk []domain.UserId) error {
		var rows []userRow
		if err := s.selectInto(ctx, &rows, s.sb.Select(userColumns...).From("users").Where(sq.Eq{"id": chunk})); err != nil {
			return fmt.Errorf("failed to fetch users: %w", err)
		}
		for _, r := range rows {
			users[r.Id] = r.toDomain()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}
