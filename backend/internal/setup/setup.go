package setup

import (
	"context"
	"errors"

	"github.com/threadline-dev/threadline/backend/internal/handler"
	"github.com/threadline-dev/threadline/backend/internal/service"
	"github.com/threadline-dev/threadline/backend/internal/storage/sqldb"
	"github.com/threadline-dev/threadline/backend/internal/utils"
	"github.com/threadline-dev/threadline/backend/internal/viewcache"
	"github.com/threadline-dev/threadline/shared/config"
	"github.com/threadline-dev/threadline/shared/jwt"
	"github.com/threadline-dev/threadline/shared/markdown"
	mw "github.com/threadline-dev/threadline/shared/middleware"
)

// Dependencies struct to hold all initialized dependencies.
type Dependencies struct {
	Config         *config.Config
	Storage        *sqldb.Storage
	ViewCache      *viewcache.Cache // nil when disabled
	Deleter        *service.Deleter
	Repairer       *service.Repairer
	Handler        *handler.Handler
	AuthMiddleware *mw.Auth
	Jwt            jwt.JwtService
}

// SetupDependencies initializes all dependencies required for the application.
func SetupDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	storage, err := sqldb.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return build(cfg, storage)
}

func build(cfg *config.Config, storage *sqldb.Storage) (*Dependencies, error) {
	deps := &Dependencies{Config: cfg, Storage: storage}

	var invalidator service.Invalidator
	if cfg.Public.ViewCache.Enabled {
		cache, err := viewcache.Open(cfg.Public.ViewCache)
		if err != nil {
			storage.Cleanup()
			return nil, err
		}
		deps.ViewCache = cache
		invalidator = cache
	}

	renderer := markdown.New()
	deps.Deleter = service.NewDeleter(storage, invalidator)
	deps.Repairer = service.NewRepairer(storage, deps.Deleter)

	convo := service.NewConvo(storage, &utils.ConvoTextValidator{MaxLength: cfg.Public.MaxConvoLength},
		deps.Deleter, invalidator, renderer, cfg.Public.MaxPageSize)
	user := service.NewUser(storage, &utils.ProfileValidator{}, invalidator, renderer)
	community := service.NewCommunity(storage, &utils.CommunityValidator{}, renderer)

	deps.Handler = handler.New(convo, user, community, cfg, storage)
	deps.Jwt = jwt.New(cfg.JwtKey(), cfg.JwtTTL())
	deps.AuthMiddleware = mw.NewAuth(deps.Jwt)

	return deps, nil
}

// Close releases the view cache and the database connection.
func (d *Dependencies) Close() error {
	var errs []error
	if d.ViewCache != nil {
		errs = append(errs, d.ViewCache.Close())
	}
	errs = append(errs, d.Storage.Cleanup())
	return errors.Join(errs...)
}
