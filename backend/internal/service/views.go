package service

import (
	"context"
	"strings"

	"github.com/threadline-dev/threadline/shared/domain"
	"github.com/threadline-dev/threadline/shared/logger"
)

// Invalidator drops cached views whose key starts with one of the prefixes.
type Invalidator interface {
	Invalidate(ctx context.Context, prefixes ...string) error
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(context.Context, ...string) error { return nil }

// TextRenderer turns convo text into HTML.
type TextRenderer interface {
	Render(text string) string
}

const (
	ConvosViewPrefix      = "/v1/convos"
	UsersViewPrefix       = "/v1/users/"
	CommunitiesViewPrefix = "/v1/communities/"
)

// affectedViews lists cache prefixes touched by a change to convo. Timelines embed
// reply counts of nested convos, so a change below top level drops all of them.
func affectedViews(path string, convo domain.Convo, authors []domain.UserId, communities []domain.CommunityId) []string {
	prefixes := []string{ConvosViewPrefix}
	if hint := viewHint(path); hint != "" {
		prefixes = append(prefixes, hint)
	}
	if !convo.IsTopLevel() {
		return append(prefixes, UsersViewPrefix, CommunitiesViewPrefix)
	}
	for _, a := range authors {
		prefixes = append(prefixes, UsersViewPrefix+a)
	}
	for _, c := range communities {
		prefixes = append(prefixes, CommunitiesViewPrefix+c)
	}
	return prefixes
}

// viewHint returns path when it names a view under the API prefixes. A bare users or
// communities prefix would drop every profile, so it is ignored like any other path.
func viewHint(path string) string {
	switch {
	case path == "":
		return ""
	case strings.HasPrefix(path, ConvosViewPrefix):
		return path
	case strings.HasPrefix(path, UsersViewPrefix) && len(path) > len(UsersViewPrefix):
		return path
	case strings.HasPrefix(path, CommunitiesViewPrefix) && len(path) > len(CommunitiesViewPrefix):
		return path
	}
	logger.Log.Debug("ignoring view path hint", "path", path)
	return ""
}

func invalidate(ctx context.Context, inv Invalidator, prefixes []string) {
	if err := inv.Invalidate(ctx, prefixes...); err != nil {
		logger.Log.Warn("failed to invalidate cached views", "prefixes", prefixes, "error", err)
	}
}

func renderViews(r TextRenderer, views []*domain.ConvoView) {
	if r == nil {
		return
	}
	for _, v := range views {
		v.TextHTML = r.Render(v.Text)
		renderViews(r, v.Children)
	}
}
