package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/threadline-dev/threadline/shared/domain"
	internal_errors "github.com/threadline-dev/threadline/shared/errors"
	"github.com/threadline-dev/threadline/shared/logger"
)

// ConvoDeleter removes a convo together with every reply below it.
type ConvoDeleter interface {
	Delete(ctx context.Context, id domain.ConvoId, pathHint string) (domain.DeletionReport, error)
}

type DeletionStorage interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetConvo(ctx context.Context, id domain.ConvoId) (domain.Convo, error)
	ChildrenOf(ctx context.Context, parentIds []domain.ConvoId) ([]domain.Convo, error)
	DeleteConvos(ctx context.Context, ids []domain.ConvoId) (int64, error)
	PullUserConvos(ctx context.Context, userIds []domain.UserId, convoIds []domain.ConvoId) (int64, error)
	PullCommunityConvos(ctx context.Context, communityIds []domain.CommunityId, convoIds []domain.ConvoId) (int64, error)
	PullChildren(ctx context.Context, ids []domain.ConvoId) (int64, error)
}

// Deleter is the cascading delete. Descendants are found through parent ids, never
// through the children sequence, so a drifted children cache cannot hide a subtree.
type Deleter struct {
	storage     DeletionStorage
	invalidator Invalidator
	tracer      trace.Tracer
}

func NewDeleter(storage DeletionStorage, invalidator Invalidator) *Deleter {
	if invalidator == nil {
		invalidator = noopInvalidator{}
	}
	return &Deleter{
		storage:     storage,
		invalidator: invalidator,
		tracer:      otel.Tracer("threadline/deletion"),
	}
}

// Delete removes the convo, its descendants and every back-reference to them.
// A missing convo yields a NotFoundError and nothing is changed. Any other failure is a
// DeletionFailedError naming the step; mutations run in one transaction, so a failed
// call leaves the store as it was and can simply be repeated.
func (d *Deleter) Delete(ctx context.Context, id domain.ConvoId, pathHint string) (domain.DeletionReport, error) {
	start := time.Now()
	ctx, span := d.tracer.Start(ctx, "convo.delete", trace.WithAttributes(attribute.String("convo.id", id)))
	defer span.End()

	report, err := d.delete(ctx, id, pathHint)
	switch {
	case err == nil:
		deletionsTotal.WithLabelValues("ok").Inc()
		deletionClosureSize.Observe(float64(len(report.Closure)))
		span.SetAttributes(attribute.Int("convo.closure_size", len(report.Closure)))
		logger.Log.Info("convo deleted",
			"convo_id", id,
			"closure", len(report.Closure),
			"authors", len(report.Authors),
			"communities", len(report.Communities))
	case errors.Is(err, internal_errors.ErrNotFound):
		deletionsTotal.WithLabelValues("not_found").Inc()
		span.SetStatus(codes.Error, "not found")
	default:
		deletionsTotal.WithLabelValues("failed").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Log.Error("convo deletion failed", "convo_id", id, "error", err)
	}
	deletionDuration.Observe(time.Since(start).Seconds())
	return report, err
}

func (d *Deleter) delete(ctx context.Context, id domain.ConvoId, pathHint string) (domain.DeletionReport, error) {
	target, err := d.load(ctx, id)
	if err != nil {
		return domain.DeletionReport{}, err
	}

	closure, err := d.discover(ctx, target)
	if err != nil {
		return domain.DeletionReport{}, &internal_errors.DeletionFailedError{ConvoId: id, Step: internal_errors.StepDiscover, Err: err}
	}

	report := domain.DeletionReport{
		ConvoId:     id,
		Closure:     make([]domain.ConvoId, 0, len(closure)),
		Authors:     distinct(closure, func(c domain.Convo) string { return c.AuthorId }),
		Communities: distinct(closure, func(c domain.Convo) string { return c.CommunityId }),
	}
	for _, c := range closure {
		report.Closure = append(report.Closure, c.Id)
	}

	if err := d.apply(ctx, report); err != nil {
		return domain.DeletionReport{}, err
	}

	invalidate(ctx, d.invalidator, affectedViews(pathHint, target, report.Authors, report.Communities))
	return report, nil
}

func (d *Deleter) load(ctx context.Context, id domain.ConvoId) (domain.Convo, error) {
	ctx, span := d.tracer.Start(ctx, "convo.delete.load")
	defer span.End()

	target, err := d.storage.GetConvo(ctx, id)
	if err != nil {
		if errors.Is(err, internal_errors.ErrNotFound) {
			return domain.Convo{}, err
		}
		return domain.Convo{}, &internal_errors.DeletionFailedError{ConvoId: id, Step: internal_errors.StepLoad, Err: err}
	}
	return target, nil
}

// discover walks the reply forest level by level starting at root. The seen set keeps
// the walk finite even if parent ids were corrupted into a cycle.
func (d *Deleter) discover(ctx context.Context, root domain.Convo) ([]domain.Convo, error) {
	ctx, span := d.tracer.Start(ctx, "convo.delete.discover")
	defer span.End()

	closure := []domain.Convo{root}
	seen := map[domain.ConvoId]struct{}{root.Id: {}}
	frontier := []domain.ConvoId{root.Id}
	levels := 0

	for len(frontier) > 0 {
		children, err := d.storage.ChildrenOf(ctx, frontier)
		if err != nil {
			return nil, err
		}
		levels++

		var next []domain.ConvoId
		for _, c := range children {
			if _, ok := seen[c.Id]; ok {
				continue
			}
			seen[c.Id] = struct{}{}
			closure = append(closure, c)
			next = append(next, c.Id)
		}
		frontier = next
	}

	span.SetAttributes(attribute.Int("convo.levels", levels))
	return closure, nil
}

func (d *Deleter) apply(ctx context.Context, report domain.DeletionReport) error {
	ctx, span := d.tracer.Start(ctx, "convo.delete.apply")
	defer span.End()

	failed := func(step string, err error) error {
		return &internal_errors.DeletionFailedError{ConvoId: report.ConvoId, Step: step, Err: err}
	}

	err := d.storage.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := d.storage.DeleteConvos(ctx, report.Closure); err != nil {
			return failed(internal_errors.StepDelete, err)
		}
		if len(report.Authors) > 0 {
			if _, err := d.storage.PullUserConvos(ctx, report.Authors, report.Closure); err != nil {
				return failed(internal_errors.StepRepairAuthors, err)
			}
		}
		if len(report.Communities) > 0 {
			if _, err := d.storage.PullCommunityConvos(ctx, report.Communities, report.Closure); err != nil {
				return failed(internal_errors.StepRepairCommunities, err)
			}
		}
		if _, err := d.storage.PullChildren(ctx, report.Closure); err != nil {
			return failed(internal_errors.StepRepairChildren, err)
		}
		return nil
	})
	if err != nil {
		var deletionErr *internal_errors.DeletionFailedError
		if errors.As(err, &deletionErr) {
			return err
		}
		return failed(internal_errors.StepCommit, err)
	}
	return nil
}

// distinct returns the sorted set of non-empty keys.
func distinct(convos []domain.Convo, key func(domain.Convo) string) []string {
	set := make(map[string]struct{})
	for _, c := range convos {
		if k := key(c); k != "" {
			set[k] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
