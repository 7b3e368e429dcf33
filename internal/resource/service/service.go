// Package service implements the resource lifecycle on top of a Repository:
// reads that hide soft-deleted rows, soft delete, recover, create and update.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"baseresource/internal/resource/events"
	"baseresource/internal/resource/metrics"
	"baseresource/internal/resource/models"
	dErrors "baseresource/pkg/domain-errors"
	"baseresource/pkg/platform/sentinel"
)

// Repository is the storage contract. SoftDelete succeeds only on active
// rows; Restore finds deleted rows too and fails only for unknown ids, and
// reports whether this call moved the row from deleted to active. Update
// succeeds only on active rows. Misses are reported as sentinel.ErrNotFound.
type Repository[T any] interface {
	Create(ctx context.Context, entity T) (T, error)
	FindByID(ctx context.Context, id models.ID, includeDeleted bool) (T, error)
	FindMany(ctx context.Context, filter models.Filter, page models.PageRequest) ([]T, int, error)
	Update(ctx context.Context, id models.ID, entity T) (T, error)
	SoftDelete(ctx context.Context, id models.ID) (T, error)
	Restore(ctx context.Context, id models.ID) (T, bool, error)
}

// Service orchestrates one resource kind.
type Service[E any, T models.EntityPtr[E]] struct {
	name      string
	repo      Repository[T]
	logger    *slog.Logger
	metrics   *metrics.Metrics
	publisher events.Publisher
	tracer    trace.Tracer
	maxLimit  int
}

type options struct {
	logger    *slog.Logger
	metrics   *metrics.Metrics
	publisher events.Publisher
	tracer    trace.Tracer
	maxLimit  int
}

type Option func(*options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

func WithPublisher(p events.Publisher) Option {
	return func(o *options) {
		o.publisher = p
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		o.tracer = t
	}
}

// WithMaxLimit caps the page size GetMany will serve.
func WithMaxLimit(n int) Option {
	return func(o *options) {
		o.maxLimit = n
	}
}

// New constructs a Service for the resource called name.
func New[E any, T models.EntityPtr[E]](name string, repo Repository[T], opts ...Option) (*Service[E, T], error) {
	if name == "" {
		return nil, errors.New("resource name is required")
	}
	if repo == nil {
		return nil, errors.New("repository is required")
	}
	o := options{maxLimit: models.MaxLimit}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer("baseresource/resource")
	}
	return &Service[E, T]{
		name:      name,
		repo:      repo,
		logger:    o.logger,
		metrics:   o.metrics,
		publisher: o.publisher,
		tracer:    o.tracer,
		maxLimit:  o.maxLimit,
	}, nil
}

// Name returns the resource name the service was built for.
func (s *Service[E, T]) Name() string {
	return s.name
}

// Create stores a new entity. Identity and lifecycle fields supplied by the
// caller are discarded.
func (s *Service[E, T]) Create(ctx context.Context, entity T) (_ T, err error) {
	ctx, done := s.begin(ctx, "create", 0)
	defer func() { done(err) }()

	if entity == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	*entity.Meta() = models.Model{}
	if err := validate(entity); err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, entity)
	if err != nil {
		return nil, s.translate(err, "failed to create "+s.name)
	}
	s.applied(ctx, events.TypeCreated, created.Meta().ID)
	return created, nil
}

// GetOne returns an active entity. Soft-deleted and unknown ids are NotFound.
func (s *Service[E, T]) GetOne(ctx context.Context, id models.ID) (_ T, err error) {
	ctx, done := s.begin(ctx, "get_one", id)
	defer func() { done(err) }()

	if err := s.requireID(id); err != nil {
		return nil, err
	}
	entity, err := s.repo.FindByID(ctx, id, false)
	if err != nil {
		return nil, s.translate(err, "failed to load "+s.name)
	}
	return entity, nil
}

// GetMany lists entities ordered by id. Soft-deleted rows appear only when
// filter.IncludeDeleted is set.
func (s *Service[E, T]) GetMany(ctx context.Context, filter models.Filter, page models.PageRequest) (_ models.Page[T], err error) {
	ctx, done := s.begin(ctx, "get_many", 0)
	defer func() { done(err) }()

	page = page.Normalize(models.DefaultLimit, s.maxLimit)
	items, total, err := s.repo.FindMany(ctx, filter, page)
	if err != nil {
		return models.Page[T]{}, s.translate(err, "failed to list "+s.name)
	}
	return models.NewPage(items, total, page), nil
}

// Update loads the active entity, lets patch modify it, and stores the result.
// patch cannot change identity or lifecycle fields.
func (s *Service[E, T]) Update(ctx context.Context, id models.ID, patch func(T) error) (_ T, err error) {
	ctx, done := s.begin(ctx, "update", id)
	defer func() { done(err) }()

	if err := s.requireID(id); err != nil {
		return nil, err
	}
	current, err := s.repo.FindByID(ctx, id, false)
	if err != nil {
		return nil, s.translate(err, "failed to load "+s.name)
	}

	meta := *current.Meta()
	if patch != nil {
		if err := patch(current); err != nil {
			if _, ok := dErrors.As(err); ok {
				return nil, err
			}
			return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid update")
		}
	}
	*current.Meta() = meta
	if err := validate(current); err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, id, current)
	if err != nil {
		return nil, s.translate(err, "failed to update "+s.name)
	}
	s.applied(ctx, events.TypeUpdated, id)
	return updated, nil
}

// Delete soft-deletes an active entity. Deleting an already deleted or
// unknown entity is NotFound.
func (s *Service[E, T]) Delete(ctx context.Context, id models.ID) (_ T, err error) {
	ctx, done := s.begin(ctx, "delete", id)
	defer func() { done(err) }()

	if err := s.requireID(id); err != nil {
		return nil, err
	}
	deleted, err := s.repo.SoftDelete(ctx, id)
	if err != nil {
		return nil, s.translate(err, "failed to delete "+s.name)
	}
	s.applied(ctx, events.TypeDeleted, id)
	return deleted, nil
}

// Recover makes an entity active again. Recovering an active entity returns
// it unchanged; only unknown ids are NotFound.
func (s *Service[E, T]) Recover(ctx context.Context, id models.ID) (_ T, err error) {
	ctx, done := s.begin(ctx, "recover", id)
	defer func() { done(err) }()

	if err := s.requireID(id); err != nil {
		return nil, err
	}
	restored, changed, err := s.repo.Restore(ctx, id)
	if err != nil {
		return nil, s.translate(err, "failed to recover "+s.name)
	}
	if changed {
		s.applied(ctx, events.TypeRecovered, id)
	}
	return restored, nil
}

// requireID rejects ids storage could never have assigned. They are reported
// as NotFound, the same answer an unknown id gets.
func (s *Service[E, T]) requireID(id models.ID) error {
	if !id.IsValid() {
		return dErrors.New(dErrors.CodeNotFound, s.name+" not found")
	}
	return nil
}

// translate maps storage sentinels to domain errors.
func (s *Service[E, T]) translate(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, s.name+" not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, s.name+" conflicts with an existing record")
	case errors.Is(err, sentinel.ErrInvalidInput):
		return dErrors.Wrap(err, dErrors.CodeValidation, s.name+" was rejected by storage")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "storage unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "request timed out")
	}
	if _, ok := dErrors.As(err); ok {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func validate(entity any) error {
	v, ok := entity.(models.Validator)
	if !ok {
		return nil
	}
	if fields := v.Validate(); len(fields) > 0 {
		return dErrors.Validation("invalid request", fields)
	}
	return nil
}

// begin opens a span and returns a func that records the outcome.
func (s *Service[E, T]) begin(ctx context.Context, op string, id models.ID) (context.Context, func(error)) {
	start := time.Now()
	attrs := []attribute.KeyValue{attribute.String("resource.name", s.name)}
	if id != 0 {
		attrs = append(attrs, attribute.Int64("resource.id", int64(id)))
	}
	ctx, span := s.tracer.Start(ctx, s.name+"."+op, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
			if dErrors.CodeOf(err) == dErrors.CodeInternal {
				s.logger.ErrorContext(ctx, "resource operation failed",
					"resource", s.name, "operation", op, "error", err)
			}
		}
		span.End()
		s.metrics.ObserveOperation(s.name, op, start, err)
	}
}

// applied logs, counts and publishes a completed transition. Publish failures
// are logged and counted only.
func (s *Service[E, T]) applied(ctx context.Context, typ events.Type, id models.ID) {
	s.logger.InfoContext(ctx, "resource "+string(typ),
		"resource", s.name, "id", id.String(), "event", string(typ))
	s.metrics.IncrementTransition(s.name, string(typ))

	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events.New(ctx, typ, s.name, id)); err != nil {
		s.logger.WarnContext(ctx, "failed to publish resource event",
			"resource", s.name, "id", id.String(), "event", string(typ), "error", err)
		s.metrics.IncrementPublishFailure(s.name)
	}
}
