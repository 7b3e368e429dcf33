// Package handler exposes a resource service over HTTP.
//
//	GET    /                list (page, limit, offset, with_deleted)
//	POST   /                create                 201
//	GET    /{id}            fetch active           200 / 404
//	PATCH  /{id}            partial update         200 / 404
//	DELETE /{id}            soft delete            200 / 404
//	POST   /{id}/recover    recover                201 / 404
//
// Path identifiers that do not parse are answered with 404.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"baseresource/internal/platform/middleware"
	"baseresource/internal/resource/models"
	dErrors "baseresource/pkg/domain-errors"
	"baseresource/pkg/platform/httputil"
	"baseresource/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/service-mocks.go -package=mocks Service

// Service is the resource lifecycle the handler drives.
type Service[T any] interface {
	Create(ctx context.Context, entity T) (T, error)
	GetOne(ctx context.Context, id models.ID) (T, error)
	GetMany(ctx context.Context, filter models.Filter, page models.PageRequest) (models.Page[T], error)
	Update(ctx context.Context, id models.ID, patch func(T) error) (T, error)
	Delete(ctx context.Context, id models.ID) (T, error)
	Recover(ctx context.Context, id models.ID) (T, error)
}

// Handler serves one resource kind.
type Handler[E any, T models.EntityPtr[E]] struct {
	service      Service[T]
	logger       *slog.Logger
	name         string
	defaultLimit int
	maxLimit     int
}

// Option configures a Handler.
type Option func(*settings)

type settings struct {
	defaultLimit int
	maxLimit     int
}

// WithLimits sets the page size used when the client sends none and the
// largest page size a client may ask for.
func WithLimits(defaultLimit, maxLimit int) Option {
	return func(s *settings) {
		if defaultLimit > 0 {
			s.defaultLimit = defaultLimit
		}
		if maxLimit > 0 {
			s.maxLimit = maxLimit
		}
	}
}

// New creates a Handler. name is used in log lines and error messages.
func New[E any, T models.EntityPtr[E]](service Service[T], name string, logger *slog.Logger, opts ...Option) *Handler[E, T] {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := settings{defaultLimit: models.DefaultLimit, maxLimit: models.MaxLimit}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &Handler[E, T]{
		service:      service,
		logger:       logger,
		name:         name,
		defaultLimit: cfg.defaultLimit,
		maxLimit:     cfg.maxLimit,
	}
}

// Register adds the resource routes to r. Mount r under the resource path.
// Only the routes that read a body require a JSON Content-Type.
func (h *Handler[E, T]) Register(r chi.Router) {
	r.Get("/", h.handleList)
	r.With(middleware.ContentTypeJSON).Post("/", h.handleCreate)
	r.Get("/{id}", h.handleGet)
	r.With(middleware.ContentTypeJSON).Patch("/{id}", h.handleUpdate)
	r.Delete("/{id}", h.handleDelete)
	r.Post("/{id}/recover", h.handleRecover)
}

func (h *Handler[E, T]) handleList(w http.ResponseWriter, r *http.Request) {
	filter, page, err := h.parseListQuery(r)
	if err != nil {
		h.fail(w, r, "invalid list query", err)
		return
	}
	result, err := h.service.GetMany(r.Context(), filter, page)
	if err != nil {
		h.fail(w, r, "failed to list resources", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler[E, T]) handleCreate(w http.ResponseWriter, r *http.Request) {
	entity := T(new(E))
	if err := httputil.DecodeJSON(r, entity); err != nil {
		h.fail(w, r, "invalid create request", err)
		return
	}
	created, err := h.service.Create(r.Context(), entity)
	if err != nil {
		h.fail(w, r, "failed to create resource", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler[E, T]) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	entity, err := h.service.GetOne(r.Context(), id)
	if err != nil {
		h.fail(w, r, "failed to get resource", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entity)
}

func (h *Handler[E, T]) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	body, err := httputil.ReadBody(r)
	if err != nil {
		h.fail(w, r, "invalid update request", err)
		return
	}
	updated, err := h.service.Update(r.Context(), id, func(entity T) error {
		return httputil.Unmarshal(body, entity)
	})
	if err != nil {
		h.fail(w, r, "failed to update resource", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler[E, T]) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	deleted, err := h.service.Delete(r.Context(), id)
	if err != nil {
		h.fail(w, r, "failed to delete resource", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, deleted)
}

func (h *Handler[E, T]) handleRecover(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	recovered, err := h.service.Recover(r.Context(), id)
	if err != nil {
		h.fail(w, r, "failed to recover resource", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, recovered)
}

// pathID parses the {id} segment. A malformed id cannot name a stored
// resource, so it is answered as not found.
func (h *Handler[E, T]) pathID(w http.ResponseWriter, r *http.Request) (models.ID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := models.ParseID(raw)
	if err != nil {
		h.logger.WarnContext(r.Context(), "unparsable resource id",
			"request_id", requestcontext.RequestID(r.Context()),
			"resource", h.name,
			"id", raw,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, h.name+" not found"))
		return 0, false
	}
	return id, true
}

func (h *Handler[E, T]) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	attrs := []any{
		"request_id", requestcontext.RequestID(r.Context()),
		"resource", h.name,
		"error", err.Error(),
	}
	if httputil.StatusFor(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), msg, attrs...)
	} else {
		h.logger.WarnContext(r.Context(), msg, attrs...)
	}
	httputil.WriteError(w, err)
}

// parseListQuery reads page, limit, offset and with_deleted. offset wins
// over page when both are present.
func (h *Handler[E, T]) parseListQuery(r *http.Request) (models.Filter, models.PageRequest, error) {
	q := r.URL.Query()

	page, err := nonNegativeInt(q.Get("page"), "page")
	if err != nil {
		return models.Filter{}, models.PageRequest{}, err
	}
	limit, err := nonNegativeInt(q.Get("limit"), "limit")
	if err != nil {
		return models.Filter{}, models.PageRequest{}, err
	}
	req := models.PageRequest{Limit: limit}.Normalize(h.defaultLimit, h.maxLimit)
	if raw := q.Get("offset"); raw != "" {
		offset, err := nonNegativeInt(raw, "offset")
		if err != nil {
			return models.Filter{}, models.PageRequest{}, err
		}
		if offset > models.MaxOffset {
			return models.Filter{}, models.PageRequest{}, dErrors.New(dErrors.CodeBadRequest, "offset is out of range")
		}
		req.Offset = offset
	} else {
		if !req.PageInRange(page) {
			return models.Filter{}, models.PageRequest{}, dErrors.New(dErrors.CodeBadRequest, "page is out of range")
		}
		req = req.At(page)
	}

	var filter models.Filter
	if raw := q.Get("with_deleted"); raw != "" {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			return models.Filter{}, models.PageRequest{}, dErrors.New(dErrors.CodeBadRequest, "with_deleted must be a boolean")
		}
		filter.IncludeDeleted = include
	}
	return filter, req, nil
}

func nonNegativeInt(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, name+" must be a non-negative integer")
	}
	return n, nil
}
