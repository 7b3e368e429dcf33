// Package redis persists resources in Redis hashes indexed by sorted sets.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"baseresource/internal/resource/models"
	"baseresource/pkg/platform/sentinel"
	"baseresource/pkg/requestcontext"
)

// Store is a Redis-backed resource store.
type Store[E any, T models.EntityPtr[E]] struct {
	client *redis.Client
	prefix string
}

// New constructs a store keeping resources of one kind under keys prefixed
// with "{name}".
func New[E any, T models.EntityPtr[E]](client *redis.Client, name string) (*Store[E, T], error) {
	if client == nil {
		return nil, fmt.Errorf("redis store: client is required")
	}
	if name == "" {
		return nil, fmt.Errorf("redis store: name is required")
	}
	return &Store[E, T]{client: client, prefix: "{" + name + "}:"}, nil
}

func (s *Store[E, T]) key(parts ...string) string {
	k := s.prefix
	for i, p := range parts {
		if i > 0 {
			k += ":"
		}
		k += p
	}
	return k
}

func (s *Store[E, T]) rowKey(id models.ID) string {
	return s.key("row", id.String())
}

func (s *Store[E, T]) Create(ctx context.Context, entity T) (T, error) {
	if entity == nil {
		return nil, fmt.Errorf("create: %w", sentinel.ErrInvalidInput)
	}
	data, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("create: encode: %w", err)
	}
	res, err := createScript.Run(ctx, s.client,
		[]string{s.key("seq"), s.key("active"), s.key("all")},
		s.key("row")+":", data, formatTime(requestcontext.Now(ctx)),
	).Slice()
	if err != nil {
		return nil, classify("create", err)
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("create: unexpected reply length %d", len(res))
	}
	id, ok := res[0].(int64)
	if !ok {
		return nil, fmt.Errorf("create: unexpected id %v", res[0])
	}
	return decode[E, T](models.ID(id), res[1])
}

func (s *Store[E, T]) FindByID(ctx context.Context, id models.ID, includeDeleted bool) (T, error) {
	fields, err := s.client.HGetAll(ctx, s.rowKey(id)).Result()
	if err != nil {
		return nil, classify("find", err)
	}
	if len(fields) == 0 {
		return nil, sentinel.ErrNotFound
	}
	entity, err := fromFields[E, T](id, fields)
	if err != nil {
		return nil, err
	}
	if !includeDeleted && entity.Meta().IsDeleted() {
		return nil, sentinel.ErrNotFound
	}
	return entity, nil
}

func (s *Store[E, T]) FindMany(ctx context.Context, filter models.Filter, page models.PageRequest) ([]T, int, error) {
	index := s.key("active")
	if filter.IncludeDeleted {
		index = s.key("all")
	}
	start, stop := window(page)
	res, err := listScript.Run(ctx, s.client, []string{index}, s.key("row")+":", start, stop).Slice()
	if err != nil {
		return nil, 0, classify("list", err)
	}
	if len(res) == 0 || len(res)%2 != 1 {
		return nil, 0, fmt.Errorf("list: unexpected reply length %d", len(res))
	}
	total, ok := res[0].(int64)
	if !ok {
		return nil, 0, fmt.Errorf("list: unexpected total %v", res[0])
	}

	items := make([]T, 0, len(res)/2)
	for i := 1; i < len(res); i += 2 {
		raw, _ := res[i].(string)
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, 0, fmt.Errorf("list: invalid id %q: %w", raw, err)
		}
		entity, err := decode[E, T](models.ID(id), res[i+1])
		if err != nil {
			return nil, 0, err
		}
		items = append(items, entity)
	}
	return items, int(total), nil
}

func (s *Store[E, T]) Update(ctx context.Context, id models.ID, entity T) (T, error) {
	if entity == nil {
		return nil, fmt.Errorf("update: %w", sentinel.ErrInvalidInput)
	}
	data, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("update: encode: %w", err)
	}
	res, err := updateScript.Run(ctx, s.client, []string{s.rowKey(id)}, data, formatTime(requestcontext.Now(ctx))).Result()
	if err != nil {
		return nil, classify("update", err)
	}
	return decode[E, T](id, res)
}

func (s *Store[E, T]) SoftDelete(ctx context.Context, id models.ID) (T, error) {
	res, err := softDeleteScript.Run(ctx, s.client,
		[]string{s.rowKey(id), s.key("active")},
		formatTime(requestcontext.Now(ctx)), id.String(),
	).Result()
	if err != nil {
		return nil, classify("soft delete", err)
	}
	return decode[E, T](id, res)
}

func (s *Store[E, T]) Restore(ctx context.Context, id models.ID) (T, bool, error) {
	res, err := restoreScript.Run(ctx, s.client, []string{s.rowKey(id), s.key("active")}, id.String()).Slice()
	if err != nil {
		return nil, false, classify("restore", err)
	}
	if len(res) != 2 {
		return nil, false, fmt.Errorf("restore: unexpected reply length %d", len(res))
	}
	changed, ok := res[0].(int64)
	if !ok {
		return nil, false, fmt.Errorf("restore: unexpected flag %v", res[0])
	}
	entity, err := decode[E, T](id, res[1])
	if err != nil {
		return nil, false, err
	}
	return entity, changed == 1, nil
}

// window turns an offset/limit page into inclusive ZRANGE bounds. A zero
// limit reads to the end of the index.
func window(page models.PageRequest) (start, stop string) {
	start = strconv.Itoa(page.Offset)
	if page.Limit <= 0 {
		return start, "-1"
	}
	return start, strconv.Itoa(page.Offset + page.Limit - 1)
}

// decode turns an HGETALL reply (a flat key/value list) into an entity.
func decode[E any, T models.EntityPtr[E]](id models.ID, reply any) (T, error) {
	flat, ok := reply.([]any)
	if !ok || len(flat)%2 != 0 {
		return nil, fmt.Errorf("decode %d: unexpected reply %T", id, reply)
	}
	fields := make(map[string]string, len(flat)/2)
	for i := 0; i < len(flat); i += 2 {
		k, _ := flat[i].(string)
		v, _ := flat[i+1].(string)
		fields[k] = v
	}
	return fromFields[E, T](id, fields)
}

func fromFields[E any, T models.EntityPtr[E]](id models.ID, fields map[string]string) (T, error) {
	entity := T(new(E))
	if err := json.Unmarshal([]byte(fields["data"]), entity); err != nil {
		return nil, fmt.Errorf("decode %d: %w", id, err)
	}

	meta := models.Model{ID: id}
	var err error
	if meta.CreatedAt, err = parseTime(fields["created_at"]); err != nil {
		return nil, fmt.Errorf("decode %d: created_at: %w", id, err)
	}
	if meta.UpdatedAt, err = parseTime(fields["updated_at"]); err != nil {
		return nil, fmt.Errorf("decode %d: updated_at: %w", id, err)
	}
	if raw := fields["deleted_at"]; raw != "" {
		at, err := parseTime(raw)
		if err != nil {
			return nil, fmt.Errorf("decode %d: deleted_at: %w", id, err)
		}
		meta.DeletedAt = &at
	}
	*entity.Meta() = meta
	return entity, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func classify(op string, err error) error {
	if errors.Is(err, redis.Nil) {
		return sentinel.ErrNotFound
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, sentinel.ErrUnavailable, err)
}
