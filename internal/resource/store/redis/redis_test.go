package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"baseresource/internal/resource/models"
	"baseresource/pkg/platform/sentinel"
)

type gadget struct {
	models.Model
	Name string `json:"name"`
}

func TestDecode(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 600, time.UTC)

	t.Run("active row", func(t *testing.T) {
		reply := []any{
			"data", `{"id":999,"name":"name1"}`,
			"created_at", formatTime(created),
			"updated_at", formatTime(created),
			"deleted_at", "",
		}
		g, err := decode[gadget](7, reply)
		require.NoError(t, err)
		assert.Equal(t, models.ID(7), g.ID, "id comes from the key, not the payload")
		assert.Equal(t, "name1", g.Name)
		assert.True(t, g.CreatedAt.Equal(created))
		assert.Nil(t, g.DeletedAt)
	})

	t.Run("deleted row", func(t *testing.T) {
		deleted := created.Add(time.Hour)
		g, err := fromFields[gadget](3, map[string]string{
			"data":       `{"name":"name2"}`,
			"created_at": formatTime(created),
			"updated_at": formatTime(created),
			"deleted_at": formatTime(deleted),
		})
		require.NoError(t, err)
		require.NotNil(t, g.DeletedAt)
		assert.True(t, g.DeletedAt.Equal(deleted))
	})

	t.Run("malformed replies", func(t *testing.T) {
		_, err := decode[gadget](1, "not a list")
		assert.Error(t, err)
		_, err = decode[gadget](1, []any{"data"})
		assert.Error(t, err)
		_, err = fromFields[gadget](1, map[string]string{"data": "{", "created_at": formatTime(created)})
		assert.Error(t, err)
		_, err = fromFields[gadget](1, map[string]string{"data": "{}", "created_at": "yesterday"})
		assert.Error(t, err)
	})
}

func TestFormatTimeIsUTC(t *testing.T) {
	local := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 3600))
	parsed, err := parseTime(formatTime(local))
	require.NoError(t, err)
	assert.Equal(t, time.UTC, parsed.Location())
	assert.True(t, parsed.Equal(local))
}

func TestClassify(t *testing.T) {
	assert.ErrorIs(t, classify("find", redis.Nil), sentinel.ErrNotFound)
	assert.ErrorIs(t, classify("find", errors.New("connection refused")), sentinel.ErrUnavailable)

	cancelled := classify("find", context.Canceled)
	assert.ErrorIs(t, cancelled, context.Canceled)
	assert.NotErrorIs(t, cancelled, sentinel.ErrUnavailable)
}

func TestNewValidatesArguments(t *testing.T) {
	_, err := New[gadget](nil, "gadgets")
	assert.Error(t, err)

	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer client.Close()
	_, err = New[gadget](client, "")
	assert.Error(t, err)

	s, err := New[gadget](client, "gadgets")
	require.NoError(t, err)
	assert.Equal(t, "{gadgets}:row:5", s.rowKey(5))
	assert.Equal(t, "{gadgets}:active", s.key("active"))
}

func TestWindow(t *testing.T) {
	tests := []struct {
		name        string
		page        models.PageRequest
		start, stop string
	}{
		{"everything", models.PageRequest{}, "0", "-1"},
		{"first page", models.PageRequest{Limit: 20}, "0", "19"},
		{"later page", models.PageRequest{Offset: 40, Limit: 20}, "40", "59"},
		{"offset without limit", models.PageRequest{Offset: 5}, "5", "-1"},
		{"large offset stays an integer", models.PageRequest{Offset: 100000000000000, Limit: 20}, "100000000000000", "100000000000019"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, stop := window(tt.page)
			assert.Equal(t, tt.start, start)
			assert.Equal(t, tt.stop, stop)
		})
	}
}
