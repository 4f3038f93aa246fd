package persistence

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/techstore-checkout/pkg/db"
	pkgredis "github.com/angelmondragon/techstore-checkout/pkg/redis"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.NewFromConn(conn).Migrate(context.Background()))
	return conn
}

func exerciseSlot(t *testing.T, slot Slot) {
	t.Helper()
	ctx := context.Background()

	_, err := slot.Read(ctx)
	require.ErrorIs(t, err, ErrSlotEmpty)

	require.NoError(t, slot.Write(ctx, []byte(`[{"id":"a"}]`)))
	got, err := slot.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, `[{"id":"a"}]`, string(got))

	require.NoError(t, slot.Write(ctx, []byte(`[]`)))
	got, err = slot.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, `[]`, string(got))

	require.NoError(t, slot.Remove(ctx))
	_, err = slot.Read(ctx)
	require.ErrorIs(t, err, ErrSlotEmpty)

	// removing an empty slot is not an error
	require.NoError(t, slot.Remove(ctx))
}

func TestMemorySlot(t *testing.T) {
	exerciseSlot(t, NewMemorySlot())
}

func TestMemorySlotCopiesValues(t *testing.T) {
	slot := NewMemorySlot()
	payload := []byte("abc")
	require.NoError(t, slot.Write(context.Background(), payload))
	payload[0] = 'z'

	got, err := slot.Read(context.Background())
	require.NoError(t, err)
	require.Equal(t, "abc", string(got))
}

func TestGormSlot(t *testing.T) {
	slot, err := NewGormSlot(openSQLite(t), "techstore_cart")
	require.NoError(t, err)
	exerciseSlot(t, slot)
}

func TestGormSlotKeysAreIndependent(t *testing.T) {
	conn := openSQLite(t)
	ctx := context.Background()
	first, err := NewGormSlot(conn, "first")
	require.NoError(t, err)
	second, err := NewGormSlot(conn, "second")
	require.NoError(t, err)

	require.NoError(t, first.Write(ctx, []byte("1")))
	_, err = second.Read(ctx)
	require.ErrorIs(t, err, ErrSlotEmpty)
}

func TestNewGormSlotValidation(t *testing.T) {
	_, err := NewGormSlot(nil, "k")
	require.Error(t, err)
	_, err = NewGormSlot(openSQLite(t), " ")
	require.Error(t, err)
}

func TestRedisSlot(t *testing.T) {
	store := newFakeRedis()
	slot, err := NewRedisSlot(pkgredis.NewWithCmdable(store), "techstore_cart")
	require.NoError(t, err)
	exerciseSlot(t, slot)
}

func TestRedisSlotNamespacesKey(t *testing.T) {
	store := newFakeRedis()
	slot, err := NewRedisSlot(pkgredis.NewWithCmdable(store), "techstore_cart")
	require.NoError(t, err)
	require.NoError(t, slot.Write(context.Background(), []byte("[]")))
	require.Contains(t, store.data, "techstore:slot:techstore_cart")
}

func TestRedisSlotPropagatesErrors(t *testing.T) {
	store := newFakeRedis()
	store.err = errors.New("connection refused")
	slot, err := NewRedisSlot(pkgredis.NewWithCmdable(store), "techstore_cart")
	require.NoError(t, err)

	_, err = slot.Read(context.Background())
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrSlotEmpty))
	require.Error(t, slot.Write(context.Background(), []byte("[]")))
}

type fakeRedis struct {
	data map[string]string
	err  error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string)}
}

func (f *fakeRedis) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", f.err)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	f.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	for _, key := range keys {
		delete(f.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}
