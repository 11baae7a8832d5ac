package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_TTL(t *testing.T) {
	m := NewMemory()
	now := time.Unix(1000, 0)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Minute))

	b, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", string(b))

	now = now.Add(2 * time.Minute)
	_, ok, err = m.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory_NoTTLAndDelete(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", []byte("v"), 0))
	_, ok, _ := m.Get(ctx, "k")
	assert.True(t, ok)

	require.NoError(t, m.Delete(ctx, "k"))
	_, ok, _ = m.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemory_ReturnsCopy(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	src := []byte("abc")
	require.NoError(t, m.Set(ctx, "k", src, 0))
	src[0] = 'x'

	b, _, _ := m.Get(ctx, "k")
	b[1] = 'y'
	again, _, _ := m.Get(ctx, "k")
	assert.Equal(t, "abc", string(again))
}

func TestCache_Key(t *testing.T) {
	c := New(NewMemory(), "csrf", 0)
	k := c.Key("session", "abc")
	assert.Equal(t, k, c.Key("session", "abc"))
	assert.NotEqual(t, k, c.Key("session", "abd"))
	assert.Regexp(t, `^csrf:[0-9a-f]{40}$`, k)
}

func TestCache_Remember(t *testing.T) {
	c := New(NewMemory(), "t", time.Minute)
	ctx := context.Background()
	calls := 0
	fn := func() (any, error) {
		calls++
		return map[string]string{"token": "one"}, nil
	}

	var got map[string]string
	require.NoError(t, c.Remember(ctx, "k", 0, &got, fn))
	assert.Equal(t, "one", got["token"])

	got = nil
	require.NoError(t, c.Remember(ctx, "k", 0, &got, fn))
	assert.Equal(t, "one", got["token"])
	assert.Equal(t, 1, calls)
}

func TestCache_RememberError(t *testing.T) {
	c := New(NewMemory(), "t", time.Minute)
	boom := errors.New("boom")
	var dst string
	err := c.Remember(context.Background(), "k", 0, &dst, func() (any, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)

	ok, err := c.GetJSON(context.Background(), "k", &dst)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpen_DefaultsToMemory(t *testing.T) {
	s, err := Open(context.Background(), Config{Driver: "memory"})
	require.NoError(t, err)
	_, isMemory := s.(*Memory)
	assert.True(t, isMemory)
	assert.NoError(t, s.Close())
}
