package containers

import (
	"errors"
	"testing"

	"github.com/spaghettifunk/tremor/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type key struct {
	a, b int
	flag bool
}

func TestArenaFindOrCreateMemoizes(t *testing.T) {
	arena := NewArena[key, int]("things", 4)
	builds := 0
	build := func(k key) (int, error) {
		builds++
		return k.a*100 + k.b, nil
	}

	v1, err := arena.FindOrCreate(key{1, 2, false}, build)
	require.NoError(t, err)
	v2, err := arena.FindOrCreate(key{1, 2, false}, build)
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, builds)

	v3, err := arena.FindOrCreate(key{1, 2, true}, build)
	require.NoError(t, err)
	assert.Equal(t, 2, builds)
	assert.Equal(t, 2, arena.Len())
	_ = v3
}

func TestArenaCapacityExhausted(t *testing.T) {
	arena := NewArena[int, string]("names", 2)
	_, err := arena.Append(1, "one")
	require.NoError(t, err)
	_, err = arena.Append(2, "two")
	require.NoError(t, err)
	assert.True(t, arena.Full())

	_, err = arena.Append(3, "three")
	require.ErrorIs(t, err, core.ErrCapacityExhausted)

	called := false
	_, err = arena.FindOrCreate(4, func(int) (string, error) {
		called = true
		return "four", nil
	})
	require.ErrorIs(t, err, core.ErrCapacityExhausted)
	assert.False(t, called)

	// hits still succeed on a full arena
	v, err := arena.FindOrCreate(2, func(int) (string, error) { return "", errors.New("unreachable") })
	require.NoError(t, err)
	assert.Equal(t, "two", v)
}

func TestArenaBuildErrorIsNotStored(t *testing.T) {
	arena := NewArena[int, int]("ints", 2)
	boom := errors.New("boom")
	_, err := arena.FindOrCreate(1, func(int) (int, error) { return 0, boom })
	require.ErrorIs(t, err, boom)
	assert.Zero(t, arena.Len())
}

func TestArenaResetAndOrder(t *testing.T) {
	arena := NewArena[string, int]("order", 3)
	for i, k := range []string{"a", "b", "c"} {
		h, err := arena.Append(k, i)
		require.NoError(t, err)
		assert.Equal(t, Handle(i), h)
	}
	var seen []string
	arena.Each(func(_ Handle, k string, _ int) { seen = append(seen, k) })
	assert.Equal(t, []string{"a", "b", "c"}, seen)

	h, ok := arena.Find("b")
	require.True(t, ok)
	arena.Set(h, 42)
	assert.Equal(t, 42, arena.Get(h))
	assert.Equal(t, "b", arena.Key(h))

	arena.Reset()
	assert.Zero(t, arena.Len())
	_, ok = arena.Find("a")
	assert.False(t, ok)
	assert.Equal(t, 3, arena.Cap())
}
