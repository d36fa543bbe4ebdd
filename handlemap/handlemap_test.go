package handlemap

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// Testable property 6: map lookup — add then get returns the same
// value; erase removes it and returns the extracted entry.
func TestAddGetErase(t *testing.T) {
	hm := New[string]()

	require.NoError(t, hm.Add(1, "conn-a"))
	require.ErrorIs(t, hm.Add(1, "conn-a-dup"), ErrAlreadyExists)

	v, ok := hm.Get(1)
	require.True(t, ok)
	require.Equal(t, "conn-a", v)

	entry, err := hm.Erase(1)
	require.NoError(t, err)
	require.Equal(t, Handle(1), entry.Handle)
	require.Equal(t, "conn-a", entry.Value)

	_, ok = hm.Get(1)
	require.False(t, ok)

	_, err = hm.Erase(1)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestEraseAllDrainsAndClears(t *testing.T) {
	hm := New[int]()
	for i := 1; i <= 5; i++ {
		require.NoError(t, hm.Add(Handle(i), i*10))
	}

	entries := hm.EraseAll()
	require.Len(t, entries, 5)
	require.Equal(t, 0, hm.Len())
}

func TestConcurrentAddErase(t *testing.T) {
	hm := New[int]()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h := Handle(i)
			require.NoError(t, hm.Add(h, i))
			_, err := hm.Erase(h)
			require.NoError(t, err)
		}(i)
	}
	wg.Wait()
	require.Equal(t, 0, hm.Len())
}
