package callback

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetGetInvoke(t *testing.T) {
	var cb Func[func(int) int]

	_, ok := cb.Get()
	require.False(t, ok)

	cb.Set(func(n int) int { return n * 2 })
	fn, ok := cb.Get()
	require.True(t, ok)
	require.Equal(t, 42, fn(21))
}

func TestSetOverwrites(t *testing.T) {
	var cb Func[func() string]
	cb.Set(func() string { return "first" })
	cb.Set(func() string { return "second" })

	fn, ok := cb.Get()
	require.True(t, ok)
	require.Equal(t, "second", fn())
}
