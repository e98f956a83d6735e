package filter

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeserializeCached(t *testing.T) {
	c := NewCache(10)

	first, err := DeserializeCached[Employee](c, "Age > 18")
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())

	// A hit returns the identical compiled expression.
	second, err := DeserializeCached[Employee](c, "Age > 18")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, c.Len())

	// Different source text is a distinct entry.
	third, err := DeserializeCached[Employee](c, "Age > 21")
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, 2, c.Len())

	assert.True(t, first.Evaluate(Employee{Age: 30}))
}

func TestDeserializeCachedPerType(t *testing.T) {
	type Product struct {
		Age int
	}

	c := NewCache(10)

	_, err := DeserializeCached[Employee](c, "Age > 18")
	require.NoError(t, err)
	_, err = DeserializeCached[Product](c, "Age > 18")
	require.NoError(t, err)

	// Same source, different target types: two entries.
	assert.Equal(t, 2, c.Len())
}

func TestDeserializeCachedNilCache(t *testing.T) {
	expr, err := DeserializeCached[Employee](nil, "Age > 18")
	require.NoError(t, err)
	assert.True(t, expr.Evaluate(Employee{Age: 30}))
}

func TestDeserializeCachedFailuresNotCached(t *testing.T) {
	c := NewCache(10)

	_, err := DeserializeCached[Employee](c, "Unknown > 18")
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestCacheEviction(t *testing.T) {
	c := NewCache(3)

	for i := 0; i < 3; i++ {
		_, err := DeserializeCached[Employee](c, fmt.Sprintf("Age > %d", i))
		require.NoError(t, err)
	}
	assert.Equal(t, 3, c.Len())

	// At capacity the cache is flushed wholesale before the new entry
	// is stored.
	_, err := DeserializeCached[Employee](c, "Age > 99")
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())
}

func TestNewCacheDefaultSize(t *testing.T) {
	c := NewCache(0)
	_, err := DeserializeCached[Employee](c, "Age > 18")
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())
}
