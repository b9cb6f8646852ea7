package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUniqueUint(t *testing.T) {
	assert.Equal(t, []uint{3, 1, 2}, UniqueUint([]uint{3, 1, 3, 2, 1}))
	assert.Empty(t, UniqueUint(nil))
	assert.True(t, ContainsUint([]uint{4, 5}, 5))
	assert.False(t, ContainsUint(nil, 5))
}
