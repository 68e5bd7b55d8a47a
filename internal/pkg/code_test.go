package pkg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandDigits(t *testing.T) {
	code, err := RandDigits(6)
	require.NoError(t, err)
	assert.Len(t, code, 6)
	for _, r := range code {
		assert.True(t, r >= '0' && r <= '9', "non-digit %q", r)
	}
}

func TestMakeKeyFromID(t *testing.T) {
	assert.Equal(t, "1024", MakeKeyFromID(1024))
}
