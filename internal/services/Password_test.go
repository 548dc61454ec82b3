package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hashed, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hashed)

	assert.NoError(t, CheckPassword(hashed, "hunter22"))
	assert.Error(t, CheckPassword(hashed, "hunter23"))
	assert.Error(t, CheckPassword("not-a-hash", "hunter22"))
}
