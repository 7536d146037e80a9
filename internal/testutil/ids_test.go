package testutil

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequentialIDs_PredictableAndOrdered(t *testing.T) {
	ids := NewSequentialIDs()

	first := ids.NewID()
	second := ids.NewID()

	assert.Equal(t, "00000000-0000-7000-8000-000000000001", first)
	assert.Equal(t, "00000000-0000-7000-8000-000000000002", second)
	assert.Less(t, first, second)
}

func TestSequentialIDs_ParseAsUUIDv7(t *testing.T) {
	id, err := uuid.Parse(NewSequentialIDs().NewID())
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
}
