package handler

import (
	"testing"
	"time"

	"github.com/cuongbtq/knowledge-assistant/internal/api/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobCursorRoundTrip(t *testing.T) {
	original := &storage.JobCursor{
		CreatedAt: time.Date(2026, 8, 1, 12, 30, 0, 123456789, time.UTC),
		JobID:     "f47ac10b-58cc-4372-a567-0e02b2c3d479",
	}

	encoded, err := EncodeJobCursor(original)
	require.NoError(t, err)

	decoded, err := DecodeJobCursor(encoded)
	require.NoError(t, err)

	assert.Equal(t, original.JobID, decoded.JobID)
	assert.Equal(t, original.CreatedAt.UnixNano(), decoded.CreatedAt.UnixNano())
}

func TestDecodeJobCursor_Empty(t *testing.T) {
	cursor, err := DecodeJobCursor("")
	require.NoError(t, err)
	assert.Nil(t, cursor)
}

func TestDecodeJobCursor_Garbage(t *testing.T) {
	_, err := DecodeJobCursor("!!definitely-not-base64!!")
	assert.Error(t, err)

	// valid base64 but wrong shape
	_, err = DecodeJobCursor("aGVsbG8=")
	assert.Error(t, err)
}
