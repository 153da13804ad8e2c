package worker

import (
	"testing"

	"github.com/cuongbtq/knowledge-assistant/internal/worker/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJobMessage(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{
			name: "valid message",
			body: `{"job_id":"f47ac10b-58cc-4372-a567-0e02b2c3d479","question":"How does indexing work?"}`,
		},
		{
			name:    "not json",
			body:    `job please`,
			wantErr: true,
		},
		{
			name:    "job_id not a uuid",
			body:    `{"job_id":"42","question":"How does indexing work?"}`,
			wantErr: true,
		},
		{
			name:    "missing question",
			body:    `{"job_id":"f47ac10b-58cc-4372-a567-0e02b2c3d479"}`,
			wantErr: true,
		},
		{
			name:    "whitespace question",
			body:    `{"job_id":"f47ac10b-58cc-4372-a567-0e02b2c3d479","question":"   "}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := parseJobMessage([]byte(tt.body))
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrInvalidMessage)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "f47ac10b-58cc-4372-a567-0e02b2c3d479", msg.JobID)
			assert.NotEmpty(t, msg.Question)
		})
	}
}
