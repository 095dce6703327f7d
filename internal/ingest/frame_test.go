// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/domain"
)

func TestDecodeFrame(t *testing.T) {
	f, err := DecodeFrame([]byte(`{"type":"event","data":{"id":"c-1","type":"click","target":{"id":"go"}}}`))
	require.NoError(t, err)
	assert.Equal(t, FrameEvent, f.Type)
	require.NotNil(t, f.Data)
	assert.Equal(t, "c-1", f.Data.ID)
	assert.Equal(t, "go", f.Data.Target.ID)

	f, err = DecodeFrame([]byte(`{"type":"heartbeat"}`))
	require.NoError(t, err)
	assert.Equal(t, FrameHeartbeat, f.Type)

	for _, bad := range []string{`{"type":"event"}`, `{"type":"nap"}`, `not json`} {
		_, err := DecodeFrame([]byte(bad))
		require.ErrorIs(t, err, domain.ErrValidation, bad)
	}
}
