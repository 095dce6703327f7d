// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"encoding/json"

	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/domain"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/normalizer"
)

type FrameType string

const (
	FrameEvent         FrameType = "event"
	FrameHeartbeat     FrameType = "heartbeat"
	FrameBrowserClosed FrameType = "browser_closed"
)

// Frame is what a recorder sends over the push channel.
type Frame struct {
	Type FrameType            `json:"type"`
	Data *normalizer.RawEvent `json:"data,omitempty"`
}

// DecodeFrame parses one client frame. Unknown frame types and event frames
// without data are validation errors.
func DecodeFrame(b []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(b, &f); err != nil {
		return Frame{}, domain.Validationf("malformed frame: %v", err)
	}
	switch f.Type {
	case FrameEvent:
		if f.Data == nil {
			return Frame{}, domain.Validationf("event frame without data")
		}
	case FrameHeartbeat, FrameBrowserClosed:
	default:
		return Frame{}, domain.Validationf("unknown frame type %q", f.Type)
	}
	return f, nil
}
