// SPDX-License-Identifier: Apache-2.0

package browser

import (
	_ "embed"
	"encoding/json"
	"strings"
)

//go:embed recorder.js
var recorderTemplate string

const (
	PauseScript  = `() => { if (window.__recorder) { window.__recorder.pause(); } return true; }`
	ResumeScript = `() => { if (window.__recorder) { window.__recorder.resume(); } return true; }`
)

type ScriptParams struct {
	BaseURL    string
	SessionKey string
	RoutingKey string
}

// RecorderScript renders the capture script for one session. Values are
// inserted as JSON string literals.
func RecorderScript(p ScriptParams) string {
	base := strings.TrimRight(p.BaseURL, "/")
	routing := p.RoutingKey
	if routing == "" {
		routing = p.SessionKey
	}
	return strings.NewReplacer(
		"__BASE_URL__", jsString(base),
		"__SESSION_KEY__", jsString(p.SessionKey),
		"__ROUTING_KEY__", jsString(routing),
	).Replace(recorderTemplate)
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
