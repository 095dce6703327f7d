// SPDX-License-Identifier: Apache-2.0

package normalizer

// RawEvent is the payload the injected recorder script sends over either
// intake channel. Field names are snake_case on the wire.
type RawEvent struct {
	ID           string            `json:"id,omitempty"`
	Type         string            `json:"type"`
	Action       string            `json:"action,omitempty"`
	Timestamp    int64             `json:"timestamp,omitempty"`
	URL          string            `json:"url,omitempty"`
	Title        string            `json:"title,omitempty"`
	Value        string            `json:"value,omitempty"`
	Key          string            `json:"key,omitempty"`
	InputType    string            `json:"input_type,omitempty"`
	SelectedText string            `json:"selected_text,omitempty"`
	Target       *RawTarget        `json:"target,omitempty"`
	ParentID     string            `json:"parent_id,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// RawTarget is whatever the script could learn about the event target.
// OuterHTML is used to fill in anything the script did not send explicitly.
type RawTarget struct {
	Tag         string            `json:"tag,omitempty"`
	ID          string            `json:"id,omitempty"`
	Name        string            `json:"name,omitempty"`
	ClassName   string            `json:"class,omitempty"`
	CSSSelector string            `json:"css_selector,omitempty"`
	XPath       string            `json:"xpath,omitempty"`
	Text        string            `json:"text,omitempty"`
	TestID      string            `json:"test_id,omitempty"`
	AriaLabel   string            `json:"aria_label,omitempty"`
	Role        string            `json:"role,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	OuterHTML   string            `json:"outer_html,omitempty"`
}

// Metadata keys set by Normalize.
const (
	MetaClientEventID = "client_event_id"
	MetaPageTitle     = "page_title"
	MetaKey           = "key"
	MetaInputType     = "input_type"
	MetaSelectedText  = "selected_text"
	MetaVariable      = "variable"
)
