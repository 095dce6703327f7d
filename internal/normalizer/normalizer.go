// SPDX-License-Identifier: Apache-2.0

// Package normalizer turns raw captured interactions into canonical
// RecordedEvents, inferring element locators when the recorder script did
// not send them.
package normalizer

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/domain"
)

const defaultMaxText = 120

type Normalizer struct {
	now     func() time.Time
	maxText int
}

type Option func(*Normalizer)

// WithClock overrides the clock used for events that arrive without a
// timestamp.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) { n.now = now }
}

func WithMaxText(limit int) Option {
	return func(n *Normalizer) {
		if limit > 0 {
			n.maxText = limit
		}
	}
}

func New(opts ...Option) *Normalizer {
	n := &Normalizer{now: time.Now, maxText: defaultMaxText}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize maps a raw payload onto the closed event variant. A missing type
// discriminant or a structural type that only the model API may create is a
// validation error.
func (n *Normalizer) Normalize(raw RawEvent) (domain.RecordedEvent, error) {
	rawType := strings.ToLower(strings.TrimSpace(raw.Type))
	if rawType == "" {
		return domain.RecordedEvent{}, domain.Validationf("event type is required")
	}

	typ, action := classify(rawType)
	if raw.Action != "" {
		action = strings.ToLower(strings.TrimSpace(raw.Action))
	}

	ev := domain.RecordedEvent{
		ID:        uuid.New(),
		Type:      typ,
		Action:    action,
		Timestamp: n.timestamp(raw.Timestamp),
		URL:       strings.TrimSpace(raw.URL),
		Value:     raw.Value,
		Metadata:  n.metadata(raw),
	}

	if raw.ParentID != "" {
		parent, err := uuid.Parse(raw.ParentID)
		if err != nil {
			return domain.RecordedEvent{}, domain.Validationf("parent_id %q is not a valid id", raw.ParentID)
		}
		ev.ParentID = &parent
	}

	if raw.Target != nil {
		el, err := n.element(*raw.Target)
		if err != nil {
			return domain.RecordedEvent{}, err
		}
		ev.Element = el
	}

	switch typ {
	case domain.EventNavigation:
		ev.Element = nil
		if ev.URL == "" {
			ev.URL = raw.Value
		}
		ev.Value = ""
	case domain.EventInput:
		if ev.Value == "" && raw.SelectedText != "" {
			ev.Value = raw.SelectedText
		}
	case domain.EventAssertion:
		kind := domain.AssertionKind(action)
		if action == "" || action == "assertion" {
			kind = domain.AssertVisible
		}
		ev.Action = string(kind)
		ev.Assertions = []domain.AssertionConfig{{
			ID:       uuid.New(),
			Kind:     kind,
			Element:  ev.Element.Clone(),
			Expected: raw.Value,
		}}
	case domain.EventCapture:
		name := raw.Metadata[MetaVariable]
		if name == "" {
			return domain.RecordedEvent{}, domain.Validationf("capture event requires metadata.variable")
		}
		ev.Binding = &domain.VariableBinding{
			Name:    name,
			Source:  domain.BindElementText,
			Element: ev.Element.Clone(),
		}
		if ev.Element == nil {
			ev.Binding.Source = domain.BindURL
		}
	case domain.EventLoop, domain.EventConditional, domain.EventDataSource, domain.EventGroup:
		return domain.RecordedEvent{}, domain.Validationf("%s events are created through the model API, not captured", typ)
	case domain.EventClick, domain.EventCustom:
	}

	return ev, nil
}

// classify maps DOM event names onto event types. Unknown names are kept as
// custom events so nothing the script captures is silently lost.
func classify(rawType string) (domain.EventType, string) {
	switch rawType {
	case "navigation", "navigate", "load", "pageload", "popstate", "hashchange":
		return domain.EventNavigation, "navigate"
	case "click", "dblclick", "contextmenu", "submit", "tap":
		return domain.EventClick, rawType
	case "input", "change", "type", "keypress", "keydown", "select", "check", "uncheck", "fill":
		return domain.EventInput, rawType
	case "focus", "blur", "focusin", "focusout", "hover", "mouseover", "scroll":
		return domain.EventCustom, rawType
	}
	if t := domain.EventType(rawType); t.Valid() {
		return t, ""
	}
	return domain.EventCustom, rawType
}

func (n *Normalizer) timestamp(ms int64) time.Time {
	if ms <= 0 {
		return n.now().UTC()
	}
	return time.UnixMilli(ms).UTC()
}

func (n *Normalizer) metadata(raw RawEvent) map[string]string {
	meta := make(map[string]string, len(raw.Metadata)+4)
	for k, v := range raw.Metadata {
		meta[k] = v
	}
	set := func(k, v string) {
		if v != "" {
			meta[k] = v
		}
	}
	set(MetaClientEventID, raw.ID)
	set(MetaPageTitle, raw.Title)
	set(MetaKey, raw.Key)
	set(MetaInputType, raw.InputType)
	set(MetaSelectedText, raw.SelectedText)
	if len(meta) == 0 {
		return nil
	}
	return meta
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
