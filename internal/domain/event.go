// SPDX-License-Identifier: Apache-2.0

package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType is the closed set of recorded event kinds. Every switch over it
// is expected to be exhaustive.
type EventType string

const (
	EventNavigation  EventType = "navigation"
	EventClick       EventType = "click"
	EventInput       EventType = "input"
	EventAssertion   EventType = "assertion"
	EventLoop        EventType = "loop"
	EventConditional EventType = "conditional"
	EventDataSource  EventType = "data-source"
	EventCapture     EventType = "capture"
	EventGroup       EventType = "group"
	EventCustom      EventType = "custom"
)

var AllEventTypes = []EventType{
	EventNavigation,
	EventClick,
	EventInput,
	EventAssertion,
	EventLoop,
	EventConditional,
	EventDataSource,
	EventCapture,
	EventGroup,
	EventCustom,
}

func (t EventType) Valid() bool {
	switch t {
	case EventNavigation, EventClick, EventInput, EventAssertion, EventLoop,
		EventConditional, EventDataSource, EventCapture, EventGroup, EventCustom:
		return true
	}
	return false
}

// Container reports whether events of this type host nested children.
func (t EventType) Container() bool {
	switch t {
	case EventLoop, EventConditional, EventGroup:
		return true
	case EventNavigation, EventClick, EventInput, EventAssertion,
		EventDataSource, EventCapture, EventCustom:
		return false
	}
	return false
}

// ElementInfo describes the DOM element an interaction targeted.
type ElementInfo struct {
	Tag         string            `json:"tag,omitempty"`
	ID          string            `json:"id,omitempty"`
	CSSSelector string            `json:"css_selector,omitempty"`
	XPath       string            `json:"xpath,omitempty"`
	Text        string            `json:"text,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// HasLocator reports whether any locator strategy is available.
func (e *ElementInfo) HasLocator() bool {
	if e == nil {
		return false
	}
	return e.ID != "" || e.CSSSelector != "" || e.XPath != ""
}

// Key identifies the element for deduplication purposes.
func (e *ElementInfo) Key() string {
	if e == nil {
		return ""
	}
	switch {
	case e.ID != "":
		return "id:" + e.ID
	case e.CSSSelector != "":
		return "css:" + e.CSSSelector
	case e.XPath != "":
		return "xpath:" + e.XPath
	}
	return ""
}

type LoopKind string

const (
	LoopCount      LoopKind = "count"
	LoopCollection LoopKind = "collection"
	LoopCondition  LoopKind = "condition"
)

type LoopConfig struct {
	Kind          LoopKind   `json:"kind"`
	Count         int        `json:"count,omitempty"`
	Iterator      string     `json:"iterator,omitempty"`
	Collection    string     `json:"collection,omitempty"`
	DataSourceID  *uuid.UUID `json:"data_source_id,omitempty"`
	Condition     *Condition `json:"condition,omitempty"`
	MaxIterations int        `json:"max_iterations,omitempty"`
}

type ConditionKind string

const (
	ConditionElementExists  ConditionKind = "element_exists"
	ConditionElementVisible ConditionKind = "element_visible"
	ConditionTextContains   ConditionKind = "text_contains"
	ConditionURLContains    ConditionKind = "url_contains"
	ConditionVariable       ConditionKind = "variable"
	ConditionExpression     ConditionKind = "expression"
)

type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpContains    Operator = "contains"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpExists      Operator = "exists"
)

type Condition struct {
	Kind       ConditionKind `json:"kind"`
	Element    *ElementInfo  `json:"element,omitempty"`
	Variable   string        `json:"variable,omitempty"`
	Operator   Operator      `json:"operator,omitempty"`
	Value      string        `json:"value,omitempty"`
	Expression string        `json:"expression,omitempty"`
	Negate     bool          `json:"negate,omitempty"`
}

type DataSourceKind string

const (
	DataSourceInline DataSourceKind = "inline"
	DataSourceCSV    DataSourceKind = "csv"
	DataSourceJSON   DataSourceKind = "json"
)

type DataSource struct {
	Name     string              `json:"name"`
	Kind     DataSourceKind      `json:"kind"`
	Path     string              `json:"path,omitempty"`
	Rows     []map[string]string `json:"rows,omitempty"`
	Variable string              `json:"variable,omitempty"`
}

type BindingSource string

const (
	BindElementText  BindingSource = "element_text"
	BindElementValue BindingSource = "element_value"
	BindAttribute    BindingSource = "attribute"
	BindURL          BindingSource = "url"
	BindExpression   BindingSource = "expression"
)

type VariableBinding struct {
	Name       string        `json:"name"`
	Source     BindingSource `json:"source"`
	Element    *ElementInfo  `json:"element,omitempty"`
	Attribute  string        `json:"attribute,omitempty"`
	Expression string        `json:"expression,omitempty"`
}

type AssertionKind string

const (
	AssertVisible        AssertionKind = "visible"
	AssertHidden         AssertionKind = "hidden"
	AssertTextEquals     AssertionKind = "text_equals"
	AssertTextContains   AssertionKind = "text_contains"
	AssertValueEquals    AssertionKind = "value_equals"
	AssertAttribute      AssertionKind = "attribute_equals"
	AssertURLContains    AssertionKind = "url_contains"
	AssertTitleEquals    AssertionKind = "title_equals"
	AssertVariableEquals AssertionKind = "variable_equals"
)

type AssertionConfig struct {
	ID        uuid.UUID     `json:"id"`
	Kind      AssertionKind `json:"kind"`
	Element   *ElementInfo  `json:"element,omitempty"`
	Attribute string        `json:"attribute,omitempty"`
	Variable  string        `json:"variable,omitempty"`
	Expected  string        `json:"expected,omitempty"`
	Soft      bool          `json:"soft,omitempty"`
	Message   string        `json:"message,omitempty"`
}

// StepGroup is the payload of a group event. Membership is derived from the
// members' parent references; MemberIDs is filled only on exported views.
type StepGroup struct {
	Name      string      `json:"name"`
	Collapsed bool        `json:"collapsed,omitempty"`
	MemberIDs []uuid.UUID `json:"member_ids,omitempty"`
}

// RecordedEvent is one node of the recording. Exactly one structural
// payload (Loop, Condition, DataSource, Group) is set for container and
// data-source events; Binding and Assertions may ride along with any event
// as companion statements.
type RecordedEvent struct {
	ID         uuid.UUID         `json:"id"`
	Type       EventType         `json:"type"`
	Action     string            `json:"action,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
	URL        string            `json:"url,omitempty"`
	Element    *ElementInfo      `json:"element,omitempty"`
	ParentID   *uuid.UUID        `json:"parent_id,omitempty"`
	Order      int               `json:"order"`
	Value      string            `json:"value,omitempty"`
	Loop       *LoopConfig       `json:"loop,omitempty"`
	Condition  *Condition        `json:"condition,omitempty"`
	DataSource *DataSource       `json:"data_source,omitempty"`
	Binding    *VariableBinding  `json:"binding,omitempty"`
	Assertions []AssertionConfig `json:"assertions,omitempty"`
	Group      *StepGroup        `json:"group,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Clone returns a deep copy so snapshots never alias the live arena.
func (e RecordedEvent) Clone() RecordedEvent {
	out := e
	if e.ParentID != nil {
		p := *e.ParentID
		out.ParentID = &p
	}
	out.Element = e.Element.Clone()
	if e.Loop != nil {
		l := *e.Loop
		if e.Loop.DataSourceID != nil {
			id := *e.Loop.DataSourceID
			l.DataSourceID = &id
		}
		l.Condition = e.Loop.Condition.Clone()
		out.Loop = &l
	}
	out.Condition = e.Condition.Clone()
	if e.DataSource != nil {
		ds := *e.DataSource
		if e.DataSource.Rows != nil {
			ds.Rows = make([]map[string]string, len(e.DataSource.Rows))
			for i, row := range e.DataSource.Rows {
				ds.Rows[i] = cloneStrings(row)
			}
		}
		out.DataSource = &ds
	}
	if e.Binding != nil {
		b := *e.Binding
		b.Element = e.Binding.Element.Clone()
		out.Binding = &b
	}
	if e.Assertions != nil {
		out.Assertions = make([]AssertionConfig, len(e.Assertions))
		for i, a := range e.Assertions {
			a.Element = a.Element.Clone()
			out.Assertions[i] = a
		}
	}
	if e.Group != nil {
		g := *e.Group
		g.MemberIDs = append([]uuid.UUID(nil), e.Group.MemberIDs...)
		out.Group = &g
	}
	out.Metadata = cloneStrings(e.Metadata)
	return out
}

func (e *ElementInfo) Clone() *ElementInfo {
	if e == nil {
		return nil
	}
	out := *e
	out.Attributes = cloneStrings(e.Attributes)
	return &out
}

func (c *Condition) Clone() *Condition {
	if c == nil {
		return nil
	}
	out := *c
	out.Element = c.Element.Clone()
	return &out
}

func cloneStrings(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// SameParent reports whether two optional parent references are equal.
func SameParent(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
