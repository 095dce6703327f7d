// SPDX-License-Identifier: Apache-2.0

package model

import (
	"strings"

	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/domain"
)

// ValidateEvent checks that the structural payload matches the event type
// and that every attached value object is well formed.
func ValidateEvent(ev domain.RecordedEvent) error {
	if !ev.Type.Valid() {
		return domain.Validationf("unknown event type %q", ev.Type)
	}

	switch ev.Type {
	case domain.EventLoop:
		if ev.Loop == nil {
			return domain.Validationf("loop event requires a loop config")
		}
		if err := ValidateLoop(*ev.Loop); err != nil {
			return err
		}
	case domain.EventConditional:
		if ev.Condition == nil {
			return domain.Validationf("conditional event requires a condition")
		}
		if err := ValidateCondition(*ev.Condition); err != nil {
			return err
		}
	case domain.EventDataSource:
		if ev.DataSource == nil {
			return domain.Validationf("data-source event requires a data source")
		}
		if err := ValidateDataSource(*ev.DataSource); err != nil {
			return err
		}
	case domain.EventGroup:
		if ev.Group == nil || strings.TrimSpace(ev.Group.Name) == "" {
			return domain.Validationf("group event requires a name")
		}
	case domain.EventCapture:
		if ev.Binding == nil {
			return domain.Validationf("capture event requires a variable binding")
		}
	case domain.EventAssertion:
		if len(ev.Assertions) == 0 {
			return domain.Validationf("assertion event requires at least one assertion")
		}
	case domain.EventNavigation, domain.EventClick, domain.EventInput, domain.EventCustom:
	}

	if ev.Loop != nil && ev.Type != domain.EventLoop {
		return domain.Validationf("loop config is only valid on loop events")
	}
	if ev.Condition != nil && ev.Type != domain.EventConditional {
		return domain.Validationf("condition is only valid on conditional events")
	}
	if ev.DataSource != nil && ev.Type != domain.EventDataSource {
		return domain.Validationf("data source is only valid on data-source events")
	}
	if ev.Group != nil && ev.Type != domain.EventGroup {
		return domain.Validationf("group payload is only valid on group events")
	}

	if ev.Binding != nil {
		b := *ev.Binding
		if b.Element == nil {
			b.Element = ev.Element
		}
		if err := ValidateBinding(b); err != nil {
			return err
		}
	}
	for _, a := range ev.Assertions {
		// companions may target the host event's element
		if a.Element == nil {
			a.Element = ev.Element
		}
		if err := ValidateAssertion(a); err != nil {
			return err
		}
	}
	return nil
}

func ValidateLoop(l domain.LoopConfig) error {
	switch l.Kind {
	case domain.LoopCount:
		if l.Count <= 0 {
			return domain.Validationf("count loop requires a positive count")
		}
	case domain.LoopCollection:
		if l.Collection == "" && l.DataSourceID == nil {
			return domain.Validationf("collection loop requires a collection or data source")
		}
	case domain.LoopCondition:
		if l.Condition == nil {
			return domain.Validationf("condition loop requires a condition")
		}
		if err := ValidateCondition(*l.Condition); err != nil {
			return err
		}
	default:
		return domain.Validationf("unknown loop kind %q", l.Kind)
	}
	if l.MaxIterations < 0 {
		return domain.Validationf("max_iterations must not be negative")
	}
	return nil
}

func ValidateCondition(c domain.Condition) error {
	switch c.Kind {
	case domain.ConditionElementExists, domain.ConditionElementVisible:
		if !c.Element.HasLocator() {
			return domain.Validationf("%s condition requires an element locator", c.Kind)
		}
	case domain.ConditionTextContains:
		if !c.Element.HasLocator() || c.Value == "" {
			return domain.Validationf("text_contains condition requires an element and a value")
		}
	case domain.ConditionURLContains:
		if c.Value == "" {
			return domain.Validationf("url_contains condition requires a value")
		}
	case domain.ConditionVariable:
		if c.Variable == "" {
			return domain.Validationf("variable condition requires a variable name")
		}
		if err := validateOperator(c.Operator); err != nil {
			return err
		}
	case domain.ConditionExpression:
		if strings.TrimSpace(c.Expression) == "" {
			return domain.Validationf("expression condition requires an expression")
		}
	default:
		return domain.Validationf("unknown condition kind %q", c.Kind)
	}
	return nil
}

func validateOperator(op domain.Operator) error {
	switch op {
	case "", domain.OpEquals, domain.OpNotEquals, domain.OpContains,
		domain.OpGreaterThan, domain.OpLessThan, domain.OpExists:
		return nil
	}
	return domain.Validationf("unknown operator %q", op)
}

func ValidateDataSource(ds domain.DataSource) error {
	if strings.TrimSpace(ds.Name) == "" {
		return domain.Validationf("data source name is required")
	}
	switch ds.Kind {
	case domain.DataSourceInline:
		if len(ds.Rows) == 0 {
			return domain.Validationf("inline data source requires rows")
		}
	case domain.DataSourceCSV, domain.DataSourceJSON:
		if ds.Path == "" {
			return domain.Validationf("%s data source requires a path", ds.Kind)
		}
	default:
		return domain.Validationf("unknown data source kind %q", ds.Kind)
	}
	return nil
}

func ValidateBinding(b domain.VariableBinding) error {
	if !isIdentifier(b.Name) {
		return domain.Validationf("variable name %q is not a valid identifier", b.Name)
	}
	switch b.Source {
	case domain.BindElementText, domain.BindElementValue:
		if !b.Element.HasLocator() {
			return domain.Validationf("%s binding requires an element locator", b.Source)
		}
	case domain.BindAttribute:
		if !b.Element.HasLocator() || b.Attribute == "" {
			return domain.Validationf("attribute binding requires an element and attribute")
		}
	case domain.BindURL:
	case domain.BindExpression:
		if strings.TrimSpace(b.Expression) == "" {
			return domain.Validationf("expression binding requires an expression")
		}
	default:
		return domain.Validationf("unknown binding source %q", b.Source)
	}
	return nil
}

func ValidateAssertion(a domain.AssertionConfig) error {
	switch a.Kind {
	case domain.AssertVisible, domain.AssertHidden:
		if !a.Element.HasLocator() {
			return domain.Validationf("%s assertion requires an element locator", a.Kind)
		}
	case domain.AssertTextEquals, domain.AssertTextContains, domain.AssertValueEquals:
		if !a.Element.HasLocator() {
			return domain.Validationf("%s assertion requires an element locator", a.Kind)
		}
	case domain.AssertAttribute:
		if !a.Element.HasLocator() || a.Attribute == "" {
			return domain.Validationf("attribute assertion requires an element and attribute")
		}
	case domain.AssertURLContains, domain.AssertTitleEquals:
		if a.Expected == "" {
			return domain.Validationf("%s assertion requires an expected value", a.Kind)
		}
	case domain.AssertVariableEquals:
		if a.Variable == "" {
			return domain.Validationf("variable assertion requires a variable name")
		}
	default:
		return domain.Validationf("unknown assertion kind %q", a.Kind)
	}
	return nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
