// SPDX-License-Identifier: Apache-2.0

package codegen

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/domain"
)

// Helpers shared by the JavaScript-family dialects.

func jsQuote(s string) string { return quote(s, '\'') }

func jsNumber(v string) string {
	if _, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
		return strings.TrimSpace(v)
	}
	return "Number(" + jsQuote(v) + ")"
}

// jsCompare renders a variable comparison.
func jsCompare(name string, op domain.Operator, value string) string {
	switch op {
	case domain.OpNotEquals:
		return name + " !== " + jsQuote(value)
	case domain.OpContains:
		return "String(" + name + ").includes(" + jsQuote(value) + ")"
	case domain.OpGreaterThan:
		return "Number(" + name + ") > " + jsNumber(value)
	case domain.OpLessThan:
		return "Number(" + name + ") < " + jsNumber(value)
	case domain.OpExists:
		return "Boolean(" + name + ")"
	case domain.OpEquals, "":
	}
	return name + " === " + jsQuote(value)
}

func jsNegate(expr string, negate bool) string {
	if !negate {
		return expr
	}
	return "!(" + expr + ")"
}

func jsRows(rows []map[string]string) string {
	if rows == nil {
		rows = []map[string]string{}
	}
	b, err := json.Marshal(rows)
	if err != nil {
		return "[]"
	}
	return string(b)
}

var jsKeys = map[string]string{
	"enter":     "Enter",
	"tab":       "Tab",
	"escape":    "Escape",
	"esc":       "Escape",
	"backspace": "Backspace",
	"delete":    "Delete",
	"arrowup":   "ArrowUp",
	"arrowdown": "ArrowDown",
	"space":     " ",
}

func keyName(ev domain.RecordedEvent) string {
	key := ev.Metadata["key"]
	if key == "" {
		key = ev.Value
	}
	if named, ok := jsKeys[strings.ToLower(key)]; ok {
		return named
	}
	return key
}

// inputAction classifies an input event into the statement it needs.
func inputAction(ev domain.RecordedEvent) string {
	switch strings.ToLower(ev.Action) {
	case "select", "change":
		if ev.Element != nil && strings.EqualFold(ev.Element.Tag, "select") {
			return "select"
		}
	case "check", "uncheck", "clear":
		return strings.ToLower(ev.Action)
	case "press", "keydown", "keypress", "keyup":
		return "press"
	}
	return "fill"
}

func clickAction(action string) string {
	switch strings.ToLower(action) {
	case "dblclick", "double_click", "doubleclick":
		return "double"
	case "contextmenu", "right_click", "rightclick":
		return "right"
	}
	return "click"
}

func jsReadCSV(ts bool) []string {
	sig := "function readCsv(path) {"
	if ts {
		sig = "function readCsv(path: string): Record<string, string>[] {"
	}
	return []string{
		sig,
		"  const [header, ...lines] = fs.readFileSync(path, 'utf8').trim().split(/\\r?\\n/);",
		"  const keys = header.split(',');",
		"  return lines.map((line) => Object.fromEntries(line.split(',').map((v, i) => [keys[i], v])));",
		"}",
	}
}
