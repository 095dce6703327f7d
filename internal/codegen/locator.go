// SPDX-License-Identifier: Apache-2.0

package codegen

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/domain"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/model"
)

type locKind int

const (
	byID locKind = iota + 1
	byCSS
	byXPath
)

// locator is the strategy chosen for one element, plus the page object
// member that exposes it when page objects are generated.
type locator struct {
	kind   locKind
	value  string
	member string
}

func (l locator) key() string { return fmt.Sprintf("%d|%s", l.kind, l.value) }

var cssIdent = regexp.MustCompile(`^-?[_a-zA-Z][_a-zA-Z0-9-]*$`)

// css renders the locator as a CSS selector when it can be one.
func (l locator) css() (string, bool) {
	switch l.kind {
	case byID:
		if cssIdent.MatchString(l.value) {
			return "#" + l.value, true
		}
		return `[id="` + strings.ReplaceAll(l.value, `"`, `\"`) + `"]`, true
	case byCSS:
		return l.value, true
	case byXPath:
	}
	return "", false
}

// resolve picks the locator for el, preferring id over CSS over XPath.
func resolve(el *domain.ElementInfo) (locator, bool) {
	if el == nil {
		return locator{}, false
	}
	switch {
	case strings.TrimSpace(el.ID) != "":
		return locator{kind: byID, value: el.ID}, true
	case strings.TrimSpace(el.CSSSelector) != "":
		return locator{kind: byCSS, value: el.CSSSelector}, true
	case strings.TrimSpace(el.XPath) != "":
		return locator{kind: byXPath, value: el.XPath}, true
	}
	return locator{}, false
}

// pageModel names every distinct locator of a recording so tests and page
// objects refer to the same members.
type pageModel struct {
	class   string
	members []pageMember
	byKey   map[string]string
}

type pageMember struct {
	name string
	loc  locator
}

func buildPageModel(snap *model.Snapshot, class string) *pageModel {
	pm := &pageModel{class: class, byKey: map[string]string{}}
	taken := map[string]int{}
	add := func(el *domain.ElementInfo) {
		loc, ok := resolve(el)
		if !ok {
			return
		}
		if _, seen := pm.byKey[loc.key()]; seen {
			return
		}
		name := memberName(el)
		taken[name]++
		if n := taken[name]; n > 1 {
			name = fmt.Sprintf("%s%d", name, n)
		}
		loc.member = name
		pm.byKey[loc.key()] = name
		pm.members = append(pm.members, pageMember{name: name, loc: loc})
	}

	for _, ev := range snap.Events() {
		add(ev.Element)
		if ev.Condition != nil {
			add(ev.Condition.Element)
		}
		if ev.Loop != nil && ev.Loop.Condition != nil {
			add(ev.Loop.Condition.Element)
		}
		if ev.Binding != nil {
			add(ev.Binding.Element)
		}
		for _, a := range ev.Assertions {
			add(a.Element)
		}
	}
	return pm
}

// lookup returns loc with its member name filled in, if the model has one.
func (pm *pageModel) lookup(loc locator) locator {
	if pm == nil {
		return loc
	}
	loc.member = pm.byKey[loc.key()]
	return loc
}

func memberName(el *domain.ElementInfo) string {
	base := ""
	for _, candidate := range []string{
		el.ID,
		el.Attributes["data-testid"],
		el.Attributes["name"],
		el.Attributes["aria-label"],
		el.Text,
	} {
		if len(words(candidate)) > 0 {
			base = candidate
			break
		}
	}
	if len(words(base)) > 4 {
		base = strings.Join(words(base)[:4], " ")
	}
	if base == "" {
		base = el.Tag
		if base == "" {
			base = "element"
		}
		return camel(base)
	}
	suffix := roleSuffix(el.Tag)
	if ws := words(base); strings.EqualFold(ws[len(ws)-1], suffix) {
		suffix = ""
	}
	return camel(base + " " + suffix)
}

func roleSuffix(tag string) string {
	switch strings.ToLower(tag) {
	case "button":
		return "button"
	case "a":
		return "link"
	case "input", "textarea":
		return "field"
	case "select":
		return "select"
	case "img":
		return "image"
	}
	return ""
}
