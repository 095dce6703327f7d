// SPDX-License-Identifier: Apache-2.0

package normalizer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/domain"
)

// attributes worth keeping on the element; everything else is noise for
// locator generation.
var keptAttributes = map[string]bool{
	"name":        true,
	"type":        true,
	"role":        true,
	"placeholder": true,
	"href":        true,
	"title":       true,
	"alt":         true,
	"value":       true,
	"for":         true,
	"aria-label":  true,
	"data-testid": true,
	"data-test":   true,
	"data-cy":     true,
	"data-qa":     true,
}

func (n *Normalizer) element(t RawTarget) (*domain.ElementInfo, error) {
	el := &domain.ElementInfo{
		Tag:         strings.ToLower(strings.TrimSpace(t.Tag)),
		ID:          strings.TrimSpace(t.ID),
		CSSSelector: strings.TrimSpace(t.CSSSelector),
		XPath:       strings.TrimSpace(t.XPath),
		Text:        collapseSpace(t.Text),
		Attributes:  map[string]string{},
	}
	for k, v := range t.Attributes {
		k = strings.ToLower(k)
		if keptAttributes[k] && v != "" {
			el.Attributes[k] = v
		}
	}
	setAttr := func(k, v string) {
		if v != "" {
			el.Attributes[k] = v
		}
	}
	setAttr("name", t.Name)
	setAttr("data-testid", t.TestID)
	setAttr("aria-label", t.AriaLabel)
	setAttr("role", t.Role)
	classes := strings.Fields(t.ClassName)

	if strings.TrimSpace(t.OuterHTML) != "" {
		parsed, err := fromOuterHTML(t.OuterHTML)
		if err != nil {
			return nil, domain.Validationf("target outer_html could not be parsed: %v", err)
		}
		if parsed != nil {
			if el.Tag == "" {
				el.Tag = parsed.tag
			}
			if el.ID == "" {
				el.ID = parsed.id
			}
			if el.Text == "" {
				el.Text = parsed.text
			}
			if len(classes) == 0 {
				classes = parsed.classes
			}
			for k, v := range parsed.attrs {
				if _, ok := el.Attributes[k]; !ok {
					el.Attributes[k] = v
				}
			}
		}
	}

	el.Text = truncate(el.Text, n.maxText)
	if el.CSSSelector == "" {
		el.CSSSelector = inferCSS(el, classes)
	}
	if el.XPath == "" {
		el.XPath = inferXPath(el)
	}
	if len(el.Attributes) == 0 {
		el.Attributes = nil
	}
	if el.Tag == "" && !el.HasLocator() && el.Text == "" && el.Attributes == nil {
		return nil, nil
	}
	return el, nil
}

type htmlTarget struct {
	tag     string
	id      string
	text    string
	classes []string
	attrs   map[string]string
}

// fromOuterHTML parses the captured markup and reads the first element.
func fromOuterHTML(markup string) (*htmlTarget, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, err
	}

	sel := doc.Find("body").Children().First()
	if sel.Length() == 0 {
		// head-only elements and bare text never produce a body child
		sel = doc.Find("head").Children().First()
	}
	if sel.Length() == 0 {
		return nil, nil
	}

	out := &htmlTarget{
		tag:   goquery.NodeName(sel),
		text:  collapseSpace(sel.Text()),
		attrs: map[string]string{},
	}
	if id, ok := sel.Attr("id"); ok {
		out.id = strings.TrimSpace(id)
	}
	if class, ok := sel.Attr("class"); ok {
		out.classes = strings.Fields(class)
	}
	for _, attr := range sel.Nodes[0].Attr {
		key := strings.ToLower(attr.Key)
		if keptAttributes[key] && attr.Val != "" {
			out.attrs[key] = attr.Val
		}
	}
	if out.text == "" {
		if v, ok := out.attrs["value"]; ok && (out.tag == "button" || out.tag == "input") {
			out.text = v
		}
	}
	return out, nil
}

// inferCSS builds the most specific selector the element information allows.
func inferCSS(el *domain.ElementInfo, classes []string) string {
	switch {
	case el.ID != "" && isCSSIdent(el.ID):
		return "#" + el.ID
	case el.ID != "":
		return fmt.Sprintf("[id=%q]", el.ID)
	}
	for _, attr := range []string{"data-testid", "data-test", "data-cy", "data-qa"} {
		if v := el.Attributes[attr]; v != "" {
			return fmt.Sprintf("[%s=%q]", attr, v)
		}
	}

	tag := el.Tag
	if name := el.Attributes["name"]; name != "" {
		if tag == "" {
			tag = "*"
		}
		return fmt.Sprintf("%s[name=%q]", tag, name)
	}
	if label := el.Attributes["aria-label"]; label != "" {
		if tag == "" {
			tag = "*"
		}
		return fmt.Sprintf("%s[aria-label=%q]", tag, label)
	}

	usable := make([]string, 0, len(classes))
	for _, c := range classes {
		if isCSSIdent(c) {
			usable = append(usable, c)
		}
	}
	if len(usable) > 0 {
		sort.Strings(usable)
		if len(usable) > 2 {
			usable = usable[:2]
		}
		return tag + "." + strings.Join(usable, ".")
	}
	return ""
}

func inferXPath(el *domain.ElementInfo) string {
	if el.ID != "" && !strings.Contains(el.ID, `"`) {
		return fmt.Sprintf(`//*[@id="%s"]`, el.ID)
	}
	tag := el.Tag
	if tag == "" {
		tag = "*"
	}
	if name := el.Attributes["name"]; name != "" && !strings.Contains(name, `"`) {
		return fmt.Sprintf(`//%s[@name="%s"]`, tag, name)
	}
	if el.Text != "" && el.Tag != "" && !strings.Contains(el.Text, "'") {
		return fmt.Sprintf("//%s[normalize-space()='%s']", tag, el.Text)
	}
	return ""
}

func isCSSIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '-' || r == '_':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
