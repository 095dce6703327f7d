// SPDX-License-Identifier: Apache-2.0

package codegen

import (
	"fmt"
	"strings"

	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/domain"
)

type cypress struct {
	ts bool
}

func (c cypress) indent() string { return "  " }
func (c cypress) depths() (int, int) { return 2, 0 }
func (c cypress) varName(s string) string { return camel(s) }
func (c cypress) comment(s string) string { return "// " + s }
func (c cypress) empty() []string { return nil }
func (c cypress) navigate(u string) []string { return []string{"cy.visit(" + jsQuote(u) + ");"} }

func (c cypress) filename(test string) string {
	if c.ts {
		return kebab(test) + ".cy.ts"
	}
	return kebab(test) + ".cy.js"
}

func (c cypress) el(loc locator, r *render) string {
	if loc.member != "" {
		return "po." + loc.member + "()"
	}
	if css, ok := loc.css(); ok {
		return "cy.get(" + jsQuote(css) + ")"
	}
	r.need("xpath")
	return "cy.xpath(" + jsQuote(loc.value) + ")"
}

var cyKeys = map[string]string{
	"enter":      "{enter}",
	"escape":     "{esc}",
	"backspace":  "{backspace}",
	"delete":     "{del}",
	"arrowup":    "{uparrow}",
	"arrowdown":  "{downarrow}",
	"arrowleft":  "{leftarrow}",
	"arrowright": "{rightarrow}",
	"home":       "{home}",
	"end":        "{end}",
}

// cyText escapes the special-sequence syntax of cy.type.
func cyText(s string) string { return jsQuote(strings.ReplaceAll(s, "{", "{{}")) }

func cyKey(ev domain.RecordedEvent) string {
	key := keyName(ev)
	if seq, ok := cyKeys[strings.ToLower(key)]; ok {
		return jsQuote(seq)
	}
	return cyText(key)
}

func (c cypress) click(loc locator, action string, r *render) []string {
	el := c.el(loc, r)
	switch clickAction(action) {
	case "double":
		return []string{el + ".dblclick();"}
	case "right":
		return []string{el + ".rightclick();"}
	}
	return []string{el + ".click();"}
}

func (c cypress) input(loc locator, ev domain.RecordedEvent, r *render) []string {
	el := c.el(loc, r)
	switch inputAction(ev) {
	case "select":
		return []string{el + ".select(" + jsQuote(ev.Value) + ");"}
	case "check":
		return []string{el + ".check();"}
	case "uncheck":
		return []string{el + ".uncheck();"}
	case "clear":
		return []string{el + ".clear();"}
	case "press":
		return []string{el + ".type(" + cyKey(ev) + ");"}
	}
	if ev.Value == "" {
		return []string{el + ".clear();"}
	}
	return []string{el + ".clear().type(" + cyText(ev.Value) + ");"}
}

func (c cypress) custom(loc *locator, ev domain.RecordedEvent, r *render) []string {
	switch strings.ToLower(ev.Action) {
	case "hover", "mouseenter":
		if loc != nil {
			return []string{c.el(*loc, r) + ".trigger('mouseover');"}
		}
	case "scroll":
		if loc != nil {
			return []string{c.el(*loc, r) + ".scrollIntoView();"}
		}
		return []string{"cy.scrollTo('bottom');"}
	case "press", "keydown":
		return []string{"cy.get('body').type(" + cyKey(ev) + ");"}
	case "reload":
		return []string{"cy.reload();"}
	case "back":
		return []string{"cy.go('back');"}
	case "forward":
		return []string{"cy.go('forward');"}
	}
	return nil
}

func (c cypress) bind(b domain.VariableBinding, loc *locator, _ bool, r *render) []string {
	r.aliases[b.Name] = true
	as := ".as(" + jsQuote(b.Name) + ");"
	switch b.Source {
	case domain.BindElementText:
		return []string{c.el(*loc, r) + ".invoke('text')" + as}
	case domain.BindElementValue:
		return []string{c.el(*loc, r) + ".invoke('val')" + as}
	case domain.BindAttribute:
		return []string{c.el(*loc, r) + ".invoke('attr', " + jsQuote(b.Attribute) + ")" + as}
	case domain.BindURL:
		return []string{"cy.url()" + as}
	case domain.BindExpression:
	}
	return []string{"cy.wrap(" + b.Expression + ")" + as}
}

func (c cypress) assert(a domain.AssertionConfig, loc *locator, r *render) []string {
	if a.Soft {
		r.warn(r.current, "cypress has no soft assertions; %s is rendered as a hard assertion", a.Kind)
	}
	should := func(args ...string) string {
		return c.el(*loc, r) + ".should(" + strings.Join(args, ", ") + ");"
	}
	switch a.Kind {
	case domain.AssertVisible:
		return []string{should("'be.visible'")}
	case domain.AssertHidden:
		return []string{should("'not.be.visible'")}
	case domain.AssertTextEquals:
		return []string{should("'have.text'", jsQuote(a.Expected))}
	case domain.AssertTextContains:
		return []string{should("'contain.text'", jsQuote(a.Expected))}
	case domain.AssertValueEquals:
		return []string{should("'have.value'", jsQuote(a.Expected))}
	case domain.AssertAttribute:
		return []string{should("'have.attr'", jsQuote(a.Attribute), jsQuote(a.Expected))}
	case domain.AssertURLContains:
		return []string{"cy.url().should('include', " + jsQuote(a.Expected) + ");"}
	case domain.AssertTitleEquals:
		return []string{"cy.title().should('eq', " + jsQuote(a.Expected) + ");"}
	case domain.AssertVariableEquals:
	}
	if r.aliases[a.Variable] {
		return []string{"cy.get(" + jsQuote("@"+a.Variable) + ").should('eq', " + jsQuote(a.Expected) + ");"}
	}
	return []string{"expect(" + a.Variable + ").to.equal(" + jsQuote(a.Expected) + ");"}
}

func (c cypress) data(name string, ds domain.DataSource, r *render) []string {
	switch ds.Kind {
	case domain.DataSourceJSON:
		r.aliases[name] = true
		return []string{"cy.readFile(" + jsQuote(ds.Path) + ").as(" + jsQuote(name) + ");"}
	case domain.DataSourceCSV:
		r.aliases[name] = true
		r.need("csv")
		return []string{"cy.readFile(" + jsQuote(ds.Path) + ").then((text) => parseCsv(text)).as(" + jsQuote(name) + ");"}
	case domain.DataSourceInline:
	}
	return []string{"const " + name + " = " + jsRows(ds.Rows) + ";"}
}

// guard renders c as an if statement. Conditions that need the page are
// read inside a then callback, so the guard may open two scopes.
func (c cypress) guard(cond domain.Condition, loc *locator, r *render) block {
	in := c.indent()
	wrap := func(subject, param, expr string) block {
		return block{
			open:   []string{subject + ".then((" + param + ") => {", in + "if (" + jsNegate(expr, cond.Negate) + ") {"},
			close:  []string{in + "}", "});"},
			levels: 2,
		}
	}
	plain := func(expr string) block {
		return block{open: []string{"if (" + jsNegate(expr, cond.Negate) + ") {"}, close: []string{"}"}}
	}

	switch cond.Kind {
	case domain.ConditionElementExists, domain.ConditionElementVisible, domain.ConditionTextContains:
		css, ok := loc.css()
		if !ok {
			if cond.Kind != domain.ConditionElementExists {
				r.warn(r.current, "cypress cannot evaluate %s against an xpath locator; it never holds", cond.Kind)
				return plain("false")
			}
			return wrap("cy.document()", "doc", "doc.evaluate("+jsQuote(loc.value)+
				", doc, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue !== null")
		}
		found := "$body.find(" + jsQuote(css) + ")"
		switch cond.Kind {
		case domain.ConditionElementVisible:
			return wrap("cy.get('body')", "$body", found+".is(':visible')")
		case domain.ConditionTextContains:
			return wrap("cy.get('body')", "$body", found+".text().includes("+jsQuote(cond.Value)+")")
		}
		return wrap("cy.get('body')", "$body", found+".length > 0")
	case domain.ConditionURLContains:
		return wrap("cy.url()", "url", "url.includes("+jsQuote(cond.Value)+")")
	case domain.ConditionVariable:
		expr := jsCompare(cond.Variable, cond.Operator, cond.Value)
		if r.aliases[cond.Variable] {
			return wrap("cy.get("+jsQuote("@"+cond.Variable)+")", cond.Variable, expr)
		}
		return plain(expr)
	case domain.ConditionExpression:
	}
	return plain(cond.Expression)
}

func (c cypress) loop(s loopSpec, r *render) block {
	in := c.indent()
	switch s.kind {
	case domain.LoopCollection:
		each := s.collection + ".forEach((" + s.iter + ") => {"
		if s.alias {
			return block{
				open:   []string{"cy.get(" + jsQuote("@"+s.collection) + ").then((" + s.collection + ") => {", in + each},
				close:  []string{in + "});", "});"},
				levels: 2,
			}
		}
		return block{open: []string{each}, close: []string{"});"}}
	case domain.LoopCondition:
		r.warn(r.current, "condition loop is unrolled into %d guarded iterations", s.max)
		g := c.guard(s.cond, s.condLoc, r)
		blk := block{
			open:   []string{fmt.Sprintf("Cypress._.times(%d, (%s) => {", s.max, s.iter)},
			levels: 1 + g.depth(),
		}
		for _, l := range g.open {
			blk.open = append(blk.open, in+l)
		}
		for _, l := range g.close {
			blk.close = append(blk.close, in+l)
		}
		blk.close = append(blk.close, "});")
		return blk
	case domain.LoopCount:
	}
	return block{open: []string{fmt.Sprintf("Cypress._.times(%d, (%s) => {", s.count, s.iter)}, close: []string{"});"}}
}

func (c cypress) branch(cond domain.Condition, loc *locator, r *render) block {
	return c.guard(cond, loc, r)
}

func (c cypress) group(name string, _ *render) block {
	return block{open: []string{"cy.log(" + jsQuote(name) + ");"}, flat: true}
}

func (c cypress) groupFunc(fn string, r *render) block {
	params := ""
	if r.pages != nil {
		params = "po"
		if c.ts {
			params = "po: " + r.pages.class
		}
	}
	return block{open: []string{"function " + fn + "(" + params + ") {"}, close: []string{"}"}}
}

func (c cypress) groupCall(fn string, r *render) []string {
	if r.pages != nil {
		return []string{fn + "(po);"}
	}
	return []string{fn + "();"}
}

func (c cypress) assemble(title string, p parts, r *render) string {
	var b strings.Builder
	if r.has("xpath") {
		b.WriteString("// XPath locators need the cypress-xpath plugin.\n")
	}
	if r.pages != nil {
		fmt.Fprintf(&b, "import { %s } from './%s';\n", r.pages.class, kebab(r.pages.class))
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "describe(%s, () => {\n", jsQuote(title))
	b.WriteString("  it('replays the recorded steps', () => {\n")
	if r.pages != nil {
		fmt.Fprintf(&b, "    const po = new %s();\n", r.pages.class)
	}
	b.WriteString(p.body)
	b.WriteString("  });\n});\n")

	for _, fn := range p.funcs {
		b.WriteString("\n")
		b.WriteString(fn)
	}
	if r.has("csv") {
		sig := "function parseCsv(text) {"
		if c.ts {
			sig = "function parseCsv(text: string): Record<string, string>[] {"
		}
		b.WriteString("\n" + sig + "\n")
		b.WriteString("  const [header, ...lines] = text.trim().split(/\\r?\\n/);\n")
		b.WriteString("  const keys = header.split(',');\n")
		b.WriteString("  return lines.map((line) => Object.fromEntries(line.split(',').map((v, i) => [keys[i], v])));\n")
		b.WriteString("}\n")
	}
	return b.String()
}

func (c cypress) pageObject(pm *pageModel) string {
	var b strings.Builder
	fmt.Fprintf(&b, "export class %s {\n", pm.class)
	for i, m := range pm.members {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "  %s() {\n", m.name)
		if css, ok := m.loc.css(); ok {
			fmt.Fprintf(&b, "    return cy.get(%s);\n", jsQuote(css))
		} else {
			fmt.Fprintf(&b, "    return cy.xpath(%s);\n", jsQuote(m.loc.value))
		}
		b.WriteString("  }\n")
	}
	b.WriteString("}\n")
	return b.String()
}
