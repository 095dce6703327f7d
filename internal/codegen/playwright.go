// SPDX-License-Identifier: Apache-2.0

package codegen

import (
	"fmt"
	"strings"

	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/domain"
)

type playwright struct {
	ts bool
}

func (p playwright) indent() string { return "  " }
func (p playwright) depths() (int, int) { return 1, 0 }
func (p playwright) varName(s string) string { return camel(s) }
func (p playwright) comment(s string) string { return "// " + s }
func (p playwright) empty() []string { return nil }
func (p playwright) navigate(u string) []string { return []string{"await page.goto(" + jsQuote(u) + ");"} }

func (p playwright) filename(test string) string {
	if p.ts {
		return kebab(test) + ".spec.ts"
	}
	return kebab(test) + ".spec.js"
}

func pwSelector(loc locator) string {
	if css, ok := loc.css(); ok {
		return jsQuote(css)
	}
	return jsQuote("xpath=" + loc.value)
}

func (p playwright) el(loc locator) string {
	if loc.member != "" {
		return "po." + loc.member
	}
	return "page.locator(" + pwSelector(loc) + ")"
}

func (p playwright) click(loc locator, action string, _ *render) []string {
	switch clickAction(action) {
	case "double":
		return []string{"await " + p.el(loc) + ".dblclick();"}
	case "right":
		return []string{"await " + p.el(loc) + ".click({ button: 'right' });"}
	}
	return []string{"await " + p.el(loc) + ".click();"}
}

func (p playwright) input(loc locator, ev domain.RecordedEvent, _ *render) []string {
	el := p.el(loc)
	switch inputAction(ev) {
	case "select":
		return []string{"await " + el + ".selectOption(" + jsQuote(ev.Value) + ");"}
	case "check":
		return []string{"await " + el + ".check();"}
	case "uncheck":
		return []string{"await " + el + ".uncheck();"}
	case "clear":
		return []string{"await " + el + ".clear();"}
	case "press":
		return []string{"await " + el + ".press(" + jsQuote(keyName(ev)) + ");"}
	}
	return []string{"await " + el + ".fill(" + jsQuote(ev.Value) + ");"}
}

func (p playwright) custom(loc *locator, ev domain.RecordedEvent, _ *render) []string {
	switch strings.ToLower(ev.Action) {
	case "hover", "mouseenter":
		if loc != nil {
			return []string{"await " + p.el(*loc) + ".hover();"}
		}
	case "scroll":
		if loc != nil {
			return []string{"await " + p.el(*loc) + ".scrollIntoViewIfNeeded();"}
		}
		return []string{"await page.mouse.wheel(0, 500);"}
	case "press", "keydown":
		return []string{"await page.keyboard.press(" + jsQuote(keyName(ev)) + ");"}
	case "reload":
		return []string{"await page.reload();"}
	case "back":
		return []string{"await page.goBack();"}
	case "forward":
		return []string{"await page.goForward();"}
	}
	return nil
}

func (p playwright) bind(b domain.VariableBinding, loc *locator, declared bool, _ *render) []string {
	var expr string
	switch b.Source {
	case domain.BindElementText:
		expr = "await " + p.el(*loc) + ".innerText()"
	case domain.BindElementValue:
		expr = "await " + p.el(*loc) + ".inputValue()"
	case domain.BindAttribute:
		expr = "(await " + p.el(*loc) + ".getAttribute(" + jsQuote(b.Attribute) + ")) ?? ''"
	case domain.BindURL:
		expr = "page.url()"
	case domain.BindExpression:
		expr = b.Expression
	}
	if declared {
		return []string{b.Name + " = " + expr + ";"}
	}
	return []string{"let " + b.Name + " = " + expr + ";"}
}

func (p playwright) assert(a domain.AssertionConfig, loc *locator, _ *render) []string {
	exp := "expect"
	if a.Soft {
		exp = "expect.soft"
	}
	target := func() string { return "await " + exp + "(" + p.el(*loc) + ")" }
	var stmt string
	switch a.Kind {
	case domain.AssertVisible:
		stmt = target() + ".toBeVisible();"
	case domain.AssertHidden:
		stmt = target() + ".toBeHidden();"
	case domain.AssertTextEquals:
		stmt = target() + ".toHaveText(" + jsQuote(a.Expected) + ");"
	case domain.AssertTextContains:
		stmt = target() + ".toContainText(" + jsQuote(a.Expected) + ");"
	case domain.AssertValueEquals:
		stmt = target() + ".toHaveValue(" + jsQuote(a.Expected) + ");"
	case domain.AssertAttribute:
		stmt = target() + ".toHaveAttribute(" + jsQuote(a.Attribute) + ", " + jsQuote(a.Expected) + ");"
	case domain.AssertURLContains:
		stmt = exp + "(page.url()).toContain(" + jsQuote(a.Expected) + ");"
	case domain.AssertTitleEquals:
		stmt = "await " + exp + "(page).toHaveTitle(" + jsQuote(a.Expected) + ");"
	case domain.AssertVariableEquals:
		stmt = exp + "(" + a.Variable + ").toBe(" + jsQuote(a.Expected) + ");"
	}
	return []string{stmt}
}

func (p playwright) data(name string, ds domain.DataSource, r *render) []string {
	typed := ""
	if p.ts {
		typed = ": Record<string, string>[]"
	}
	switch ds.Kind {
	case domain.DataSourceJSON:
		r.need("fs")
		return []string{"const " + name + typed + " = JSON.parse(fs.readFileSync(" + jsQuote(ds.Path) + ", 'utf8'));"}
	case domain.DataSourceCSV:
		r.need("fs")
		r.need("csv")
		return []string{"const " + name + " = readCsv(" + jsQuote(ds.Path) + ");"}
	case domain.DataSourceInline:
	}
	return []string{"const " + name + typed + " = " + jsRows(ds.Rows) + ";"}
}

func (p playwright) condition(c domain.Condition, loc *locator) string {
	var expr string
	switch c.Kind {
	case domain.ConditionElementExists:
		expr = "(await " + p.el(*loc) + ".count()) > 0"
	case domain.ConditionElementVisible:
		expr = "await " + p.el(*loc) + ".isVisible()"
	case domain.ConditionTextContains:
		expr = "(await " + p.el(*loc) + ".innerText()).includes(" + jsQuote(c.Value) + ")"
	case domain.ConditionURLContains:
		expr = "page.url().includes(" + jsQuote(c.Value) + ")"
	case domain.ConditionVariable:
		expr = jsCompare(c.Variable, c.Operator, c.Value)
	case domain.ConditionExpression:
		expr = c.Expression
	}
	return jsNegate(expr, c.Negate)
}

func (p playwright) loop(s loopSpec, _ *render) block {
	switch s.kind {
	case domain.LoopCollection:
		return block{open: []string{"for (const " + s.iter + " of " + s.collection + ") {"}, close: []string{"}"}}
	case domain.LoopCondition:
		return block{
			open:  []string{fmt.Sprintf("for (let %s = 0; %s < %d && (%s); %s++) {", s.iter, s.iter, s.max, p.condition(s.cond, s.condLoc), s.iter)},
			close: []string{"}"},
		}
	case domain.LoopCount:
	}
	return block{open: []string{fmt.Sprintf("for (let %s = 0; %s < %d; %s++) {", s.iter, s.iter, s.count, s.iter)}, close: []string{"}"}}
}

func (p playwright) branch(c domain.Condition, loc *locator, _ *render) block {
	return block{open: []string{"if (" + p.condition(c, loc) + ") {"}, close: []string{"}"}}
}

func (p playwright) group(name string, _ *render) block {
	return block{open: []string{"await test.step(" + jsQuote(name) + ", async () => {"}, close: []string{"});"}}
}

func (p playwright) groupFunc(fn string, r *render) block {
	params := "page"
	switch {
	case p.ts && r.pages != nil:
		params = "page: Page, po: " + r.pages.class
	case p.ts:
		params = "page: Page"
	case r.pages != nil:
		params = "page, po"
	}
	sig := "async function " + fn + "(" + params + ") {"
	if p.ts {
		r.need("page-type")
		sig = "async function " + fn + "(" + params + "): Promise<void> {"
	}
	return block{open: []string{sig}, close: []string{"}"}}
}

func (p playwright) groupCall(fn string, r *render) []string {
	if r.pages != nil {
		return []string{"await " + fn + "(page, po);"}
	}
	return []string{"await " + fn + "(page);"}
}

func (p playwright) assemble(title string, parts parts, r *render) string {
	var b strings.Builder
	if p.ts {
		names := "test, expect"
		if r.has("page-type") {
			names += ", type Page"
		}
		fmt.Fprintf(&b, "import { %s } from '@playwright/test';\n", names)
		if r.has("fs") {
			b.WriteString("import * as fs from 'fs';\n")
		}
		if r.pages != nil {
			fmt.Fprintf(&b, "import { %s } from './%s';\n", r.pages.class, kebab(r.pages.class))
		}
	} else {
		b.WriteString("const { test, expect } = require('@playwright/test');\n")
		if r.has("fs") {
			b.WriteString("const fs = require('fs');\n")
		}
		if r.pages != nil {
			fmt.Fprintf(&b, "const { %s } = require('./%s');\n", r.pages.class, kebab(r.pages.class))
		}
	}

	fmt.Fprintf(&b, "\ntest(%s, async ({ page }) => {\n", jsQuote(title))
	if r.pages != nil {
		fmt.Fprintf(&b, "  const po = new %s(page);\n", r.pages.class)
	}
	b.WriteString(parts.body)
	b.WriteString("});\n")

	for _, fn := range parts.funcs {
		b.WriteString("\n")
		b.WriteString(fn)
	}
	if r.has("csv") {
		b.WriteString("\n")
		b.WriteString(strings.Join(jsReadCSV(p.ts), "\n"))
		b.WriteString("\n")
	}
	return b.String()
}

func (p playwright) pageObject(pm *pageModel) string {
	var b strings.Builder
	if p.ts {
		b.WriteString("import { type Locator, type Page } from '@playwright/test';\n\n")
		fmt.Fprintf(&b, "export class %s {\n", pm.class)
		b.WriteString("  constructor(private readonly page: Page) {}\n")
	} else {
		fmt.Fprintf(&b, "class %s {\n", pm.class)
		b.WriteString("  constructor(page) {\n    this.page = page;\n  }\n")
	}
	for _, m := range pm.members {
		b.WriteString("\n")
		if p.ts {
			fmt.Fprintf(&b, "  get %s(): Locator {\n", m.name)
		} else {
			fmt.Fprintf(&b, "  get %s() {\n", m.name)
		}
		fmt.Fprintf(&b, "    return this.page.locator(%s);\n  }\n", pwSelector(m.loc))
	}
	b.WriteString("}\n")
	if !p.ts {
		fmt.Fprintf(&b, "\nmodule.exports = { %s };\n", pm.class)
	}
	return b.String()
}
