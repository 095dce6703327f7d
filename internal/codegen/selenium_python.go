// SPDX-License-Identifier: Apache-2.0

package codegen

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/domain"
)

// seleniumPython renders pytest modules. page names the page object class
// holding the locator tuples.
type seleniumPython struct {
	page string
}

func (p seleniumPython) indent() string { return "    " }
func (p seleniumPython) depths() (int, int) { return 1, 0 }
func (p seleniumPython) varName(s string) string { return snake(s) }
func (p seleniumPython) comment(s string) string { return "# " + s }
func (p seleniumPython) empty() []string { return []string{"pass"} }
func (p seleniumPython) navigate(u string) []string { return []string{"driver.get(" + pyQuote(u) + ")"} }

func (p seleniumPython) filename(test string) string { return pyTestName(test) + ".py" }

func pyQuote(s string) string { return quote(s, '"') }

func pyTestName(test string) string {
	name := snake(test)
	if strings.HasPrefix(name, "test_") {
		return name
	}
	return "test_" + name
}

// by renders the locator as the arguments of find_element.
func (p seleniumPython) by(loc locator) string {
	if loc.member != "" {
		return "*" + p.page + "." + upperSnake(loc.member)
	}
	return pyTuple(loc)
}

func pyTuple(loc locator) string {
	switch loc.kind {
	case byID:
		return "By.ID, " + pyQuote(loc.value)
	case byCSS:
		return "By.CSS_SELECTOR, " + pyQuote(loc.value)
	case byXPath:
	}
	return "By.XPATH, " + pyQuote(loc.value)
}

func (p seleniumPython) find(loc locator) string { return "driver.find_element(" + p.by(loc) + ")" }

func (p seleniumPython) all(loc locator) string { return "driver.find_elements(" + p.by(loc) + ")" }

func (p seleniumPython) key(ev domain.RecordedEvent, r *render) string {
	if k, ok := seleniumKeys[strings.ToLower(keyName(ev))]; ok {
		r.need("keys")
		return "Keys." + k
	}
	return pyQuote(keyName(ev))
}

func (p seleniumPython) click(loc locator, action string, r *render) []string {
	switch clickAction(action) {
	case "double":
		r.need("actions")
		return []string{"ActionChains(driver).double_click(" + p.find(loc) + ").perform()"}
	case "right":
		r.need("actions")
		return []string{"ActionChains(driver).context_click(" + p.find(loc) + ").perform()"}
	}
	return []string{p.find(loc) + ".click()"}
}

func (p seleniumPython) input(loc locator, ev domain.RecordedEvent, r *render) []string {
	el := p.find(loc)
	switch inputAction(ev) {
	case "select":
		r.need("select")
		return []string{"Select(" + el + ").select_by_visible_text(" + pyQuote(ev.Value) + ")"}
	case "check":
		return []string{"if not " + el + ".is_selected():", "    " + el + ".click()"}
	case "uncheck":
		return []string{"if " + el + ".is_selected():", "    " + el + ".click()"}
	case "clear":
		return []string{el + ".clear()"}
	case "press":
		return []string{el + ".send_keys(" + p.key(ev, r) + ")"}
	}
	return []string{el + ".clear()", el + ".send_keys(" + pyQuote(ev.Value) + ")"}
}

func (p seleniumPython) custom(loc *locator, ev domain.RecordedEvent, r *render) []string {
	switch strings.ToLower(ev.Action) {
	case "hover", "mouseenter":
		if loc != nil {
			r.need("actions")
			return []string{"ActionChains(driver).move_to_element(" + p.find(*loc) + ").perform()"}
		}
	case "scroll":
		if loc != nil {
			return []string{"driver.execute_script(\"arguments[0].scrollIntoView(true);\", " + p.find(*loc) + ")"}
		}
		return []string{"driver.execute_script(\"window.scrollBy(0, 500);\")"}
	case "press", "keydown":
		r.need("actions")
		return []string{"ActionChains(driver).send_keys(" + p.key(ev, r) + ").perform()"}
	case "reload":
		return []string{"driver.refresh()"}
	case "back":
		return []string{"driver.back()"}
	case "forward":
		return []string{"driver.forward()"}
	}
	return nil
}

func (p seleniumPython) bind(b domain.VariableBinding, loc *locator, _ bool, _ *render) []string {
	var expr string
	switch b.Source {
	case domain.BindElementText:
		expr = p.find(*loc) + ".text"
	case domain.BindElementValue:
		expr = p.find(*loc) + ".get_attribute(\"value\")"
	case domain.BindAttribute:
		expr = p.find(*loc) + ".get_attribute(" + pyQuote(b.Attribute) + ")"
	case domain.BindURL:
		expr = "driver.current_url"
	case domain.BindExpression:
		expr = b.Expression
	}
	return []string{b.Name + " = " + expr}
}

func (p seleniumPython) assert(a domain.AssertionConfig, loc *locator, r *render) []string {
	if a.Soft {
		r.warn(r.current, "pytest has no soft assertions; %s is rendered as a hard assertion", a.Kind)
	}
	var expr string
	switch a.Kind {
	case domain.AssertVisible:
		expr = p.find(*loc) + ".is_displayed()"
	case domain.AssertHidden:
		expr = "not any(e.is_displayed() for e in " + p.all(*loc) + ")"
	case domain.AssertTextEquals:
		expr = p.find(*loc) + ".text == " + pyQuote(a.Expected)
	case domain.AssertTextContains:
		expr = pyQuote(a.Expected) + " in " + p.find(*loc) + ".text"
	case domain.AssertValueEquals:
		expr = p.find(*loc) + ".get_attribute(\"value\") == " + pyQuote(a.Expected)
	case domain.AssertAttribute:
		expr = p.find(*loc) + ".get_attribute(" + pyQuote(a.Attribute) + ") == " + pyQuote(a.Expected)
	case domain.AssertURLContains:
		expr = pyQuote(a.Expected) + " in driver.current_url"
	case domain.AssertTitleEquals:
		expr = "driver.title == " + pyQuote(a.Expected)
	case domain.AssertVariableEquals:
		expr = a.Variable + " == " + pyQuote(a.Expected)
	}
	if a.Message != "" {
		return []string{"assert " + expr + ", " + pyQuote(a.Message)}
	}
	return []string{"assert " + expr}
}

func (p seleniumPython) data(name string, ds domain.DataSource, r *render) []string {
	switch ds.Kind {
	case domain.DataSourceJSON:
		r.need("json")
		return []string{
			"with open(" + pyQuote(ds.Path) + ") as f:",
			"    " + name + " = json.load(f)",
		}
	case domain.DataSourceCSV:
		r.need("csv")
		return []string{
			"with open(" + pyQuote(ds.Path) + ", newline=\"\") as f:",
			"    " + name + " = list(csv.DictReader(f))",
		}
	case domain.DataSourceInline:
	}
	rows := ds.Rows
	if rows == nil {
		rows = []map[string]string{}
	}
	b, err := json.Marshal(rows)
	if err != nil {
		b = []byte("[]")
	}
	return []string{name + " = " + string(b)}
}

func pyNumber(v string) string {
	if _, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
		return strings.TrimSpace(v)
	}
	return "float(" + pyQuote(v) + ")"
}

func pyCompare(name string, op domain.Operator, value string) string {
	switch op {
	case domain.OpNotEquals:
		return name + " != " + pyQuote(value)
	case domain.OpContains:
		return pyQuote(value) + " in str(" + name + ")"
	case domain.OpGreaterThan:
		return "float(" + name + ") > " + pyNumber(value)
	case domain.OpLessThan:
		return "float(" + name + ") < " + pyNumber(value)
	case domain.OpExists:
		return "bool(" + name + ")"
	case domain.OpEquals, "":
	}
	return name + " == " + pyQuote(value)
}

func (p seleniumPython) condition(c domain.Condition, loc *locator) string {
	var expr string
	switch c.Kind {
	case domain.ConditionElementExists:
		expr = "len(" + p.all(*loc) + ") > 0"
	case domain.ConditionElementVisible:
		expr = "any(e.is_displayed() for e in " + p.all(*loc) + ")"
	case domain.ConditionTextContains:
		expr = "any(" + pyQuote(c.Value) + " in e.text for e in " + p.all(*loc) + ")"
	case domain.ConditionURLContains:
		expr = pyQuote(c.Value) + " in driver.current_url"
	case domain.ConditionVariable:
		expr = pyCompare(c.Variable, c.Operator, c.Value)
	case domain.ConditionExpression:
		expr = c.Expression
	}
	if c.Negate {
		return "not (" + expr + ")"
	}
	return expr
}

func (p seleniumPython) loop(s loopSpec, _ *render) block {
	switch s.kind {
	case domain.LoopCollection:
		return block{open: []string{"for " + s.iter + " in " + s.collection + ":"}}
	case domain.LoopCondition:
		return block{open: []string{
			fmt.Sprintf("for %s in range(%d):", s.iter, s.max),
			"    if not (" + p.condition(s.cond, s.condLoc) + "):",
			"        break",
		}}
	case domain.LoopCount:
	}
	return block{open: []string{fmt.Sprintf("for %s in range(%d):", s.iter, s.count)}}
}

func (p seleniumPython) branch(c domain.Condition, loc *locator, _ *render) block {
	return block{open: []string{"if " + p.condition(c, loc) + ":"}}
}

func (p seleniumPython) group(name string, _ *render) block {
	return block{open: []string{"# " + name}, flat: true}
}

func (p seleniumPython) groupFunc(fn string, _ *render) block {
	return block{open: []string{"def " + fn + "(driver):"}}
}

func (p seleniumPython) groupCall(fn string, _ *render) []string {
	return []string{fn + "(driver)"}
}

func (p seleniumPython) assemble(title string, parts parts, r *render) string {
	var b strings.Builder
	if r.has("csv") {
		b.WriteString("import csv\n")
	}
	if r.has("json") {
		b.WriteString("import json\n")
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	b.WriteString("import pytest\n")
	b.WriteString("from selenium import webdriver\n")
	if r.has("actions") {
		b.WriteString("from selenium.webdriver.common.action_chains import ActionChains\n")
	}
	b.WriteString("from selenium.webdriver.common.by import By\n")
	if r.has("keys") {
		b.WriteString("from selenium.webdriver.common.keys import Keys\n")
	}
	if r.has("select") {
		b.WriteString("from selenium.webdriver.support.ui import Select\n")
	}
	if r.pages != nil {
		fmt.Fprintf(&b, "\nfrom %s import %s\n", snake(r.pages.class), r.pages.class)
	}

	b.WriteString("\n\n@pytest.fixture\ndef driver():\n")
	b.WriteString("    driver = webdriver.Chrome()\n    yield driver\n    driver.quit()\n")

	for _, fn := range parts.funcs {
		b.WriteString("\n\n")
		b.WriteString(fn)
	}

	fmt.Fprintf(&b, "\n\ndef %s(driver):\n", pyTestName(title))
	if parts.body == "" {
		b.WriteString("    pass\n")
	}
	b.WriteString(parts.body)
	return b.String()
}

func (p seleniumPython) pageObject(pm *pageModel) string {
	var b strings.Builder
	b.WriteString("from selenium.webdriver.common.by import By\n\n\n")
	fmt.Fprintf(&b, "class %s:\n", pm.class)
	if len(pm.members) == 0 {
		b.WriteString("    pass\n")
	}
	for _, m := range pm.members {
		fmt.Fprintf(&b, "    %s = (%s)\n", upperSnake(m.name), pyTuple(m.loc))
	}
	return b.String()
}
