// SPDX-License-Identifier: Apache-2.0

package codegen

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/domain"
)

// seleniumJava renders JUnit 5 tests. page names the page object class the
// locator constants live in.
type seleniumJava struct {
	page string
}

func (j seleniumJava) indent() string { return "    " }
func (j seleniumJava) depths() (int, int) { return 2, 1 }
func (j seleniumJava) varName(s string) string { return camel(s) }
func (j seleniumJava) comment(s string) string { return "// " + s }
func (j seleniumJava) empty() []string { return nil }
func (j seleniumJava) navigate(u string) []string { return []string{"driver.get(" + javaQuote(u) + ");"} }

func (j seleniumJava) filename(test string) string { return javaClass(test) + ".java" }

func javaQuote(s string) string { return quote(s, '"') }

func javaClass(test string) string {
	name := pascal(test)
	if strings.HasSuffix(name, "Test") {
		return name
	}
	return name + "Test"
}

// seleniumKeys maps key names to the Keys constants shared by the Java and
// Python bindings.
var seleniumKeys = map[string]string{
	"enter":      "ENTER",
	"tab":        "TAB",
	"escape":     "ESCAPE",
	"backspace":  "BACK_SPACE",
	"delete":     "DELETE",
	"arrowup":    "ARROW_UP",
	"arrowdown":  "ARROW_DOWN",
	"arrowleft":  "ARROW_LEFT",
	"arrowright": "ARROW_RIGHT",
	" ":          "SPACE",
	"home":       "HOME",
	"end":        "END",
}

func (j seleniumJava) by(loc locator) string {
	if loc.member != "" {
		return j.page + "." + upperSnake(loc.member)
	}
	switch loc.kind {
	case byID:
		return "By.id(" + javaQuote(loc.value) + ")"
	case byCSS:
		return "By.cssSelector(" + javaQuote(loc.value) + ")"
	case byXPath:
	}
	return "By.xpath(" + javaQuote(loc.value) + ")"
}

func (j seleniumJava) find(loc locator) string { return "driver.findElement(" + j.by(loc) + ")" }

func (j seleniumJava) all(loc locator) string { return "driver.findElements(" + j.by(loc) + ")" }

func (j seleniumJava) key(ev domain.RecordedEvent, r *render) string {
	if k, ok := seleniumKeys[strings.ToLower(keyName(ev))]; ok {
		r.need("keys")
		return "Keys." + k
	}
	return javaQuote(keyName(ev))
}

func (j seleniumJava) click(loc locator, action string, r *render) []string {
	switch clickAction(action) {
	case "double":
		r.need("actions")
		return []string{"new Actions(driver).doubleClick(" + j.find(loc) + ").perform();"}
	case "right":
		r.need("actions")
		return []string{"new Actions(driver).contextClick(" + j.find(loc) + ").perform();"}
	}
	return []string{j.find(loc) + ".click();"}
}

func (j seleniumJava) input(loc locator, ev domain.RecordedEvent, r *render) []string {
	el := j.find(loc)
	switch inputAction(ev) {
	case "select":
		r.need("select")
		return []string{"new Select(" + el + ").selectByVisibleText(" + javaQuote(ev.Value) + ");"}
	case "check":
		return []string{"if (!" + el + ".isSelected()) {", "    " + el + ".click();", "}"}
	case "uncheck":
		return []string{"if (" + el + ".isSelected()) {", "    " + el + ".click();", "}"}
	case "clear":
		return []string{el + ".clear();"}
	case "press":
		return []string{el + ".sendKeys(" + j.key(ev, r) + ");"}
	}
	return []string{el + ".clear();", el + ".sendKeys(" + javaQuote(ev.Value) + ");"}
}

func (j seleniumJava) custom(loc *locator, ev domain.RecordedEvent, r *render) []string {
	switch strings.ToLower(ev.Action) {
	case "hover", "mouseenter":
		if loc != nil {
			r.need("actions")
			return []string{"new Actions(driver).moveToElement(" + j.find(*loc) + ").perform();"}
		}
	case "scroll":
		r.need("js")
		if loc != nil {
			return []string{"((JavascriptExecutor) driver).executeScript(\"arguments[0].scrollIntoView(true);\", " + j.find(*loc) + ");"}
		}
		return []string{"((JavascriptExecutor) driver).executeScript(\"window.scrollBy(0, 500);\");"}
	case "press", "keydown":
		r.need("actions")
		return []string{"new Actions(driver).sendKeys(" + j.key(ev, r) + ").perform();"}
	case "reload":
		return []string{"driver.navigate().refresh();"}
	case "back":
		return []string{"driver.navigate().back();"}
	case "forward":
		return []string{"driver.navigate().forward();"}
	}
	return nil
}

func (j seleniumJava) bind(b domain.VariableBinding, loc *locator, declared bool, _ *render) []string {
	var expr string
	switch b.Source {
	case domain.BindElementText:
		expr = j.find(*loc) + ".getText()"
	case domain.BindElementValue:
		expr = j.find(*loc) + ".getAttribute(\"value\")"
	case domain.BindAttribute:
		expr = j.find(*loc) + ".getAttribute(" + javaQuote(b.Attribute) + ")"
	case domain.BindURL:
		expr = "driver.getCurrentUrl()"
	case domain.BindExpression:
		expr = b.Expression
	}
	if declared {
		return []string{b.Name + " = " + expr + ";"}
	}
	return []string{"String " + b.Name + " = " + expr + ";"}
}

func (j seleniumJava) assert(a domain.AssertionConfig, loc *locator, r *render) []string {
	if a.Soft {
		r.warn(r.current, "junit has no soft assertions; %s is rendered as a hard assertion", a.Kind)
	}
	msg := ""
	if a.Message != "" {
		msg = ", " + javaQuote(a.Message)
	}
	var stmt string
	switch a.Kind {
	case domain.AssertVisible:
		stmt = "assertTrue(" + j.find(*loc) + ".isDisplayed()" + msg + ");"
	case domain.AssertHidden:
		r.need("webelement")
		stmt = "assertFalse(" + j.all(*loc) + ".stream().anyMatch(WebElement::isDisplayed)" + msg + ");"
	case domain.AssertTextEquals:
		stmt = "assertEquals(" + javaQuote(a.Expected) + ", " + j.find(*loc) + ".getText()" + msg + ");"
	case domain.AssertTextContains:
		stmt = "assertTrue(" + j.find(*loc) + ".getText().contains(" + javaQuote(a.Expected) + ")" + msg + ");"
	case domain.AssertValueEquals:
		stmt = "assertEquals(" + javaQuote(a.Expected) + ", " + j.find(*loc) + ".getAttribute(\"value\")" + msg + ");"
	case domain.AssertAttribute:
		stmt = "assertEquals(" + javaQuote(a.Expected) + ", " + j.find(*loc) + ".getAttribute(" + javaQuote(a.Attribute) + ")" + msg + ");"
	case domain.AssertURLContains:
		stmt = "assertTrue(driver.getCurrentUrl().contains(" + javaQuote(a.Expected) + ")" + msg + ");"
	case domain.AssertTitleEquals:
		stmt = "assertEquals(" + javaQuote(a.Expected) + ", driver.getTitle()" + msg + ");"
	case domain.AssertVariableEquals:
		stmt = "assertEquals(" + javaQuote(a.Expected) + ", " + a.Variable + msg + ");"
	}
	return []string{stmt}
}

func javaRows(rows []map[string]string) string {
	items := make([]string, 0, len(rows))
	for _, row := range rows {
		keys := make([]string, 0, len(row))
		for k := range row {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		entries := make([]string, 0, len(keys))
		for _, k := range keys {
			entries = append(entries, "Map.entry("+javaQuote(k)+", "+javaQuote(row[k])+")")
		}
		items = append(items, "Map.ofEntries("+strings.Join(entries, ", ")+")")
	}
	return "List.of(" + strings.Join(items, ", ") + ")"
}

func (j seleniumJava) data(name string, ds domain.DataSource, r *render) []string {
	r.need("collections")
	decl := "List<Map<String, String>> " + name + " = "
	switch ds.Kind {
	case domain.DataSourceJSON:
		r.need("jackson")
		return []string{decl + "new ObjectMapper().readValue(new File(" + javaQuote(ds.Path) + "), new TypeReference<>() {});"}
	case domain.DataSourceCSV:
		r.need("csv")
		return []string{decl + "readCsv(" + javaQuote(ds.Path) + ");"}
	case domain.DataSourceInline:
	}
	return []string{decl + javaRows(ds.Rows) + ";"}
}

func javaNumber(v string) string {
	if _, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
		return strings.TrimSpace(v)
	}
	return "Double.parseDouble(" + javaQuote(v) + ")"
}

func (j seleniumJava) condition(c domain.Condition, loc *locator, r *render) string {
	var expr string
	switch c.Kind {
	case domain.ConditionElementExists:
		expr = "!" + j.all(*loc) + ".isEmpty()"
	case domain.ConditionElementVisible:
		r.need("webelement")
		expr = j.all(*loc) + ".stream().anyMatch(WebElement::isDisplayed)"
	case domain.ConditionTextContains:
		expr = j.all(*loc) + ".stream().anyMatch(e -> e.getText().contains(" + javaQuote(c.Value) + "))"
	case domain.ConditionURLContains:
		expr = "driver.getCurrentUrl().contains(" + javaQuote(c.Value) + ")"
	case domain.ConditionVariable:
		expr = javaCompare(c.Variable, c.Operator, c.Value)
	case domain.ConditionExpression:
		expr = c.Expression
	}
	if c.Negate {
		return "!(" + expr + ")"
	}
	return expr
}

func javaCompare(name string, op domain.Operator, value string) string {
	switch op {
	case domain.OpNotEquals:
		return "!" + javaQuote(value) + ".equals(" + name + ")"
	case domain.OpContains:
		return "String.valueOf(" + name + ").contains(" + javaQuote(value) + ")"
	case domain.OpGreaterThan:
		return "Double.parseDouble(" + name + ") > " + javaNumber(value)
	case domain.OpLessThan:
		return "Double.parseDouble(" + name + ") < " + javaNumber(value)
	case domain.OpExists:
		return name + " != null && !" + name + ".isEmpty()"
	case domain.OpEquals, "":
	}
	return javaQuote(value) + ".equals(" + name + ")"
}

func (j seleniumJava) loop(s loopSpec, r *render) block {
	switch s.kind {
	case domain.LoopCollection:
		r.need("collections")
		return block{open: []string{"for (Map<String, String> " + s.iter + " : " + s.collection + ") {"}, close: []string{"}"}}
	case domain.LoopCondition:
		return block{
			open:  []string{fmt.Sprintf("for (int %s = 0; %s < %d && (%s); %s++) {", s.iter, s.iter, s.max, j.condition(s.cond, s.condLoc, r), s.iter)},
			close: []string{"}"},
		}
	case domain.LoopCount:
	}
	return block{open: []string{fmt.Sprintf("for (int %s = 0; %s < %d; %s++) {", s.iter, s.iter, s.count, s.iter)}, close: []string{"}"}}
}

func (j seleniumJava) branch(c domain.Condition, loc *locator, r *render) block {
	return block{open: []string{"if (" + j.condition(c, loc, r) + ") {"}, close: []string{"}"}}
}

func (j seleniumJava) group(name string, _ *render) block {
	return block{open: []string{"// " + name}, flat: true}
}

func (j seleniumJava) groupFunc(fn string, _ *render) block {
	return block{open: []string{"private void " + fn + "() throws Exception {"}, close: []string{"}"}}
}

func (j seleniumJava) groupCall(fn string, _ *render) []string { return []string{fn + "();"} }

func (j seleniumJava) assemble(title string, p parts, r *render) string {
	imports := []string{
		"org.junit.jupiter.api.AfterEach",
		"org.junit.jupiter.api.BeforeEach",
		"org.junit.jupiter.api.Test",
		"org.openqa.selenium.By",
		"org.openqa.selenium.WebDriver",
		"org.openqa.selenium.chrome.ChromeDriver",
	}
	optional := []struct{ feature, pkg string }{
		{"keys", "org.openqa.selenium.Keys"},
		{"webelement", "org.openqa.selenium.WebElement"},
		{"js", "org.openqa.selenium.JavascriptExecutor"},
		{"actions", "org.openqa.selenium.interactions.Actions"},
		{"select", "org.openqa.selenium.support.ui.Select"},
		{"collections", "java.util.List"},
		{"collections", "java.util.Map"},
		{"jackson", "com.fasterxml.jackson.core.type.TypeReference"},
		{"jackson", "com.fasterxml.jackson.databind.ObjectMapper"},
		{"jackson", "java.io.File"},
		{"csv", "java.nio.file.Files"},
		{"csv", "java.nio.file.Path"},
		{"csv", "java.util.ArrayList"},
		{"csv", "java.util.HashMap"},
	}
	for _, o := range optional {
		if r.has(o.feature) {
			imports = append(imports, o.pkg)
		}
	}
	if r.has("csv") {
		imports = append(imports, "java.util.List", "java.util.Map")
	}
	sort.Strings(imports)

	var b strings.Builder
	last := ""
	for _, imp := range imports {
		if imp == last {
			continue
		}
		last = imp
		fmt.Fprintf(&b, "import %s;\n", imp)
	}
	b.WriteString("\nimport static org.junit.jupiter.api.Assertions.*;\n\n")

	fmt.Fprintf(&b, "public class %s {\n", javaClass(title))
	b.WriteString("    private WebDriver driver;\n\n")
	b.WriteString("    @BeforeEach\n    void setUp() {\n        driver = new ChromeDriver();\n    }\n\n")
	b.WriteString("    @AfterEach\n    void tearDown() {\n        if (driver != null) {\n            driver.quit();\n        }\n    }\n\n")
	fmt.Fprintf(&b, "    @Test\n    void %s() throws Exception {\n", camel(title))
	b.WriteString(p.body)
	b.WriteString("    }\n")
	for _, fn := range p.funcs {
		b.WriteString("\n")
		b.WriteString(fn)
	}
	if r.has("csv") {
		b.WriteString(`
    private static List<Map<String, String>> readCsv(String path) throws Exception {
        List<String> lines = Files.readAllLines(Path.of(path));
        String[] keys = lines.get(0).split(",");
        List<Map<String, String>> rows = new ArrayList<>();
        for (String line : lines.subList(1, lines.size())) {
            String[] values = line.split(",", -1);
            Map<String, String> row = new HashMap<>();
            for (int i = 0; i < keys.length && i < values.length; i++) {
                row.put(keys[i], values[i]);
            }
            rows.add(row);
        }
        return rows;
    }
`)
	}
	b.WriteString("}\n")
	return b.String()
}

func (j seleniumJava) pageObject(pm *pageModel) string {
	var b strings.Builder
	b.WriteString("import org.openqa.selenium.By;\n\n")
	fmt.Fprintf(&b, "public final class %s {\n", pm.class)
	for _, m := range pm.members {
		loc := m.loc
		loc.member = ""
		fmt.Fprintf(&b, "    public static final By %s = %s;\n", upperSnake(m.name), j.by(loc))
	}
	fmt.Fprintf(&b, "\n    private %s() {\n    }\n}\n", pm.class)
	return b.String()
}
