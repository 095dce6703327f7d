// SPDX-License-Identifier: Apache-2.0

package codegen

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/domain"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/model"
)

// block is the opening and closing text of a construct. Flat blocks keep
// their body at the current indentation; levels is how far the body is
// indented otherwise, when the opening spans nested scopes.
type block struct {
	open   []string
	close  []string
	flat   bool
	levels int
}

func (b block) depth() int {
	if b.levels > 0 {
		return b.levels
	}
	return 1
}

type loopSpec struct {
	kind       domain.LoopKind
	count      int
	iter       string
	collection string
	alias      bool
	cond       domain.Condition
	condLoc    *locator
	max        int
}

// dialect renders single constructs for one framework and language. The
// walker decides what to emit and in which order; a dialect only decides how
// it is spelled.
type dialect interface {
	indent() string
	depths() (body, fn int)
	filename(test string) string
	varName(s string) string
	comment(s string) string
	empty() []string

	navigate(url string) []string
	click(loc locator, action string, r *render) []string
	input(loc locator, ev domain.RecordedEvent, r *render) []string
	custom(loc *locator, ev domain.RecordedEvent, r *render) []string
	bind(b domain.VariableBinding, loc *locator, declared bool, r *render) []string
	assert(a domain.AssertionConfig, loc *locator, r *render) []string
	data(name string, ds domain.DataSource, r *render) []string

	loop(spec loopSpec, r *render) block
	branch(c domain.Condition, loc *locator, r *render) block
	group(name string, r *render) block
	groupFunc(fn string, r *render) block
	groupCall(fn string, r *render) []string

	assemble(title string, p parts, r *render) string
	pageObject(pm *pageModel) string
}

// parts is what the walker produced for one source file.
type parts struct {
	body  string
	funcs []string
}

type scope struct {
	parent *scope
	vars   map[string]bool
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, vars: map[string]bool{}}
}

func (s *scope) has(name string) bool {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.vars[name] {
			return true
		}
	}
	return false
}

func (s *scope) declare(name string) { s.vars[name] = true }

// render carries the state of one generation pass over a snapshot.
type render struct {
	ctx      context.Context
	d        dialect
	snap     *model.Snapshot
	opts     Options
	pages    *pageModel
	maxNodes int

	features  map[string]bool
	warnings  []Warning
	scope     *scope
	data      map[uuid.UUID]string
	aliases   map[string]bool
	funcs     []string
	funcNames map[string]int
	visited   int
	current   uuid.UUID
}

func newRender(ctx context.Context, d dialect, snap *model.Snapshot, opts Options, pages *pageModel, maxNodes int) *render {
	return &render{
		ctx:       ctx,
		d:         d,
		snap:      snap,
		opts:      opts,
		pages:     pages,
		maxNodes:  maxNodes,
		features:  map[string]bool{},
		scope:     newScope(nil),
		data:      map[uuid.UUID]string{},
		aliases:   map[string]bool{},
		funcNames: map[string]int{},
	}
}

func (r *render) need(feature string) { r.features[feature] = true }

func (r *render) has(feature string) bool { return r.features[feature] }

func (r *render) warn(id uuid.UUID, format string, args ...any) {
	r.warnings = append(r.warnings, Warning{EventID: id, Message: fmt.Sprintf(format, args...)})
}

func (r *render) source() (parts, error) {
	body, _ := r.d.depths()
	w := newWriter(r.d.indent())
	w.depth = body
	if err := r.walk(w, r.snap.Roots()); err != nil {
		return parts{}, err
	}
	return parts{body: w.String(), funcs: r.funcs}, nil
}

func (r *render) walk(w *writer, events []domain.RecordedEvent) error {
	for _, ev := range events {
		if err := r.node(w, ev); err != nil {
			return err
		}
	}
	return nil
}

func (r *render) locate(el *domain.ElementInfo) *locator {
	loc, ok := resolve(el)
	if !ok {
		return nil
	}
	loc = r.pages.lookup(loc)
	return &loc
}

func (r *render) placeholder(w *writer, ev domain.RecordedEvent, what string) {
	w.line(r.d.comment(fmt.Sprintf("unresolved locator: %s %s (%s)", ev.Type, ev.ID, what)))
	r.warn(ev.ID, "%s event has no usable locator; emitted a placeholder", ev.Type)
}

func (r *render) node(w *writer, ev domain.RecordedEvent) error {
	if err := r.ctx.Err(); err != nil {
		return err
	}
	r.visited++
	r.current = ev.ID
	if r.maxNodes > 0 && r.visited > r.maxNodes {
		return domain.Validationf("recording has more than %d events", r.maxNodes)
	}

	loc := r.locate(ev.Element)
	switch ev.Type {
	case domain.EventNavigation:
		if ev.URL == "" {
			w.line(r.d.comment("navigation without url"))
			r.warn(ev.ID, "navigation event has no url")
			break
		}
		w.lines(r.d.navigate(ev.URL))
	case domain.EventClick:
		if loc == nil {
			r.placeholder(w, ev, ev.Action)
			break
		}
		w.lines(r.d.click(*loc, ev.Action, r))
	case domain.EventInput:
		if loc == nil {
			r.placeholder(w, ev, ev.Action)
			break
		}
		w.lines(r.d.input(*loc, ev, r))
	case domain.EventCustom:
		if lines := r.d.custom(loc, ev, r); lines != nil {
			w.lines(lines)
			break
		}
		w.line(r.d.comment(fmt.Sprintf("custom event %q", ev.Action)))
	case domain.EventDataSource:
		name := r.d.varName(dataName(*ev.DataSource))
		r.data[ev.ID] = name
		w.lines(r.d.data(name, *ev.DataSource, r))
		r.scope.declare(name)
	case domain.EventLoop:
		return r.loop(w, ev)
	case domain.EventConditional:
		return r.branch(w, ev)
	case domain.EventGroup:
		return r.group(w, ev)
	case domain.EventAssertion, domain.EventCapture:
		// carried entirely by companions
	}

	r.companions(w, ev, loc)
	return nil
}

func dataName(ds domain.DataSource) string {
	if ds.Variable != "" {
		return ds.Variable
	}
	return ds.Name
}

func needsElement(kind domain.AssertionKind) bool {
	switch kind {
	case domain.AssertURLContains, domain.AssertTitleEquals, domain.AssertVariableEquals:
		return false
	case domain.AssertVisible, domain.AssertHidden, domain.AssertTextEquals, domain.AssertTextContains,
		domain.AssertValueEquals, domain.AssertAttribute:
	}
	return true
}

func bindingNeedsElement(src domain.BindingSource) bool {
	switch src {
	case domain.BindURL, domain.BindExpression:
		return false
	case domain.BindElementText, domain.BindElementValue, domain.BindAttribute:
	}
	return true
}

// companions emits the binding and assertions attached to ev right after
// its primary statement.
func (r *render) companions(w *writer, ev domain.RecordedEvent, host *locator) {
	if b := ev.Binding; b != nil {
		loc := host
		if b.Element != nil {
			loc = r.locate(b.Element)
		}
		name := r.d.varName(b.Name)
		if bindingNeedsElement(b.Source) && loc == nil {
			r.placeholder(w, ev, "capture "+b.Name)
		} else {
			bound := *b
			bound.Name = name
			w.lines(r.d.bind(bound, loc, r.scope.has(name), r))
		}
		r.scope.declare(name)
	}

	for _, a := range ev.Assertions {
		loc := host
		if a.Element != nil {
			loc = r.locate(a.Element)
		}
		if needsElement(a.Kind) && loc == nil {
			r.placeholder(w, ev, "assert "+string(a.Kind))
			continue
		}
		if a.Kind == domain.AssertVariableEquals {
			a.Variable = r.d.varName(a.Variable)
			if !r.scope.has(a.Variable) {
				r.warn(ev.ID, "assertion reads variable %q before it is captured", a.Variable)
			}
		}
		w.lines(r.d.assert(a, loc, r))
	}
}

func (r *render) children(w *writer, ev domain.RecordedEvent, blk block) error {
	if blk.flat {
		w.lines(blk.open)
		if err := r.walk(w, r.snap.Children(ev.ID)); err != nil {
			return err
		}
		w.lines(blk.close)
		return nil
	}

	w.open(blk.open, blk.depth())
	outer := r.scope
	r.scope = newScope(outer)
	err := r.walk(w, r.snap.Children(ev.ID))
	r.scope = outer
	w.close(blk.close, r.d.empty())
	return err
}

// condition prepares c for a dialect: it resolves the element and replaces
// a condition that cannot be evaluated with a constant false.
func (r *render) condition(id uuid.UUID, c domain.Condition) (domain.Condition, *locator) {
	switch c.Kind {
	case domain.ConditionElementExists, domain.ConditionElementVisible, domain.ConditionTextContains:
		loc := r.locate(c.Element)
		if loc == nil {
			r.warn(id, "condition %s has no usable locator; it never holds", c.Kind)
			return domain.Condition{Kind: domain.ConditionExpression, Expression: "false"}, nil
		}
		return c, loc
	case domain.ConditionVariable:
		c.Variable = r.d.varName(c.Variable)
		if !r.scope.has(c.Variable) {
			r.warn(id, "condition reads variable %q before it is captured", c.Variable)
		}
	case domain.ConditionURLContains, domain.ConditionExpression:
	}
	return c, nil
}

func (r *render) loop(w *writer, ev domain.RecordedEvent) error {
	l := ev.Loop
	spec := loopSpec{kind: l.Kind, count: l.Count, max: l.MaxIterations}

	iter := l.Iterator
	if iter == "" {
		iter = iterFallback(l.Kind)
	}
	iter = r.d.varName(iter)
	for n, base := 2, iter; r.scope.has(iter); n++ {
		iter = r.d.varName(fmt.Sprintf("%s %d", base, n))
	}
	spec.iter = iter

	switch l.Kind {
	case domain.LoopCollection:
		name := ""
		if l.DataSourceID != nil {
			name = r.data[*l.DataSourceID]
		}
		if name == "" && l.Collection != "" {
			name = r.d.varName(l.Collection)
		}
		if name == "" {
			name = r.d.varName("rows")
		}
		if !r.scope.has(name) {
			r.warn(ev.ID, "loop iterates %q which is not declared before the loop", name)
		}
		spec.collection = name
		spec.alias = r.aliases[name]
	case domain.LoopCondition:
		spec.cond, spec.condLoc = r.condition(ev.ID, *l.Condition)
		if spec.max <= 0 {
			spec.max = 10
		}
	case domain.LoopCount:
	}

	blk := r.d.loop(spec, r)
	w.open(blk.open, blk.depth())
	outer := r.scope
	r.scope = newScope(outer)
	r.scope.declare(iter)
	err := r.walk(w, r.snap.Children(ev.ID))
	r.scope = outer
	w.close(blk.close, r.d.empty())
	return err
}

func iterFallback(kind domain.LoopKind) string {
	switch kind {
	case domain.LoopCount:
		return "i"
	case domain.LoopCollection:
		return "row"
	case domain.LoopCondition:
		return "attempt"
	}
	return "it"
}

func (r *render) branch(w *writer, ev domain.RecordedEvent) error {
	c, loc := r.condition(ev.ID, *ev.Condition)
	return r.children(w, ev, r.d.branch(c, loc, r))
}

func (r *render) group(w *writer, ev domain.RecordedEvent) error {
	name := ev.Group.Name
	if !r.opts.ExtractGroups {
		return r.children(w, ev, r.d.group(name, r))
	}

	fn := r.d.varName(name)
	r.funcNames[fn]++
	if n := r.funcNames[fn]; n > 1 {
		fn = r.d.varName(fmt.Sprintf("%s %d", name, n))
	}

	_, depth := r.d.depths()
	fw := newWriter(r.d.indent())
	fw.depth = depth
	blk := r.d.groupFunc(fn, r)
	outer := r.scope
	r.scope = newScope(nil)
	fw.open(blk.open, blk.depth())
	err := r.walk(fw, r.snap.Children(ev.ID))
	fw.close(blk.close, r.d.empty())
	r.scope = outer
	if err != nil {
		return err
	}
	r.funcs = append(r.funcs, fw.String())
	w.lines(r.d.groupCall(fn, r))
	return nil
}
