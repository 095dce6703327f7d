// SPDX-License-Identifier: Apache-2.0

package browser

import (
	"context"
	"sync"
)

// Noop is a capability without a real browser. Events arrive only through
// the intake endpoints. The Fail* knobs let callers simulate driver faults.
type Noop struct {
	mu         sync.Mutex
	active     bool
	started    int
	stopped    int
	scripts    []string
	FailStart  error
	FailStop   error
	FailScript error
}

func NewNoop() *Noop { return &Noop{} }

func (n *Noop) Start(ctx context.Context, _ LaunchConfig) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	n.started++
	if n.FailStart != nil {
		return n.FailStart
	}
	n.active = true
	return nil
}

func (n *Noop) Stop(context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stopped++
	n.active = false
	return n.FailStop
}

func (n *Noop) ExecuteScript(_ context.Context, script string) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.FailScript != nil {
		return "", n.FailScript
	}
	n.scripts = append(n.scripts, script)
	return "true", nil
}

func (n *Noop) IsActive(context.Context) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.active
}

// SetActive simulates the browser dying or coming back.
func (n *Noop) SetActive(active bool) {
	n.mu.Lock()
	n.active = active
	n.mu.Unlock()
}

func (n *Noop) Scripts() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.scripts...)
}

func (n *Noop) Calls() (started, stopped int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.started, n.stopped
}
