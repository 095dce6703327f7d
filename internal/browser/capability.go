// SPDX-License-Identifier: Apache-2.0

// Package browser wraps the browser automation driver behind the small
// capability surface the recording engine needs.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type LaunchConfig struct {
	SessionID uuid.UUID
	Browser   string
	StartURL  string
	Headless  bool
}

// Capability is one browser instance driven for one recording session.
type Capability interface {
	Start(ctx context.Context, cfg LaunchConfig) error
	Stop(ctx context.Context) error
	ExecuteScript(ctx context.Context, script string) (string, error)
	IsActive(ctx context.Context) bool
}

// Factory creates a fresh capability per session.
type Factory func() Capability

const (
	DriverRod  = "rod"
	DriverNoop = "noop"
)

type Options struct {
	Driver        string
	Bin           string
	LaunchTimeout time.Duration
	// ForceHeadless launches every browser headless whatever the session
	// asked for. Hosts without a display set it.
	ForceHeadless bool
	Logger        *slog.Logger
}

// NewFactory selects a driver by name.
func NewFactory(opts Options) (Factory, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	switch opts.Driver {
	case DriverRod, "":
		return func() Capability {
			r := NewRod(opts.Bin, opts.LaunchTimeout, logger)
			r.forceHeadless = opts.ForceHeadless
			return r
		}, nil
	case DriverNoop:
		return func() Capability { return NewNoop() }, nil
	default:
		return nil, fmt.Errorf("unknown browser driver %q", opts.Driver)
	}
}
