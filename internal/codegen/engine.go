// SPDX-License-Identifier: Apache-2.0

package codegen

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/metrics"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/model"
)

const DefaultMaxNodes = 10000

// Engine turns recording snapshots into test source. It holds no per-call
// state and is safe for concurrent use.
type Engine struct {
	logger   *slog.Logger
	maxNodes int
}

type EngineOption func(*Engine)

// WithMaxNodes bounds how many events a single generation may visit.
func WithMaxNodes(n int) EngineOption {
	return func(e *Engine) { e.maxNodes = n }
}

func New(logger *slog.Logger, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{logger: logger, maxNodes: DefaultMaxNodes}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) dialect(opts Options, page string) dialect {
	switch opts.Framework {
	case FrameworkCypress:
		return cypress{ts: opts.Language == LangTypeScript}
	case FrameworkSelenium:
		if opts.Language == LangPython {
			return seleniumPython{page: page}
		}
		return seleniumJava{page: page}
	}
	return playwright{ts: opts.Language == LangTypeScript}
}

// Generate renders snap with the requested framework and language. Problems
// with individual events become warnings; only invalid options, oversized
// recordings and cancellation fail the call.
func (e *Engine) Generate(ctx context.Context, snap *model.Snapshot, opts Options) (Result, error) {
	opts, err := opts.normalize()
	if err != nil {
		return Result{}, err
	}
	started := time.Now()

	var pages *pageModel
	class := pascal(opts.TestName) + "Page"
	if opts.IncludePageObjects {
		pages = buildPageModel(snap, class)
	}
	d := e.dialect(opts, class)
	r := newRender(ctx, d, snap, opts, pages, e.maxNodes)

	var (
		src  parts
		page string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		src, err = r.source()
		return err
	})
	if pages != nil {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			page = d.pageObject(pages)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	res := Result{
		SourceCode:     d.assemble(opts.TestName, src, r),
		PageObjectCode: page,
		Filename:       d.filename(opts.TestName),
		Warnings:       r.warnings,
	}
	if page != "" {
		res.PageObjectFilename = pageFilename(opts.Language, class)
	}
	if res.Warnings == nil {
		res.Warnings = []Warning{}
	}
	elapsed := time.Since(started)
	metrics.ObserveCodegenDuration(opts.Framework, elapsed)
	e.logger.Debug("generated test source",
		"framework", opts.Framework,
		"language", opts.Language,
		"events", snap.Len(),
		"warnings", len(res.Warnings),
		"duration", elapsed,
	)
	return res, nil
}

// pageFilename matches the module path the generated test imports the page
// object from.
func pageFilename(language, class string) string {
	switch language {
	case LangJava:
		return class + ".java"
	case LangPython:
		return snake(class) + ".py"
	case LangTypeScript:
		return kebab(class) + ".ts"
	default:
		return kebab(class) + ".js"
	}
}
