// Package driver orchestrates scope-tree construction across many
// files and maintains the on-disk snapshot cache used by tooling to
// diff scope maps between runs.
package driver

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"prism/internal/diag"
	"prism/internal/fixture"
	"prism/internal/scope"
)

// Options configures a BuildAll run.
type Options struct {
	// Verify runs the structural invariant checks on every tree after
	// full expansion. Failures go to Reporter.
	Verify bool

	// ExpandAll forces full materialization; otherwise trees stay
	// lazy.
	ExpandAll bool

	// Reporter receives verification diagnostics. Nil discards them.
	Reporter diag.Reporter

	// Concurrency caps the number of files built in parallel.
	// Zero means GOMAXPROCS.
	Concurrency int
}

// Result pairs a loaded file with its scope tree.
type Result struct {
	File *fixture.File
	Tree *scope.Tree
}

// BuildAll builds one scope tree per file concurrently. Trees share
// nothing, so files parallelize freely; results keep input order.
// A verification failure fails the whole run after all files finish.
func BuildAll(ctx context.Context, files []*fixture.File, opts Options) ([]Result, error) {
	reporter := opts.Reporter
	if reporter == nil {
		reporter = diag.NopReporter{}
	}
	limit := opts.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	results := make([]Result, len(files))
	broken := make([]bool, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			tree, err := scope.Build(file.Builder, file.AST)
			if err != nil {
				return fmt.Errorf("%s: %w", file.Path, err)
			}
			if opts.ExpandAll || opts.Verify {
				tree.ExpandAll()
			}
			if opts.Verify && !tree.Verify(reporter) {
				broken[i] = true
			}
			results[i] = Result{File: file, Tree: tree}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	bad := 0
	for _, b := range broken {
		if b {
			bad++
		}
	}
	if bad > 0 {
		return results, fmt.Errorf("driver: %d of %d trees failed verification", bad, len(files))
	}
	return results, nil
}
