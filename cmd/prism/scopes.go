package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"prism/internal/diag"
	"prism/internal/driver"
	"prism/internal/fixture"
	"prism/internal/scope"
)

var scopesCmd = &cobra.Command{
	Use:   "scopes [flags] fixture.toml...",
	Short: "Build and dump scope trees",
	Long:  `Scopes builds the lazy scope tree for each fixture and dumps it; by default only what lookups materialized, with --expand-all the whole tree`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runScopes,
}

func init() {
	scopesCmd.Flags().Bool("expand-all", false, "materialize every scope before dumping")
	scopesCmd.Flags().Bool("verify", false, "check structural invariants")
	scopesCmd.Flags().Bool("snapshot", false, "save a scope snapshot to the user cache and diff against the previous run")
}

func runScopes(cmd *cobra.Command, args []string) error {
	expandAll, _ := cmd.Flags().GetBool("expand-all")
	verify, _ := cmd.Flags().GetBool("verify")
	snapshot, _ := cmd.Flags().GetBool("snapshot")
	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}

	files := make([]*fixture.File, 0, len(args))
	for _, path := range args {
		f, err := fixture.Load(path)
		if err != nil {
			return err
		}
		files = append(files, f)
	}

	bag := diag.NewBag(maxDiagnostics)
	results, err := driver.BuildAll(cmd.Context(), files, driver.Options{
		Verify:    verify,
		ExpandAll: expandAll,
		Reporter:  diag.BagReporter{Bag: bag},
	})
	printDiagnostics(cmd, bag)
	if err != nil {
		return err
	}

	var cache *driver.SnapshotCache
	if snapshot {
		if cache, err = driver.OpenSnapshotCache("prism"); err != nil {
			return fmt.Errorf("snapshot cache: %w", err)
		}
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	paint := color.New(color.FgCyan, color.Bold)
	paint.DisableColor()
	if useColor(cmd, os.Stdout) {
		paint.EnableColor()
	}

	for _, r := range results {
		paint.Fprintf(out, "== %s\n", r.File.Path)
		if err := scope.Dump(out, r.Tree, r.File.Builder.Strings); err != nil {
			return err
		}
		if cache != nil {
			if err := saveSnapshot(out, cache, r); err != nil {
				return err
			}
		}
	}
	return nil
}

func saveSnapshot(out *bufio.Writer, cache *driver.SnapshotCache, r driver.Result) error {
	raw, err := os.ReadFile(r.File.Path)
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", r.File.Path, err)
	}
	key := driver.HashContent(raw)
	snap := driver.Capture(r.Tree, r.File.Path)

	var prev driver.Snapshot
	if ok, err := cache.Get(key, &prev); err != nil {
		return fmt.Errorf("snapshot %s: %w", r.File.Path, err)
	} else if ok {
		if changed := snap.Diff(&prev); len(changed) > 0 {
			fmt.Fprintf(out, "snapshot: %d scopes changed since last run\n", len(changed))
		} else {
			fmt.Fprintf(out, "snapshot: unchanged\n")
		}
	}
	return cache.Put(key, snap)
}

func printDiagnostics(cmd *cobra.Command, bag *diag.Bag) {
	if bag.Len() == 0 {
		return
	}
	paint := color.New(color.FgRed, color.Bold)
	paint.DisableColor()
	if useColor(cmd, os.Stderr) {
		paint.EnableColor()
	}
	for _, d := range bag.Items() {
		var notes strings.Builder
		for _, n := range d.Notes {
			fmt.Fprintf(&notes, "\n  note: %s [%s]", n.Msg, n.Span)
		}
		paint.Fprintf(os.Stderr, "%s %s", d.Code, d.Severity)
		fmt.Fprintf(os.Stderr, ": %s [%s]%s\n", d.Message, d.Primary, notes.String())
	}
}
