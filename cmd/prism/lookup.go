package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"prism/internal/ast"
	"prism/internal/fixture"
	"prism/internal/scope"
	"prism/internal/source"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup [flags] fixture.toml",
	Short: "Resolve an unqualified name at an offset",
	Long:  `Lookup builds the scope tree for one fixture and reports which declarations the name resolves to at the given byte offset, innermost first`,
	Args:  cobra.ExactArgs(1),
	RunE:  runLookup,
}

func init() {
	lookupCmd.Flags().String("name", "", "identifier to resolve (empty collects everything visible)")
	lookupCmd.Flags().Uint32("offset", 0, "byte offset of the lookup location")
	lookupCmd.Flags().Bool("all", false, "collect every match instead of stopping at the first")
}

func runLookup(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	offset, _ := cmd.Flags().GetUint32("offset")
	all, _ := cmd.Flags().GetBool("all")

	f, err := fixture.Load(args[0])
	if err != nil {
		return err
	}
	tree, err := scope.Build(f.Builder, f.AST)
	if err != nil {
		return err
	}

	var nameID source.StringID
	if name != "" {
		nameID = f.Builder.Strings.InternIdent(name)
	}
	pos := source.Pos{File: f.Source, Offset: offset}

	var hits []scope.Found
	var state scope.CascadeState
	if all || name == "" {
		c := &scope.CollectConsumer{Name: nameID}
		state = tree.Lookup(nameID, pos, ast.NoContext, scope.CascadeUnknown, c)
		hits = c.Hits
	} else {
		c := &scope.FirstMatchConsumer{Name: nameID}
		state = tree.Lookup(nameID, pos, ast.NoContext, scope.CascadeUnknown, c)
		hits = c.Hits
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	paint := color.New(color.FgGreen, color.Bold)
	paint.DisableColor()
	if useColor(cmd, os.Stdout) {
		paint.EnableColor()
	}

	if len(hits) == 0 {
		fmt.Fprintf(out, "no declaration for %q at %s (%s)\n", name, describePos(f, pos), state)
		return nil
	}
	for _, hit := range hits {
		text, _ := f.Builder.Strings.Lookup(hit.Name)
		paint.Fprintf(out, "%s", text)
		fmt.Fprintf(out, "  vis=%s", hit.Vis)
		if hit.Decl.IsValid() {
			sp := f.Builder.Decls.Get(hit.Decl).Span
			fmt.Fprintf(out, "  decl=[%s]", sp)
			if lc := f.Set.Resolve(sp.StartPos()); lc.Line > 0 {
				fmt.Fprintf(out, " at %d:%d", lc.Line, lc.Col)
			}
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "cascading: %s\n", state)
	return nil
}

// describePos renders an offset with its line and column when the
// fixture carries source text.
func describePos(f *fixture.File, p source.Pos) string {
	if lc := f.Set.Resolve(p); lc.Line > 0 {
		return fmt.Sprintf("offset %d (%d:%d)", p.Offset, lc.Line, lc.Col)
	}
	return fmt.Sprintf("offset %d", p.Offset)
}
