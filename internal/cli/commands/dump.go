package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/list"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/varlens/internal/config"
	"github.com/leapstack-labs/varlens/internal/provider"
	"github.com/leapstack-labs/varlens/internal/provider/yamlvars"
	"github.com/leapstack-labs/varlens/pkg/vars"
)

var (
	dumpNameStyle  = lipgloss.NewStyle().Bold(true)
	dumpTypeStyle  = lipgloss.NewStyle().Faint(true)
	dumpRangeStyle = lipgloss.NewStyle().Faint(true).Italic(true)
)

// NewDumpCommand creates the dump command.
func NewDumpCommand() *cobra.Command {
	var maxDepth int

	cmd := &cobra.Command{
		Use:   "dump FILE",
		Short: "Print a document's variable tree",
		Long: `Materialize a document's variable tree through the lazy source and print
it. Expansion stops at --max-depth levels; indexed collections larger than
the page size appear as range nodes, exactly as an editor host would see
them.`,
		Example: `  # Dump three levels of a document
  varlens dump results.yaml

  # Dump deeper with a small page size
  varlens dump results.yaml --max-depth 5 --page-size 10`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())
			depth := cfg.Dump.MaxDepth
			if cmd.Flags().Changed("max-depth") {
				depth = maxDepth
			}
			return runDump(cmd, args[0], cfg.PageSize, depth)
		},
	}

	cmd.Flags().IntVar(&maxDepth, "max-depth", config.DefaultMaxDepth, "How many levels to expand below the root")

	return cmd
}

func runDump(cmd *cobra.Command, path string, pageSize, maxDepth int) error {
	logger := config.GetLogger(cmd.Context())

	prov, err := yamlvars.Load(path)
	if err != nil {
		return err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	uri := "file://" + abs

	registry := provider.NewRegistry(logger)
	registry.Register(uri, prov)

	src := vars.NewSource(registry, pageSize, logger)
	scope := vars.NewRootScope(uri)

	w := list.NewWriter()
	w.SetStyle(list.StyleConnectedLight)
	if err := appendChildren(cmd.Context(), w, src, scope, maxDepth); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), uri)
	fmt.Fprintln(cmd.OutOrStdout(), w.Render())
	return nil
}

// appendChildren walks one level of the tree and recurses while depth
// remains, mirroring how a host expands nodes one level at a time.
func appendChildren(ctx context.Context, w list.Writer, src *vars.Source, el vars.Element, depthLeft int) error {
	if depthLeft <= 0 {
		return nil
	}

	children, err := src.GetChildren(ctx, el)
	if err != nil {
		return err
	}

	for _, c := range children {
		w.AppendItem(formatVariable(c))
		if src.HasChildren(c) {
			if depthLeft == 1 {
				w.Indent()
				w.AppendItem(dumpTypeStyle.Render("…"))
				w.UnIndent()
				continue
			}
			w.Indent()
			if err := appendChildren(ctx, w, src, c, depthLeft-1); err != nil {
				return err
			}
			w.UnIndent()
		}
	}
	return nil
}

// formatVariable renders one node as a single list line.
func formatVariable(v *vars.Variable) string {
	if v.IsRange() {
		return dumpRangeStyle.Render(fmt.Sprintf("%s (%d items)", v.Name, v.IndexedCount))
	}

	s := dumpNameStyle.Render(v.Name)
	if v.Value != "" {
		s += " = " + v.Value
	}
	if v.Type != "" {
		s += " " + dumpTypeStyle.Render("("+v.Type+")")
	}
	return s
}
