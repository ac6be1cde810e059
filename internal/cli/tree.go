package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shelfmap/shelfmap/pkg/store"
	"github.com/shelfmap/shelfmap/pkg/treeviz"
)

// treeCommand creates the tree command visualizing the location hierarchy.
func (c *CLI) treeCommand() *cobra.Command {
	var (
		output   string
		format   string
		detailed bool
	)

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Visualize the location hierarchy",
		Long: `Visualize the location hierarchy as a graph.

Without --output the DOT source is printed to stdout. With --output the
format is inferred from the file extension (.dot, .svg, .png) unless
--format overrides it. SVG and PNG rendering use Graphviz.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			return c.runTree(cmd.Context(), cfg, output, format, detailed)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: print DOT to stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "output format: dot, svg, png (default from extension)")
	cmd.Flags().BoolVarP(&detailed, "detailed", "d", false, "include descriptions and region counts")

	return cmd
}

func (c *CLI) runTree(ctx context.Context, cfg Config, output, format string, detailed bool) error {
	st, err := c.openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	tree, err := loadTree(ctx, st)
	if err != nil {
		return err
	}
	if len(tree.Locations) == 0 {
		printInfo("No locations yet; add some through the API first")
		return nil
	}

	dot := treeviz.ToDOT(tree, treeviz.Options{Detailed: detailed})

	format, err = resolveTreeFormat(output, format)
	if err != nil {
		return err
	}

	if output == "" {
		fmt.Print(dot)
		return nil
	}

	var data []byte
	switch format {
	case "dot":
		data = []byte(dot)
	case "svg", "png":
		sp := newSpinnerWithContext(ctx, "Rendering "+strings.ToUpper(format)+"...")
		sp.Start()
		if format == "svg" {
			data, err = treeviz.RenderSVG(ctx, dot)
		} else {
			data, err = treeviz.RenderPNG(ctx, dot)
		}
		if err != nil {
			if sp.Cancelled() {
				sp.Stop()
				return ctx.Err()
			}
			sp.StopWithError("Rendering failed")
			return fmt.Errorf("render %s: %w", format, err)
		}
		sp.Stop()
	}

	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	printSuccess("Rendered %d locations", len(tree.Locations))
	printFile(output)
	return nil
}

// loadTree gathers locations and per-location item and region counts.
func loadTree(ctx context.Context, st store.Store) (treeviz.Tree, error) {
	locs, err := st.Locations(ctx, store.LocationFilter{})
	if err != nil {
		return treeviz.Tree{}, fmt.Errorf("load locations: %w", err)
	}
	items, err := st.Items(ctx, store.ItemFilter{})
	if err != nil {
		return treeviz.Tree{}, fmt.Errorf("load items: %w", err)
	}

	tree := treeviz.Tree{
		Locations:   locs,
		ItemCount:   make(map[string]int, len(locs)),
		RegionCount: make(map[string]int, len(locs)),
	}
	for _, it := range items {
		if it.LocationID != "" {
			tree.ItemCount[it.LocationID]++
		}
	}
	for _, loc := range locs {
		regions, err := st.RegionsByLocation(ctx, loc.ID)
		if err != nil {
			return treeviz.Tree{}, fmt.Errorf("load regions for %s: %w", loc.Name, err)
		}
		tree.RegionCount[loc.ID] = len(regions)
	}
	return tree, nil
}

// resolveTreeFormat picks the output format from the flag or the file
// extension. Stdout output is always DOT.
func resolveTreeFormat(output, format string) (string, error) {
	if format == "" {
		if output == "" {
			return "dot", nil
		}
		switch strings.ToLower(filepath.Ext(output)) {
		case ".svg":
			format = "svg"
		case ".png":
			format = "png"
		default:
			format = "dot"
		}
	}
	switch format {
	case "dot", "svg", "png":
		return format, nil
	default:
		return "", fmt.Errorf("unknown format %q (want dot, svg, or png)", format)
	}
}
