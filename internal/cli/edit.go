package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/shelfmap/shelfmap/pkg/editor"
	"github.com/shelfmap/shelfmap/pkg/inventory"
	"github.com/shelfmap/shelfmap/pkg/store"
)

// editCommand creates the edit command running the region editor TUI.
func (c *CLI) editCommand() *cobra.Command {
	var magnetism string

	cmd := &cobra.Command{
		Use:   "edit <location>",
		Short: "Edit the regions of a location interactively",
		Long: `Edit the regions of a location interactively.

The location is matched by id first, then by unique name. The editor
draws the location's regions over a scaled canvas of its photo; drag to
move, grab the corner to resize, press d to draw new regions. Saving
replaces the location's whole region set on the store.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if magnetism != "" {
				cfg.Editor.Magnetism = magnetism
			}
			return c.runEdit(cmd.Context(), cfg, args[0])
		},
	}

	cmd.Flags().StringVarP(&magnetism, "magnetism", "m", "", "snap mode: none, edges, distance (default from config)")

	return cmd
}

func (c *CLI) runEdit(ctx context.Context, cfg Config, locationRef string) error {
	st, err := c.openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	loc, err := resolveLocation(ctx, st, locationRef)
	if err != nil {
		return err
	}
	if loc.ImageSize().IsZero() {
		return fmt.Errorf("location %q has no image; upload one before editing regions", loc.Name)
	}
	regions, err := st.RegionsByLocation(ctx, loc.ID)
	if err != nil {
		return fmt.Errorf("load regions: %w", err)
	}
	crumbs, err := st.Breadcrumbs(ctx, loc.ID)
	if err != nil {
		return fmt.Errorf("load breadcrumbs: %w", err)
	}

	mode := editor.MagnetMode(cfg.Editor.Magnetism)
	switch mode {
	case editor.MagnetNone, editor.MagnetEdges, editor.MagnetDistance:
	default:
		return fmt.Errorf("unknown magnetism mode %q (want none, edges, or distance)", cfg.Editor.Magnetism)
	}

	model := newEditModel(editModelParams{
		location:  loc,
		crumbs:    crumbs,
		regions:   regions,
		magnetism: editor.MagnetConfig{Mode: mode, Threshold: cfg.Editor.Threshold},
		logger:    c.Logger,
		save: func(rs []editor.Region) error {
			loggerFromContext(ctx).Debug("replacing regions", "location", loc.ID, "count", len(rs))
			out := make([]inventory.Region, 0, len(rs))
			for _, r := range rs {
				out = append(out, inventory.RegionFromEditor(loc.ID, r))
			}
			_, err := st.ReplaceRegions(ctx, loc.ID, out)
			return err
		},
	})

	p := tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen(), tea.WithMouseAllMotion())
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("editor: %w", err)
	}
	if m, ok := final.(editModel); ok {
		if m.saveErr != nil {
			return fmt.Errorf("save regions: %w", m.saveErr)
		}
		if m.saved {
			printSuccess("Saved %d regions to %s", len(m.ctrl.Regions()), loc.Name)
		} else if *m.dirty {
			printWarning("Discarded unsaved region changes")
		}
	}
	return nil
}

// resolveLocation finds a location by id, then by unique name.
func resolveLocation(ctx context.Context, st store.Store, ref string) (inventory.Location, error) {
	loc, err := st.Location(ctx, ref)
	if err == nil {
		return loc, nil
	}
	if !inventory.IsNotFound(err) {
		return inventory.Location{}, err
	}

	all, err := st.Locations(ctx, store.LocationFilter{})
	if err != nil {
		return inventory.Location{}, err
	}
	var matches []inventory.Location
	for _, l := range all {
		if l.Name == ref {
			matches = append(matches, l)
		}
	}
	switch len(matches) {
	case 0:
		return inventory.Location{}, fmt.Errorf("no location with id or name %q", ref)
	case 1:
		return matches[0], nil
	default:
		return inventory.Location{}, fmt.Errorf("%d locations named %q; use the id", len(matches), ref)
	}
}
