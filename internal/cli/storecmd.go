package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/shelfmap/shelfmap/pkg/inventory"
	"github.com/shelfmap/shelfmap/pkg/store"
)

// storeCommand creates the store command group.
func (c *CLI) storeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Inspect the configured storage backend",
	}

	cmd.AddCommand(c.storeInitCommand())
	cmd.AddCommand(c.storePingCommand())
	cmd.AddCommand(c.storeStatsCommand())
	cmd.AddCommand(c.storeExportCommand())

	return cmd
}

// storeInitCommand initializes the configured backend. Opening a backend
// creates its data file and runs migrations, so init is open plus ping.
func (c *CLI) storeInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the configured backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			st, err := c.openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Ping(cmd.Context()); err != nil {
				return fmt.Errorf("verify %s backend: %w", cfg.Store.Backend, err)
			}
			printSuccess("%s backend initialized", cfg.Store.Backend)
			switch cfg.Store.Backend {
			case "jsonfile":
				printFile(cfg.Store.JSONFile.Path)
			case "sqlite":
				printFile(cfg.Store.SQLite.Path)
			}
			return nil
		},
	}
}

// storePingCommand checks backend connectivity.
func (c *CLI) storePingCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the configured backend is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			st, err := c.openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			start := time.Now()
			if err := st.Ping(cmd.Context()); err != nil {
				printError("%s backend unreachable: %v", cfg.Store.Backend, err)
				return err
			}
			printSuccess("%s backend reachable (%s)", cfg.Store.Backend, time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
}

// storeStatsCommand prints entity counts.
func (c *CLI) storeStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show entity counts for the configured backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			st, err := c.openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			dump, err := loadDump(cmd.Context(), st)
			if err != nil {
				return err
			}

			placed := 0
			for _, it := range dump.Items {
				if it.RegionID != "" {
					placed++
				}
			}

			printKeyValue("backend", cfg.Store.Backend)
			printKeyValue("locations", fmt.Sprintf("%d", len(dump.Locations)))
			printKeyValue("regions", fmt.Sprintf("%d", len(dump.Regions)))
			printKeyValue("items", fmt.Sprintf("%d (%d placed in a region)", len(dump.Items), placed))
			return nil
		},
	}
}

// storeExportCommand dumps all entities as JSON.
func (c *CLI) storeExportCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Dump all locations, regions and items as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			st, err := c.openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			dump, err := loadDump(cmd.Context(), st)
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(dump, "", "  ")
			if err != nil {
				return fmt.Errorf("encode dump: %w", err)
			}
			data = append(data, '\n')

			if output == "" {
				_, err = os.Stdout.Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			printSuccess("Exported %d locations, %d regions, %d items",
				len(dump.Locations), len(dump.Regions), len(dump.Items))
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")

	return cmd
}

// storeDump is the export document: every entity, regions in draw order.
type storeDump struct {
	ExportedAt time.Time            `json:"exportedAt"`
	Locations  []inventory.Location `json:"locations"`
	Regions    []inventory.Region   `json:"regions"`
	Items      []inventory.Item     `json:"items"`
}

func loadDump(ctx context.Context, st store.Store) (storeDump, error) {
	locs, err := st.Locations(ctx, store.LocationFilter{})
	if err != nil {
		return storeDump{}, fmt.Errorf("load locations: %w", err)
	}
	var regions []inventory.Region
	for _, loc := range locs {
		rs, err := st.RegionsByLocation(ctx, loc.ID)
		if err != nil {
			return storeDump{}, fmt.Errorf("load regions for %s: %w", loc.Name, err)
		}
		regions = append(regions, rs...)
	}
	items, err := st.Items(ctx, store.ItemFilter{})
	if err != nil {
		return storeDump{}, fmt.Errorf("load items: %w", err)
	}
	return storeDump{
		ExportedAt: time.Now().UTC(),
		Locations:  locs,
		Regions:    regions,
		Items:      items,
	}, nil
}
