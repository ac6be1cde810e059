package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shelfmap/shelfmap/pkg/inventory"
	"github.com/shelfmap/shelfmap/pkg/store/jsonfile"
)

func newTestCLI(t *testing.T) *CLI {
	t.Helper()
	return New(io.Discard, LogInfo)
}

func TestLoadConfigDefaults(t *testing.T) {
	c := newTestCLI(t)
	c.configPath = filepath.Join(t.TempDir(), "missing.toml")

	// An explicit config path that does not exist is an error.
	if _, err := c.loadConfig(); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}

	c.configPath = ""
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg, err := c.loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Store.Backend != "jsonfile" {
		t.Errorf("default backend = %q, want jsonfile", cfg.Store.Backend)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("default addr = %q, want :8080", cfg.Server.Addr)
	}
	if cfg.Editor.Magnetism != "edges" {
		t.Errorf("default magnetism = %q, want edges", cfg.Editor.Magnetism)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[store]
backend = "sqlite"

[store.sqlite]
path = "/tmp/custom.db"

[server]
addr = ":9999"

[editor]
magnetism = "distance"
threshold = 12.5
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	c := newTestCLI(t)
	c.configPath = path
	cfg, err := c.loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Store.Backend != "sqlite" {
		t.Errorf("backend = %q, want sqlite", cfg.Store.Backend)
	}
	if cfg.Store.SQLite.Path != "/tmp/custom.db" {
		t.Errorf("sqlite path = %q", cfg.Store.SQLite.Path)
	}
	if cfg.Server.Addr != ":9999" {
		t.Errorf("addr = %q, want :9999", cfg.Server.Addr)
	}
	if cfg.Editor.Threshold != 12.5 {
		t.Errorf("threshold = %v, want 12.5", cfg.Editor.Threshold)
	}
	// Unset sections keep their defaults.
	if cfg.Store.Redis.Addr != "localhost:6379" {
		t.Errorf("redis addr = %q, want default", cfg.Store.Redis.Addr)
	}
}

func TestOpenStoreUnknownBackend(t *testing.T) {
	c := newTestCLI(t)
	cfg := defaultConfig()
	cfg.Store.Backend = "cassandra"

	_, err := c.openStore(context.Background(), cfg)
	if err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if !strings.Contains(err.Error(), "cassandra") {
		t.Errorf("error should name the backend: %v", err)
	}
}

func TestResolveLocation(t *testing.T) {
	ctx := context.Background()
	st, err := jsonfile.Open(filepath.Join(t.TempDir(), "inventory.json"))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	garage, err := st.CreateLocation(ctx, inventory.Location{Name: "Garage"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := st.CreateLocation(ctx, inventory.Location{Name: "Attic"}); err != nil {
		t.Fatal(err)
	}
	if _, err := st.CreateLocation(ctx, inventory.Location{Name: "Shelf"}); err != nil {
		t.Fatal(err)
	}
	if _, err := st.CreateLocation(ctx, inventory.Location{Name: "Shelf"}); err != nil {
		t.Fatal(err)
	}

	t.Run("by id", func(t *testing.T) {
		got, err := resolveLocation(ctx, st, garage.ID)
		if err != nil {
			t.Fatalf("resolveLocation: %v", err)
		}
		if got.Name != "Garage" {
			t.Errorf("got %q, want Garage", got.Name)
		}
	})

	t.Run("by unique name", func(t *testing.T) {
		got, err := resolveLocation(ctx, st, "Attic")
		if err != nil {
			t.Fatalf("resolveLocation: %v", err)
		}
		if got.Name != "Attic" {
			t.Errorf("got %q, want Attic", got.Name)
		}
	})

	t.Run("ambiguous name", func(t *testing.T) {
		if _, err := resolveLocation(ctx, st, "Shelf"); err == nil {
			t.Fatal("expected error for ambiguous name")
		}
	})

	t.Run("unknown", func(t *testing.T) {
		if _, err := resolveLocation(ctx, st, "Basement"); err == nil {
			t.Fatal("expected error for unknown location")
		}
	})
}

func TestResolveTreeFormat(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		format  string
		want    string
		wantErr bool
	}{
		{name: "stdout defaults to dot", output: "", format: "", want: "dot"},
		{name: "svg from extension", output: "tree.svg", format: "", want: "svg"},
		{name: "png from extension", output: "tree.PNG", format: "", want: "png"},
		{name: "unknown extension falls back to dot", output: "tree.txt", format: "", want: "dot"},
		{name: "flag wins over extension", output: "tree.svg", format: "png", want: "png"},
		{name: "bad format rejected", output: "", format: "pdf", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveTreeFormat(tt.output, tt.format)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveTreeFormat: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
