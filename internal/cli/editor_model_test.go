package cli

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/shelfmap/shelfmap/pkg/editor"
	"github.com/shelfmap/shelfmap/pkg/inventory"
)

func newTestEditModel(t *testing.T) editModel {
	t.Helper()
	loc := inventory.Location{
		ID:          "loc-1",
		Name:        "Garage",
		ImagePath:   "garage.jpg",
		ImageWidth:  800,
		ImageHeight: 600,
	}
	m := newEditModel(editModelParams{
		location:  loc,
		magnetism: editor.MagnetConfig{Mode: editor.MagnetNone},
		save:      func([]editor.Region) error { return nil },
	})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return updated.(editModel)
}

func TestEditModelDrawToggle(t *testing.T) {
	m := newTestEditModel(t)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	m = updated.(editModel)
	if m.ctrl.State() != editor.StateDrawing {
		t.Fatalf("state = %v, want drawing", m.ctrl.State())
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	m = updated.(editModel)
	if m.ctrl.State() != editor.StateIdle {
		t.Fatalf("state = %v, want idle after toggle", m.ctrl.State())
	}
}

func TestEditModelMouseDrawMarksDirty(t *testing.T) {
	m := newTestEditModel(t)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	m = updated.(editModel)

	press := tea.MouseMsg{X: 20, Y: 8, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft}
	move := tea.MouseMsg{X: 40, Y: 14, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft}
	release := tea.MouseMsg{X: 40, Y: 14, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft}
	for _, msg := range []tea.MouseMsg{press, move, release} {
		updated, _ = m.Update(msg)
		m = updated.(editModel)
	}

	if got := len(m.ctrl.Regions()); got != 1 {
		t.Fatalf("regions = %d, want 1", got)
	}
	if !*m.dirty {
		t.Error("drawing a region should mark the model dirty")
	}
	naming := m.ctrl.NamingState()
	if !naming.Open {
		t.Error("a fresh region should open naming")
	}
	if !m.nameFocus {
		t.Error("an unnamed fresh region should focus the name input")
	}
}

func TestEditModelNamingInput(t *testing.T) {
	m := newTestEditModel(t)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	m = updated.(editModel)
	for _, msg := range []tea.MouseMsg{
		{X: 20, Y: 8, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft},
		{X: 40, Y: 14, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft},
		{X: 40, Y: 14, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft},
	} {
		updated, _ = m.Update(msg)
		m = updated.(editModel)
	}

	for _, r := range "Tools" {
		updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = updated.(editModel)
	}
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(editModel)

	regions := m.ctrl.Regions()
	if len(regions) != 1 {
		t.Fatalf("regions = %d, want 1", len(regions))
	}
	if regions[0].Name != "Tools" {
		t.Errorf("name = %q, want Tools", regions[0].Name)
	}
	if m.nameFocus {
		t.Error("committing a name should drop input focus")
	}
}

func TestNextMagnetismCycles(t *testing.T) {
	cfg := editor.MagnetConfig{Mode: editor.MagnetNone, Threshold: 8}
	order := []editor.MagnetMode{editor.MagnetEdges, editor.MagnetDistance, editor.MagnetNone}
	for _, want := range order {
		cfg = nextMagnetism(cfg)
		if cfg.Mode != want {
			t.Fatalf("mode = %q, want %q", cfg.Mode, want)
		}
		if cfg.Threshold != 8 {
			t.Errorf("threshold changed to %v", cfg.Threshold)
		}
	}
}
