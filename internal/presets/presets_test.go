package presets

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rgbcct/panelfx/internal/effects"
)

func TestLoadSeedsProtectedDefaultsWhenFileMissing(t *testing.T) {
	dir := t.TempDir()
	m := New(filepath.Join(dir, "presets.json"), nil)
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	all := m.GetAll()
	if len(all) != len(defaultPresets) {
		t.Fatalf("got %d presets, want %d", len(all), len(defaultPresets))
	}
	for _, p := range all {
		if !p.IsProtected {
			t.Fatalf("seeded preset %q should be protected", p.ID)
		}
	}
	if _, err := m.Get("sequential-ww"); err != nil {
		t.Fatalf("expected sequential-ww to be seeded: %v", err)
	}
}

func TestCreateSanitizesID(t *testing.T) {
	dir := t.TempDir()
	m := New(filepath.Join(dir, "presets.json"), nil)
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	p, err := m.Create(Preset{
		ID:     "  My Cool Effect!! ",
		Name:   "My Cool Effect",
		Effect: "solid",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.ID != "my-cool-effect" {
		t.Fatalf("sanitized id = %q, want %q", p.ID, "my-cool-effect")
	}
	if p.IsProtected {
		t.Fatalf("user-created preset must not be protected")
	}

	reloaded := New(filepath.Join(dir, "presets.json"), nil)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if _, err := reloaded.Get("my-cool-effect"); err != nil {
		t.Fatalf("expected persisted preset after reload: %v", err)
	}
}

func TestCreateRejectsDuplicateID(t *testing.T) {
	dir := t.TempDir()
	m := New(filepath.Join(dir, "presets.json"), nil)
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := m.Create(Preset{ID: "dup", Name: "dup", Effect: "solid"}); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	if _, err := m.Create(Preset{ID: "dup", Name: "dup again", Effect: "solid"}); err == nil {
		t.Fatalf("expected Conflict error on duplicate id")
	}
}

func TestProtectedPresetsRejectUpdateAndDelete(t *testing.T) {
	dir := t.TempDir()
	m := New(filepath.Join(dir, "presets.json"), nil)
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	name := "renamed"
	if _, err := m.Update("sequential-ww", Patch{Name: &name}); err == nil {
		t.Fatalf("expected Update on protected preset to fail")
	}
	if err := m.Delete("sequential-ww"); err == nil {
		t.Fatalf("expected Delete on protected preset to fail")
	}
}

func TestUpdateAppliesPatchAndBumpsTimestamp(t *testing.T) {
	dir := t.TempDir()
	m := New(filepath.Join(dir, "presets.json"), nil)
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	created, err := m.Create(Preset{ID: "custom", Name: "Custom", Effect: "solid"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	newName := "Custom Renamed"
	m.now = func() time.Time { return created.CreatedAt.Add(time.Second) }
	updated, err := m.Update("custom", Patch{
		Name:   &newName,
		Params: effects.Params{"brightness": effects.Num(0.5)},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Name != newName {
		t.Fatalf("Name = %q, want %q", updated.Name, newName)
	}
	if updated.ID != "custom" {
		t.Fatalf("id must be immutable across updates, got %q", updated.ID)
	}
	if !updated.UpdatedAt.After(created.CreatedAt) {
		t.Fatalf("UpdatedAt should be bumped past CreatedAt")
	}
}

func TestDeleteRemovesNonProtectedPreset(t *testing.T) {
	dir := t.TempDir()
	m := New(filepath.Join(dir, "presets.json"), nil)
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := m.Create(Preset{ID: "temp", Name: "Temp", Effect: "strobe"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := m.Delete("temp"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := m.Get("temp"); err == nil {
		t.Fatalf("expected NotFound after delete")
	}
}

func TestSanitizeCollapsesAndTrims(t *testing.T) {
	cases := map[string]string{
		"  Hello   World  ":  "hello-world",
		"Already-Sane":       "already-sane",
		"!!!":                "",
		"Mix3d_Ch@rs--here": "mix3dchrs-here",
	}
	for in, want := range cases {
		if got := Sanitize(in); got != want {
			t.Errorf("Sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}
