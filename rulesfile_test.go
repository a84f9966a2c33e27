package sortify

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestRulesRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rules.yaml")
	want := DefaultRules()
	if err := WriteRules(want, path); err != nil {
		t.Fatalf("WriteRules: %v", err)
	}

	got, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}

	// Decoding turns absent collections into empty ones, so struct equality
	// is too strict; the encoded documents must match exactly.
	gotDoc, err := yaml.Marshal(got)
	if err != nil {
		t.Fatalf("re-encode loaded rules: %v", err)
	}
	wantDoc, err := yaml.Marshal(want)
	if err != nil {
		t.Fatalf("encode default rules: %v", err)
	}
	if !bytes.Equal(gotDoc, wantDoc) {
		t.Errorf("rules round trip mismatch:\ngot  %s\nwant %s", gotDoc, wantDoc)
	}
	if !reflect.DeepEqual(got.Material.Thresholds, want.Material.Thresholds) {
		t.Errorf("material thresholds = %+v, want %+v", got.Material.Thresholds, want.Material.Thresholds)
	}
}

func TestLoadRulesOverrides(t *testing.T) {
	t.Parallel()

	// Thresholds and class tables are configuration, not code: a partial
	// file tunes them without touching pipeline logic.
	const doc = `
scale:
  classes: ["LAB_A", "LAB_B"]
  min_confidence: 0.6
  unknown_class: no_device
  screen_label: SCREEN
  next_stage_class: material
material:
  locations: ["GLASS_closeup"]
  objects: ["sign"]
  thresholds:
    GLASS_closeup: 0.4
  min_confidence: 0.05
compress:
  max_dimension: 512
  quality: 70
`
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write rules file: %v", err)
	}

	r, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	if got := r.Scale.MinConfidence; got != 0.6 {
		t.Errorf("scale min_confidence = %v, want 0.6", got)
	}
	if got, _ := r.Scale.AssignScale([]Label{{Name: "LAB_B", Confidence: 0.7}}); got != "LAB_B" {
		t.Errorf("AssignScale with loaded classes = %q, want LAB_B", got)
	}
	if got, _ := r.Scale.AssignScale([]Label{{Name: "SCREEN", Confidence: 0.9}}); got != "no_device" {
		t.Errorf("AssignScale screen-only = %q, want no_device", got)
	}
	if got := r.Material.AssignMaterial([]Label{{Name: "GLASS_closeup", Confidence: 0.5}, {Name: "sign", Confidence: 0.9}}, ""); got != "GLASS - closeup" {
		t.Errorf("AssignMaterial with loaded tables = %q, want GLASS - closeup", got)
	}
	if r.Compress.MaxDimension != 512 || r.Compress.Quality != 70 {
		t.Errorf("compress = %+v, want 512/70", r.Compress)
	}
}

func TestLoadRulesMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := LoadRules(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("LoadRules on missing file: want error")
	}
}
