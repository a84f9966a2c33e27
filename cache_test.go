package sortify

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
)

func scaleResult() *FieldResult {
	return &FieldResult{
		Labels: []Label{
			{Name: "6_IT_0", Confidence: 0.92},
			{Name: "FLOOR", Confidence: 0.40},
		},
		Class: "6_IT_0",
	}
}

func materialResult() *FieldResult {
	return &FieldResult{
		Labels: []Label{
			{Name: "OCC_scale", Confidence: 0.88},
			{Name: "sign", Confidence: 0.71},
		},
		Class: "OCC - scale",
	}
}

func TestCacheReadMissing(t *testing.T) {
	t.Parallel()

	cache, err := OpenCache(t.TempDir())
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}

	rec, err := cache.Read("nope")
	if err != nil {
		t.Fatalf("Read of missing record: unexpected error %v", err)
	}
	if rec != nil {
		t.Errorf("Read of missing record = %+v, want nil", rec)
	}
	if cache.Has("nope", FieldScale) {
		t.Error("Has on missing record = true, want false")
	}
}

func TestCacheRoundTrip(t *testing.T) {
	t.Parallel()

	cache, err := OpenCache(t.TempDir())
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}

	want := scaleResult()
	if err := cache.Write("img1", FieldScale, want); err != nil {
		t.Fatalf("Write: %v", err)
	}

	rec, err := cache.Read("img1")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if rec.ImageName != "img1" {
		t.Errorf("ImageName = %q, want %q", rec.ImageName, "img1")
	}
	if !reflect.DeepEqual(rec.Scale, want) {
		t.Errorf("Scale = %+v, want %+v", rec.Scale, want)
	}
	if rec.Material != nil {
		t.Errorf("Material = %+v, want absent", rec.Material)
	}
	if !cache.Has("img1", FieldScale) {
		t.Error("Has(scale) = false after write")
	}
	if cache.Has("img1", FieldMaterial) {
		t.Error("Has(material) = true, presence must not be inferred from the other field")
	}
}

func TestCacheFieldIndependence(t *testing.T) {
	t.Parallel()

	cache, err := OpenCache(t.TempDir())
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}

	material := materialResult()
	if err := cache.Write("img1", FieldMaterial, material); err != nil {
		t.Fatalf("Write material: %v", err)
	}
	if err := cache.Write("img1", FieldScale, scaleResult()); err != nil {
		t.Fatalf("Write scale: %v", err)
	}

	rec, err := cache.Read("img1")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !reflect.DeepEqual(rec.Material, material) {
		t.Errorf("Material after scale write = %+v, want %+v unchanged", rec.Material, material)
	}
	if rec.Scale == nil || rec.Scale.Class != "6_IT_0" {
		t.Errorf("Scale = %+v, want class 6_IT_0", rec.Scale)
	}

	// And symmetrically: a material rewrite must not touch scale.
	updated := materialResult()
	updated.Class = "OCC - closeup"
	if err := cache.Write("img1", FieldMaterial, updated); err != nil {
		t.Fatalf("Rewrite material: %v", err)
	}
	rec, err = cache.Read("img1")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if rec.Scale == nil || rec.Scale.Class != "6_IT_0" {
		t.Errorf("Scale after material rewrite = %+v, want unchanged", rec.Scale)
	}
	if rec.Material.Class != "OCC - closeup" {
		t.Errorf("Material class = %q, want %q", rec.Material.Class, "OCC - closeup")
	}
}

func TestCachePersistsAcrossOpens(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cache, err := OpenCache(dir)
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	if err := cache.Write("img1", FieldScale, scaleResult()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	reopened, err := OpenCache(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	rec, err := reopened.Read("img1")
	if err != nil {
		t.Fatalf("Read after reopen: %v", err)
	}
	if rec == nil || rec.Scale == nil || rec.Scale.Class != "6_IT_0" {
		t.Errorf("record after reopen = %+v, want scale class 6_IT_0", rec)
	}
}

func TestCacheCorruptRecord(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
	}{
		{name: "not json", data: "{{{"},
		{name: "wrong shape", data: `[1, 2, 3]`},
		{name: "missing image_name", data: `{"scale_labels": {"labels": [], "class": "x"}}`},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			cache, err := OpenCache(dir)
			if err != nil {
				t.Fatalf("OpenCache: %v", err)
			}
			path := filepath.Join(dir, "json", "bad.json")
			if err := os.WriteFile(path, []byte(tc.data), 0o644); err != nil {
				t.Fatalf("seed corrupt record: %v", err)
			}

			_, err = cache.Read("bad")
			if !errors.Is(err, ErrCacheCorrupt) {
				t.Errorf("Read corrupt record: err = %v, want ErrCacheCorrupt", err)
			}
			if cache.Has("bad", FieldScale) {
				t.Error("Has on corrupt record = true, want false")
			}
			// Writing over a corrupt record must surface, not silently clobber.
			if err := cache.Write("bad", FieldScale, scaleResult()); !errors.Is(err, ErrCacheCorrupt) {
				t.Errorf("Write over corrupt record: err = %v, want ErrCacheCorrupt", err)
			}
		})
	}
}

func TestCacheConcurrentWriters(t *testing.T) {
	t.Parallel()

	cache, err := OpenCache(t.TempDir())
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		errs[0] = cache.Write("img1", FieldScale, scaleResult())
	}()
	go func() {
		defer wg.Done()
		errs[1] = cache.Write("img1", FieldMaterial, materialResult())
	}()
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("writer %d: %v", i, err)
		}
	}

	rec, err := cache.Read("img1")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if rec.Scale == nil || rec.Scale.Class != "6_IT_0" {
		t.Errorf("Scale = %+v, want class 6_IT_0 (lost update)", rec.Scale)
	}
	if rec.Material == nil || rec.Material.Class != "OCC - scale" {
		t.Errorf("Material = %+v, want class OCC - scale (lost update)", rec.Material)
	}
}

func TestCacheNames(t *testing.T) {
	t.Parallel()

	cache, err := OpenCache(t.TempDir())
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	for _, name := range []string{"a", "b", "c"} {
		if err := cache.Write(name, FieldScale, scaleResult()); err != nil {
			t.Fatalf("Write %s: %v", name, err)
		}
	}

	names, err := cache.Names()
	if err != nil {
		t.Fatalf("Names: %v", err)
	}
	if len(names) != 3 {
		t.Fatalf("Names = %v, want 3 entries", names)
	}
}

func TestCacheWriteNilResultRejected(t *testing.T) {
	t.Parallel()

	cache, err := OpenCache(t.TempDir())
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	if err := cache.Write("img1", FieldScale, scaleResult()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if err := cache.Write("img1", FieldScale, nil); err == nil {
		t.Fatal("Write with nil result succeeded, want rejection")
	}

	rec, err := cache.Read("img1")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if rec.Scale == nil || rec.Scale.Class != "6_IT_0" {
		t.Errorf("Scale = %+v, want untouched 6_IT_0 (a write must never clear a field)", rec.Scale)
	}
}

func TestCacheWriteDoesNotAliasCallerSlice(t *testing.T) {
	t.Parallel()

	cache, err := OpenCache(t.TempDir())
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}

	fr := scaleResult()
	if err := cache.Write("img1", FieldScale, fr); err != nil {
		t.Fatalf("Write: %v", err)
	}
	fr.Labels[0].Name = "mutated"
	fr.Class = "mutated"

	rec, err := cache.Read("img1")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if rec.Scale.Class != "6_IT_0" || rec.Scale.Labels[0].Name != "6_IT_0" {
		t.Errorf("stored record changed after caller mutation: %+v", rec.Scale)
	}
}
