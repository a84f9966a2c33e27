package sortify

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// SortOpts maps discrete classes to output folders for SortClassified.
type SortOpts struct {
	MaterialDirs map[string]string `yaml:"material_dirs"`
	ScaleDirs    map[string]string `yaml:"scale_dirs"`
	UnknownDir   string            `yaml:"unknown_dir"` // default: "classified/unknown"
}

func (o SortOpts) unknownDir() string {
	if o.UnknownDir == "" {
		return filepath.Join("classified", "unknown")
	}
	return o.UnknownDir
}

// sourceExtensions are tried in order when resolving a cached identity back
// to a file in the input folder.
var sourceExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".JPG", ".JPEG", ".PNG"}

// SortClassified copies every cached image into its class folder under
// outDir, re-encoded through the compression adapter. The material class is
// preferred; a scale class is used when it has a mapping; records with no
// destination are skipped. Runs once at pipeline end — the classification
// passes themselves only ever write the cache.
func (cfg *Config) SortClassified(ctx context.Context, inputDir, outDir string, opts SortOpts) error {
	cfg.defaults()

	names, err := cfg.Cache.Names()
	if err != nil {
		return err
	}

	total := len(names)
	for current, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}

		rec, err := cfg.Cache.Read(name)
		if err != nil {
			slog.Warn("sortify: skipping unreadable record", "image", name, "error", err.Error())
			continue
		}

		subdir := cfg.classDir(rec, opts)
		if subdir == "" {
			cfg.progress(current+1, total, fmt.Sprintf("Copy: skipping %s (no copy destination)", name))
			continue
		}

		src := resolveSource(inputDir, name)
		if src == "" {
			cfg.progress(current+1, total, fmt.Sprintf("Copy: image not found for %s", name))
			continue
		}

		if err := cfg.copyCompressed(src, filepath.Join(outDir, subdir), name); err != nil {
			slog.Warn("sortify: copy failed", "image", name, "error", err.Error())
			continue
		}
		cfg.progress(current+1, total, fmt.Sprintf("Copying %d/%d to classified folders...", current+1, total))
	}
	return nil
}

// classDir picks the destination folder for a record.
func (cfg *Config) classDir(rec *LabelRecord, opts SortOpts) string {
	if rec.Material != nil && rec.Material.Class != "" {
		if dir, ok := opts.MaterialDirs[rec.Material.Class]; ok {
			return dir
		}
		return opts.unknownDir()
	}
	if rec.Scale != nil && rec.Scale.Class != "" {
		if dir, ok := opts.ScaleDirs[rec.Scale.Class]; ok {
			return dir
		}
	}
	return ""
}

// resolveSource finds the input file for a cached identity.
func resolveSource(inputDir, name string) string {
	for _, ext := range sourceExtensions {
		candidate := filepath.Join(inputDir, name+ext)
		if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
			return candidate
		}
	}
	return ""
}

// copyCompressed re-encodes src through the compression adapter into
// destDir/<name>.jpg.
func (cfg *Config) copyCompressed(src, destDir, name string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	img, err := DecodeImage(data)
	if err != nil {
		return err
	}
	compressed, err := Compress(img, cfg.Rules.Compress)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(destDir, name+".jpg"), compressed, 0o644)
}

func (cfg *Config) progress(current, total int, message string) {
	if cfg.OnProgress != nil {
		cfg.OnProgress(current, total, message)
	}
}
