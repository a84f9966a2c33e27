package sortify

import (
	"context"
	"errors"
	"log/slog"
)

// ClassResult is the outcome of one pipeline invocation: the discrete class
// and whether it was served from cache or a fresh remote call.
type ClassResult struct {
	Class     string
	FromCache bool
}

// cacheLookup returns the stored result for the named field, or nil on a miss.
func (cfg *Config) cacheLookup(name string, field Field) (*FieldResult, error) {
	rec, err := cfg.Cache.Read(name)
	if err != nil {
		return nil, err
	}
	return rec.Get(field), nil
}

// runPipeline executes the cache-first state machine shared by both
// classifiers: CheckCache → Preprocess → RemoteClassify → PostProcess →
// WriteCache. On a hit the stored result is returned without touching the
// remote service; on any failure the cache is left untouched, so a later
// retry re-attempts instead of silently trusting a stale absence.
func (cfg *Config) runPipeline(ctx context.Context, ref string, field Field, fixOrientation bool, minConfidence float64, assign func([]Label) string) (name string, fr *FieldResult, fromCache bool, err error) {
	cfg.defaults()

	// Name-keyed identity is known before any I/O; content identity needs
	// the decoded pixels first.
	if !cfg.ContentIdentity {
		name = ImageName(ref)
		fr, err := cfg.cacheLookup(name, field)
		if err != nil {
			return name, nil, false, err
		}
		if fr != nil {
			slog.Debug("sortify: cache hit", "image", name, "field", string(field))
			return name, fr, true, nil
		}
	}

	data, err := cfg.Load(ctx, ref, LoadOpts{})
	if err != nil {
		return name, nil, false, err
	}
	img, err := DecodeImage(data)
	if err != nil {
		return name, nil, false, &PreprocessError{Ref: ref, Err: err}
	}

	if cfg.ContentIdentity {
		name = ContentName(ref, img)
		fr, err := cfg.cacheLookup(name, field)
		if err != nil {
			return name, nil, false, err
		}
		if fr != nil {
			slog.Debug("sortify: cache hit", "image", name, "field", string(field))
			return name, fr, true, nil
		}
	}

	if fixOrientation {
		if o := ReadOrientation(data); o != orientationUpright {
			slog.Debug("sortify: correcting orientation", "image", name, "orientation", o)
			img = NormalizeOrientation(img, o)
		}
	}

	compressed, err := Compress(img, cfg.Rules.Compress)
	if err != nil {
		return name, nil, false, &PreprocessError{Ref: ref, Err: err}
	}

	if cfg.Gateway == nil {
		return name, nil, false, &RemoteError{Op: "classify", Err: errors.New("no gateway configured")}
	}
	labels, err := classifyWithRetry(ctx, cfg.Gateway, cfg.Retry, compressed, minConfidence)
	if err != nil {
		return name, nil, false, err
	}

	fr = &FieldResult{Labels: labels, Class: assign(labels)}
	if err := cfg.Cache.Write(name, field, fr); err != nil {
		return name, nil, false, err
	}
	return name, fr, false, nil
}
