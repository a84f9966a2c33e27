package sortify

import (
	"context"
	"net/http"
	"sync"
)

// Gateway abstracts the remote vision classifier: one call mapping a
// compressed image to an ordered list of label/confidence pairs.
// Implementations must return *RemoteError so callers can distinguish
// transient failures (retryable) from permanent ones.
type Gateway interface {
	Classify(ctx context.Context, imageBytes []byte, minConfidence float64) ([]Label, error)
}

// Config holds all dependencies injected by the consumer.
type Config struct {
	Cache   *LabelCache // required: opened with OpenCache
	Gateway Gateway     // required for cache misses (nil = cache-only mode)
	Rules   *Rules      // classification rule sets (nil = DefaultRules)

	HTTPClient *http.Client // for URL image sources (nil = http.DefaultClient)
	UserAgent  string       // default: "Mozilla/5.0 (compatible; go-sortify/1.0)"

	// Retry bounds re-attempts of transient gateway failures.
	Retry RetryPolicy

	// ContentIdentity keys cache records by perceptual hash of the pixels
	// instead of the file name, so renamed copies still hit the cache.
	ContentIdentity bool

	// Workers bounds batch parallelism across images. Default: 3.
	Workers int

	// Optional callbacks for progress display and audit logging.
	OnProgress       func(current, total int, message string)
	OnClassification func(ClassificationEvent)

	defaultsOnce sync.Once
}

// ClassificationEvent describes one completed classification decision.
type ClassificationEvent struct {
	Image     string // cache identity
	Dimension Field
	Class     string
	FromCache bool
}

const defaultWorkers = 3

// defaults fills zero-value fields with sensible defaults. Runs exactly
// once per Config: both pipelines may start concurrently on the same
// Config, and the filled fields are read without further locking.
func (cfg *Config) defaults() {
	cfg.defaultsOnce.Do(func() {
		if cfg.UserAgent == "" {
			cfg.UserAgent = "Mozilla/5.0 (compatible; go-sortify/1.0)"
		}
		if cfg.HTTPClient == nil {
			cfg.HTTPClient = http.DefaultClient
		}
		if cfg.Workers <= 0 {
			cfg.Workers = defaultWorkers
		}
		if cfg.Rules == nil {
			cfg.Rules = DefaultRules()
		}
	})
}

// emit invokes the classification callback if configured.
func (cfg *Config) emit(ev ClassificationEvent) {
	if cfg.OnClassification != nil {
		cfg.OnClassification(ev)
	}
}
