package sortify

import (
	"context"
	"slices"
)

// ClassifyScale runs the cache-first scale/device pipeline for ref: check
// cache, else fix orientation, compress, call the remote classifier, assign
// the discrete scale class and write it back. The material field of the same
// record is never touched.
func (cfg *Config) ClassifyScale(ctx context.Context, ref string) (ClassResult, error) {
	res, _, err := cfg.classifyScale(ctx, ref)
	return res, err
}

// classifyScale additionally returns the detected material device so batch
// orchestration can hand it to the material pass as an object hint.
func (cfg *Config) classifyScale(ctx context.Context, ref string) (ClassResult, string, error) {
	cfg.defaults()
	rules := &cfg.Rules.Scale

	name, fr, fromCache, err := cfg.runPipeline(ctx, ref, FieldScale, true, rules.MinConfidence,
		func(labels []Label) string {
			class, _ := rules.AssignScale(labels)
			return class
		})
	if err != nil {
		return ClassResult{}, "", err
	}

	device := ""
	if slices.Contains(rules.MaterialDevices, fr.Class) {
		device = fr.Class
	}

	cfg.emit(ClassificationEvent{
		Image:     name,
		Dimension: FieldScale,
		Class:     fr.Class,
		FromCache: fromCache,
	})
	return ClassResult{Class: fr.Class, FromCache: fromCache}, device, nil
}
