package sortify

import "context"

// ClassifyMaterial runs the cache-first material pipeline for ref: check
// cache, else compress, call the remote classifier, compose the discrete
// material class and write it back. The scale field of the same record is
// never touched.
func (cfg *Config) ClassifyMaterial(ctx context.Context, ref string) (ClassResult, error) {
	return cfg.classifyMaterial(ctx, ref, "")
}

// ClassifyMaterialWithHint is ClassifyMaterial with the scale pass's detected
// device class, which overrides the object prediction for moisture/radiation
// device shots the material model cannot identify on its own.
func (cfg *Config) ClassifyMaterialWithHint(ctx context.Context, ref, deviceHint string) (ClassResult, error) {
	return cfg.classifyMaterial(ctx, ref, deviceHint)
}

func (cfg *Config) classifyMaterial(ctx context.Context, ref, deviceHint string) (ClassResult, error) {
	cfg.defaults()
	rules := &cfg.Rules.Material

	name, fr, fromCache, err := cfg.runPipeline(ctx, ref, FieldMaterial, false, rules.MinConfidence,
		func(labels []Label) string {
			return rules.AssignMaterial(labels, deviceHint)
		})
	if err != nil {
		return ClassResult{}, err
	}

	cfg.emit(ClassificationEvent{
		Image:     name,
		Dimension: FieldMaterial,
		Class:     fr.Class,
		FromCache: fromCache,
	})
	return ClassResult{Class: fr.Class, FromCache: fromCache}, nil
}
