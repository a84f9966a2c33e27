package sortify

// Field names one of the two independently owned halves of a LabelRecord.
// The string values double as JSON keys in the persisted record.
type Field string

const (
	// FieldScale is owned by the scale/device classification pass.
	FieldScale Field = "scale_labels"
	// FieldMaterial is owned by the material classification pass.
	FieldMaterial Field = "material_labels"
)

// Label is one raw result returned by the remote classifier.
type Label struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"` // 0..1
}

// FieldResult is the stored outcome of one classification pass: the raw
// ranked label list plus the discrete class derived from it.
type FieldResult struct {
	Labels []Label `json:"labels"`
	Class  string  `json:"class"`
}

// Clone returns a deep copy so cache internals never alias caller slices.
func (fr *FieldResult) Clone() *FieldResult {
	if fr == nil {
		return nil
	}
	cp := &FieldResult{Class: fr.Class}
	if fr.Labels != nil {
		cp.Labels = make([]Label, len(fr.Labels))
		copy(cp.Labels, fr.Labels)
	}
	return cp
}

// LabelRecord is the unified per-image cache record. Either pass's field may
// be absent (nil); absent means "never classified", which is distinct from a
// populated result whose Class is the configured unknown class.
type LabelRecord struct {
	ImageName string       `json:"image_name"`
	Scale     *FieldResult `json:"scale_labels,omitempty"`
	Material  *FieldResult `json:"material_labels,omitempty"`
}

// Get returns the named field's result, or nil if absent.
func (r *LabelRecord) Get(field Field) *FieldResult {
	if r == nil {
		return nil
	}
	switch field {
	case FieldScale:
		return r.Scale
	case FieldMaterial:
		return r.Material
	default:
		return nil
	}
}

// set stores result into the named field, leaving the other field untouched.
func (r *LabelRecord) set(field Field, result *FieldResult) error {
	switch field {
	case FieldScale:
		r.Scale = result
	case FieldMaterial:
		r.Material = result
	default:
		return ErrUnknownField
	}
	return nil
}
