package sortify

import (
	"slices"
	"strings"
)

// RuleSet maps a raw ranked label list to a discrete class: the
// highest-confidence known label at or above its minimum confidence wins,
// ties break by the fixed Priority ordering, and a below-threshold result
// maps to UnknownClass rather than failing.
type RuleSet struct {
	// Classes restricts assignment to known labels. Empty = any label.
	Classes []string `yaml:"classes"`
	// Thresholds overrides MinConfidence per class.
	Thresholds map[string]float64 `yaml:"thresholds"`
	// MinConfidence is the default threshold in 0..1.
	MinConfidence float64 `yaml:"min_confidence"`
	// Priority orders classes for tie-breaking; unlisted classes rank last.
	Priority []string `yaml:"priority"`
	// UnknownClass is the explicit below-threshold result (default: "unknown").
	UnknownClass string `yaml:"unknown_class"`
}

func (rs *RuleSet) threshold(class string) float64 {
	if t, ok := rs.Thresholds[class]; ok {
		return t
	}
	return rs.MinConfidence
}

func (rs *RuleSet) unknown() string {
	if rs.UnknownClass == "" {
		return "unknown"
	}
	return rs.UnknownClass
}

// rank returns the tie-break position of class: lower wins.
func (rs *RuleSet) rank(class string) int {
	if i := slices.Index(rs.Priority, class); i >= 0 {
		return i
	}
	return len(rs.Priority)
}

func (rs *RuleSet) known(class string) bool {
	return len(rs.Classes) == 0 || slices.Contains(rs.Classes, class)
}

// Assign resolves labels to a discrete class under this rule set.
func (rs *RuleSet) Assign(labels []Label) string {
	best := ""
	bestConf := -1.0
	for _, l := range labels {
		if !rs.known(l.Name) || l.Confidence < rs.threshold(l.Name) {
			continue
		}
		if l.Confidence > bestConf ||
			(l.Confidence == bestConf && rs.rank(l.Name) < rs.rank(best)) {
			best, bestConf = l.Name, l.Confidence
		}
	}
	if best == "" {
		return rs.unknown()
	}
	return best
}

// ScaleRules extends the generic rule set with the scale pass's special
// labels: an LCD-screen marker, ignorable extras, and moisture/radiation
// device prefixes that are handed to the material pass as an object hint.
type ScaleRules struct {
	RuleSet `yaml:",inline"`

	ScreenLabel     string   `yaml:"screen_label"`     // presence alone means "some device, unknown which"
	Extras          []string `yaml:"extras"`           // labels that never decide the class
	MaterialDevices []string `yaml:"material_devices"` // device name prefixes
	// NextStageClass is assigned when no device is visible at all: the image
	// is not a scale shot and belongs to the material pass.
	NextStageClass string `yaml:"next_stage_class"`
}

func (sr *ScaleRules) nextStage() string {
	if sr.NextStageClass == "" {
		return "next_stage"
	}
	return sr.NextStageClass
}

// matchDevice returns the material device whose name appears in label, or "".
func (sr *ScaleRules) matchDevice(label string) string {
	for _, d := range sr.MaterialDevices {
		if strings.Contains(label, d) {
			return d
		}
	}
	return ""
}

// AssignScale resolves labels to a scale class. The second return value is
// the detected material device (non-empty when the winner is a
// moisture/radiation device rather than a scale location).
func (sr *ScaleRules) AssignScale(labels []Label) (class, materialDevice string) {
	best := ""
	bestConf := -1.0
	screenFound := false

	for _, l := range labels {
		switch {
		case sr.ScreenLabel != "" && strings.Contains(l.Name, sr.ScreenLabel):
			screenFound = true
		case slices.Contains(sr.Extras, l.Name):
			// never decides the class
		case slices.Contains(sr.Classes, l.Name) || sr.matchDevice(l.Name) != "":
			if l.Confidence < sr.threshold(l.Name) {
				continue
			}
			if l.Confidence > bestConf ||
				(l.Confidence == bestConf && sr.rank(l.Name) < sr.rank(best)) {
				best, bestConf = l.Name, l.Confidence
			}
		}
	}

	if best == "" {
		if screenFound {
			return sr.unknown(), ""
		}
		return sr.nextStage(), ""
	}
	if dev := sr.matchDevice(best); dev != "" {
		return dev, dev
	}
	return best, ""
}

// MaterialRules drives the material pass: labels split into material
// locations (what is photographed and at which stage), objects (devices and
// signs in frame) and extras, then compose into a "MATERIAL - stage" class.
type MaterialRules struct {
	Locations  []string           `yaml:"locations"`
	Objects    []string           `yaml:"objects"`
	Extras     []string           `yaml:"extras"`
	Thresholds map[string]float64 `yaml:"thresholds"`
	// MinConfidence is the floor passed to the gateway call, kept low so the
	// per-class thresholds above see the full ranked list.
	MinConfidence float64 `yaml:"min_confidence"`
	// DeviceTranslate maps the scale pass's device classes to object names.
	DeviceTranslate map[string]string `yaml:"device_translate"`
	UnknownClass    string            `yaml:"unknown_class"`
}

func (mr *MaterialRules) threshold(label string) float64 {
	return mr.Thresholds[label]
}

func (mr *MaterialRules) unknown() string {
	if mr.UnknownClass == "" {
		return "unknown"
	}
	return mr.UnknownClass
}

// AssignMaterial resolves labels to a material class. deviceHint, when
// non-empty, is the scale pass's detected device and overrides the object
// prediction via DeviceTranslate.
func (mr *MaterialRules) AssignMaterial(labels []Label, deviceHint string) string {
	location, object, extras := mr.pick(labels)
	if deviceHint != "" {
		if t, ok := mr.DeviceTranslate[deviceHint]; ok {
			object = t
		}
	}
	return mr.compose(location, object, extras)
}

// pick selects the best location and object above their thresholds and
// collects the extras seen. When no location clears its threshold, the best
// location overall is used: a material photo always shows some material.
func (mr *MaterialRules) pick(labels []Label) (location, object string, extras []string) {
	locConf, objConf := 0.0, 0.0
	for _, l := range labels {
		switch {
		case slices.Contains(mr.Locations, l.Name):
			if l.Confidence > mr.threshold(l.Name) && l.Confidence > locConf {
				location, locConf = l.Name, l.Confidence
			}
		case slices.Contains(mr.Objects, l.Name):
			if l.Confidence > mr.threshold(l.Name) && l.Confidence > objConf {
				object, objConf = l.Name, l.Confidence
			}
		case slices.Contains(mr.Extras, l.Name):
			if l.Confidence > mr.threshold(l.Name) {
				extras = append(extras, l.Name)
			}
		}
	}

	if location == "" {
		locConf = 0.0
		for _, l := range labels {
			if slices.Contains(mr.Locations, l.Name) && l.Confidence > locConf {
				location, locConf = l.Name, l.Confidence
			}
		}
	}
	return location, object, extras
}

// compose builds the final "MATERIAL - stage" class name.
func (mr *MaterialRules) compose(location, object string, extras []string) string {
	if location == "" {
		return mr.unknown()
	}
	material, _, _ := strings.Cut(location, "_")

	switch {
	case strings.Contains(object, "Watermeter"):
		return material + " - " + object
	case strings.Contains(object, "radiometer"):
		if slices.Contains(extras, "floor") {
			return "radiometer - floor"
		}
		return material + " - radiometer - closeup"
	case strings.Contains(object, "sign") && strings.Contains(location, "closeup"):
		return material + " - closeup"
	case strings.Contains(object, "sign") && strings.Contains(location, "scale"):
		return material + " - scale"
	case strings.Contains(object, "sign") && strings.Contains(location, "inventory"):
		return material + " - inventory"
	default:
		return material + " - unpacking"
	}
}
