package sortify

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rules bundles the tunable classification configuration: both rule sets and
// the compression parameters. Loadable from YAML so thresholds and class
// tables can change without touching pipeline logic.
type Rules struct {
	Scale    ScaleRules    `yaml:"scale"`
	Material MaterialRules `yaml:"material"`
	Compress CompressOpts  `yaml:"compress"`
}

// LoadRules reads a Rules file from path.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse rules %s: %w", path, err)
	}
	return &r, nil
}

// WriteRules writes a Rules file to path.
func WriteRules(r *Rules, path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode rules: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write rules: %w", err)
	}
	return nil
}

// DefaultRules returns the production rule tables for the warehouse photo
// models: scale/device locations at a strict 0.75 threshold, material
// stages with per-class thresholds, devices pinned near 1.0 so only the
// scale model identifies them.
func DefaultRules() *Rules {
	return &Rules{
		Scale: ScaleRules{
			RuleSet: RuleSet{
				Classes: []string{
					"6_IT_0", "6_BE_0", "6_BE_180",
					"6_CA_OAK_0", "6_CA_WILMINGTON_0", "6_CA_WILMINGTON_180",
					"6_ES_0", "6_ES_180", "6_FR_0", "6_GA_0",
					"6_GB_0", "6_GB_90_CW", "6_GR_0",
					"6_HALIFAX_0", "6_HALIFAX_180", "6_HR_0",
					"6_WA_0", "6_PL_0", "6_NJ_NY_0",
					"6_VANCOUVER_0", "6_NL_0", "6_NEW_SCALES_0",
					"9_WA_0", "9_TW_0", "9_CALIFORNIA_0", "9_EU_0",
					"9_GA_0", "9_JAPAN_0", "9_KR_0", "9_NJ_NY_0",
					"9_OAK_0", "9_OAK_90_CCW", "9_OAK_180",
					"9_VANCOUVER_0", "9_NEW_SCALES_0",
				},
				MinConfidence: 0.75,
				UnknownClass:  "unknown_device",
			},
			ScreenLabel:     "LCD_SCREEN",
			Extras:          []string{"FLOOR", "OCC_PAPER", "MIX_PAPER", "WHITE_PAPER", "NON_PAPER_MATERIAL", "HAND"},
			MaterialDevices: []string{"7_MOISTURE", "NEW_MOISTURE", "RADIATION"},
			NextStageClass:  "next_stage",
		},
		Material: MaterialRules{
			Locations: []string{
				"OCC_inventory", "OCC_closeup", "OCC_scale", "OCC_unpacking",
				"WHITE_inventory", "WHITE_closeup", "WHITE_scale", "WHITE_unpacking",
				"MIX_inventory", "MIX_closeup", "MIX_scale",
			},
			Objects: []string{"sign", "radiometer", "oldWatermeter", "newWatermeter"},
			Extras:  []string{"floor"},
			Thresholds: map[string]float64{
				"OCC_inventory": 0.55,
				"OCC_closeup":   0.55,
				"OCC_scale":     0.60,
				"OCC_unpacking": 0.55,
				"MIX_inventory": 0.70,
				"MIX_closeup":   0.55,
				"MIX_scale":     0.70,
				"WHITE_closeup":   0.55,
				"WHITE_inventory": 0.55,
				"WHITE_scale":     0.55,
				"WHITE_unpacking": 0.55,

				// pinned near 1.0: only the scale model identifies devices
				"newWatermeter": 0.99,
				"oldWatermeter": 0.99,
				"radiometer":    0.99,

				"sign":  0.55,
				"floor": 0.55,
			},
			MinConfidence: 0.10,
			DeviceTranslate: map[string]string{
				"7_MOISTURE":   "oldWatermeter",
				"NEW_MOISTURE": "newWatermeter",
				"RADIATION":    "radiometer",
			},
			UnknownClass: "unknown",
		},
		Compress: CompressOpts{
			MaxDimension: defaultMaxDimension,
			Quality:      defaultJPEGQuality,
		},
	}
}
