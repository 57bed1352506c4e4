package engine

import (
	_ "embed"

	"gopkg.in/yaml.v3"
)

// Baseline holds the beta values a FeatureVector is normalised against.
// Never mutates at runtime; selected per tick by whether the IME is in a
// composition-capable (coding vs writing) mode.
type Baseline struct {
	F1 float64 `yaml:"f1"`
	F3 float64 `yaml:"f3"`
	F4 float64 `yaml:"f4"`
	F5 float64 `yaml:"f5"`
	F6 float64 `yaml:"f6"`
}

//go:embed baseline.yaml
var baselineYAML []byte

type baselineTable struct {
	Coding  Baseline `yaml:"coding"`
	Writing Baseline `yaml:"writing"`
}

// CodingBaseline and WritingBaseline are the two fixed BaselineSets,
// decoded once at package init from the embedded YAML asset rather than
// hardcoded as Go literals, so the table stays human-editable and
// diffable apart from the Go source. Because the asset is embedded, a
// change to it takes effect only after a rebuild.
var (
	CodingBaseline  Baseline
	WritingBaseline Baseline
)

func init() {
	var table baselineTable
	if err := yaml.Unmarshal(baselineYAML, &table); err != nil {
		panic("engine: malformed embedded baseline.yaml: " + err.Error())
	}
	CodingBaseline = table.Coding
	WritingBaseline = table.Writing
}

// Select returns the baseline for the given ime_open flag.
func Select(imeOpen bool) Baseline {
	if imeOpen {
		return WritingBaseline
	}
	return CodingBaseline
}
