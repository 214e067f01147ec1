package aql

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/footwear-qc/internal/core/domain"
)

type planFile struct {
	Rows []Row `yaml:"rows"`
}

// LoadPlan decodes and validates a YAML sampling plan:
//
//	rows:
//	  - {max_quantity: 300, sample_all: true, major_limit: 1, minor_limit: 5}
//	  - {max_quantity: 0, sample_size: 315, major_limit: 14, minor_limit: 21, default: true}
func LoadPlan(r io.Reader) (Plan, error) {
	var file planFile
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return Plan{}, domain.WrapError(domain.ErrInvalidInput, "decode aql plan", err)
	}
	return NewPlan(file.Rows)
}

// LoadPlanFile reads a plan from path; an empty path yields DefaultPlan.
func LoadPlanFile(path string) (Plan, error) {
	if path == "" {
		return DefaultPlan(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Plan{}, fmt.Errorf("open aql plan: %w", err)
	}
	defer f.Close()
	return LoadPlan(f)
}
