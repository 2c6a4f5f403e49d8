package grading

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// policyFile is the on-disk YAML layout. Omitted tables keep their defaults.
type policyFile struct {
	Grades  []Band `yaml:"grades"`
	Remarks []Band `yaml:"remarks"`
	Course  []Band `yaml:"course"`
}

// LoadPolicy reads a YAML policy from path; an empty path yields DefaultPolicy.
func LoadPolicy(path string) (Policy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Policy{}, fmt.Errorf("open grading policy: %w", err)
	}
	defer f.Close() //nolint:errcheck
	return DecodePolicy(f)
}

// DecodePolicy parses a YAML policy document.
func DecodePolicy(r io.Reader) (Policy, error) {
	var doc policyFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return Policy{}, fmt.Errorf("decode grading policy: %w", err)
	}
	policy := DefaultPolicy()
	var err error
	if len(doc.Grades) > 0 {
		if policy.Grades, err = NewTable(doc.Grades); err != nil {
			return Policy{}, fmt.Errorf("grades table: %w", err)
		}
	}
	if len(doc.Remarks) > 0 {
		if policy.Remarks, err = NewTable(doc.Remarks); err != nil {
			return Policy{}, fmt.Errorf("remarks table: %w", err)
		}
	}
	if len(doc.Course) > 0 {
		if policy.Course, err = NewTable(doc.Course); err != nil {
			return Policy{}, fmt.Errorf("course table: %w", err)
		}
	}
	return policy, nil
}
