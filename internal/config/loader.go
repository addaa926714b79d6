package config

import (
	"fmt"
	"os"

	"dario.cat/mergo"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Load reads path, expands ${VAR}/$VAR references against the process
// environment, parses the YAML, merges it over the built-in defaults, runs
// struct-tag validation, and returns the resolved Config. Mirrors the
// teacher's staged Initialize -> load -> validate pipeline in
// pkg/config/loader.go, with go-playground/validator/v10 replacing its
// hand-rolled Validator for the struct-tag pass.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, NewLoadError(path, err)
	}

	expanded := os.ExpandEnv(string(raw))

	var parsed YAMLConfig
	if err := yaml.Unmarshal([]byte(expanded), &parsed); err != nil {
		return nil, NewLoadError(path, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}

	merged := defaultYAMLConfig()
	if err := mergo.Merge(&merged, parsed, mergo.WithOverride, mergo.WithAppendSlice); err != nil {
		return nil, NewLoadError(path, err)
	}

	if err := validateYAML(merged); err != nil {
		return nil, err
	}

	cfg, err := resolve(merged)
	if err != nil {
		return nil, NewLoadError(path, err)
	}
	return cfg, nil
}

var structValidator = validator.New(validator.WithRequiredStructEnabled())

func validateYAML(y YAMLConfig) error {
	if err := structValidator.Struct(y); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			first := verrs[0]
			return NewValidationError(first.Namespace(), "", first.Field(),
				fmt.Errorf("%w: %s", ErrValidationFailed, first.Tag()))
		}
		return NewLoadError("", err)
	}
	return nil
}
