package config

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigNotFound indicates the configuration file was not found.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrInvalidYAML indicates YAML parsing failed.
	ErrInvalidYAML = errors.New("invalid YAML syntax")

	// ErrValidationFailed indicates struct-tag validation failed.
	ErrValidationFailed = errors.New("configuration validation failed")

	// ErrCompanyNotFound indicates a company ID was not found in the registry.
	ErrCompanyNotFound = errors.New("company not found")

	// ErrAgentNotFound indicates an agent ID was not found under its company.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrProviderNotFound indicates a provider ID was not found in the registry.
	ErrProviderNotFound = errors.New("provider not found")

	// ErrMissingEnvVar indicates an *_env-indirected secret had no value set.
	ErrMissingEnvVar = errors.New("referenced environment variable is not set")
)

// LoadError wraps configuration loading errors with file context.
type LoadError struct {
	File string
	Err  error
}

func (e *LoadError) Error() string { return fmt.Sprintf("failed to load %s: %v", e.File, e.Err) }
func (e *LoadError) Unwrap() error { return e.Err }

// NewLoadError builds a LoadError.
func NewLoadError(file string, err error) *LoadError { return &LoadError{File: file, Err: err} }

// ValidationError wraps a single field/component validation failure.
type ValidationError struct {
	Component string
	ID        string
	Field     string
	Err       error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s '%s': field '%s': %v", e.Component, e.ID, e.Field, e.Err)
	}
	return fmt.Sprintf("%s '%s': %v", e.Component, e.ID, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NewValidationError builds a ValidationError.
func NewValidationError(component, id, field string, err error) *ValidationError {
	return &ValidationError{Component: component, ID: id, Field: field, Err: err}
}
