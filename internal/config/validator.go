package config

import (
	"fmt"
	"net"
	"path/filepath"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "sentinel.extension")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateSentinel()...)
	errors = append(errors, c.validateRecovery()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateMetrics()...)

	return errors
}

func (c *Config) validateSentinel() []ValidationError {
	var errors []ValidationError

	ext := c.Sentinel.Extension
	switch {
	case !strings.HasPrefix(ext, ".") || len(ext) < 2:
		errors = append(errors, ValidationError{
			Field:   "sentinel.extension",
			Value:   ext,
			Message: "must start with '.' and name an extension",
		})
	case strings.ContainsAny(ext, `/\`):
		errors = append(errors, ValidationError{
			Field:   "sentinel.extension",
			Value:   ext,
			Message: "must not contain path separators",
		})
	}

	return errors
}

func (c *Config) validateRecovery() []ValidationError {
	var errors []ValidationError

	for _, dir := range c.Recovery.CacheDirs {
		if !isLocalName(dir) {
			errors = append(errors, ValidationError{
				Field:   "recovery.cache_dirs",
				Value:   dir,
				Message: "must be a relative path inside the workspace root",
			})
		}
	}

	for _, pattern := range c.Recovery.SessionGlobs {
		if !isLocalName(pattern) || strings.ContainsAny(pattern, `/\`) {
			errors = append(errors, ValidationError{
				Field:   "recovery.session_globs",
				Value:   pattern,
				Message: "must be a file pattern without directory components",
			})
			continue
		}
		if _, err := filepath.Match(pattern, ""); err != nil {
			errors = append(errors, ValidationError{
				Field:   "recovery.session_globs",
				Value:   pattern,
				Message: "malformed glob pattern",
			})
		}
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	if c.Logging.Level == "" {
		return nil
	}
	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		return []ValidationError{{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		}}
	}
	return nil
}

func (c *Config) validateMetrics() []ValidationError {
	if !c.Metrics.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.Metrics.Addr); err != nil {
		return []ValidationError{{
			Field:   "metrics.addr",
			Value:   c.Metrics.Addr,
			Message: "must be host:port",
		}}
	}
	return nil
}

// isLocalName reports whether p stays inside the directory it is joined to.
func isLocalName(p string) bool {
	return p != "" && filepath.IsLocal(p) && filepath.Clean(p) != "."
}
