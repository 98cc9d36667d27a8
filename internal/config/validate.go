package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error with context.
type ValidationError struct {
	Field   string
	Message string
	Hint    string
}

func (e ValidationError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s (hint: %s)", e.Field, e.Message, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Field   string
	Message string
	Hint    string
}

// ValidationResult contains the results of configuration validation.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// HasErrors returns true if there are any validation errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Error returns a combined error message if there are validation errors.
func (r *ValidationResult) Error() string {
	if !r.HasErrors() {
		return ""
	}
	var msgs []string
	for _, e := range r.Errors {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

func (r *ValidationResult) addError(field, message, hint string) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: message, Hint: hint})
}

func (r *ValidationResult) addWarning(field, message, hint string) {
	r.Warnings = append(r.Warnings, ValidationWarning{Field: field, Message: message, Hint: hint})
}

// Validate checks the configuration for errors and returns validation results.
// It returns both errors (fatal) and warnings (non-fatal issues).
func (c *Config) Validate() *ValidationResult {
	result := &ValidationResult{}

	c.Database.validate(result)
	c.Server.validate(result)
	c.Logging.validate(result)
	c.Query.validate(result)
	c.Cache.validate(result)
	validateEntities(result, c.Entities)

	return result
}

func (c *DatabaseConfig) validate(result *ValidationResult) {
	if c.DSN == "" && c.DSNFile == "" {
		result.addWarning("database.dsn", "no DSN configured",
			"set database.dsn, database.dsn_file, or RESTQ_DATABASE_DSN")
	}
	if c.Pool.MaxIdle > c.Pool.MaxOpen {
		result.addWarning("database.pool.max_idle",
			fmt.Sprintf("max_idle (%d) exceeds max_open (%d)", c.Pool.MaxIdle, c.Pool.MaxOpen),
			"idle connections beyond max_open are never kept")
	}
}

func (c *ServerConfig) validate(result *ValidationResult) {
	if c.Port < 1 || c.Port > 65535 {
		result.addError("server.port",
			fmt.Sprintf("invalid port %d", c.Port), "must be 1-65535")
	}
}

func (c *LoggingConfig) validate(result *ValidationResult) {
	switch c.Level {
	case "debug", "info", "warn", "error", "":
	default:
		result.addError("logging.level",
			fmt.Sprintf("unknown level %q", c.Level), "use debug, info, warn, or error")
	}
	switch c.Format {
	case "json", "text", "":
	default:
		result.addError("logging.format",
			fmt.Sprintf("unknown format %q", c.Format), "use json or text")
	}
}

func (c *QueryConfig) validate(result *ValidationResult) {
	if c.DefaultPerPage < 1 {
		result.addError("query.default_per_page",
			fmt.Sprintf("must be positive, got %d", c.DefaultPerPage), "")
	}
	if c.MaxPerPage < c.DefaultPerPage {
		result.addError("query.max_per_page",
			fmt.Sprintf("max_per_page (%d) is below default_per_page (%d)", c.MaxPerPage, c.DefaultPerPage), "")
	}
	switch c.DefaultPagination {
	case "offset", "cursor", "":
	default:
		result.addError("query.default_pagination",
			fmt.Sprintf("unknown mode %q", c.DefaultPagination), "use offset or cursor")
	}
}

func (c *CacheConfig) validate(result *ValidationResult) {
	if c.Enabled && c.TTL <= 0 {
		result.addError("cache.ttl", "must be positive when cache is enabled", "")
	}
}

func validateEntities(result *ValidationResult, entities []EntityConfig) {
	seen := map[string]bool{}
	for i, e := range entities {
		field := fmt.Sprintf("entities[%d]", i)
		if e.Name == "" {
			result.addError(field+".name", "entity name is required", "")
			continue
		}
		if seen[e.Name] {
			result.addError(field+".name", fmt.Sprintf("duplicate entity %q", e.Name), "")
		}
		seen[e.Name] = true
		if e.Table == "" {
			result.addError(field+".table", fmt.Sprintf("entity %q has no table", e.Name), "")
		}
		if e.DefaultSort != "" && len(e.Sortable) > 0 {
			col := strings.TrimLeft(strings.SplitN(e.DefaultSort, ":", 2)[0], "-+")
			if !contains(e.Sortable, col) {
				result.addError(field+".default_sort",
					fmt.Sprintf("default sort column %q is not in the sortable list", col), "")
			}
		}
		relSeen := map[string]bool{}
		for j, rel := range e.Relationships {
			relField := fmt.Sprintf("%s.relationships[%d]", field, j)
			if rel.Name == "" {
				result.addError(relField+".name", "relationship name is required", "")
				continue
			}
			if relSeen[rel.Name] {
				result.addError(relField+".name",
					fmt.Sprintf("duplicate relationship %q on entity %q", rel.Name, e.Name), "")
			}
			relSeen[rel.Name] = true
			if _, err := parseKind(rel.Kind); err != nil {
				result.addError(relField+".kind", err.Error(),
					"use has_one, has_many, belongs_to, belongs_to_many, has_one_through, has_many_through, morph_to, morph_one, morph_many, or morph_to_many")
			}
			if rel.Table == "" && rel.Kind != "morph_to" {
				result.addError(relField+".table",
					fmt.Sprintf("relationship %q has no target table", rel.Name), "")
			}
		}
	}
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
