package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

var envVarPattern = regexp.MustCompile(`\$\{env://([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// substituteEnvVars replaces ${env://VAR} and ${env://VAR:-default} patterns
// with environment variable values. A reference without a default whose
// variable is unset is an error, so misconfiguration surfaces before any
// network call is made.
func substituteEnvVars(content string) (string, error) {
	var missing []string

	result := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		varPart := strings.TrimPrefix(strings.TrimSuffix(match, "}"), "${env://")
		name, fallback, hasFallback := splitDefault(varPart)

		if value := os.Getenv(name); value != "" {
			return value
		}
		if hasFallback {
			return fallback
		}
		missing = append(missing, name)
		return match
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}
	return result, nil
}

// splitDefault separates "VAR:-default" into its variable name and default
// value. Defaults may themselves contain ":" (URLs, paths).
func splitDefault(varPart string) (name, fallback string, hasFallback bool) {
	if strings.Contains(varPart, ":-") {
		parts := strings.SplitN(varPart, ":-", 2)
		return parts[0], parts[1], true
	}
	return varPart, "", false
}
