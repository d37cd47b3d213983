// Package config loads the outpost.yaml configuration file.
package config

import (
	"os"
	"regexp"
)

// envVarPattern matches ${VAR} and ${VAR:-default}.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// ExpandEnv replaces ${VAR} and ${VAR:-default} with values from the process
// environment. A set, non-empty variable wins; otherwise the default is used,
// and an unset variable without default expands to the empty string. Required
// values are caught later by Validate.
func ExpandEnv(input string) string {
	return expand(input, os.LookupEnv)
}

func expand(input string, lookup func(string) (string, bool)) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if value, ok := lookup(groups[1]); ok && value != "" {
			return value
		}
		return groups[2]
	})
}
