// Package config loads sluice.yaml, the defaults file for sluice commands.
package config

import (
	"os"
	"regexp"
)

// envRef matches ${VAR}, ${VAR:-default} and $${...}, the escape for a
// literal ${...}.
var envRef = regexp.MustCompile(`\$?\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// ExpandEnv substitutes environment references in input.
//
// ${VAR} is the value of VAR, empty when unset. ${VAR:-default} falls back
// to default when VAR is unset or empty. $${VAR} is left as ${VAR}.
func ExpandEnv(input string) string {
	return envRef.ReplaceAllStringFunc(input, func(ref string) string {
		if ref[1] == '$' {
			return ref[1:]
		}
		m := envRef.FindStringSubmatch(ref)
		if v := os.Getenv(m[1]); v != "" {
			return v
		}
		return m[2]
	})
}
