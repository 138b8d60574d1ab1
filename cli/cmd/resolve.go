package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	sluiceconfig "github.com/justapithecus/sluice/cli/config"
)

// loadConfig loads --config when given. A nil config means no file.
func loadConfig(c *cli.Context) (*sluiceconfig.Config, error) {
	path := c.String("config")
	if path == "" {
		return nil, nil
	}
	return sluiceconfig.Load(path)
}

// configVal reads a value from cfg, or the zero value for a nil config.
func configVal[T any](cfg *sluiceconfig.Config, get func(*sluiceconfig.Config) T) T {
	if cfg == nil {
		var zero T
		return zero
	}
	return get(cfg)
}

// resolveString returns the flag when set on the command line, else the
// config value when non-empty, else the flag default.
func resolveString(c *cli.Context, name, configValue string) string {
	if c.IsSet(name) || configValue == "" {
		return c.String(name)
	}
	return configValue
}

// resolveInt is resolveString for ints. A zero config value defers to the
// flag default.
func resolveInt(c *cli.Context, name string, configValue int) int {
	if c.IsSet(name) || configValue == 0 {
		return c.Int(name)
	}
	return configValue
}

// resolveBool is resolveString for bools.
func resolveBool(c *cli.Context, name string, configValue bool) bool {
	if c.IsSet(name) {
		return c.Bool(name)
	}
	return configValue || c.Bool(name)
}

// resolveDuration is resolveString for durations.
func resolveDuration(c *cli.Context, name string, configValue time.Duration) time.Duration {
	if c.IsSet(name) || configValue == 0 {
		return c.Duration(name)
	}
	return configValue
}

// resolveHeaders merges config headers with repeatable key=value flags.
// Flags win on conflicting keys.
func resolveHeaders(c *cli.Context, name string, configValue map[string]string) (map[string]string, error) {
	headers := make(map[string]string, len(configValue))
	for k, v := range configValue {
		headers[k] = v
	}
	for _, kv := range c.StringSlice(name) {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("--%s %q: want key=value", name, kv)
		}
		headers[k] = v
	}
	return headers, nil
}
