// Package config loads dnsdash defaults from a TOML file. Keys are flag names,
// either kebab or snake case; flags that belong to a command can also be set
// inside a table named after it:
//
//	api = "http://localhost:5001"
//	output = "json"
//
//	[watch]
//	poll_interval = "1s"
//	discard-stale = true
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/pelletier/go-toml/v2"
)

// DefaultPath returns ~/.config/dnsdash/config.toml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "dnsdash.toml"
	}
	return filepath.Join(home, ".config", "dnsdash", "config.toml")
}

// TOML is a kong.ConfigurationLoader.
func TOML(r io.Reader) (kong.Resolver, error) {
	values := map[string]any{}
	if err := toml.NewDecoder(r).Decode(&values); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	var f kong.ResolverFunc = func(ctx *kong.Context, parent *kong.Path, flag *kong.Flag) (any, error) {
		if parent != nil && parent.Command != nil {
			if table, ok := values[parent.Command.Name].(map[string]any); ok {
				if raw, ok := lookup(table, flag.Name); ok {
					return normalize(raw), nil
				}
			}
		}
		if raw, ok := lookup(values, flag.Name); ok {
			if _, isTable := raw.(map[string]any); !isTable {
				return normalize(raw), nil
			}
		}
		return nil, nil
	}
	return f, nil
}

func lookup(values map[string]any, name string) (any, bool) {
	for _, key := range []string{name, strings.ReplaceAll(name, "-", "_")} {
		if raw, ok := values[key]; ok {
			return raw, true
		}
	}
	return nil, false
}

// normalize flattens TOML arrays into the comma separated form kong expects
// for slice flags.
func normalize(raw any) any {
	items, ok := raw.([]any)
	if !ok {
		return raw
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, fmt.Sprint(item))
	}
	return strings.Join(parts, ",")
}
