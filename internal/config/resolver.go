package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the configuration file name looked up by FindPath.
const FileName = "dashbot.yaml"

// Resolve returns a sorted list of module IDs from the configuration.
// The deterministic order ensures consistent module loading.
func Resolve(cfg *Config) []string {
	ids := make([]string, 0, len(cfg.Modules))
	for id := range cfg.Modules {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// FindPath returns explicit when set, otherwise the first existing file of
// $XDG_CONFIG_HOME/dashbot/dashbot.yaml (or ~/.config/dashbot/dashbot.yaml)
// and ./dashbot.yaml.
func FindPath(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	candidates := SearchPaths()
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("config: no configuration file found (searched: %s)", strings.Join(candidates, ", "))
}

// SearchPaths lists the locations FindPath checks, in order.
func SearchPaths() []string {
	var candidates []string
	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok && xdg != "" {
		candidates = append(candidates, filepath.Join(xdg, "dashbot", FileName))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "dashbot", FileName))
	}
	return append(candidates, FileName)
}

// secretKeyPattern matches module config keys holding credentials.
var secretKeyPattern = regexp.MustCompile(`(?i)(secret|token|pass)`)

// Secrets collects the credential values found in module configurations,
// after environment expansion, so they can be scrubbed from logs.
func Secrets(cfg *Config) []string {
	var out []string
	for _, id := range Resolve(cfg) {
		node := cfg.Modules[id]
		out = collectSecrets(&node, out)
	}
	out = append(out, cfg.Security.Redact...)
	slices.Sort(out)
	return slices.Compact(out)
}

func collectSecrets(node *yaml.Node, out []string) []string {
	switch node.Kind {
	case yaml.DocumentNode, yaml.SequenceNode:
		for _, c := range node.Content {
			out = collectSecrets(c, out)
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, val := node.Content[i], node.Content[i+1]
			if val.Kind == yaml.ScalarNode && secretKeyPattern.MatchString(key.Value) && val.Value != "" {
				out = append(out, val.Value)
				continue
			}
			out = collectSecrets(val, out)
		}
	}
	return out
}
