package commands

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// envKey maps a parameter name to an environment variable name:
// "/app/db/url" becomes "APP_DB_URL". Runs of characters outside [A-Za-z0-9]
// collapse to a single underscore.
func envKey(name string) string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - ('a' - 'A'))
			lastUnderscore = false
		case (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimRight(b.String(), "_")
}

// writeEnvFile writes values as KEY=VALUE lines in name order. The file may
// carry secrets, so it is created with owner-only permissions.
//
// The key mapping is lossy ("/app/db-url" and "/app/db/url" both become
// APP_DB_URL), so a collision is an error rather than a silent overwrite.
func writeEnvFile(path string, values map[string]string) error {
	seen := make(map[string]string, len(values))
	var b strings.Builder
	for _, name := range sortedNames(values) {
		key := envKey(name)
		if prev, dup := seen[key]; dup {
			return fmt.Errorf("parameters %q and %q both map to env key %s", prev, name, key)
		}
		seen[key] = name

		b.WriteString(key)
		b.WriteString("=")
		b.WriteString(values[name])
		b.WriteString("\n")
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("writing env file: %w", err)
	}
	return nil
}

func sortedNames(values map[string]string) []string {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
