// Package alias maps common package names to their canonical nix attribute
// names. Normalization is shared by cache keys, finder lookups, and filter
// arguments; display paths keep the user's original token.
package alias

import "strings"

var nameMappings = map[string]string{
	// Numeric prefix packages
	"1password-cli": "_1password-cli",
	"1password":     "_1password-gui",
	// Editor aliases
	"nvim": "neovim",
	"vim":  "neovim",
	// Python aliases
	"python":  "python3",
	"python3": "python3",
	"py-yaml": "pyyaml",
	"py_yaml": "pyyaml",
	// Node aliases
	"node":   "nodejs",
	"nodejs": "nodejs",
	// Tool aliases
	"rg":      "ripgrep",
	"fd-find": "fd",
	// GNU tools
	"grep": "gnugrep",
	"sed":  "gnused",
	"make": "gnumake",
	"tar":  "gnutar",
	"find": "findutils",
}

// Normalize lower-cases name and applies the alias map.
func Normalize(name string) string {
	lower := strings.ToLower(name)
	if mapped, ok := nameMappings[lower]; ok {
		return strings.ToLower(mapped)
	}
	return lower
}
