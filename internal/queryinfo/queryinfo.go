// Package queryinfo enriches `info` output with home-manager module and
// nix-darwin service hints, plus FlakeHub community flake lookups.
package queryinfo

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/b2nix/nx/internal/alias"
	"github.com/b2nix/nx/internal/finder"
)

// ConfigOption describes a module/service option covering a package, and
// whether the repo already enables it.
type ConfigOption struct {
	Path    string `json:"path"`
	Example string `json:"example"`
	Enabled bool   `json:"enabled"`
}

// FlakeHubInfo is one FlakeHub search hit.
type FlakeHubInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version,omitempty"`
}

type hintSeed struct {
	path    string
	example string
}

func hint(path string) hintSeed {
	return hintSeed{path: path, example: path + ".enable = true;"}
}

// hmModules maps packages to the home-manager program module that manages
// them; declaring the module is usually better than a bare package entry.
var hmModules = map[string]hintSeed{
	"neovim":   hint("programs.neovim"),
	"emacs":    hint("programs.emacs"),
	"helix":    hint("programs.helix"),
	"vscode":   hint("programs.vscode"),
	"zsh":      hint("programs.zsh"),
	"bash":     hint("programs.bash"),
	"fish":     hint("programs.fish"),
	"nushell":  hint("programs.nushell"),
	"git":      {path: "programs.git", example: `programs.git.enable = true; programs.git.userName = "...";`},
	"lazygit":  hint("programs.lazygit"),
	"gh":       hint("programs.gh"),
	"jujutsu":  hint("programs.jujutsu"),
	"yazi":     hint("programs.yazi"),
	"tmux":     hint("programs.tmux"),
	"zellij":   hint("programs.zellij"),
	"starship": hint("programs.starship"),
	"direnv":   hint("programs.direnv"),
	"fzf":      hint("programs.fzf"),
	"zoxide":   hint("programs.zoxide"),
	"atuin":    hint("programs.atuin"),
	"bat":      hint("programs.bat"),
	"eza":      hint("programs.eza"),
	"btop":     hint("programs.btop"),
	"htop":     hint("programs.htop"),
	"firefox":  hint("programs.firefox"),
	"mpv":      hint("programs.mpv"),
	"gpg":      hint("programs.gpg"),
	"ssh":      hint("programs.ssh"),
	"alacritty": hint("programs.alacritty"),
	"kitty":    hint("programs.kitty"),
	"wezterm":  hint("programs.wezterm"),
	"ghostty":  hint("programs.ghostty"),
}

// darwinServices maps packages to their nix-darwin service modules.
var darwinServices = map[string]hintSeed{
	"yabai":              hint("services.yabai"),
	"skhd":               hint("services.skhd"),
	"aerospace":          hint("services.aerospace"),
	"spacebar":           hint("services.spacebar"),
	"karabiner-elements": hint("services.karabiner-elements"),
	"sketchybar":         hint("services.sketchybar"),
	"syncthing":          hint("services.syncthing"),
	"lorri":              hint("services.lorri"),
}

// HMModuleInfo returns the home-manager module hint for name, if any.
func HMModuleInfo(name, repoRoot string) *ConfigOption {
	return lookupConfigOption(name, repoRoot, hmModules)
}

// DarwinServiceInfo returns the nix-darwin service hint for name, if any.
func DarwinServiceInfo(name, repoRoot string) *ConfigOption {
	return lookupConfigOption(name, repoRoot, darwinServices)
}

func lookupConfigOption(name, repoRoot string, options map[string]hintSeed) *ConfigOption {
	seed, ok := options[alias.Normalize(name)]
	if !ok {
		return nil
	}
	return &ConfigOption{
		Path:    seed.path,
		Example: seed.example,
		Enabled: optionEnabled(seed.path, repoRoot),
	}
}

func optionEnabled(path, repoRoot string) bool {
	pattern, err := regexp.Compile(`(?m)\b` + regexp.QuoteMeta(path) + `\.enable\s*=\s*true\b`)
	if err != nil {
		return false
	}
	for _, nixFile := range finder.CollectNixFiles(repoRoot) {
		raw, err := os.ReadFile(nixFile)
		if err != nil {
			continue
		}
		if pattern.Match(raw) {
			return true
		}
	}
	return false
}

const flakeHubAPIBase = "https://api.flakehub.com/flakes?q="

// SearchFlakeHub queries FlakeHub for community flakes matching name.
// Performed only under --bleeding-edge; failures return empty.
func SearchFlakeHub(name string) []FlakeHubInfo {
	client := &http.Client{Timeout: 10 * time.Second}
	response, err := client.Get(flakeHubAPIBase + url.QueryEscape(name))
	if err != nil {
		return nil
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return nil
	}
	data, err := io.ReadAll(response.Body)
	if err != nil {
		return nil
	}
	return ParseFlakeHubPayload(data, name)
}

// ParseFlakeHubPayload filters the API payload (bare array or `{flakes}`
// object) down to at most five relevant hits.
func ParseFlakeHubPayload(data []byte, name string) []FlakeHubInfo {
	type flakeEntry struct {
		Org         string `json:"org"`
		Project     string `json:"project"`
		Description string `json:"description"`
		Version     string `json:"version"`
	}

	var entries []flakeEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		var wrapper struct {
			Flakes []flakeEntry `json:"flakes"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil
		}
		entries = wrapper.Flakes
	}

	needle := strings.ToLower(name)
	var out []FlakeHubInfo
	for _, entry := range entries {
		if entry.Project == "" {
			continue
		}
		relevant := strings.Contains(strings.ToLower(entry.Project), needle) ||
			strings.Contains(strings.ToLower(entry.Description), needle)
		if !relevant {
			continue
		}
		fullName := entry.Project
		if entry.Org != "" {
			fullName = entry.Org + "/" + entry.Project
		}
		out = append(out, FlakeHubInfo{
			Name:        fullName,
			Description: entry.Description,
			Version:     entry.Version,
		})
		if len(out) == 5 {
			break
		}
	}
	return out
}
