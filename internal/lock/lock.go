// Package lock parses flake.lock, diffs its inputs across updates, and
// edits flake.nix input blocks.
package lock

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/pkg/errors"
)

// InputKind tags where a flake input is fetched from.
type InputKind string

const (
	KindGithub  InputKind = "github"
	KindTarball InputKind = "tarball"
	KindOther   InputKind = "other"
)

// Input is one parsed root input of flake.lock. `file`-kind inputs (binary
// artifacts, no changelog) and `follows` references are skipped entirely.
type Input struct {
	Name         string
	Kind         InputKind
	Owner        string
	Repo         string
	Rev          string
	LastModified int64
}

// InputChange records one input whose revision moved between two locks.
// Only inputs with GitHub owner/repo info are tracked.
type InputChange struct {
	Name        string
	Owner       string
	Repo        string
	OldRev      string
	NewRev      string
	OldModified int64
	NewModified int64
}

// Diff is the result of comparing two lock states.
type Diff struct {
	Changed []InputChange
	Added   []string
	Removed []string
}

func (d *Diff) Empty() bool {
	return len(d.Changed) == 0 && len(d.Added) == 0 && len(d.Removed) == 0
}

var flakehubURLRe = regexp.MustCompile(`/f/pinned/([^/]+)/([^/]+)/`)

// LoadFlakeLock parses <repoRoot>/flake.lock, returning an empty map when
// the file does not exist.
func LoadFlakeLock(repoRoot string) (map[string]Input, error) {
	lockPath := filepath.Join(repoRoot, "flake.lock")
	if _, err := os.Stat(lockPath); err != nil {
		return map[string]Input{}, nil
	}
	return ParseFlakeLock(lockPath)
}

type lockNode struct {
	Locked map[string]any `json:"locked"`
	Inputs map[string]any `json:"inputs"`
}

// ParseFlakeLock extracts root input info from a flake.lock file, following
// root-input indirection to the actual node.
func ParseFlakeLock(path string) (map[string]Input, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	var lock struct {
		Nodes map[string]lockNode `json:"nodes"`
	}
	if err := json.Unmarshal(raw, &lock); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	if lock.Nodes == nil {
		return nil, errors.Errorf("missing nodes in %s", path)
	}

	inputs := map[string]Input{}
	root, ok := lock.Nodes["root"]
	if !ok {
		return inputs, nil
	}

	for inputName, nodeRef := range root.Inputs {
		nodeKey, ok := nodeRef.(string)
		if !ok {
			// follows references are list-valued
			continue
		}
		node, ok := lock.Nodes[nodeKey]
		if !ok || node.Locked == nil {
			continue
		}

		kindStr, _ := node.Locked["type"].(string)
		if kindStr == "file" {
			continue
		}

		input := Input{
			Name: inputName,
			Rev:  stringField(node.Locked, "rev"),
		}
		if lm, ok := node.Locked["lastModified"].(float64); ok {
			input.LastModified = int64(lm)
		}

		switch kindStr {
		case "github":
			input.Kind = KindGithub
			input.Owner = stringField(node.Locked, "owner")
			input.Repo = stringField(node.Locked, "repo")
		case "tarball":
			input.Kind = KindTarball
			if caps := flakehubURLRe.FindStringSubmatch(stringField(node.Locked, "url")); caps != nil {
				input.Owner = caps[1]
				input.Repo = caps[2]
			}
		default:
			input.Kind = KindOther
			input.Owner = stringField(node.Locked, "owner")
			input.Repo = stringField(node.Locked, "repo")
		}

		inputs[inputName] = input
	}

	return inputs, nil
}

// DiffLocks compares two lock states at input level. Reflexive:
// DiffLocks(x, x) is empty.
func DiffLocks(old, new map[string]Input) *Diff {
	diff := &Diff{}

	for name := range new {
		if _, ok := old[name]; !ok {
			diff.Added = append(diff.Added, name)
		}
	}
	for name := range old {
		if _, ok := new[name]; !ok {
			diff.Removed = append(diff.Removed, name)
		}
	}
	sort.Strings(diff.Added)
	sort.Strings(diff.Removed)

	for name, newInput := range new {
		oldInput, ok := old[name]
		if !ok || oldInput.Rev == newInput.Rev {
			continue
		}
		if newInput.Owner == "" || newInput.Repo == "" {
			continue
		}
		diff.Changed = append(diff.Changed, InputChange{
			Name:        name,
			Owner:       newInput.Owner,
			Repo:        newInput.Repo,
			OldRev:      oldInput.Rev,
			NewRev:      newInput.Rev,
			OldModified: oldInput.LastModified,
			NewModified: newInput.LastModified,
		})
	}
	sort.Slice(diff.Changed, func(i, j int) bool { return diff.Changed[i].Name < diff.Changed[j].Name })

	return diff
}

// ShortRev shortens a git revision to 7 characters.
func ShortRev(rev string) string {
	if len(rev) >= 7 {
		return rev[:7]
	}
	return rev
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
