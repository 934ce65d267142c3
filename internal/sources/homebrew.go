package sources

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/b2nix/nx/internal/debug"
	"github.com/b2nix/nx/internal/envir"
)

const brewAPIEndpoint = "https://formulae.brew.sh"

// brewClient fetches formula/cask metadata from the Homebrew API.
type brewClient struct {
	host string
	http *http.Client
}

func newBrewClient() *brewClient {
	return &brewClient{
		host: envir.GetValueOrDefault("NX_BREW_API_HOST", brewAPIEndpoint),
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

type brewFormula struct {
	Name     string `json:"name"`
	Desc     string `json:"desc"`
	License  string `json:"license"`
	Homepage string `json:"homepage"`
	Versions struct {
		Stable string `json:"stable"`
	} `json:"versions"`
}

type brewCask struct {
	Token    string `json:"token"`
	Desc     string `json:"desc"`
	Homepage string `json:"homepage"`
	Version  string `json:"version"`
}

func (c *brewClient) formula(name string) (*brewFormula, error) {
	endpoint, err := url.JoinPath(c.host, "api/formula", url.PathEscape(name)+".json")
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return execGet[brewFormula](c.http, endpoint)
}

func (c *brewClient) cask(token string) (*brewCask, error) {
	endpoint, err := url.JoinPath(c.host, "api/cask", url.PathEscape(token)+".json")
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return execGet[brewCask](c.http, endpoint)
}

func execGet[T any](client *http.Client, endpoint string) (*T, error) {
	response, err := client.Get(endpoint)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", endpoint, response.Status)
	}
	data, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, err
	}
	var result T
	return &result, json.Unmarshal(data, &result)
}

// SearchHomebrew queries the Homebrew metadata endpoint. Formula lookups
// may fall back to a cask when allowFallback is set and no formula exists.
func SearchHomebrew(name string, isCask, allowFallback bool) []Result {
	client := newBrewClient()

	if isCask {
		cask, err := client.cask(name)
		if err != nil {
			debug.Log("brew cask lookup failed for %s: %v", name, err)
			return nil
		}
		desc := cask.Desc
		if desc == "" {
			desc = "GUI application"
		}
		return []Result{{
			Name:        name,
			Source:      Cask,
			Attr:        nonEmpty(cask.Token, name),
			Version:     cask.Version,
			Description: desc,
			Homepage:    cask.Homepage,
			Confidence:  1.0,
		}}
	}

	formula, err := client.formula(name)
	if err != nil {
		debug.Log("brew formula lookup failed for %s: %v", name, err)
		if allowFallback {
			return SearchHomebrew(name, true, false)
		}
		return nil
	}
	return []Result{{
		Name:        name,
		Source:      Homebrew,
		Attr:        nonEmpty(formula.Name, name),
		Version:     formula.Versions.Stable,
		Description: formula.Desc,
		Homepage:    formula.Homepage,
		License:     formula.License,
		Confidence:  0.8,
	}}
}

func nonEmpty(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
