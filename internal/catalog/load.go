package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/mcuadros/go-version"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/tdh8316/usercheck/internal/httpx"
	toolversion "github.com/tdh8316/usercheck/internal/version"
)

// SherlockDataURL serves a catalog in the same format Load reads.
const SherlockDataURL = "https://raw.githubusercontent.com/sherlock-project/sherlock/refs/heads/master/sherlock_project/resources/data.json"

var ErrIncompatibleCatalog = errors.New("catalog requires a newer version")

// Load reads a sherlock-style data.json file.
func Load(filename string) (*Catalog, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "read catalog")
	}
	c, err := Parse(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "catalog %s", filename)
	}
	return c, nil
}

// Parse decodes a catalog object. Site order follows the document; keys
// starting with "$" are metadata and never become sites.
func Parse(raw []byte) (*Catalog, error) {
	if !gjson.ValidBytes(raw) {
		return nil, errors.New("parse json: invalid document")
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return nil, errors.New("parse json: top level must be an object")
	}

	var (
		entries    []SiteEntry
		minVersion string
		perr       error
	)
	root.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if name == "$minVersion" {
			minVersion = value.String()
		}
		if strings.HasPrefix(name, "$") {
			return true
		}
		e, err := parseEntry(name, value)
		if err != nil {
			perr = err
			return false
		}
		entries = append(entries, e)
		return true
	})
	if perr != nil {
		return nil, perr
	}
	if minVersion != "" && version.Compare(toolversion.Version, minVersion, "<") {
		return nil, errors.Wrapf(ErrIncompatibleCatalog, "need %s, have %s", minVersion, toolversion.Version)
	}

	return New(entries...), nil
}

func parseEntry(name string, v gjson.Result) (SiteEntry, error) {
	if !v.IsObject() {
		return SiteEntry{}, &TemplateError{Site: name, Reason: "entry must be an object"}
	}
	u := v.Get("url")
	if u.Exists() && u.Type != gjson.String {
		return SiteEntry{}, &TemplateError{Site: name, Reason: fmt.Sprintf("url must be a string, got %s", u.Type)}
	}

	e := SiteEntry{
		Name:              name,
		URL:               u.String(),
		RegexCheck:        v.Get("regexCheck").String(),
		UsernameClaimed:   v.Get("username_claimed").String(),
		UsernameUnclaimed: v.Get("username_unclaimed").String(),
	}

	if h := v.Get("headers"); h.IsObject() {
		e.Headers = make(map[string]string)
		h.ForEach(func(k, hv gjson.Result) bool {
			e.Headers[k.String()] = hv.String()
			return true
		})
	}
	return e, nil
}

// UpdateFromRemote downloads a catalog from rawURL and replaces destPath
// once the download parses.
func UpdateFromRemote(ctx context.Context, client httpx.Doer, userAgent, rawURL, destPath string) error {
	if rawURL == "" {
		rawURL = SherlockDataURL
	}
	req, err := httpx.NewGet(ctx, rawURL, userAgent, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Read a small snippet for diagnostics.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return errors.Errorf("download failed: %s (%s)", resp.Status, string(snippet))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if _, err := Parse(body); err != nil {
		return errors.Wrap(err, "downloaded catalog")
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}

	tmp := destPath + ".tmp"
	if err := os.WriteFile(tmp, body, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, destPath); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrapf(err, "replace %s", destPath)
	}
	return nil
}
