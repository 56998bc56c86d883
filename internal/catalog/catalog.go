package catalog

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/dlclark/regexp2"
	"github.com/pkg/errors"
)

// Marker is the username placeholder inside URL templates and header values.
const Marker = "{}"

// sampleUsername is substituted into templates when checking they form valid URLs.
const sampleUsername = "username"

var (
	ErrEmptyCatalog      = errors.New("catalog is empty")
	ErrMalformedTemplate = errors.New("malformed site entry")
)

// SiteEntry describes how to build the profile URL for one site.
type SiteEntry struct {
	Name string
	URL  string

	// Optional request headers; values may contain Marker.
	Headers map[string]string

	// Optional regexp2 expression the username must match for the site to be probed.
	RegexCheck string

	// Known present/absent usernames, used by the self-test.
	UsernameClaimed   string
	UsernameUnclaimed string
}

// TemplateError reports a catalog entry that cannot be probed.
type TemplateError struct {
	Site   string
	Reason string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("site %q: %s", e.Site, e.Reason)
}

func (e *TemplateError) Unwrap() error { return ErrMalformedTemplate }

// Catalog is an ordered set of site entries, unique by name.
// It is read-only after New returns and safe to share between goroutines.
type Catalog struct {
	entries []SiteEntry
	index   map[string]int
}

// New builds a catalog in argument order. A name given twice keeps the
// position of its first occurrence and the contents of its last.
func New(entries ...SiteEntry) *Catalog {
	c := &Catalog{
		entries: make([]SiteEntry, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		c.add(e)
	}
	return c
}

func (c *Catalog) add(e SiteEntry) {
	if i, ok := c.index[e.Name]; ok {
		c.entries[i] = e
		return
	}
	c.index[e.Name] = len(c.entries)
	c.entries = append(c.entries, e)
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// Entries returns a copy of the entries in catalog order.
func (c *Catalog) Entries() []SiteEntry {
	if c == nil {
		return nil
	}
	out := make([]SiteEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, len(c.entries))
	for i, e := range c.entries {
		names[i] = e.Name
	}
	return names
}

// Filter returns the entries matching names case-insensitively, in catalog
// order, along with the requested names that matched nothing.
func (c *Catalog) Filter(names []string) (*Catalog, []string) {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n != "" {
			want[strings.ToLower(n)] = false
		}
	}

	var picked []SiteEntry
	for _, e := range c.Entries() {
		key := strings.ToLower(e.Name)
		if _, ok := want[key]; ok {
			want[key] = true
			picked = append(picked, e)
		}
	}

	var unknown []string
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		key := strings.ToLower(n)
		if n == "" || seen[key] {
			continue
		}
		seen[key] = true
		if !want[key] {
			unknown = append(unknown, n)
		}
	}

	return New(picked...), unknown
}

// Validate checks that every entry can be turned into a request.
func (c *Catalog) Validate() error {
	if c.Len() == 0 {
		return ErrEmptyCatalog
	}
	for _, e := range c.entries {
		if err := e.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (e SiteEntry) validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return &TemplateError{Site: e.Name, Reason: "empty site name"}
	}
	if e.URL == "" {
		return &TemplateError{Site: e.Name, Reason: "missing url"}
	}
	if !strings.Contains(e.URL, Marker) {
		return &TemplateError{Site: e.Name, Reason: fmt.Sprintf("url %q has no %s placeholder", e.URL, Marker)}
	}

	u, err := url.Parse(ExpandString(e.URL, sampleUsername))
	if err != nil {
		return &TemplateError{Site: e.Name, Reason: fmt.Sprintf("url %q: %v", e.URL, err)}
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &TemplateError{Site: e.Name, Reason: fmt.Sprintf("url %q is not an absolute http(s) url", e.URL)}
	}

	if e.RegexCheck != "" {
		if _, err := regexp2.Compile(e.RegexCheck, 0); err != nil {
			return &TemplateError{Site: e.Name, Reason: fmt.Sprintf("invalid regexCheck: %v", err)}
		}
	}
	return nil
}
