// Package catalog maps raw review status codes to verdict text.
package catalog

import (
	"fmt"
	"sort"
	"strings"
)

// Built-in status codes.
const (
	StatusApproved  = "approved"
	StatusReviewing = "reviewing"
	StatusRejected  = "rejected"
)

var builtin = map[string]string{
	StatusApproved:  "Работа проверена: ревьюеру всё понравилось. Ура!",
	StatusReviewing: "Работа взята на проверку ревьюером.",
	StatusRejected:  "Работа проверена: у ревьюера есть замечания.",
}

// Catalog is immutable after New and safe for concurrent reads.
type Catalog struct {
	verdicts map[string]string
}

// Default returns a catalog with only the built-in codes.
func Default() *Catalog {
	c, _ := New(nil)
	return c
}

// New returns the built-in catalog extended (or overridden) by extra.
func New(extra map[string]string) (*Catalog, error) {
	m := make(map[string]string, len(builtin)+len(extra))
	for k, v := range builtin {
		m[k] = v
	}
	for k, v := range extra {
		code := strings.TrimSpace(k)
		verdict := strings.TrimSpace(v)
		if code == "" {
			return nil, fmt.Errorf("statuses: empty status code")
		}
		if verdict == "" {
			return nil, fmt.Errorf("statuses.%s: empty verdict", code)
		}
		m[code] = verdict
	}
	return &Catalog{verdicts: m}, nil
}

// Verdict returns the verdict text for code.
func (c *Catalog) Verdict(code string) (string, bool) {
	if c == nil {
		return "", false
	}
	v, ok := c.verdicts[code]
	return v, ok
}

// Codes returns all known codes in sorted order.
func (c *Catalog) Codes() []string {
	if c == nil {
		return nil
	}
	out := make([]string, 0, len(c.verdicts))
	for k := range c.verdicts {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.verdicts)
}
