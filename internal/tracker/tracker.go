// Package tracker remembers the last verdict seen for each work item and
// reports transitions.
package tracker

import (
	"fmt"
	"strings"

	"hwbot/internal/catalog"
	"hwbot/internal/failure"
	"hwbot/internal/response"
)

// MessageTemplate is the operator-facing text for a transition.
const MessageTemplate = "Изменился статус проверки работы \"%s\". %s"

// Tracker is owned by a single poll loop and is not safe for concurrent use.
type Tracker struct {
	catalog *catalog.Catalog
	last    map[string]string // name -> verdict
}

func New(c *catalog.Catalog) *Tracker {
	if c == nil {
		c = catalog.Default()
	}
	return &Tracker{catalog: c, last: map[string]string{}}
}

// Observe folds item into the tracker. It returns the transition message and
// true when the item's verdict differs from the last one stored for its name
// (or the name was never seen). An unchanged verdict yields ("", false, nil).
//
// Comparison is on verdict text: two codes sharing a verdict are "no change".
// Names and codes are used verbatim; whitespace only counts for emptiness.
func (t *Tracker) Observe(item response.WorkItem) (string, bool, error) {
	name, status := item.Name, item.Status
	if strings.TrimSpace(name) == "" || strings.TrimSpace(status) == "" {
		return "", false, failure.Newf(failure.IncompleteItem, "tracker.Observe", "name=%q status=%q", name, status)
	}
	verdict, ok := t.catalog.Verdict(status)
	if !ok {
		return "", false, failure.Newf(failure.UnknownStatus, "tracker.Observe", "status %q of %q", status, name)
	}
	if prev, seen := t.last[name]; seen && prev == verdict {
		return "", false, nil
	}
	t.last[name] = verdict
	return fmt.Sprintf(MessageTemplate, name, verdict), true, nil
}

// Last returns the stored verdict for name.
func (t *Tracker) Last(name string) (string, bool) {
	v, ok := t.last[name]
	return v, ok
}

// Len returns the number of names observed so far.
func (t *Tracker) Len() int { return len(t.last) }
