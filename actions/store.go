// Package actions persists the category → key → template mapping behind the
// bot's lookup commands. Two backends exist: a JSON file (the default) and a
// Postgres table.
package actions

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrCategoryNotFound is returned when deleting from an unknown category.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrKeyNotFound is returned when deleting an unknown key.
	ErrKeyNotFound = errors.New("key not found")
	// ErrBadTemplate wraps template syntax errors.
	ErrBadTemplate = errors.New("bad template")
)

// FieldError reports an unknown placeholder in a template.
type FieldError struct{ Name string }

func (e *FieldError) Error() string { return fmt.Sprintf("unknown placeholder '%s'", e.Name) }

// Unwrap lets errors.Is(err, ErrBadTemplate) match.
func (e *FieldError) Unwrap() error { return ErrBadTemplate }

// Catalog is the full set of actions: category → key → template.
type Catalog map[string]map[string]string

// Categories returns the category names, sorted.
func (c Catalog) Categories() []string {
	out := make([]string, 0, len(c))
	for k := range c {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Keys returns the keys of category, sorted, and whether it exists.
func (c Catalog) Keys(category string) ([]string, bool) {
	entries, ok := c[category]
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(entries))
	for k := range entries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, true
}

// Store is implemented by the action backends.
type Store interface {
	Load(ctx context.Context) (Catalog, error)
	Put(ctx context.Context, category, key, tmpl string) error
	Delete(ctx context.Context, category, key string) error
}

func normalize(category, key string) (string, string) {
	return strings.ToLower(category), strings.ToLower(key)
}
