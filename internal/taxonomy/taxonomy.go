// Package taxonomy holds the fixed category set offered to users. The ledger
// itself accepts any label; only the CLI and HTTP surfaces consult this list.
package taxonomy

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/agnivade/levenshtein"
	"gopkg.in/yaml.v3"

	"budget/internal/core"
)

// Default is the category set used when no file is configured.
var Default = []string{"Food", "Transport", "Bills", "Groceries", "Entertainment", "Health", "Savings", core.DefaultCategory}

// ErrUnknownCategory is returned by Check for a label outside the set.
var ErrUnknownCategory = errors.New("unknown category")

// maxSuggestDistance bounds how different a suggestion may be.
const maxSuggestDistance = 3

type Taxonomy struct {
	names []string
	index map[string]string // lower-case -> canonical
}

// New builds a taxonomy from names, dropping blanks and case-insensitive
// duplicates while keeping first-seen order.
func New(names []string) *Taxonomy {
	t := &Taxonomy{index: map[string]string{}}
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		key := strings.ToLower(n)
		if _, ok := t.index[key]; ok {
			continue
		}
		t.index[key] = n
		t.names = append(t.names, n)
	}
	return t
}

type fileFormat struct {
	Categories []string `yaml:"categories"`
}

// LoadFile reads a YAML file of the form
//
//	categories:
//	  - Food
//	  - Rent
//
// An empty path returns the default set.
func LoadFile(path string) (*Taxonomy, error) {
	if path == "" {
		return New(Default), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read categories file: %w", err)
	}
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse categories YAML: %w", err)
	}
	t := New(f.Categories)
	if len(t.names) == 0 {
		return nil, fmt.Errorf("categories file %s lists no categories", path)
	}
	return t, nil
}

// List returns the categories in configured order.
func (t *Taxonomy) List() []string {
	return append([]string(nil), t.names...)
}

// Canonical returns the configured spelling of name, matched case-insensitively.
func (t *Taxonomy) Canonical(name string) (string, bool) {
	c, ok := t.index[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

func (t *Taxonomy) Contains(name string) bool {
	_, ok := t.Canonical(name)
	return ok
}

// Suggest returns the closest configured category to name, or "" when none
// is close enough.
func (t *Taxonomy) Suggest(name string) string {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return ""
	}
	best, bestDist := "", maxSuggestDistance+1
	for _, n := range t.names {
		d := levenshtein.ComputeDistance(needle, strings.ToLower(n))
		if d < bestDist {
			best, bestDist = n, d
		}
	}
	return best
}

// Check resolves name to its canonical spelling. A blank name is accepted
// as is so the store can apply its default.
func (t *Taxonomy) Check(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", nil
	}
	if c, ok := t.Canonical(name); ok {
		return c, nil
	}
	if s := t.Suggest(name); s != "" {
		return "", fmt.Errorf("%w %q (did you mean %q?)", ErrUnknownCategory, name, s)
	}
	return "", fmt.Errorf("%w %q (choose one of: %s)", ErrUnknownCategory, name, strings.Join(t.names, ", "))
}
