// Package model holds the catalog domain: ingredients, recipes, the books
// catalog and the origin tree, plus the in-memory repositories that keep
// record names unique.
package model

import (
	"slices"
	"strconv"
	"strings"
)

// Ingredient is one alchemy ingredient. Name is its key.
type Ingredient struct {
	Name        string
	Category    Category
	Difficulty  int
	ShortEffect string
	Effect      string
	Origins     []string
	Books       []string
}

// Clone returns a deep copy of ing.
func (ing Ingredient) Clone() Ingredient {
	ing.Origins = slices.Clone(ing.Origins)
	ing.Books = slices.Clone(ing.Books)
	return ing
}

// AddOrigin appends label unless already present.
func (ing *Ingredient) AddOrigin(label string) {
	if !slices.Contains(ing.Origins, label) {
		ing.Origins = append(ing.Origins, label)
	}
}

// RemoveOrigin drops every occurrence of label.
func (ing *Ingredient) RemoveOrigin(label string) {
	ing.Origins = slices.DeleteFunc(ing.Origins, func(o string) bool { return o == label })
}

// AddBook appends title unless already present.
func (ing *Ingredient) AddBook(title string) {
	if !slices.Contains(ing.Books, title) {
		ing.Books = append(ing.Books, title)
	}
}

// RemoveBook drops every occurrence of title.
func (ing *Ingredient) RemoveBook(title string) {
	ing.Books = slices.DeleteFunc(ing.Books, func(b string) bool { return b == title })
}

// Recipe is a potion recipe made of one or more alternative combos.
type Recipe struct {
	Name  string
	Desc  string
	Emoji string
	// Bonus is nil when the recipe carries no bonus.
	Bonus  *float64
	Combos [][]string
	Books  []string
}

// Clone returns a deep copy of r.
func (r Recipe) Clone() Recipe {
	if r.Bonus != nil {
		b := *r.Bonus
		r.Bonus = &b
	}
	combos := make([][]string, len(r.Combos))
	for i, c := range r.Combos {
		combos[i] = slices.Clone(c)
	}
	r.Combos = combos
	r.Books = slices.Clone(r.Books)
	return r
}

// Uses reports whether ingredient name appears in any combo of r.
func (r Recipe) Uses(name string) bool {
	for _, c := range r.Combos {
		if slices.Contains(c, name) {
			return true
		}
	}
	return false
}

// AddCombo appends one alternative.
func (r *Recipe) AddCombo(members ...string) {
	r.Combos = append(r.Combos, slices.Clone(members))
}

// RemoveComboAt drops the alternative at index i; out of range is a no-op.
func (r *Recipe) RemoveComboAt(i int) {
	if i < 0 || i >= len(r.Combos) {
		return
	}
	r.Combos = slices.Delete(r.Combos, i, i+1)
}

// Unique returns items without duplicates, keeping first occurrences in order.
func Unique(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out
}

// CleanList trims every item, drops empties and duplicates.
func CleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if t := strings.TrimSpace(it); t != "" {
			out = append(out, t)
		}
	}
	return Unique(out)
}

// Duplicates returns the names that occur more than once, sorted.
func Duplicates(names []string) []string {
	seen := make(map[string]bool, len(names))
	dup := make(map[string]bool)
	for _, n := range names {
		if seen[n] {
			dup[n] = true
			continue
		}
		seen[n] = true
	}
	out := make([]string, 0, len(dup))
	for n := range dup {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// CopyName derives a name for a duplicated record that is not in existing:
// "<base> (copy)", then "<base> (copy 2)", "<base> (copy 3)", ...
func CopyName(base string, existing map[string]bool) string {
	if !existing[base] {
		return base
	}
	candidate := base + " (copy)"
	for n := 2; existing[candidate]; n++ {
		candidate = base + " (copy " + strconv.Itoa(n) + ")"
	}
	return candidate
}
