// Package alias maps surface name variants to canonical character identities.
package alias

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/Kkro1s/HongLouMeng/internal/apperr"
	"github.com/Kkro1s/HongLouMeng/internal/models"
)

//go:embed characters.yaml
var defaultTable []byte

// Table is an immutable canonical-id -> aliases mapping.
type Table struct {
	ids     []string
	aliases map[string][]string
}

// Overlap records an alias of one character that contains an alias of another.
// Overlaps are reported, never resolved.
type Overlap struct {
	Character string `json:"character"`
	Alias     string `json:"alias"`
	Other     string `json:"other"`
	Contained string `json:"contained"`
}

// New validates entries and copies them into a Table. Duplicate aliases of the
// same character are collapsed, keeping first-seen order.
func New(entries map[string][]string) (*Table, error) {
	if len(entries) == 0 {
		return nil, apperr.ErrEmptyTable
	}
	t := &Table{aliases: make(map[string][]string, len(entries))}
	for id, list := range entries {
		if err := validation.Validate(id, validation.Required); err != nil {
			return nil, fmt.Errorf("alias: character id: %w", err)
		}
		if err := validation.Validate(list,
			validation.Required,
			validation.Each(validation.Required),
		); err != nil {
			return nil, fmt.Errorf("alias: %s: %w", id, err)
		}
		seen := make(map[string]bool, len(list))
		uniq := make([]string, 0, len(list))
		for _, a := range list {
			a = strings.TrimSpace(a)
			if a == "" || seen[a] {
				continue
			}
			seen[a] = true
			uniq = append(uniq, a)
		}
		if len(uniq) == 0 {
			return nil, fmt.Errorf("alias: %s: no non-blank alias", id)
		}
		t.ids = append(t.ids, id)
		t.aliases[id] = uniq
	}
	sort.Strings(t.ids)
	return t, nil
}

// Parse decodes a YAML document of the form `id: [alias, ...]`.
func Parse(data []byte) (*Table, error) {
	var entries map[string][]string
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("alias: parse: %w", err)
	}
	return New(entries)
}

// Load reads a YAML alias table from path.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("alias: read %s: %w", path, err)
	}
	return Parse(data)
}

// Default returns the built-in table of 28 characters.
func Default() *Table {
	t, err := Parse(defaultTable)
	if err != nil {
		panic(fmt.Sprintf("alias: embedded table: %v", err))
	}
	return t
}

// Characters returns every canonical id in sorted order.
func (t *Table) Characters() []string {
	return slices.Clone(t.ids)
}

// Records returns the table as Character values, sorted by id.
func (t *Table) Records() []models.Character {
	out := make([]models.Character, 0, len(t.ids))
	for _, id := range t.ids {
		out = append(out, models.Character{ID: id, Aliases: slices.Clone(t.aliases[id])})
	}
	return out
}

// Aliases returns the surface variants of id, or nil when id is unknown.
func (t *Table) Aliases(id string) []string {
	return slices.Clone(t.aliases[id])
}

// Has reports whether id is a canonical character.
func (t *Table) Has(id string) bool {
	_, ok := t.aliases[id]
	return ok
}

// Len returns the number of characters.
func (t *Table) Len() int {
	return len(t.ids)
}

// Present returns, sorted, the ids of every character with at least one alias
// occurring in span as an exact substring.
func (t *Table) Present(span string) []string {
	if span == "" {
		return nil
	}
	var out []string
	for _, id := range t.ids {
		for _, a := range t.aliases[id] {
			if strings.Contains(span, a) {
				out = append(out, id)
				break
			}
		}
	}
	return out
}

// Resolve maps a canonical id or an exact alias to its canonical id. An alias
// shared by several characters resolves to the first id in sorted order.
func (t *Table) Resolve(name string) (string, bool) {
	if t.Has(name) {
		return name, true
	}
	for _, id := range t.ids {
		if slices.Contains(t.aliases[id], name) {
			return id, true
		}
	}
	return "", false
}

// Contains reports whether any alias of id occurs in span.
func (t *Table) Contains(id, span string) bool {
	for _, a := range t.aliases[id] {
		if strings.Contains(span, a) {
			return true
		}
	}
	return false
}

// Mentions counts the non-overlapping occurrences of each alias of id in text
// and returns their sum.
func (t *Table) Mentions(id, text string) int {
	n := 0
	for _, a := range t.aliases[id] {
		n += strings.Count(text, a)
	}
	return n
}

// Overlaps lists every alias that is a substring of another character's alias.
func (t *Table) Overlaps() []Overlap {
	var out []Overlap
	for _, id := range t.ids {
		for _, a := range t.aliases[id] {
			for _, other := range t.ids {
				if other == id {
					continue
				}
				for _, b := range t.aliases[other] {
					if strings.Contains(a, b) {
						out = append(out, Overlap{Character: id, Alias: a, Other: other, Contained: b})
					}
				}
			}
		}
	}
	return out
}
