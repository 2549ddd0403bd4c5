package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ArmandoRuiz13/registro/internal/sheet"
)

var (
	registry   = make(map[string]SheetDefinition)
	registryMu sync.RWMutex
)

// Register adds a sheet definition to the registry.
// Panics if a sheet with the same key is already registered.
func Register(def SheetDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Info.Key]; exists {
		panic(fmt.Sprintf("sheet already registered: %s", def.Info.Key))
	}

	if len(def.Info.Columns) == 0 && len(def.FieldSpecs) > 0 {
		def.Info.Columns = make([]string, len(def.FieldSpecs))
		for i, spec := range def.FieldSpecs {
			def.Info.Columns[i] = spec.Name
		}
	}

	registry[def.Info.Key] = def
}

// Get returns a sheet definition by key.
func Get(key string) (SheetDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[key]
	return def, ok
}

// Lookup is Get with an error for unregistered keys.
func Lookup(key string) (SheetDefinition, error) {
	def, ok := Get(key)
	if !ok {
		return SheetDefinition{}, fmt.Errorf("%w: %s", ErrUnknownSheet, key)
	}
	return def, nil
}

// All returns all registered sheet definitions sorted by key.
func All() []SheetDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]SheetDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Info.Key < result[j].Info.Key
	})

	return result
}

// Clear removes all registered sheets.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]SheetDefinition)
}

// Normalize returns t rearranged to the canonical header of def.
//
// Stored headers are matched to field specs by name or alias, ignoring case
// and surrounding whitespace. Missing columns are added with their default
// value ("0" for numeric, "" otherwise). Columns no spec claims are kept
// after the canonical ones, in their original order.
func Normalize(def SheetDefinition, t sheet.Table) sheet.Table {
	source := make([]int, len(def.FieldSpecs))
	claimed := make([]bool, len(t.Columns))

	for i, spec := range def.FieldSpecs {
		source[i] = -1
		for c, header := range t.Columns {
			if !claimed[c] && spec.Matches(header) {
				source[i] = c
				claimed[c] = true
				break
			}
		}
	}

	var extras []int
	for c, ok := range claimed {
		if !ok {
			extras = append(extras, c)
		}
	}

	out := sheet.Table{
		Columns: make([]string, 0, len(def.FieldSpecs)+len(extras)),
		Rows:    make([][]string, len(t.Rows)),
	}
	for _, spec := range def.FieldSpecs {
		out.Columns = append(out.Columns, spec.Name)
	}
	for _, c := range extras {
		out.Columns = append(out.Columns, t.Columns[c])
	}

	for r, row := range t.Rows {
		cells := make([]string, len(out.Columns))
		for i, spec := range def.FieldSpecs {
			if source[i] >= 0 && source[i] < len(row) {
				cells[i] = row[source[i]]
			} else if source[i] < 0 {
				cells[i] = spec.Default()
			}
		}
		for j, c := range extras {
			if c < len(row) {
				cells[len(def.FieldSpecs)+j] = row[c]
			}
		}
		out.Rows[r] = cells
	}

	return out
}

// Canonical returns t restricted to the canonical columns of def.
func Canonical(def SheetDefinition, t sheet.Table) sheet.Table {
	n := Normalize(def, t)
	width := len(def.FieldSpecs)
	n.Columns = n.Columns[:width]
	for i, r := range n.Rows {
		n.Rows[i] = r[:width]
	}
	return n
}

func normalizeHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
