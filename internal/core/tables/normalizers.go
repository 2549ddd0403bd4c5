package tables

import (
	"strings"

	"github.com/ArmandoRuiz13/registro/internal/core"
)

// normalizeNumber stores edited numbers without symbols or separators.
func normalizeNumber(s string) string {
	return core.NormalizeNumber(s)
}

// normalizeStatus stores payment statuses in their canonical spelling.
func normalizeStatus(s string) string {
	return core.NormalizeStatus(s)
}

// normalizeText trims whitespace.
func normalizeText(s string) string {
	return strings.TrimSpace(s)
}

// numeric returns a numeric field spec.
func numeric(name string, aliases ...string) core.FieldSpec {
	return core.FieldSpec{Name: name, Aliases: aliases, Type: core.FieldNumeric, Normalizer: normalizeNumber}
}

// text returns a text field spec.
func text(name string, aliases ...string) core.FieldSpec {
	return core.FieldSpec{Name: name, Aliases: aliases, Type: core.FieldText, Normalizer: normalizeText}
}

// derived marks a field as computed when its row is created.
func derived(f core.FieldSpec) core.FieldSpec {
	f.Derived = true
	return f
}

// required marks a field that imported rows must fill.
func required(f core.FieldSpec) core.FieldSpec {
	f.Required = true
	return f
}
