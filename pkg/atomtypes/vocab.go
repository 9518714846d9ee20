// Package atomtypes resolves atom type names to grid channels.
package atomtypes

import "strings"

// TypeID indexes a Vocabulary.
type TypeID int

// Vocabulary is the set of atom type names a map file may use.
type Vocabulary interface {
	Lookup(name string) (TypeID, bool)
	Len() int
	Name(t TypeID) string
}

// Entry is one named atom type and its default interaction radius.
type Entry struct {
	Name   string
	Radius float32
}

// Table is a fixed Vocabulary. Lookups are case sensitive.
type Table struct {
	entries []Entry
	index   map[string]TypeID
}

// NewTable builds a vocabulary in entry order. Later duplicates shadow
// earlier ones.
func NewTable(entries ...Entry) *Table {
	t := &Table{
		entries: append([]Entry(nil), entries...),
		index:   make(map[string]TypeID, len(entries)),
	}
	for i, e := range t.entries {
		t.index[e.Name] = TypeID(i)
	}
	return t
}

func (t *Table) Lookup(name string) (TypeID, bool) {
	id, ok := t.index[name]
	return id, ok
}

func (t *Table) Len() int { return len(t.entries) }

func (t *Table) Name(id TypeID) string {
	if id < 0 || int(id) >= len(t.entries) {
		return ""
	}
	return t.entries[id].Name
}

// Radius returns the default radius of a type, or 0 when unknown.
func (t *Table) Radius(id TypeID) float32 {
	if id < 0 || int(id) >= len(t.entries) {
		return 0
	}
	return t.entries[id].Radius
}

// Names lists every type name in TypeID order.
func (t *Table) Names() []string {
	out := make([]string, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.Name
	}
	return out
}

func (t *Table) String() string {
	return strings.Join(t.Names(), " ")
}

// Smina is the smina atom typing scheme with X-Score radii.
var Smina = NewTable(
	Entry{"Hydrogen", 1.1},
	Entry{"PolarHydrogen", 1.1},
	Entry{"AliphaticCarbonXSHydrophobe", 1.9},
	Entry{"AliphaticCarbonXSNonHydrophobe", 1.9},
	Entry{"AromaticCarbonXSHydrophobe", 1.9},
	Entry{"AromaticCarbonXSNonHydrophobe", 1.9},
	Entry{"Nitrogen", 1.8},
	Entry{"NitrogenXSDonor", 1.8},
	Entry{"NitrogenXSDonorAcceptor", 1.8},
	Entry{"NitrogenXSAcceptor", 1.8},
	Entry{"Oxygen", 1.7},
	Entry{"OxygenXSDonor", 1.7},
	Entry{"OxygenXSDonorAcceptor", 1.7},
	Entry{"OxygenXSAcceptor", 1.7},
	Entry{"Sulfur", 2.0},
	Entry{"SulfurAcceptor", 2.0},
	Entry{"Phosphorus", 2.1},
	Entry{"Fluorine", 1.5},
	Entry{"Chlorine", 1.8},
	Entry{"Bromine", 2.0},
	Entry{"Iodine", 2.2},
	Entry{"Magnesium", 1.2},
	Entry{"Manganese", 1.2},
	Entry{"Zinc", 1.2},
	Entry{"Calcium", 1.2},
	Entry{"Iron", 1.2},
	Entry{"GenericMetal", 1.2},
	Entry{"Boron", 1.92},
)
