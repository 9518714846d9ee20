package atomtypes

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Unused is the channel of a type that no map line names.
const Unused = -1

// Map assigns vocabulary types to grid channels. Names on the same line of
// a map source share a channel.
type Map struct {
	vocab  Vocabulary
	byType []int
	names  [][]string
}

func newMap(vocab Vocabulary) *Map {
	byType := make([]int, vocab.Len())
	for i := range byType {
		byType[i] = Unused
	}
	return &Map{vocab: vocab, byType: byType}
}

// Parse reads a map: one channel per non-blank line, whitespace separated
// synonyms within a line.
func Parse(r io.Reader, vocab Vocabulary) (*Map, error) {
	m := newMap(vocab)
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		if err := m.addLine(strings.Fields(sc.Text()), line); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMapFile, err)
	}
	return m, nil
}

// ParseString is Parse over an in-memory map.
func ParseString(s string, vocab Vocabulary) (*Map, error) {
	return Parse(strings.NewReader(s), vocab)
}

// LoadFile parses the map file at path.
func LoadFile(path string, vocab Vocabulary) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMapFile, err)
	}
	defer f.Close()
	m, err := Parse(f, vocab)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

func (m *Map) addLine(fields []string, line int) error {
	if len(fields) == 0 {
		return nil
	}
	ch := len(m.names)
	for _, name := range fields {
		t, ok := m.vocab.Lookup(name)
		if !ok {
			return &UnknownTypeError{Name: name, Line: line}
		}
		m.byType[t] = ch
	}
	m.names = append(m.names, fields)
	return nil
}

// Channels is the number of channels the map produces.
func (m *Map) Channels() int { return len(m.names) }

// Channel returns the channel of t, or Unused.
func (m *Map) Channel(t TypeID) int {
	if t < 0 || int(t) >= len(m.byType) {
		return Unused
	}
	return m.byType[t]
}

// ChannelOf resolves a type name straight to its channel.
func (m *Map) ChannelOf(name string) int {
	t, ok := m.vocab.Lookup(name)
	if !ok {
		return Unused
	}
	return m.byType[t]
}

// ChannelNames labels each channel with its synonyms joined by "_".
func (m *Map) ChannelNames() []string {
	out := make([]string, len(m.names))
	for i, names := range m.names {
		out[i] = strings.Join(names, "_")
	}
	return out
}

// Vocabulary returns the vocabulary the map was resolved against.
func (m *Map) Vocabulary() Vocabulary { return m.vocab }

// String renders the map in its file format.
func (m *Map) String() string {
	var b strings.Builder
	for _, names := range m.names {
		b.WriteString(strings.Join(names, " "))
		b.WriteByte('\n')
	}
	return b.String()
}

var defaultReceptor = []string{
	"AliphaticCarbonXSHydrophobe",
	"AliphaticCarbonXSNonHydrophobe",
	"AromaticCarbonXSHydrophobe",
	"AromaticCarbonXSNonHydrophobe",
	"Calcium",
	"Iron",
	"Magnesium",
	"Nitrogen",
	"NitrogenXSAcceptor",
	"NitrogenXSDonor",
	"NitrogenXSDonorAcceptor",
	"OxygenXSAcceptor",
	"OxygenXSDonorAcceptor",
	"Phosphorus",
	"Sulfur",
	"Zinc",
}

var defaultLigand = []string{
	"AliphaticCarbonXSHydrophobe",
	"AliphaticCarbonXSNonHydrophobe",
	"AromaticCarbonXSHydrophobe",
	"AromaticCarbonXSNonHydrophobe",
	"Bromine",
	"Chlorine",
	"Fluorine",
	"Nitrogen",
	"NitrogenXSAcceptor",
	"NitrogenXSDonor",
	"NitrogenXSDonorAcceptor",
	"Oxygen",
	"OxygenXSAcceptor",
	"OxygenXSDonorAcceptor",
	"Phosphorus",
	"Sulfur",
	"SulfurAcceptor",
	"Iodine",
	"Boron",
}

// DefaultReceptor is the 16-channel receptor map used when no file is given.
func DefaultReceptor(vocab Vocabulary) (*Map, error) {
	return ParseString(strings.Join(defaultReceptor, "\n"), vocab)
}

// DefaultLigand is the 19-channel ligand map used when no file is given.
func DefaultLigand(vocab Vocabulary) (*Map, error) {
	return ParseString(strings.Join(defaultLigand, "\n"), vocab)
}
