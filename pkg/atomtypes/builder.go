package atomtypes

import "strings"

// Builder loads the receptor and ligand maps of a grid and tracks the
// combined channel count. Receptor channels come first.
type Builder struct {
	vocab    Vocabulary
	receptor int
	ligand   int
}

func NewBuilder(vocab Vocabulary) *Builder {
	return &Builder{vocab: vocab}
}

// Receptor loads the receptor map from path, or the default receptor map
// when path is empty. Each call adds its channels to Total.
func (b *Builder) Receptor(path string) (*Map, error) {
	return b.add(&b.receptor, path, "", DefaultReceptor)
}

// ReceptorText parses an inline receptor map. Blank text loads the default.
func (b *Builder) ReceptorText(text string) (*Map, error) {
	return b.add(&b.receptor, "", text, DefaultReceptor)
}

// Ligand is Receptor for the ligand map.
func (b *Builder) Ligand(path string) (*Map, error) {
	return b.add(&b.ligand, path, "", DefaultLigand)
}

func (b *Builder) LigandText(text string) (*Map, error) {
	return b.add(&b.ligand, "", text, DefaultLigand)
}

func (b *Builder) add(count *int, path, text string, fallback func(Vocabulary) (*Map, error)) (*Map, error) {
	var (
		m   *Map
		err error
	)
	switch {
	case strings.TrimSpace(text) != "":
		m, err = ParseString(text, b.vocab)
	case path != "":
		m, err = LoadFile(path, b.vocab)
	default:
		m, err = fallback(b.vocab)
	}
	if err != nil {
		return nil, err
	}
	*count += m.Channels()
	return m, nil
}

func (b *Builder) ReceptorChannels() int { return b.receptor }
func (b *Builder) LigandChannels() int   { return b.ligand }

// Total is the channel count of every map loaded so far.
func (b *Builder) Total() int { return b.receptor + b.ligand }
