package models

import (
	"slices"
	"sort"

	"github.com/pkg/errors"
)

var (
	// ErrUnknownSpecies is returned when a species is not present in the registry.
	ErrUnknownSpecies = errors.New("unknown species")
	// ErrInvalidManifest is returned when a class layout violates the registry invariants.
	ErrInvalidManifest = errors.New("invalid class manifest")
)

// Registry maps (species, disease) pairs to global class indices.
//
// It is built once from a Manifest and never mutated afterwards, so it is safe for
// unsynchronized concurrent reads.
type Registry struct {
	model     string
	index     map[Key]int
	bySpecies map[SpeciesID][]int
	keys      []Key
	species   []SpeciesID
	warnings  []string
}

// NewRegistry validates a manifest and precomputes the lookup tables.
//
// Validation rejects empty identifiers, duplicate (species, disease) pairs, duplicate indices,
// indices outside [0, Total) and species without classes. Since indices are unique and bounded
// by the class count, the index space is contiguous. A species without exactly one healthy
// class is accepted and reported through Warnings.
//
// Arguments:
//   - m: The class layout.
//
// Returns:
//   - *Registry: The read-only registry.
//   - error: ErrInvalidManifest (wrapped with details).
func NewRegistry(m Manifest) (*Registry, error) {
	total := m.Total()
	if total == 0 {
		return nil, errors.Wrap(ErrInvalidManifest, "no classes declared")
	}

	r := &Registry{
		model:     m.Model,
		index:     make(map[Key]int, total),
		bySpecies: make(map[SpeciesID][]int, len(m.Species)),
		keys:      make([]Key, total),
		species:   make([]SpeciesID, 0, len(m.Species)),
	}
	seen := make([]bool, total)

	for _, sp := range m.Species {
		if sp.Species == "" {
			return nil, errors.Wrap(ErrInvalidManifest, "empty species id")
		}
		if _, dup := r.bySpecies[sp.Species]; dup {
			return nil, errors.Wrapf(ErrInvalidManifest, "species %q declared twice", sp.Species)
		}
		if len(sp.Classes) == 0 {
			return nil, errors.Wrapf(ErrInvalidManifest, "species %q has no classes", sp.Species)
		}

		indices := make([]int, 0, len(sp.Classes))
		healthy := 0
		for _, c := range sp.Classes {
			if c.Disease == "" {
				return nil, errors.Wrapf(ErrInvalidManifest, "species %q has an empty disease id", sp.Species)
			}
			if c.Index < 0 || c.Index >= total {
				return nil, errors.Wrapf(ErrInvalidManifest, "%s/%s index %d outside [0, %d)", sp.Species, c.Disease, c.Index, total)
			}
			if seen[c.Index] {
				return nil, errors.Wrapf(ErrInvalidManifest, "index %d assigned twice (at %s/%s)", c.Index, sp.Species, c.Disease)
			}
			key := Key{Species: sp.Species, Disease: c.Disease}
			if _, dup := r.index[key]; dup {
				return nil, errors.Wrapf(ErrInvalidManifest, "%s/%s declared twice", sp.Species, c.Disease)
			}

			seen[c.Index] = true
			r.index[key] = c.Index
			r.keys[c.Index] = key
			indices = append(indices, c.Index)
			if c.Disease == HealthyDisease {
				healthy++
			}
		}

		sort.Ints(indices)
		r.bySpecies[sp.Species] = indices
		r.species = append(r.species, sp.Species)

		if healthy != 1 {
			r.warnings = append(r.warnings, string(sp.Species)+": expected exactly one healthy class")
		}
	}

	sort.Slice(r.species, func(i, j int) bool { return r.species[i] < r.species[j] })
	return r, nil
}

// Model returns the classifier name recorded in the manifest.
func (r *Registry) Model() string {
	return r.model
}

// Total returns the number of classes, which is also the expected score vector length.
func (r *Registry) Total() int {
	return len(r.keys)
}

// Species returns the species identifiers in ascending order.
func (r *Registry) Species() []SpeciesID {
	return slices.Clone(r.species)
}

// Warnings returns the non-fatal findings collected while building the registry.
func (r *Registry) Warnings() []string {
	return slices.Clone(r.warnings)
}

// Allowed returns the ascending global class indices of a species.
func (r *Registry) Allowed(species SpeciesID) ([]int, error) {
	indices, ok := r.bySpecies[species]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownSpecies, "%q", species)
	}
	return slices.Clone(indices), nil
}

// Index returns the global class index of a (species, disease) pair.
func (r *Registry) Index(species SpeciesID, disease DiseaseID) (int, bool) {
	idx, ok := r.index[Key{Species: species, Disease: disease}]
	return idx, ok
}

// Lookup returns the (species, disease) pair of a global class index.
func (r *Registry) Lookup(index int) (Key, error) {
	if index < 0 || index >= len(r.keys) {
		return Key{}, errors.Wrapf(ErrIndexOutOfRange, "index %d, %d classes", index, len(r.keys))
	}
	return r.keys[index], nil
}

// Classes returns the classes of a species in ascending index order.
func (r *Registry) Classes(species SpeciesID) ([]Class, error) {
	indices, ok := r.bySpecies[species]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownSpecies, "%q", species)
	}
	out := make([]Class, len(indices))
	for i, idx := range indices {
		out[i] = Class{Index: idx, Disease: r.keys[idx].Disease}
	}
	return out, nil
}

// Decode selects the highest scoring class of a species.
//
// Arguments:
//   - scores: The raw classifier output, one score per global class index.
//   - species: The species the caller selected.
//
// Returns:
//   - *Outcome: The winning class of that species.
//   - error: ErrUnknownSpecies, or any error of the package level Decode.
func (r *Registry) Decode(scores []float32, species SpeciesID) (*Outcome, error) {
	allowed, ok := r.bySpecies[species]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownSpecies, "%q", species)
	}

	best, err := Decode(scores, allowed)
	if err != nil {
		return nil, errors.Wrapf(err, "species %q", species)
	}

	return &Outcome{
		SpeciesID:  species,
		ClassIndex: best.Index,
		DiseaseID:  r.keys[best.Index].Disease,
		RawScore:   best.Score,
	}, nil
}
