package models

// Key identifies one (species, disease) pair.
type Key struct {
	Species SpeciesID
	Disease DiseaseID
}

// Class is one entry of the classifier output space.
type Class struct {
	// The integer index returned by the model.
	Index int `yaml:"index" json:"index"`
	// The disease key within the species.
	Disease DiseaseID `yaml:"disease" json:"disease"`
}

// SpeciesClasses ties a species to its full list of classes.
type SpeciesClasses struct {
	// Species identifier.
	Species SpeciesID `yaml:"species" json:"species"`
	// Classes that belong to the species.
	Classes []Class `yaml:"classes" json:"classes"`
}

// Manifest is the complete class layout of a classifier, grouped by species.
type Manifest struct {
	// Model is a free-form name of the classifier the layout belongs to.
	Model string `yaml:"model" json:"model"`
	// Species lists every species and its classes.
	Species []SpeciesClasses `yaml:"species" json:"species"`
}

// Total returns the number of classes declared in the manifest.
func (m Manifest) Total() int {
	n := 0
	for _, s := range m.Species {
		n += len(s.Classes)
	}
	return n
}
