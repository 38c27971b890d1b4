// Package models - Species/disease class registry, constrained decoding and display labels.
package models

// SpeciesID is the machine key of a plant species, e.g. "tomato".
type SpeciesID string

// DiseaseID is the machine key of a condition within one species, e.g. "Late_blight".
// Every species normally carries exactly one HealthyDisease.
type DiseaseID string

// HealthyDisease is the disease key used for the healthy state of a species.
const HealthyDisease DiseaseID = "healthy"

// Outcome is the result of one diagnosis: the winning class restricted to the requested species.
type Outcome struct {
	// SpeciesID is the species the caller asked for.
	SpeciesID SpeciesID `json:"speciesId"`
	// ClassIndex is the global class index of the winner.
	ClassIndex int `json:"classIndex"`
	// DiseaseID is the disease key of the winner.
	DiseaseID DiseaseID `json:"diseaseId"`
	// RawScore is the classifier score of the winner, unmodified.
	RawScore float32 `json:"rawScore"`
}

// Healthy reports whether the outcome is the healthy class of its species.
func (o Outcome) Healthy() bool {
	return o.DiseaseID == HealthyDisease
}
