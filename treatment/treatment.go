// Package treatment - Guidance text per diagnosed class, stored in SQLite.
package treatment

import (
	"context"

	"github.com/pkg/errors"
)

// ErrNotFound is returned when no guidance is stored for a name.
var ErrNotFound = errors.New("treatment not found")

// Fallback guidance used when nothing is stored for a diagnosis.
const (
	FallbackSymptoms = "No detailed symptom data available."
	FallbackControl  = "Consult local agricultural extension services."
)

// Treatment is the guidance stored for one class.
type Treatment struct {
	ID              int64  `json:"id" yaml:"-"`
	CommonName      string `json:"commonName" yaml:"commonName"`
	Symptoms        string `json:"symptoms" yaml:"symptoms"`
	CulturalControl string `json:"culturalControl" yaml:"culturalControl"`
	ChemicalControl string `json:"chemicalControl" yaml:"chemicalControl"`
}

// Resolver looks up guidance by the display name of a class.
type Resolver interface {
	Lookup(ctx context.Context, commonName string) (*Treatment, error)
}

// Fallback returns the generic guidance record for a name without stored guidance.
func Fallback(commonName string) *Treatment {
	return &Treatment{
		CommonName:      commonName,
		Symptoms:        FallbackSymptoms,
		CulturalControl: FallbackControl,
		ChemicalControl: FallbackControl,
	}
}

// Resolve looks up guidance and substitutes Fallback when none is stored. Other lookup errors
// are returned. The boolean reports whether stored guidance was found.
func Resolve(ctx context.Context, r Resolver, commonName string) (*Treatment, bool, error) {
	if r == nil {
		return Fallback(commonName), false, nil
	}
	t, err := r.Lookup(ctx, commonName)
	if errors.Is(err, ErrNotFound) {
		return Fallback(commonName), false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return t, true, nil
}
