package models

import (
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := DefaultRegistry()
	require.NoError(t, err)
	return r
}

func TestDefaultRegistry(t *testing.T) {
	r := testRegistry(t)

	assert.Equal(t, 38, r.Total())
	assert.Equal(t, "plantvillage-38", r.Model())
	assert.Len(t, r.Species(), 14)

	tomato, err := r.Allowed("tomato")
	require.NoError(t, err)
	want := []int{28, 29, 30, 31, 32, 33, 34, 35, 36, 37}
	if diff := cmp.Diff(want, tomato); diff != "" {
		t.Fatalf("tomato indices mismatch (-want +got):\n%s", diff)
	}

	idx, ok := r.Index("apple", "Cedar_apple_rust")
	assert.True(t, ok)
	assert.Equal(t, 2, idx)

	key, err := r.Lookup(21)
	require.NoError(t, err)
	assert.Equal(t, Key{Species: "potato", Disease: "Late_blight"}, key)

	_, err = r.Lookup(38)
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))

	// Orange and squash ship without a healthy class.
	warnings := r.Warnings()
	assert.Len(t, warnings, 2)
	assert.True(t, strings.HasPrefix(warnings[0], "orange") || strings.HasPrefix(warnings[1], "orange"))
}

func TestRegistrySpeciesAreSorted(t *testing.T) {
	species := testRegistry(t).Species()
	for i := 1; i < len(species); i++ {
		assert.Less(t, species[i-1], species[i])
	}
}

func TestRegistryAllowedIsACopy(t *testing.T) {
	r := testRegistry(t)
	a, err := r.Allowed("potato")
	require.NoError(t, err)
	a[0] = 999

	b, err := r.Allowed("potato")
	require.NoError(t, err)
	assert.Equal(t, []int{20, 21, 22}, b)
}

func TestRegistryUnknownSpecies(t *testing.T) {
	r := testRegistry(t)

	_, err := r.Allowed("banana")
	assert.True(t, errors.Is(err, ErrUnknownSpecies))

	_, err = r.Classes("banana")
	assert.True(t, errors.Is(err, ErrUnknownSpecies))

	_, err = r.Decode(make([]float32, 38), "banana")
	assert.True(t, errors.Is(err, ErrUnknownSpecies))
}

func TestRegistryDecodeStaysWithinSpecies(t *testing.T) {
	r := testRegistry(t)

	scores := make([]float32, 38)
	scores[5] = 9.0  // cherry powdery mildew, globally highest
	scores[30] = 4.0 // tomato late blight
	scores[37] = 3.5

	out, err := r.Decode(scores, "tomato")
	require.NoError(t, err)
	assert.Equal(t, &Outcome{SpeciesID: "tomato", ClassIndex: 30, DiseaseID: "Late_blight", RawScore: 4.0}, out)
	assert.False(t, out.Healthy())
}

func TestRegistryDecodeShortScores(t *testing.T) {
	r := testRegistry(t)
	_, err := r.Decode(make([]float32, 10), "tomato")
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))
}

func TestRegistryClasses(t *testing.T) {
	classes, err := testRegistry(t).Classes("potato")
	require.NoError(t, err)
	assert.Equal(t, []Class{
		{Index: 20, Disease: "Early_blight"},
		{Index: 21, Disease: "Late_blight"},
		{Index: 22, Disease: "healthy"},
	}, classes)
}

func TestNewRegistryValidation(t *testing.T) {
	cases := []struct {
		name     string
		manifest Manifest
	}{
		{"empty", Manifest{}},
		{"empty species id", Manifest{Species: []SpeciesClasses{{Species: "", Classes: []Class{{0, "healthy"}}}}}},
		{"species without classes", Manifest{Species: []SpeciesClasses{
			{Species: "a", Classes: []Class{{0, "healthy"}}},
			{Species: "b"},
		}}},
		{"duplicate index", Manifest{Species: []SpeciesClasses{
			{Species: "a", Classes: []Class{{0, "healthy"}}},
			{Species: "b", Classes: []Class{{0, "healthy"}}},
		}}},
		{"index out of range", Manifest{Species: []SpeciesClasses{
			{Species: "a", Classes: []Class{{0, "healthy"}, {2, "rot"}}},
		}}},
		{"duplicate disease", Manifest{Species: []SpeciesClasses{
			{Species: "a", Classes: []Class{{0, "healthy"}, {1, "healthy"}}},
		}}},
		{"duplicate species", Manifest{Species: []SpeciesClasses{
			{Species: "a", Classes: []Class{{0, "healthy"}}},
			{Species: "a", Classes: []Class{{1, "rot"}}},
		}}},
		{"empty disease", Manifest{Species: []SpeciesClasses{
			{Species: "a", Classes: []Class{{0, ""}}},
		}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRegistry(tc.manifest)
			assert.True(t, errors.Is(err, ErrInvalidManifest), "got %v", err)
		})
	}
}

func TestLoadManifest(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		m, err := LoadManifest(strings.NewReader(`{"model":"tiny","species":[{"species":"fern","classes":[{"index":1,"disease":"rust"},{"index":0,"disease":"healthy"}]}]}`))
		require.NoError(t, err)
		r, err := NewRegistry(m)
		require.NoError(t, err)
		assert.Equal(t, 2, r.Total())
		allowed, err := r.Allowed("fern")
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1}, allowed)
		assert.Empty(t, r.Warnings())
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := LoadManifest(strings.NewReader("species:\n  - species: a\n    colour: red\n"))
		assert.True(t, errors.Is(err, ErrInvalidManifest))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadRegistry(t.TempDir() + "/nope.yaml")
		assert.Error(t, err)
	})

	t.Run("default when path is empty", func(t *testing.T) {
		r, err := LoadRegistry("")
		require.NoError(t, err)
		assert.Equal(t, 38, r.Total())
	})
}

func TestRegistryDecodeNegativeInfinityCanWin(t *testing.T) {
	r := testRegistry(t)
	scores := make([]float32, 38)
	for i := range scores {
		scores[i] = float32(math.Inf(-1))
	}
	out, err := r.Decode(scores, "potato")
	require.NoError(t, err)
	assert.Equal(t, 20, out.ClassIndex)
}
