package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatLabel(t *testing.T) {
	cases := map[string]string{
		"Apple_scab":                           "Apple Scab",
		"healthy":                              "Healthy",
		"Common_rust_":                         "Common Rust",
		"Spider_mites Two-spotted_spider_mite": "Spider Mites Two-Spotted Spider Mite",
		"Cercospora_leaf_spot Gray_leaf_spot":  "Cercospora Leaf Spot Gray Leaf Spot",
		"Esca_(Black_Measles)":                 "Esca Black Measles",
		"cherry_(including_sour)":              "Cherry Including Sour",
		"pepper,_bell":                         "Pepper Bell",
		"Tomato_Yellow_Leaf_Curl_Virus":        "Tomato Yellow Leaf Curl Virus",
		"  already   Clean  ":                  "Already Clean",
		"":                                     "",
		"a\u00a0\u00a0b":                       "A B",
		"\ufeffleaf\vmold\u3000":               "Leaf Mold",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatLabel(in), "FormatLabel(%q)", in)
	}
}

func TestFormatLabelIsIdempotent(t *testing.T) {
	r, err := DefaultRegistry()
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < r.Total(); i++ {
		key, err := r.Lookup(i)
		if err != nil {
			t.Fatal(err)
		}
		once := FormatLabel(string(key.Disease))
		assert.Equal(t, once, FormatLabel(once))
	}
}

func TestCommonName(t *testing.T) {
	assert.Equal(t, "Tomato Late Blight", CommonName("tomato", "Late_blight"))
	assert.Equal(t, "Apple Apple Scab", CommonName("apple", "Apple_scab"))
	assert.Equal(t, "Corn Maize Healthy", CommonName("corn_(maize)", "healthy"))
}
