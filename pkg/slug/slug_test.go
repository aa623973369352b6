package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate_BasicASCII(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "hello-world"},
		{"JAWS Screen Reader", "jaws-screen-reader"},
		{"NVDA", "nvda"},
		{"ALL UPPER CASE", "all-upper-case"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Generate(tt.input))
		})
	}
}

func TestGenerate_AccentedCharacters(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Lecteur d'écran", "lecteur-d-ecran"},
		{"Señal Auditiva", "senal-auditiva"},
		{"Größe Lupe", "grosse-lupe"},
		{"Kadın Giyim", "kadin-giyim"},
		{"Çocuk Ürünleri", "cocuk-urunleri"},
		{"Søk Øye", "sok-oye"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Generate(tt.input))
		})
	}
}

func TestGenerate_SpecialCharacters(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello!!! World???", "hello-world"},
		{"foo@bar#baz", "foo-bar-baz"},
		{"Text & Speech", "text-and-speech"},
		{"Dragon (v16.0)", "dragon-v16-0"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Generate(tt.input))
		})
	}
}

func TestGenerate_EdgeCases(t *testing.T) {
	assert.Equal(t, "", Generate(""))
	assert.Equal(t, "", Generate("   "))
	assert.Equal(t, "", Generate("!!!"))
	assert.Equal(t, "a-b", Generate("--a---b--"))
	assert.Equal(t, "tab-separated", Generate("\ttab\tseparated\n"))
}

func TestWithSuffix(t *testing.T) {
	assert.Equal(t, "nvda-1a2b3c4d", WithSuffix("NVDA", "1a2b3c4d"))
	assert.Equal(t, "1a2b3c4d", WithSuffix("???", "1a2b3c4d"))
	assert.Equal(t, "nvda", WithSuffix("NVDA", ""))
}
