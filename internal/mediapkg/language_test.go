package mediapkg

import "testing"

func TestNormalizeLanguage(t *testing.T) {
	cases := []struct {
		name     string
		raw      string
		allowed  []string
		fallback string
		want     string
	}{
		{"region stripped", "en-US", nil, "es", "en"},
		{"already primary", "de", nil, "es", "de"},
		{"empty falls back", "", nil, "es", "es"},
		{"garbage falls back", "!!", nil, "es", "es"},
		{"allow-list hit", "gl-ES", []string{"gl", "es"}, "es", "gl"},
		{"allow-list miss", "fr", []string{"gl", "es"}, "es", "es"},
		{"allow-list case fold", "GL", []string{"Gl"}, "es", "gl"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeLanguage(tc.raw, tc.allowed, tc.fallback); got != tc.want {
				t.Fatalf("NormalizeLanguage(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}
