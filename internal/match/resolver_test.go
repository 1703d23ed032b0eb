package match

import "testing"

func TestSlugify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"CeraVe Moisturizing Cream", "cerave-moisturizing-cream"},
		{"  L'Oréal   Revitalift!  ", "l-oréal-revitalift"},
		{"Glow-Serum 2.0", "glow-serum-2-0"},
	}
	for _, tc := range cases {
		if got := Slugify(tc.in); got != tc.want {
			t.Fatalf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSlugify_EmptyNameStillProducesSlug(t *testing.T) {
	t.Parallel()

	if got := Slugify("!!!"); got == "" {
		t.Fatalf("expected a non-empty fallback slug")
	}
}
