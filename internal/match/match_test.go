package match

import "testing"

func TestFold(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Café", "cafe"},
		{"CAFE", "cafe"},
		{"Über-Straße", "uber-straße"},
		{"naïve", "naive"},
		{"", ""},
		{"crème brûlée", "creme brulee"},
	}
	for _, tc := range cases {
		if got := Fold(tc.in); got != tc.want {
			t.Errorf("Fold(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestContains(t *testing.T) {
	cases := []struct {
		haystack string
		needle   string
		want     bool
	}{
		{"café", "cafe", true},
		{"CAFE", "cafe", true},
		{"I love café au lait", "CAFÉ", true},
		{"human body facts", "body", true},
		{"human body facts", "mind", false},
		{"anything", "", false},
		{"anything", "   ", false},
		{"", "x", false},
	}
	for _, tc := range cases {
		if got := Contains(tc.haystack, tc.needle); got != tc.want {
			t.Errorf("Contains(%q, %q) = %v, want %v", tc.haystack, tc.needle, got, tc.want)
		}
	}
}
