package imagebytes

import "testing"

func TestClampWidth(t *testing.T) {
	cases := []struct {
		in, min, max, want int
	}{
		{in: 10, min: 50, max: 1920, want: 50},
		{in: 5000, min: 50, max: 1920, want: 1920},
		{in: 800, min: 50, max: 1920, want: 800},
		{in: 50, min: 50, max: 1920, want: 50},
		{in: 1920, min: 50, max: 1920, want: 1920},
	}

	for _, c := range cases {
		if got := clampWidth(c.in, c.min, c.max); got != c.want {
			t.Errorf("clampWidth(%d, %d, %d) = %d, want %d", c.in, c.min, c.max, got, c.want)
		}
	}
}

func TestHasParentEscape(t *testing.T) {
	cases := map[string]bool{
		"..":         true,
		"../other":   true,
		"foo/../bar": false,
		"foo":        false,
	}
	for rel, want := range cases {
		if got := hasParentEscape(rel); got != want {
			t.Errorf("hasParentEscape(%q) = %v, want %v", rel, got, want)
		}
	}
}
