package pack

import (
	"testing"

	"github.com/cartopack/cartopack/pkg/errors"
)

func TestParseSortMode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    SortMode
		wantErr bool
	}{
		{"empty means default", "", SortDefault, false},
		{"default", "default", SortDefault, false},
		{"ascending", "ascending", SortAscending, false},
		{"asc alias", "asc", SortAscending, false},
		{"descending", "descending", SortDescending, false},
		{"desc alias", "desc", SortDescending, false},
		{"random", "random", SortRandom, false},
		{"mixed case", "DESCENDING", SortDescending, false},
		{"padded", "  random  ", SortRandom, false},
		{"unknown", "sideways", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSortMode(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSortMode(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, errors.ErrCodeInvalidSortMode) {
					t.Errorf("error code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidSortMode)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseSortMode(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestOrder(t *testing.T) {
	values := []float64{30, 10, 40, 10}

	tests := []struct {
		name string
		mode SortMode
		want []int
	}{
		{"default keeps input order", SortDefault, []int{0, 1, 2, 3}},
		{"ascending, stable for ties", SortAscending, []int{1, 3, 0, 2}},
		{"descending, stable for ties", SortDescending, []int{2, 0, 1, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Order(values, tt.mode, nil)
			if err != nil {
				t.Fatalf("Order error: %v", err)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("Order() = %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestOrderRandom(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8}

	// Same seed, same permutation.
	p1, err := Order(values, SortRandom, NewRand(42))
	if err != nil {
		t.Fatalf("Order error: %v", err)
	}
	p2, err := Order(values, SortRandom, NewRand(42))
	if err != nil {
		t.Fatalf("Order error: %v", err)
	}
	for i := range p1 {
		if p1[i] != p2[i] {
			t.Fatalf("same seed gave different permutations: %v vs %v", p1, p2)
		}
	}

	// The result is a permutation: every index appears once.
	seen := make([]bool, len(values))
	for _, i := range p1 {
		if i < 0 || i >= len(seen) || seen[i] {
			t.Fatalf("not a permutation: %v", p1)
		}
		seen[i] = true
	}

	// Without a source, random ordering is refused.
	if _, err := Order(values, SortRandom, nil); err == nil {
		t.Error("Order with nil rng should error for SortRandom")
	}
}
