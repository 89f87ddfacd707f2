package wire

import "testing"

func TestFixed(t *testing.T) {
	tests := []struct {
		name  string
		in    float64
		raw   Fixed
		float float64
		int   int
	}{
		{"zero", 0, 0, 0, 0},
		{"one", 1, 256, 1, 1},
		{"half", 0.5, 128, 0.5, 0},
		{"negative", -2.25, -576, -2.25, -2},
		{"smallest_step", 1.0 / 256, 1, 1.0 / 256, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := FixedFromFloat(tc.in)
			if f != tc.raw {
				t.Errorf("FixedFromFloat(%v) = %d, want %d", tc.in, f, tc.raw)
			}
			if f.Float() != tc.float {
				t.Errorf("Float() = %v, want %v", f.Float(), tc.float)
			}
			if f.Int() != tc.int {
				t.Errorf("Int() = %d, want %d", f.Int(), tc.int)
			}
		})
	}
}

func TestFixedFromInt(t *testing.T) {
	for _, v := range []int{-1000, -1, 0, 1, 8388607} {
		if got := FixedFromInt(v).Int(); got != v {
			t.Errorf("FixedFromInt(%d).Int() = %d", v, got)
		}
	}
}
