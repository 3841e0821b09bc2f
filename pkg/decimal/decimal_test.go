package decimal

import "testing"

func TestWireStringNormalization(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input float64
		want  string
	}{
		{"trailing zero after point stripped", 87000.0, "87000"},
		{"half cent keeps one digit", 87736.5, "87736.5"},
		{"four decimal zero trimmed to three", 0.0010, "0.001"},
		{"whole number from float literal", 1.0, "1"},
		{"zero", 0.0, "0"},
		{"negative value", -87000.0, "-87000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := NewFromFloat(tt.input).WireString()
			if got != tt.want {
				t.Errorf("WireString(%v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestWireStringFromParsedString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{"87000.0", "87000"},
		{"87736.5", "87736.5"},
		{"0.0010", "0.001"},
		{"1.0", "1"},
		{"0.001", "0.001"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			d, err := NewFromString(tt.input)
			if err != nil {
				t.Fatalf("NewFromString(%q): %v", tt.input, err)
			}
			got := d.WireString()
			if got != tt.want {
				t.Errorf("WireString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWireStringNoTrailingZeroOrDot(t *testing.T) {
	t.Parallel()

	inputs := []string{"87000.0", "0.0010", "1.0", "123.45000000", "0.00000001"}
	for _, in := range inputs {
		d, err := NewFromString(in)
		if err != nil {
			t.Fatalf("NewFromString(%q): %v", in, err)
		}
		s := d.WireString()
		if len(s) == 0 {
			t.Fatalf("WireString(%q) produced empty string", in)
		}
		if s[len(s)-1] == '.' {
			t.Errorf("WireString(%q) = %q ends in a decimal point", in, s)
		}
		if len(s) >= 2 && s[len(s)-1] == '0' {
			dotIdx := -1
			for i, c := range s {
				if c == '.' {
					dotIdx = i
				}
			}
			if dotIdx >= 0 {
				t.Errorf("WireString(%q) = %q has a trailing zero after the decimal point", in, s)
			}
		}
	}
}

func TestWireStringRoundTrip(t *testing.T) {
	t.Parallel()

	inputs := []string{"87000", "87736.5", "0.001", "1", "1234567.12345678"}
	for _, in := range inputs {
		d, err := NewFromString(in)
		if err != nil {
			t.Fatalf("NewFromString(%q): %v", in, err)
		}
		rendered := d.WireString()
		reparsed, err := ParseWireString(rendered)
		if err != nil {
			t.Fatalf("ParseWireString(%q): %v", rendered, err)
		}
		if !d.Equal(reparsed) {
			t.Errorf("round trip mismatch: %s -> %q -> %s", d, rendered, reparsed)
		}
	}
}

func TestArithmetic(t *testing.T) {
	t.Parallel()

	a := MustNewFromString("1.5")
	b := MustNewFromString("2.25")

	if got := a.Add(b).WireString(); got != "3.75" {
		t.Errorf("Add = %s, want 3.75", got)
	}
	if got := a.MulInt(4).WireString(); got != "6" {
		t.Errorf("MulInt = %s, want 6", got)
	}
	if !a.LessThanOrEqual(b) {
		t.Errorf("expected %s <= %s", a, b)
	}
	if b.LessThanOrEqual(a) {
		t.Errorf("did not expect %s <= %s", b, a)
	}
}

func TestIsZero(t *testing.T) {
	t.Parallel()
	if !Zero.IsZero() {
		t.Error("Zero.IsZero() = false")
	}
	if MustNewFromString("0.000000000000000001").IsZero() {
		t.Error("smallest representable unit reported as zero")
	}
}
