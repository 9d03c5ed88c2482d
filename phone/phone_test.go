package phone

import "testing"

func TestNormalizeCanonicalizes(t *testing.T) {
	n := New("91")
	tests := []struct {
		in   string
		want string
	}{
		{in: "+919876543210", want: "+919876543210"},
		{in: "919876543210", want: "+919876543210"},
		{in: "9876543210", want: "+919876543210"},
		{in: "09876543210", want: "+919876543210"},
		{in: "00919876543210", want: "+919876543210"},
		{in: "98765 43210", want: "+919876543210"},
		{in: "98765-43210", want: "+919876543210"},
		{in: "(98765) 43210", want: "+919876543210"},
		{in: "+14155552671", want: "+14155552671"},
		{in: "", want: ""},
		{in: "+", want: ""},
		{in: "abc", want: ""},
	}
	for _, tt := range tests {
		got := n.Normalize(tt.in)
		if got != tt.want {
			t.Fatalf("Normalize(%q)=%q want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	n := New("91")
	inputs := []string{"+919876543210", "9876543210", "09876543210", "00919876543210"}
	for _, in := range inputs {
		once := n.Normalize(in)
		twice := n.Normalize(once)
		if once != twice {
			t.Fatalf("Normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestVariantsCrossMatch(t *testing.T) {
	n := New("91")
	// Every representation of the same number must normalize identically, and
	// each representation's variant set must contain the shared canonical form.
	reps := []string{"+919876543210", "919876543210", "9876543210", "09876543210"}
	canonical := n.Normalize(reps[0])
	for _, rep := range reps {
		if got := n.Normalize(rep); got != canonical {
			t.Fatalf("Normalize(%q)=%q want %q", rep, got, canonical)
		}
		variants := n.Variants(rep)
		if len(variants) == 0 || variants[0] != canonical {
			t.Fatalf("Variants(%q) must lead with canonical form, got %v", rep, variants)
		}
		found := false
		for _, v := range variants {
			if v == canonical {
				found = true
			}
		}
		if !found {
			t.Fatalf("Variants(%q) missing canonical %q: %v", rep, canonical, variants)
		}
	}
}

func TestVariantsCoverStoredFormats(t *testing.T) {
	n := New("91")
	variants := n.Variants("+919876543210")
	want := []string{"+919876543210", "919876543210", "9876543210", "09876543210", "+9876543210"}
	if len(variants) != len(want) {
		t.Fatalf("got %d variants %v, want %d", len(variants), variants, len(want))
	}
	for i, v := range want {
		if variants[i] != v {
			t.Fatalf("variant[%d]=%q want %q", i, variants[i], v)
		}
	}
}

func TestNationalStripsCountryCode(t *testing.T) {
	n := New("91")
	if got := n.National("+919876543210"); got != "9876543210" {
		t.Fatalf("National=%q want 9876543210", got)
	}
	if got := n.National("+14155552671"); got != "14155552671" {
		t.Fatalf("foreign numbers pass through, got %q", got)
	}
}
