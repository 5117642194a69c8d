package identity

import "testing"

func TestNormalize_StripsDecorations(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"bare digits", "5511999999999", "5511999999999"},
		{"international format", "+55 11 9999-9999", "5511999999999"},
		{"parentheses", "+55 (11) 99999-9999", "5511999999999"},
		{"whatsapp jid", "5511999999999@s.whatsapp.net", "5511999999999"},
		{"legacy jid", "5511999999999@c.us", "5511999999999"},
		{"device jid", "5511999999999:12@s.whatsapp.net", "5511999999999"},
		{"twilio prefix digits", "whatsapp:+5511999999999", "5511999999999"},
		{"non brazilian untouched", "14155552671", "14155552671"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.raw)
			if err != nil {
				t.Fatalf("Normalize(%q) returned error: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalize_SameContactDifferentDecorations(t *testing.T) {
	a, err := Normalize("+55 11 9999-9999")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := Normalize("5511999999999")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != b {
		t.Errorf("decorations of the same contact normalized differently: %q vs %q", a, b)
	}
}

func TestNormalize_BrazilNinthDigit(t *testing.T) {
	// Country code 55 + 2-digit area + 8 subscriber digits gets a "9"
	// inserted after the area code.
	got, err := Normalize("557112345678")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "5571912345678"
	if got != want {
		t.Errorf("Normalize(%q) = %q, want %q", "557112345678", got, want)
	}
	if len(got) != 13 {
		t.Errorf("corrected identifier should have 13 digits, got %d", len(got))
	}

	// Already-corrected numbers are untouched.
	unchanged, err := Normalize("5571912345678")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if unchanged != want {
		t.Errorf("Normalize(%q) = %q, want unchanged %q", "5571912345678", unchanged, want)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"+55 71 1234-5678",
		"557112345678",
		"5511999999999@s.whatsapp.net",
		"14155552671",
	}
	for _, raw := range inputs {
		once, err := Normalize(raw)
		if err != nil {
			t.Fatalf("Normalize(%q) returned error: %v", raw, err)
		}
		twice, err := Normalize(once)
		if err != nil {
			t.Fatalf("Normalize(Normalize(%q)) returned error: %v", raw, err)
		}
		if once != twice {
			t.Errorf("normalization not idempotent for %q: %q != %q", raw, once, twice)
		}
	}
}

func TestNormalize_Rejections(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"no digits", "not-a-number"},
		{"too short", "123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Normalize(tt.raw); err == nil {
				t.Errorf("Normalize(%q) should have failed", tt.raw)
			}
		})
	}
}
