package identity

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "123456789012", "123456789012"},
		{"grouped with spaces", "1234 5678 9012", "123456789012"},
		{"tabs and newlines", "1234\t5678\n9012", "123456789012"},
		{"leading and trailing", "  123456789012  ", "123456789012"},
		{"carriage return", "123456789012\r\n", "123456789012"},
		{"non-breaking space", "1234\u00a05678\u00a09012", "123456789012"},
		{"control characters", "1234\x005678\x1b9012", "123456789012"},
		{"empty", "", ""},
		{"only whitespace", " \t\n ", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Normalize(tc.input)
			if got != tc.expected {
				t.Errorf("Normalize(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"1234 5678 9012",
		"123456789012",
		"\t9999 8888 7777\n",
		"",
	}

	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: first %q, second %q", in, once, twice)
		}
	}
}

func TestDigest(t *testing.T) {
	a := Digest("123456789012")
	b := Digest("123456789012")
	if a != b {
		t.Error("digest is not stable for equal inputs")
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
	if Digest("111122223333") == a {
		t.Error("distinct identifiers must not collide trivially")
	}
}

func TestVoterEnrollmentChecks(t *testing.T) {
	v := Voter{Aadhaar: "123456789012"}
	if v.HasFingerprint() {
		t.Error("voter without pages reported fingerprint enrollment")
	}
	if v.HasFace() {
		t.Error("voter without template reported face enrollment")
	}

	v.FingerprintPages = []uint16{3}
	v.FaceTemplate = []float32{0.1, 0.2}
	if !v.HasFingerprint() || !v.HasFace() {
		t.Error("enrolled voter not detected")
	}
}
