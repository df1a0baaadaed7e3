package token

import (
	"bytes"
	"errors"
	"regexp"
	"testing"
)

var hex32 = regexp.MustCompile(`^[0-9a-f]{32}$`)

func TestIssue_Format(t *testing.T) {
	var iss Issuer

	seen := make(map[string]struct{}, 64)
	for range 64 {
		tok, err := iss.Issue()
		if err != nil {
			t.Fatalf("Issue error: %v", err)
		}
		if !hex32.MatchString(tok) {
			t.Fatalf("unexpected token format %q", tok)
		}
		if _, dup := seen[tok]; dup {
			t.Fatalf("duplicate token %q", tok)
		}
		seen[tok] = struct{}{}
	}
}

func TestIssue_Deterministic_WithReader(t *testing.T) {
	iss := Issuer{Rand: bytes.NewReader(bytes.Repeat([]byte{0xab}, ByteLength))}

	tok, err := iss.Issue()
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if tok != "abababababababababababababababab" {
		t.Fatalf("unexpected token %q", tok)
	}
}

func TestIssue_ShortEntropy(t *testing.T) {
	iss := Issuer{Rand: bytes.NewReader([]byte{1, 2, 3})}

	if _, err := iss.Issue(); err == nil {
		t.Fatalf("expected entropy error")
	}
}

func TestParseBearer(t *testing.T) {
	cases := []struct {
		header string
		want   string
		err    error
	}{
		{"Bearer abc123", "abc123", nil},
		{"Bearer abc123 trailing", "abc123", nil},
		{"", "", ErrMalformedHeader},
		{"Bearer", "", ErrMalformedHeader},
		{"Bearer ", "", ErrMalformedHeader},
		{"bearer abc123", "", ErrMalformedHeader},
		{"Basic abc123", "", ErrMalformedHeader},
		{"Bearer  abc123", "", ErrMalformedHeader},
	}

	for _, tc := range cases {
		got, err := ParseBearer(tc.header)
		if !errors.Is(err, tc.err) {
			t.Fatalf("ParseBearer(%q): err=%v want %v", tc.header, err, tc.err)
		}
		if got != tc.want {
			t.Fatalf("ParseBearer(%q) = %q, want %q", tc.header, got, tc.want)
		}
	}
}
