package authapi

import (
	"strings"
	"testing"
)

func TestRequestValidator(t *testing.T) {
	rv := newRequestValidator()

	tests := []struct {
		name string
		req  any
		want string
	}{
		{
			name: "valid register",
			req:  &registerRequest{Email: "ada@example.com", FullName: "Ada", Password: "Secret123"},
			want: "",
		},
		{
			name: "missing everything",
			req:  &registerRequest{},
			want: "email is required; full_name is required; password is required",
		},
		{
			name: "bad email",
			req:  &loginRequest{Email: "not-an-email", Password: "x"},
			want: "email must be a valid email address",
		},
		{
			name: "display name too long",
			req:  &registerRequest{Email: "ada@example.com", FullName: strings.Repeat("a", 201), Password: "x"},
			want: "full_name must be at most 200 characters long",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := rv.check(tc.req)
			if err != nil {
				t.Fatalf("check: %v", err)
			}
			if got != tc.want {
				t.Fatalf("check=%q, want %q", got, tc.want)
			}
		})
	}
}
