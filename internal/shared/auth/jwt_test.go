package auth

import (
	"strings"
	"testing"
)

func TestJWT_GenerateAndValidate(t *testing.T) {
	jwt := NewJWT("test-secret")

	token, err := jwt.Generate(42, "user@example.com")
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}

	claims, err := jwt.Validate(token)
	if err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}

	if claims.UserID != 42 {
		t.Errorf("UserID = %d, want 42", claims.UserID)
	}
	if claims.Email != "user@example.com" {
		t.Errorf("Email = %q, want %q", claims.Email, "user@example.com")
	}
}

func TestJWT_InvalidFormat(t *testing.T) {
	jwt := NewJWT("test-secret")

	tests := []struct {
		name  string
		token string
	}{
		{"Empty", ""},
		{"Single Part", "abc"},
		{"Two Parts", "abc.def"},
		{"Four Parts", "a.b.c.d"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := jwt.Validate(tt.token); err == nil {
				t.Errorf("Validate(%q) expected error, got nil", tt.token)
			}
		})
	}
}

func TestJWT_TamperedSignature(t *testing.T) {
	jwt := NewJWT("test-secret")

	token, err := jwt.Generate(1, "user@example.com")
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}

	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + ".tamperedsignature"

	if _, err := jwt.Validate(tampered); err == nil {
		t.Error("Validate() expected error for tampered signature, got nil")
	}
}

func TestJWT_WrongSecret(t *testing.T) {
	token, err := NewJWT("secret-a").Generate(1, "user@example.com")
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}

	if _, err := NewJWT("secret-b").Validate(token); err == nil {
		t.Error("Validate() expected error for token signed with different secret, got nil")
	}
}
