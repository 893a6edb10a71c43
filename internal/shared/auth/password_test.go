package auth

import "testing"

func TestHashPassword_AndCheck(t *testing.T) {
	hash, err := HashPassword("correct-horse-battery")
	if err != nil {
		t.Fatalf("HashPassword() failed: %v", err)
	}

	if hash == "correct-horse-battery" {
		t.Error("HashPassword() returned plaintext")
	}

	if !CheckPassword("correct-horse-battery", hash) {
		t.Error("CheckPassword() = false for correct password")
	}
	if CheckPassword("wrong-password", hash) {
		t.Error("CheckPassword() = true for wrong password")
	}
}

func TestHashPassword_TooShort(t *testing.T) {
	if _, err := HashPassword("short"); err != ErrPasswordTooShort {
		t.Errorf("HashPassword() error = %v, want ErrPasswordTooShort", err)
	}
}
