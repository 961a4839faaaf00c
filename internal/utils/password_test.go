package utils

import (
	"strings"
	"testing"
)

func TestHashPassword(t *testing.T) {
	password := "testPassword123"
	params := DefaultArgonParams()

	hash, err := HashPassword(password, params)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	if hash == "" {
		t.Error("Hash should not be empty")
	}

	if hash == password {
		t.Error("Hash should not equal plain password")
	}

	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Errorf("Hash should be argon2id-encoded, got %q", hash)
	}
}

func TestCheckPassword(t *testing.T) {
	password := "testPassword123"
	params := DefaultArgonParams()

	hash, err := HashPassword(password, params)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	if err := CheckPassword(hash, password); err != nil {
		t.Errorf("CheckPassword failed for correct password: %v", err)
	}

	if err := CheckPassword(hash, "wrongPassword"); err == nil {
		t.Error("CheckPassword should fail for incorrect password")
	}
}

func TestCheckPassword_InvalidEncoding(t *testing.T) {
	if err := CheckPassword("not-a-valid-hash", "whatever"); err == nil {
		t.Error("CheckPassword should reject a malformed hash")
	}
}

func TestIsPasswordValid(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     bool
	}{
		{"Valid password", "testPassword123", true},
		{"Valid minimum length", "abcdefgh", true},
		{"Too short", "abcdefg", false},
		{"Empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsPasswordValid(tt.password)
			if got != tt.want {
				t.Errorf("IsPasswordValid(%q) = %v, want %v", tt.password, got, tt.want)
			}
		})
	}
}
