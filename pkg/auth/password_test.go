package auth

import "testing"

func TestHashPassword(t *testing.T) {
	password := "longpass1"

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	if hash == "" {
		t.Error("Hash should not be empty")
	}

	if hash == password {
		t.Error("Hash should not equal the plain password")
	}
}

func TestCheckPassword(t *testing.T) {
	password := "longpass1"

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	if !CheckPassword(hash, password) {
		t.Error("CheckPassword should accept the correct password")
	}

	if CheckPassword(hash, "wrongpass1") {
		t.Error("CheckPassword should reject a wrong password")
	}
}

func TestCheckPasswordMalformedDigest(t *testing.T) {
	// A malformed digest is a mismatch, not a panic or error.
	if CheckPassword("not-a-bcrypt-digest", "anything") {
		t.Error("CheckPassword should reject a malformed digest")
	}

	if CheckPassword("", "anything") {
		t.Error("CheckPassword should reject an empty digest")
	}
}

func TestHashToken(t *testing.T) {
	a := HashToken("some.jwt.token")
	b := HashToken("some.jwt.token")
	c := HashToken("other.jwt.token")

	if a != b {
		t.Error("HashToken should be deterministic")
	}

	if a == c {
		t.Error("Different tokens should hash differently")
	}

	if len(a) != 64 {
		t.Errorf("Expected 64 hex chars, got %d", len(a))
	}
}
