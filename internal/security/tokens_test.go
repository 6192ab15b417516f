package security

import (
	"testing"
	"time"
)

func TestTokenProvider_IssueAndValidateAccess(t *testing.T) {
	p := NewTestTokenProvider()

	token, exp, err := p.IssueAccess("u1")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if token == "" {
		t.Fatal("access token empty")
	}
	if exp.Before(time.Now()) {
		t.Fatal("expires at in the past")
	}

	userID, err := p.ValidateAccess(token)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if userID != "u1" {
		t.Errorf("ValidateAccess userID = %q, want u1", userID)
	}
}

func TestTokenProvider_IssueAndValidateRefresh(t *testing.T) {
	p := NewTestTokenProvider()

	token, _, err := p.IssueRefresh("u1")
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	userID, err := p.ValidateRefresh(token)
	if err != nil {
		t.Fatalf("ValidateRefresh: %v", err)
	}
	if userID != "u1" {
		t.Errorf("ValidateRefresh userID = %q, want u1", userID)
	}
}

func TestTokenProvider_RefreshNotValidAsAccess(t *testing.T) {
	p := NewTestTokenProvider()
	refresh, _, err := p.IssueRefresh("u1")
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	if _, err := p.ValidateAccess(refresh); err != ErrInvalidToken {
		t.Errorf("ValidateAccess(refresh token): want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_AccessNotValidAsRefresh(t *testing.T) {
	p := NewTestTokenProvider()
	access, _, err := p.IssueAccess("u1")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, err := p.ValidateRefresh(access); err != ErrInvalidToken {
		t.Errorf("ValidateRefresh(access token): want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_ValidateInvalid(t *testing.T) {
	p := NewTestTokenProvider()
	if _, err := p.ValidateAccess("not-a-jwt"); err != ErrInvalidToken {
		t.Errorf("ValidateAccess invalid: want ErrInvalidToken, got %v", err)
	}
	if _, err := p.ValidateRefresh(""); err != ErrInvalidToken {
		t.Errorf("ValidateRefresh empty: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_ValidateExpired(t *testing.T) {
	p := NewTokenProvider([]byte("a"), []byte("b"), "test-issuer", -time.Minute, -time.Minute)
	token, _, err := p.IssueAccess("u1")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, err := p.ValidateAccess(token); err != ErrInvalidToken {
		t.Errorf("ValidateAccess expired: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_WrongSecret(t *testing.T) {
	p := NewTestTokenProvider()
	other := NewTokenProvider([]byte("other-access"), []byte("other-refresh"), "test-issuer", time.Minute, time.Hour)

	token, _, err := p.IssueAccess("u1")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, err := other.ValidateAccess(token); err != ErrInvalidToken {
		t.Errorf("ValidateAccess with wrong secret: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_DecodeLocal(t *testing.T) {
	p := NewTestTokenProvider()

	access, _, _ := p.IssueAccess("u1")
	userID, purpose, err := p.DecodeLocal(access)
	if err != nil {
		t.Fatalf("DecodeLocal(access): %v", err)
	}
	if userID != "u1" || purpose != PurposeAccess {
		t.Errorf("DecodeLocal(access) = (%q, %q)", userID, purpose)
	}

	refresh, _, _ := p.IssueRefresh("u1")
	userID, purpose, err = p.DecodeLocal(refresh)
	if err != nil {
		t.Fatalf("DecodeLocal(refresh): %v", err)
	}
	if userID != "u1" || purpose != PurposeRefresh {
		t.Errorf("DecodeLocal(refresh) = (%q, %q)", userID, purpose)
	}

	if _, _, err := p.DecodeLocal("garbage"); err != ErrInvalidToken {
		t.Errorf("DecodeLocal(garbage): want ErrInvalidToken, got %v", err)
	}
}

func TestHasher_VerifyNoDigest(t *testing.T) {
	h := NewHasher(10)
	if h.Verify("anything", "") {
		t.Error("Verify with empty stored digest should be false")
	}
}

func TestHasher_Verify(t *testing.T) {
	h := NewHasher(10)
	digest, err := h.Hash([]byte("Password1!"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !h.Verify("Password1!", digest) {
		t.Error("Verify should accept the correct password")
	}
	if h.Verify("wrong", digest) {
		t.Error("Verify should reject a wrong password")
	}
}
