package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestIssueAndParseToken(t *testing.T) {
	cfg := TokenConfig{SigningKey: []byte("test-key"), Issuer: "carefinder", TTL: time.Hour}
	userID := uuid.New()

	signed, err := IssueToken(cfg, userID, RoleOwner)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	claims, err := ParseToken(cfg, signed)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.Subject != userID.String() {
		t.Fatalf("subject = %q, want %q", claims.Subject, userID)
	}
	if claims.Role != RoleOwner {
		t.Fatalf("role = %q, want %q", claims.Role, RoleOwner)
	}
	if claims.Issuer != "carefinder" {
		t.Fatalf("issuer = %q, want carefinder", claims.Issuer)
	}
}

func TestParseTokenWrongKey(t *testing.T) {
	cfg := TokenConfig{SigningKey: []byte("key-one"), TTL: time.Hour}
	signed, err := IssueToken(cfg, uuid.New(), RoleUser)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	if _, err := ParseToken(TokenConfig{SigningKey: []byte("key-two")}, signed); err == nil {
		t.Fatal("expected verification failure with a different key")
	}
}

func TestParseTokenWrongIssuer(t *testing.T) {
	signed, err := IssueToken(TokenConfig{SigningKey: []byte("k"), Issuer: "other"}, uuid.New(), RoleUser)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if _, err := ParseToken(TokenConfig{SigningKey: []byte("k"), Issuer: "carefinder"}, signed); err == nil {
		t.Fatal("expected issuer mismatch to fail")
	}
}

func TestParseTokenExpired(t *testing.T) {
	cfg := TokenConfig{SigningKey: []byte("k"), TTL: time.Nanosecond}
	signed, err := IssueToken(cfg, uuid.New(), RoleUser)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, err := ParseToken(cfg, signed); err == nil {
		t.Fatal("expected expired token to fail")
	}
}
