package session

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func testIdentity() Identity {
	return Identity{
		ID:       "11111111-1111-1111-1111-111111111111",
		PlantID:  "22222222-2222-2222-2222-222222222222",
		Role:     "manager",
		Username: "mgr1",
	}
}

func TestNewCodecRequiresSecret(t *testing.T) {
	if _, err := NewCodec(""); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestIssueVerifyRoundtrip(t *testing.T) {
	codec, err := NewCodec("test-secret")
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	token, err := codec.Issue(testIdentity())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	identity, err := codec.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if identity != testIdentity() {
		t.Fatalf("identity mismatch: %+v", identity)
	}
}

func TestVerifyExpiryBoundaries(t *testing.T) {
	codec, err := NewCodec("test-secret")
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	issuedAt := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	codec.now = func() time.Time { return issuedAt }
	token, err := codec.Issue(testIdentity())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	codec.now = func() time.Time { return issuedAt.Add(23*time.Hour + 59*time.Minute) }
	if _, err := codec.Verify(token); err != nil {
		t.Fatalf("token should still be valid just before expiry: %v", err)
	}

	codec.now = func() time.Time { return issuedAt.Add(24*time.Hour + time.Minute) }
	if _, err := codec.Verify(token); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession after expiry, got %v", err)
	}
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	codec, err := NewCodec("test-secret")
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	token, err := codec.Issue(testIdentity())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("expected three token segments, got %d", len(parts))
	}
	// The final base64url character carries padding bits that a lenient
	// decoder ignores, so flip every byte except that one.
	sig := []byte(parts[2])
	for i := 0; i < len(sig)-1; i++ {
		flipped := byte('A')
		if sig[i] == 'A' {
			flipped = 'B'
		}
		tampered := parts[0] + "." + parts[1] + "." + string(sig[:i]) + string(flipped) + string(sig[i+1:])
		if tampered == token {
			continue
		}
		if _, err := codec.Verify(tampered); !errors.Is(err, ErrInvalidSession) {
			t.Fatalf("tampered signature at byte %d accepted", i)
		}
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer, err := NewCodec("secret-a")
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	verifier, err := NewCodec("secret-b")
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	token, err := issuer.Issue(testIdentity())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := verifier.Verify(token); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession for wrong secret, got %v", err)
	}
}

func TestVerifyRequiresPlantClaim(t *testing.T) {
	codec, err := NewCodec("test-secret")
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	identity := testIdentity()
	identity.PlantID = ""
	token, err := codec.Issue(identity)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := codec.Verify(token); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession for missing plant_id, got %v", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	codec, err := NewCodec("test-secret")
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	if _, err := codec.Verify("not-a-token"); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
}
