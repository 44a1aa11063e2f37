package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestTokenService(t *testing.T, secret string) *TokenService {
	t.Helper()
	svc, err := NewTokenService([]byte(secret), time.Minute)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return svc
}

func TestTokenIssueVerifyRoundTrip(t *testing.T) {
	svc := newTestTokenService(t, "dev")

	token, expiresAt, err := svc.Issue(42, 0)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if got := time.Until(expiresAt); got <= 0 || got > time.Minute {
		t.Fatalf("expiry %s out of range", got)
	}

	id, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id != 42 {
		t.Fatalf("user id = %d, want 42", id)
	}
}

func TestTokenDistinctPerIssue(t *testing.T) {
	svc := newTestTokenService(t, "dev")
	a, _, _ := svc.Issue(1, 0)
	b, _, _ := svc.Issue(1, 0)
	if a == b {
		t.Fatal("expected tokens issued for the same user to differ")
	}
}

func TestTokenExpired(t *testing.T) {
	svc := newTestTokenService(t, "dev")
	issuedAt := time.Now()
	svc.now = func() time.Time { return issuedAt }

	token, _, err := svc.Issue(7, 10*time.Second)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	svc.now = func() time.Time { return issuedAt.Add(5 * time.Second) }
	if _, err := svc.Verify(token); err != nil {
		t.Fatalf("Verify before expiry: %v", err)
	}

	svc.now = func() time.Time { return issuedAt.Add(11 * time.Second) }
	_, err = svc.Verify(token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("Verify after expiry = %v, want ErrTokenExpired", err)
	}
	if !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expired error should match ErrTokenInvalid")
	}
}

func TestTokenWrongSecret(t *testing.T) {
	token, _, err := newTestTokenService(t, "dev").Issue(3, 0)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	_, err = newTestTokenService(t, "qa").Verify(token)
	if !errors.Is(err, ErrTokenSignature) {
		t.Fatalf("Verify with other secret = %v, want ErrTokenSignature", err)
	}
}

func TestTokenTampered(t *testing.T) {
	svc := newTestTokenService(t, "dev")
	token, _, err := svc.Issue(3, 0)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	parts := strings.Split(token, ".")
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	if _, err := svc.Verify(tampered); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("Verify tampered = %v, want ErrTokenInvalid", err)
	}
}

func TestTokenMalformed(t *testing.T) {
	svc := newTestTokenService(t, "dev")
	for _, raw := range []string{"", "garbage", "a.b.c"} {
		if _, err := svc.Verify(raw); !errors.Is(err, ErrTokenMalformed) {
			t.Errorf("Verify(%q) = %v, want ErrTokenMalformed", raw, err)
		}
	}
}

func TestNewTokenServiceRequiresSecret(t *testing.T) {
	if _, err := NewTokenService(nil, time.Minute); err == nil {
		t.Fatal("expected error for empty secret")
	}
	svc, err := NewTokenService([]byte("x"), 0)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	if svc.TTL() != DefaultTokenTTL {
		t.Fatalf("TTL = %s, want %s", svc.TTL(), DefaultTokenTTL)
	}
}
