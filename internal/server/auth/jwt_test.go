package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

func newIssuer(t *testing.T, secret string) *TokenIssuer {
	t.Helper()
	i, err := NewTokenIssuer(secret, "HS256", "access")
	if err != nil {
		t.Fatalf("NewTokenIssuer error: %v", err)
	}
	return i
}

func TestIssueAndValidate_Success(t *testing.T) {
	t.Parallel()

	for _, alg := range []string{"HS256", "HS384", "HS512"} {
		i, err := NewTokenIssuer("super-secret", alg, "access")
		if err != nil {
			t.Fatalf("NewTokenIssuer(%s) error: %v", alg, err)
		}

		tok, err := i.Issue("0712345678", time.Hour)
		if err != nil {
			t.Fatalf("Issue error: %v", err)
		}

		got, err := i.Validate(tok)
		if err != nil {
			t.Fatalf("Validate error: %v", err)
		}
		if got != "0712345678" {
			t.Fatalf("username mismatch: got %q", got)
		}
	}
}

func TestValidate_Expired(t *testing.T) {
	t.Parallel()

	i := newIssuer(t, "secret")
	tok, err := i.Issue("u1", -1*time.Second)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	_, err = i.Validate(tok)
	if !errors.Is(err, common.ErrTokenExpired) {
		t.Fatalf("expected common.ErrTokenExpired, got %v", err)
	}
}

func TestValidate_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := newIssuer(t, "right-secret").Issue("u2", time.Hour)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	_, err = newIssuer(t, "wrong-secret").Validate(tok)
	if !errors.Is(err, common.ErrInvalidSignature) {
		t.Fatalf("expected common.ErrInvalidSignature, got %v", err)
	}
}

func TestValidate_TamperedSignature(t *testing.T) {
	t.Parallel()

	i := newIssuer(t, "secret")
	tok, err := i.Issue("u3", time.Hour)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	// flip one character in the middle of the signature segment
	pos := strings.LastIndex(tok, ".") + 10
	b := []byte(tok)
	if b[pos] == 'a' {
		b[pos] = 'b'
	} else {
		b[pos] = 'a'
	}

	_, err = i.Validate(string(b))
	if !errors.Is(err, common.ErrInvalidSignature) {
		t.Fatalf("expected common.ErrInvalidSignature, got %v", err)
	}
}

func TestValidate_TamperedHeaderOrPayload(t *testing.T) {
	t.Parallel()

	i := newIssuer(t, "secret")
	tok, err := i.Issue("0712345678", time.Hour)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	sigStart := strings.LastIndex(tok, ".")
	for pos := 0; pos < sigStart; pos++ {
		if tok[pos] == '.' {
			continue
		}

		b := []byte(tok)
		if b[pos] == 'a' {
			b[pos] = 'b'
		} else {
			b[pos] = 'a'
		}

		if _, err := i.Validate(string(b)); !errors.Is(err, common.ErrInvalidSignature) {
			t.Fatalf("byte %d altered: expected common.ErrInvalidSignature, got %v", pos, err)
		}
	}
}

func TestValidate_Malformed(t *testing.T) {
	t.Parallel()

	i := newIssuer(t, "k")
	for _, tok := range []string{"", "not.a.jwt", "abc"} {
		if _, err := i.Validate(tok); !errors.Is(err, common.ErrMalformedToken) {
			t.Fatalf("Validate(%q): expected common.ErrMalformedToken, got %v", tok, err)
		}
	}
}

func TestValidate_ForeignSubject(t *testing.T) {
	t.Parallel()

	other, err := NewTokenIssuer("shared", "HS256", "refresh")
	if err != nil {
		t.Fatalf("NewTokenIssuer error: %v", err)
	}
	tok, err := other.Issue("u4", time.Hour)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	_, err = newIssuer(t, "shared").Validate(tok)
	if !errors.Is(err, common.ErrMalformedToken) {
		t.Fatalf("expected common.ErrMalformedToken for foreign subject, got %v", err)
	}
}

func TestValidate_MissingUsername(t *testing.T) {
	t.Parallel()

	i := newIssuer(t, "secret")
	tok, err := i.Issue("", time.Hour)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	if _, err := i.Validate(tok); !errors.Is(err, common.ErrMalformedToken) {
		t.Fatalf("expected common.ErrMalformedToken, got %v", err)
	}
}

func TestValidate_RejectsOtherAlgorithm(t *testing.T) {
	t.Parallel()

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "access",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Username: "u5",
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("SignedString error: %v", err)
	}

	if _, err := newIssuer(t, "secret").Validate(tok); err == nil {
		t.Fatalf("expected HS512 token to be rejected by an HS256 issuer")
	}
}

func TestNewTokenIssuer_Errors(t *testing.T) {
	t.Parallel()

	if _, err := NewTokenIssuer("", "HS256", "access"); err == nil {
		t.Fatal("expected error for empty secret")
	}
	if _, err := NewTokenIssuer("s", "HS256", ""); err == nil {
		t.Fatal("expected error for empty subject")
	}
	if _, err := NewTokenIssuer("s", "RS256", "access"); err == nil {
		t.Fatal("expected error for non-HMAC algorithm")
	}
	if _, err := NewTokenIssuer("s", "none", "access"); err == nil {
		t.Fatal("expected error for unknown algorithm")
	}
}
