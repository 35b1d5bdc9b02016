package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// signClaims mints a token with explicit issue and expiry instants, which
// GenerateToken does not allow.
func signClaims(tm *TokenManager, accountID, role string, issuedAt, expiresAt time.Time) (string, error) {
	claims := Claims{
		AccountID: accountID,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    tm.issuer,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(tm.secret))
}

func TestGenerateAndValidateToken(t *testing.T) {
	tm := NewTokenManager("test-secret", "centerattend-test")

	token, err := tm.GenerateToken("acc-1", "center", time.Hour)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	claims, err := tm.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if claims.AccountID != "acc-1" || claims.Role != "center" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims.Issuer != "centerattend-test" {
		t.Fatalf("unexpected issuer %q", claims.Issuer)
	}
}

func TestGenerateTokenRequiresIdentity(t *testing.T) {
	tm := NewTokenManager("test-secret", "")

	if _, err := tm.GenerateToken("", "admin", time.Hour); err == nil {
		t.Fatal("expected error for empty account id")
	}
	if _, err := tm.GenerateToken("acc-1", "", time.Hour); err == nil {
		t.Fatal("expected error for empty role")
	}
}

func TestValidateExpiredToken(t *testing.T) {
	tm := NewTokenManager("test-secret", "")

	past := time.Now().Add(-2 * time.Hour)
	expired, err := signClaims(tm, "acc-1", "admin", past, past.Add(time.Hour))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := tm.ValidateToken(expired); err == nil {
		t.Fatal("expected expired token to fail validation")
	}
}

func TestValidateWrongSecret(t *testing.T) {
	tm := NewTokenManager("secret-a", "")
	other := NewTokenManager("secret-b", "")

	token, err := tm.GenerateToken("acc-1", "admin", time.Hour)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if _, err := other.ValidateToken(token); err == nil {
		t.Fatal("expected token signed with another secret to fail")
	}
	if _, err := tm.ValidateToken("not.a.token"); err == nil {
		t.Fatal("expected garbage token to fail")
	}
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", false},
		{"bearer abc", "", true},
		{"Basic dXNlcg==", "", true},
		{"Bearer", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ExtractToken(tt.header)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("%q: expected error", tt.header)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("%q: got %q (err %v)", tt.header, got, err)
		}
	}
}
