package auth

import (
	"testing"
	"time"

	"github.com/The-x-35/vibegame-sub000/internal/models"
	"github.com/The-x-35/vibegame-sub000/internal/txerrors"

	"github.com/golang-jwt/jwt/v5"
)

const (
	testSecret = "test-secret"
	testWallet = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
)

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return token
}

func newTestVerifier(t *testing.T) *Verifier {
	t.Helper()
	v, err := NewVerifier(models.AuthConfig{JWTSecret: testSecret, Issuer: "vibegame"})
	if err != nil {
		t.Fatalf("NewVerifier failed: %v", err)
	}
	return v
}

func TestVerify_ValidToken(t *testing.T) {
	v := newTestVerifier(t)
	token := sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
		"walletAddress": testWallet,
		"iss":           "vibegame",
		"exp":           time.Now().Add(time.Hour).Unix(),
	})

	id, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if id.Address != testWallet {
		t.Errorf("Expected address %s, got %s", testWallet, id.Address)
	}
	if id.Credential != token {
		t.Error("Expected the credential to be kept for forwarding")
	}
}

func TestVerify_Rejects(t *testing.T) {
	future := time.Now().Add(time.Hour).Unix()
	tests := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{"empty", func(t *testing.T) string { return "" }},
		{"garbage", func(t *testing.T) string { return "not.a.jwt" }},
		{"wrong secret", func(t *testing.T) string {
			return sign(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"walletAddress": testWallet, "iss": "vibegame", "exp": future})
		}},
		{"expired", func(t *testing.T) string {
			return sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"walletAddress": testWallet, "iss": "vibegame", "exp": time.Now().Add(-time.Hour).Unix()})
		}},
		{"no expiry", func(t *testing.T) string {
			return sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"walletAddress": testWallet, "iss": "vibegame"})
		}},
		{"wrong issuer", func(t *testing.T) string {
			return sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"walletAddress": testWallet, "iss": "other", "exp": future})
		}},
		{"wrong algorithm", func(t *testing.T) string {
			return sign(t, jwt.SigningMethodHS512, []byte(testSecret), jwt.MapClaims{"walletAddress": testWallet, "iss": "vibegame", "exp": future})
		}},
		{"missing address", func(t *testing.T) string {
			return sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"iss": "vibegame", "exp": future})
		}},
		{"address not a key", func(t *testing.T) string {
			return sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"walletAddress": "0xabc", "iss": "vibegame", "exp": future})
		}},
	}

	v := newTestVerifier(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(tt.token(t))
			if !txerrors.IsKind(err, txerrors.KindUnauthenticated) {
				t.Errorf("Expected unauthenticated error, got %v", err)
			}
		})
	}
}

func TestNewVerifier_RequiresSecret(t *testing.T) {
	if _, err := NewVerifier(models.AuthConfig{}); err == nil {
		t.Error("Expected error for empty secret")
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Bearer ", "", false},
		{"Basic abc", "", false},
		{"abc", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		token, ok := BearerToken(tt.header)
		if token != tt.token || ok != tt.ok {
			t.Errorf("BearerToken(%q): expected (%q, %v), got (%q, %v)", tt.header, tt.token, tt.ok, token, ok)
		}
	}
}

func TestVerify_Audience(t *testing.T) {
	v, err := NewVerifier(models.AuthConfig{JWTSecret: testSecret, Audience: "vibegame-api"})
	if err != nil {
		t.Fatalf("NewVerifier failed: %v", err)
	}
	future := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name    string
		aud     interface{}
		wantErr bool
	}{
		{"matching", "vibegame-api", false},
		{"one of many", []string{"other", "vibegame-api"}, false},
		{"wrong audience", "other", true},
		{"missing audience", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := jwt.MapClaims{"walletAddress": testWallet, "exp": future}
			if tt.aud != nil {
				claims["aud"] = tt.aud
			}
			_, err := v.Verify(sign(t, jwt.SigningMethodHS256, []byte(testSecret), claims))
			if tt.wantErr {
				if !txerrors.IsKind(err, txerrors.KindUnauthenticated) {
					t.Errorf("Expected unauthenticated, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Expected token to verify, got %v", err)
			}
		})
	}
}
