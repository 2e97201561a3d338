package auth

import (
	"testing"

	"romaneio-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenRoundTrip(t *testing.T) {
	secret := "0123456789abcdef0123456789abcdef"
	user := &models.User{
		ID:    7,
		Name:  "Maria",
		Email: "maria@example.com",
		Role:  models.RoleOperator,
	}

	tokenStr, err := GenerateToken(secret, user)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	token, err := jwt.ParseWithClaims(tokenStr, &JWTCustomClaims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		t.Fatalf("parse: %v (valid=%v)", err, token != nil && token.Valid)
	}

	claims := token.Claims.(*JWTCustomClaims)
	if claims.UserID != 7 || claims.Email != "maria@example.com" || claims.Role != models.RoleOperator {
		t.Errorf("claims = %+v", claims)
	}
	if claims.Name != "Maria" {
		t.Errorf("name = %q, want Maria", claims.Name)
	}
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	tokenStr, err := GenerateToken("0123456789abcdef0123456789abcdef", &models.User{ID: 1})
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	token, err := jwt.ParseWithClaims(tokenStr, &JWTCustomClaims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte("another-secret-another-secret-32"), nil
	})
	if err == nil && token.Valid {
		t.Error("token validated with the wrong secret")
	}
}
