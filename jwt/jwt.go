package jwt

import (
	"log/slog"
	"net/http"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

var expirationTime = 30 * time.Minute

var jwtKey = []byte("divvy-dev-key")

// SetKey overrides the signing key. Called once at startup when a key is
// configured in the environment.
func SetKey(key string) {
	jwtKey = []byte(key)
}

type claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// CreateCookie creates a cookie containing a JWT token that is set to expire
// in expirationTime.
func CreateCookie(userID string, cookieName string) http.Cookie {
	expiresAt := time.Now().Add(expirationTime)

	// Create a claim with an expiry and userID
	claims := &claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	// Create the JWT token
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(jwtKey)
	if err != nil {
		panic(err)
	}

	// Return an http cookie with the token
	return http.Cookie{
		Name:    cookieName,
		Value:   tokenString,
		Expires: expiresAt,
	}
}

// VerifyToken verifies a JWT token. If successful, the function returns
// (userID, true), if unsuccessful, it returns ("", false)
func VerifyToken(tokenString string) (string, bool) {
	claims := &claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return jwtKey, nil
	})
	if err != nil {
		slog.Info("Bad jwt token", "error", err)
		return "", false
	}

	if !token.Valid {
		slog.Info("Invalid jwt token")
		return "", false
	}

	return claims.UserID, true
}
