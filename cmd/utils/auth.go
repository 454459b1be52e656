package utils

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

type contextKey string

const MemberIDKey contextKey = "memberID"

const RefreshTokenTTL = 30 * 24 * time.Hour

func GetMemberIDFromContext(ctx context.Context) (uint, error) {
	memberID, ok := ctx.Value(MemberIDKey).(uint)
	if !ok {
		return 0, errors.New("member ID not found in context")
	}
	return memberID, nil
}

// Auth issues and validates bearer tokens. The signing key comes from the
// startup config; nothing here touches the environment.
type Auth struct {
	secret []byte
}

func NewAuth(secret string) *Auth {
	return &Auth{secret: []byte(secret)}
}

func (a *Auth) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		tokenString := strings.Replace(authHeader, "Bearer ", "", 1)

		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			return a.secret, nil
		})

		if err != nil || !token.Valid {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		memberID, err := strconv.ParseUint(claims.Subject, 10, 64)
		if err != nil {
			http.Error(w, "Invalid member ID in token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), MemberIDKey, uint(memberID))
		next(w, r.WithContext(ctx))
	}
}

func (a *Auth) GenerateAccessToken(memberID uint, ttl time.Duration) (string, error) {
	claims := &jwt.RegisteredClaims{
		Subject:   fmt.Sprint(memberID),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// GenerateRefreshToken produces an opaque token tied to the member via HMAC.
// The token itself is persisted on the member row for rotation.
func (a *Auth) GenerateRefreshToken(memberID uint) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	mac := hmac.New(sha256.New, a.secret)
	mac.Write([]byte(fmt.Sprintf("%d", memberID)))
	mac.Write(b)

	signature := mac.Sum(nil)
	return fmt.Sprintf("%d_%x_%x", memberID, b, signature), nil
}
