package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"task-sync-backend/pkg/config"
	"task-sync-backend/pkg/models"
	"task-sync-backend/pkg/utils"

	"github.com/golang-jwt/jwt/v5"
)

// ContextKey is the type for values this package stores in request contexts
type ContextKey string

const (
	UserContextKey ContextKey = "user"
)

// AuthMiddleware validates the access token and injects the authenticated
// user into the request context. Browsers cannot set headers on websocket
// upgrades, so a "token" query parameter is accepted as a fallback.
func AuthMiddleware(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearerToken(r)
			if tokenString == "" {
				tokenString = r.URL.Query().Get("token")
			}
			if tokenString == "" {
				utils.WriteErrorResponse(w, http.StatusUnauthorized, "Missing authorization header")
				return
			}

			token, err := jwt.ParseWithClaims(tokenString, &models.TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(cfg.JWTSecret), nil
			})
			if err != nil {
				utils.WriteErrorResponse(w, http.StatusUnauthorized, "Invalid token: "+err.Error())
				return
			}
			if !token.Valid {
				utils.WriteErrorResponse(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			claims, ok := token.Claims.(*models.TokenClaims)
			if !ok {
				utils.WriteErrorResponse(w, http.StatusUnauthorized, "Invalid token claims")
				return
			}

			// Refresh tokens never authenticate requests
			if claims.Type != "access" {
				utils.WriteErrorResponse(w, http.StatusUnauthorized, "Invalid token type")
				return
			}
			if time.Now().Unix() > claims.Exp {
				utils.WriteErrorResponse(w, http.StatusUnauthorized, "Token expired")
				return
			}

			user := &models.User{
				ID:    claims.UserID,
				Email: claims.Email,
			}
			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader {
		return ""
	}
	return tokenString
}

// GetUserFromContext extracts the authenticated user from the context
func GetUserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	return user, ok
}

// RequireUser returns the authenticated user or an error
func RequireUser(ctx context.Context) (*models.User, error) {
	user, ok := GetUserFromContext(ctx)
	if !ok || user == nil {
		return nil, fmt.Errorf("user not authenticated")
	}
	return user, nil
}
