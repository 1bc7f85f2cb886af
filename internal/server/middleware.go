package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/esusuhq/esusu-engine/internal/apperr"
	"github.com/esusuhq/esusu-engine/internal/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

type actorKey struct{}

// Actor is the authenticated identity handed to the engine. isAdmin here
// is a routing hint; the service re-checks the flag against the store
// before any privileged mutation.
type Actor struct {
	UserID  uuid.UUID
	IsAdmin bool
}

type authClaims struct {
	IsAdmin bool `json:"is_admin"`
	jwt.RegisteredClaims
}

func (s *Server) issueToken(user *models.User) (string, error) {
	claims := authClaims{
		IsAdmin: user.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *Server) authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			s.respondErr(w, apperr.New(apperr.Unauthorized, "Missing or invalid authorization header"))
			return
		}

		claims := &authClaims{}
		token, err := jwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), claims,
			func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(s.jwtSecret), nil
			})
		if err != nil || !token.Valid {
			s.respondErr(w, apperr.New(apperr.Unauthorized, "Invalid or expired token"))
			return
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			s.respondErr(w, apperr.New(apperr.Unauthorized, "Invalid or expired token"))
			return
		}

		actor := Actor{UserID: userID, IsAdmin: claims.IsAdmin}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey{}, actor)))
	})
}

func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !actorFrom(r).IsAdmin {
			s.respondErr(w, apperr.New(apperr.Unauthorized, "You are not authorized to perform this action"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func actorFrom(r *http.Request) Actor {
	actor, _ := r.Context().Value(actorKey{}).(Actor)
	return actor
}
