package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/minervamed/clinic-scheduler/internal/domain/entity"
	"github.com/minervamed/clinic-scheduler/internal/domain/repository"
	"github.com/minervamed/clinic-scheduler/pkg/jwt"
	"github.com/minervamed/clinic-scheduler/pkg/response"
)

type contextKey string

const (
	ActorKey   contextKey = "actor"
	TokenIDKey contextKey = "token_id"
	requestKey contextKey = "request_info"
)

type AuthMiddleware struct {
	jwtService *jwt.JWTService
	tokenRepo  repository.TokenRepository
}

func NewAuthMiddleware(jwtService *jwt.JWTService, tokenRepo repository.TokenRepository) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		tokenRepo:  tokenRepo,
	}
}

func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			response.Unauthorized(w, "Authorization header is required")
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(w, "Invalid authorization header format")
			return
		}

		claims, err := m.jwtService.ValidateToken(parts[1])
		if err != nil {
			response.Unauthorized(w, "Invalid or expired token")
			return
		}

		if claims.TokenType != jwt.AccessToken {
			response.Unauthorized(w, "Invalid token type")
			return
		}

		// Revoked on logout
		exists, err := m.tokenRepo.Exists(r.Context(), claims.UserID, claims.TokenID, false)
		if err != nil {
			response.InternalServerError(w, "Failed to validate token")
			return
		}
		if !exists {
			response.Unauthorized(w, "Token has been revoked")
			return
		}

		actor := entity.ActorFromRole(claims.UserID, claims.RoleID, claims.Specialty)
		ctx := WithActor(r.Context(), actor)
		ctx = context.WithValue(ctx, TokenIDKey, claims.TokenID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithActor stores the authenticated caller in ctx and reports it to the
// enclosing request log, if any.
func WithActor(ctx context.Context, actor entity.Actor) context.Context {
	if info, ok := ctx.Value(requestKey).(*requestInfo); ok {
		info.userID = actor.ID
	}
	return context.WithValue(ctx, ActorKey, actor)
}

// ActorFromContext extracts the authenticated caller from context
func ActorFromContext(ctx context.Context) (entity.Actor, bool) {
	actor, ok := ctx.Value(ActorKey).(entity.Actor)
	return actor, ok
}

// GetTokenIDFromContext extracts token ID from context
func GetTokenIDFromContext(ctx context.Context) (string, bool) {
	tokenID, ok := ctx.Value(TokenIDKey).(string)
	return tokenID, ok
}
