package middleware

import (
	"net/http"

	"github.com/minervamed/clinic-scheduler/internal/domain/entity"
	"github.com/minervamed/clinic-scheduler/pkg/response"
)

// RequireActor allows the request through when the caller is one of kinds.
// It must run after AuthMiddleware.Authenticate.
func RequireActor(kinds ...entity.ActorKind) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				response.Unauthorized(w, "Role information not found")
				return
			}

			for _, k := range kinds {
				if actor.Kind == k {
					next.ServeHTTP(w, r)
					return
				}
			}

			response.Forbidden(w, "You don't have permission to access this resource")
		})
	}
}

// RequireAdmin is a convenience middleware for admin-only endpoints
func RequireAdmin(next http.Handler) http.Handler {
	return RequireActor(entity.ActorAdmin)(next)
}

// RequireDoctor is a convenience middleware for doctor-only endpoints
func RequireDoctor(next http.Handler) http.Handler {
	return RequireActor(entity.ActorDoctor)(next)
}

// RequirePatient is a convenience middleware for patient-only endpoints
func RequirePatient(next http.Handler) http.Handler {
	return RequireActor(entity.ActorPatient)(next)
}

// RequirePatientOrDoctor is a convenience middleware for endpoints both sides of an appointment use
func RequirePatientOrDoctor(next http.Handler) http.Handler {
	return RequireActor(entity.ActorPatient, entity.ActorDoctor)(next)
}
