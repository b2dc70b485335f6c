package converter

import (
	"github.com/minervamed/clinic-scheduler/internal/delivery/dto"
	"github.com/minervamed/clinic-scheduler/internal/domain/entity"
)

// UserToResponse includes the doctor profile when it is loaded. The role name
// falls back to the role id when Role was not preloaded.
func UserToResponse(user *entity.User) *dto.UserResponse {
	if user == nil {
		return nil
	}

	role := user.Role.RoleName
	if role == "" {
		role = user.Actor().Kind.String()
	}

	response := &dto.UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		FullName:  user.FullName,
		Role:      role,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}

	if user.DoctorProfile != nil {
		response.DoctorProfile = DoctorProfileToResponse(user.DoctorProfile)
	}

	return response
}
