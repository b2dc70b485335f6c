package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/minervamed/clinic-scheduler/internal/converter"
	"github.com/minervamed/clinic-scheduler/internal/delivery/dto"
	"github.com/minervamed/clinic-scheduler/internal/delivery/http/middleware"
	"github.com/minervamed/clinic-scheduler/internal/domain/apperror"
	"github.com/minervamed/clinic-scheduler/internal/domain/entity"
	"github.com/minervamed/clinic-scheduler/internal/domain/repository"
	"github.com/minervamed/clinic-scheduler/internal/domain/slot"
	"github.com/minervamed/clinic-scheduler/internal/infrastructure/chat"
	"github.com/minervamed/clinic-scheduler/internal/service"
	"github.com/minervamed/clinic-scheduler/pkg/jwt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailAlreadyExists = fmt.Errorf("%w: email already exists", apperror.ErrConflict)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", apperror.ErrUnauthenticated)
	ErrInvalidToken       = fmt.Errorf("%w: invalid or expired token", apperror.ErrUnauthenticated)
	ErrTokenRevoked       = fmt.Errorf("%w: token has been revoked", apperror.ErrUnauthenticated)
	ErrUserInactive       = fmt.Errorf("%w: account is disabled", apperror.ErrForbidden)
	ErrUserNotFound       = fmt.Errorf("%w: user not found", apperror.ErrNotFound)
	ErrRoleNotFound       = errors.New("role not found")
	ErrOfficeNotFound     = fmt.Errorf("%w: office code does not exist, send the office details to create it", apperror.ErrValidation)
	ErrOfficeMismatch     = fmt.Errorf("%w: office code exists with different details", apperror.ErrConflict)
	ErrOfficeTaken        = fmt.Errorf("%w: office code was registered by another request, retry to join it", apperror.ErrConflict)
)

const auditEntityUser = "user"

type AuthUsecase interface {
	RegisterPatient(ctx context.Context, req *dto.RegisterPatientRequest) (*dto.UserResponse, error)
	RegisterDoctor(ctx context.Context, req *dto.RegisterDoctorRequest) (*dto.UserResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	Logout(ctx context.Context, req *dto.LogoutRequest) error
	RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error)
	GetCurrentUser(ctx context.Context) (*dto.UserResponse, error)
}

type authUsecase struct {
	log                *logrus.Logger
	txManager          repository.TxManager
	userRepo           repository.UserRepository
	roleRepo           repository.RoleRepository
	officeRepo         repository.OfficeRepository
	doctorProfileRepo  repository.DoctorProfileRepository
	patientProfileRepo repository.PatientProfileRepository
	tokenRepo          repository.TokenRepository
	jwtService         *jwt.JWTService
	connector          chat.Connector
	audit              service.AuditService
}

func NewAuthUsecase(
	log *logrus.Logger,
	txManager repository.TxManager,
	userRepo repository.UserRepository,
	roleRepo repository.RoleRepository,
	officeRepo repository.OfficeRepository,
	doctorProfileRepo repository.DoctorProfileRepository,
	patientProfileRepo repository.PatientProfileRepository,
	tokenRepo repository.TokenRepository,
	jwtService *jwt.JWTService,
	connector chat.Connector,
	audit service.AuditService,
) AuthUsecase {
	return &authUsecase{
		log:                log,
		txManager:          txManager,
		userRepo:           userRepo,
		roleRepo:           roleRepo,
		officeRepo:         officeRepo,
		doctorProfileRepo:  doctorProfileRepo,
		patientProfileRepo: patientProfileRepo,
		tokenRepo:          tokenRepo,
		jwtService:         jwtService,
		connector:          connector,
		audit:              audit,
	}
}

func (u *authUsecase) RegisterPatient(ctx context.Context, req *dto.RegisterPatientRequest) (*dto.UserResponse, error) {
	var dob *time.Time
	if req.DateOfBirth != "" {
		parsed, err := time.Parse(slot.DateLayout, req.DateOfBirth)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid date of birth, use YYYY-MM-DD", apperror.ErrValidation)
		}
		dob = &parsed
	}

	user, err := u.newUser(ctx, entity.RolePatient, req.Email, req.Password, req.FullName)
	if err != nil {
		return nil, err
	}

	err = u.txManager.WithinTransaction(ctx, func(tx *gorm.DB) error {
		if err := u.userRepo.Create(ctx, tx, user); err != nil {
			return u.mapUserError(err)
		}

		profile := &entity.PatientProfile{
			UserID:      user.ID,
			PhoneNumber: strings.TrimSpace(req.PhoneNumber),
			DateOfBirth: dob,
			Gender:      req.Gender,
		}
		if err := u.patientProfileRepo.Create(ctx, tx, profile); err != nil {
			u.log.Warnf("Failed to create patient profile: %+v", err)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	_ = u.audit.LogCreate(ctx, &user.ID, entity.AuditActionUserRegister, auditEntityUser, user.ID.String(), map[string]interface{}{
		"email": user.Email,
		"role":  entity.RolePatient,
	})
	return converter.UserToResponse(user), nil
}

// RegisterDoctor creates the user, the doctor profile and, when the office
// code is new, the office in one transaction. A doctor joining an existing
// office may omit its details; if they are sent they must match.
func (u *authUsecase) RegisterDoctor(ctx context.Context, req *dto.RegisterDoctorRequest) (*dto.UserResponse, error) {
	user, err := u.newUser(ctx, entity.RoleDoctor, req.Email, req.Password, req.FullName)
	if err != nil {
		return nil, err
	}

	office := &entity.Office{
		Code:    strings.TrimSpace(req.Office.OfficeID),
		Name:    strings.TrimSpace(req.Office.Name),
		County:  strings.TrimSpace(req.Office.County),
		City:    strings.TrimSpace(req.Office.City),
		Address: strings.TrimSpace(req.Office.Address),
	}
	profile := &entity.DoctorProfile{
		Specialization: strings.TrimSpace(req.Specialization),
		OfficeCode:     office.Code,
		Biography:      req.Biography,
	}

	err = u.txManager.WithinTransaction(ctx, func(tx *gorm.DB) error {
		existing, err := u.officeRepo.FindByCode(ctx, tx, office.Code)
		if err != nil {
			u.log.Warnf("Failed to find office %s: %+v", office.Code, err)
			return err
		}

		switch {
		case existing == nil && office.Name == "":
			return ErrOfficeNotFound
		case existing == nil:
			if err := u.officeRepo.Create(ctx, tx, office); err != nil {
				if errors.Is(err, apperror.ErrConflict) {
					return ErrOfficeTaken
				}
				u.log.Warnf("Failed to create office %s: %+v", office.Code, err)
				return err
			}
		case office.Name != "" && !existing.SameDetails(office):
			return ErrOfficeMismatch
		default:
			office = existing
		}

		if err := u.userRepo.Create(ctx, tx, user); err != nil {
			return u.mapUserError(err)
		}

		profile.UserID = user.ID
		if err := u.doctorProfileRepo.Create(ctx, tx, profile); err != nil {
			u.log.Warnf("Failed to create doctor profile: %+v", err)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	profile.Office = *office
	user.DoctorProfile = profile

	_ = u.audit.LogCreate(ctx, &user.ID, entity.AuditActionDoctorRegister, auditEntityUser, user.ID.String(), map[string]interface{}{
		"email":          user.Email,
		"specialization": profile.Specialization,
		"office_id":      office.Code,
	})
	return converter.UserToResponse(user), nil
}

func (u *authUsecase) newUser(ctx context.Context, roleName, email, password, fullName string) (*entity.User, error) {
	role, err := u.roleRepo.FindByName(ctx, roleName)
	if err != nil {
		u.log.Warnf("Failed to find role %s: %+v", roleName, err)
		return nil, err
	}
	if role == nil {
		u.log.Errorf("Role %s is missing, run the migrations", roleName)
		return nil, ErrRoleNotFound
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		u.log.Warnf("Failed to hash password: %+v", err)
		return nil, err
	}

	active := true
	return &entity.User{
		Email:    strings.ToLower(strings.TrimSpace(email)),
		Password: string(hashedPassword),
		FullName: strings.TrimSpace(fullName),
		RoleID:   role.ID,
		IsActive: &active,
		Role:     *role,
	}, nil
}

func (u *authUsecase) mapUserError(err error) error {
	if errors.Is(err, apperror.ErrConflict) {
		return ErrEmailAlreadyExists
	}
	u.log.Warnf("Failed to create user: %+v", err)
	return err
}

// Login issues a token pair and opens the user's chat session. The session
// is best effort; its failure is reported in ChatWarning.
func (u *authUsecase) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	user, err := u.userRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		u.log.Warnf("Failed to find user by email: %+v", err)
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.Active() {
		return nil, ErrUserInactive
	}

	resp, err := u.issueTokens(ctx, jwt.Subject{
		UserID:    user.ID,
		Email:     user.Email,
		RoleID:    user.RoleID,
		Specialty: user.Specialty(),
	})
	if err != nil {
		return nil, err
	}
	resp.User = converter.UserToResponse(user)

	if _, err := u.connector.Connect(ctx, user.ID); err != nil {
		u.log.Warnf("Chat session for user %s not opened: %+v", user.ID, err)
		resp.ChatWarning = "Signed in, but chat is unavailable right now"
	}

	_ = u.audit.LogCreate(ctx, &user.ID, entity.AuditActionUserLogin, auditEntityUser, user.ID.String(), nil)
	return resp, nil
}

// Logout revokes the access token of the request and, when it belongs to
// the same user, the refresh token in the body.
func (u *authUsecase) Logout(ctx context.Context, req *dto.LogoutRequest) error {
	actor, err := currentActor(ctx)
	if err != nil {
		return err
	}

	if tokenID, ok := middleware.GetTokenIDFromContext(ctx); ok && tokenID != "" {
		if err := u.tokenRepo.Revoke(ctx, tokenID, false); err != nil {
			u.log.Warnf("Failed to revoke access token: %+v", err)
			return err
		}
	}

	if req != nil && req.RefreshToken != "" {
		claims, err := u.jwtService.ValidateToken(req.RefreshToken)
		if err == nil && claims.TokenType == jwt.RefreshToken && claims.UserID == actor.ID {
			if err := u.tokenRepo.Revoke(ctx, claims.TokenID, true); err != nil {
				u.log.Warnf("Failed to revoke refresh token: %+v", err)
				return err
			}
		}
	}

	if err := u.connector.Disconnect(ctx, actor.ID); err != nil {
		u.log.Warnf("Failed to close chat session for user %s: %+v", actor.ID, err)
	}

	_ = u.audit.LogCreate(ctx, &actor.ID, entity.AuditActionUserLogout, auditEntityUser, actor.ID.String(), nil)
	return nil
}

func (u *authUsecase) RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error) {
	claims, err := u.jwtService.ValidateToken(req.RefreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != jwt.RefreshToken {
		return nil, ErrInvalidToken
	}

	exists, err := u.tokenRepo.Exists(ctx, claims.UserID, claims.TokenID, true)
	if err != nil {
		u.log.Warnf("Failed to check refresh token: %+v", err)
		return nil, err
	}
	if !exists {
		return nil, ErrTokenRevoked
	}

	if err := u.tokenRepo.Revoke(ctx, claims.TokenID, true); err != nil {
		u.log.Warnf("Failed to delete old refresh token: %+v", err)
		return nil, err
	}

	return u.issueTokens(ctx, claims.Subject())
}

func (u *authUsecase) issueTokens(ctx context.Context, sub jwt.Subject) (*dto.TokenResponse, error) {
	accessToken, accessTokenID, err := u.jwtService.GenerateAccessToken(sub)
	if err != nil {
		u.log.Warnf("Failed to generate access token: %+v", err)
		return nil, err
	}

	refreshToken, refreshTokenID, err := u.jwtService.GenerateRefreshToken(sub)
	if err != nil {
		u.log.Warnf("Failed to generate refresh token: %+v", err)
		return nil, err
	}

	if err := u.tokenRepo.Store(ctx, sub.UserID, accessTokenID, false, u.jwtService.GetAccessExpiry()); err != nil {
		u.log.Warnf("Failed to store access token: %+v", err)
		return nil, err
	}
	if err := u.tokenRepo.Store(ctx, sub.UserID, refreshTokenID, true, u.jwtService.GetRefreshExpiry()); err != nil {
		u.log.Warnf("Failed to store refresh token: %+v", err)
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(u.jwtService.GetAccessExpiry().Seconds()),
	}, nil
}

func (u *authUsecase) GetCurrentUser(ctx context.Context) (*dto.UserResponse, error) {
	actor, err := currentActor(ctx)
	if err != nil {
		return nil, err
	}

	user, err := u.findUser(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	return converter.UserToResponse(user), nil
}

func (u *authUsecase) findUser(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	user, err := u.userRepo.FindByID(ctx, id)
	if err != nil {
		u.log.Warnf("Failed to find user by ID: %+v", err)
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}
