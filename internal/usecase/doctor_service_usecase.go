package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/minervamed/clinic-scheduler/internal/converter"
	"github.com/minervamed/clinic-scheduler/internal/delivery/dto"
	"github.com/minervamed/clinic-scheduler/internal/domain/apperror"
	"github.com/minervamed/clinic-scheduler/internal/domain/entity"
	"github.com/minervamed/clinic-scheduler/internal/domain/repository"
	"github.com/minervamed/clinic-scheduler/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const auditEntityServices = "doctor_services"

type DoctorServiceUsecase interface {
	GetServices(ctx context.Context, doctorID string) (*dto.ServiceListResponse, error)
	GetMyServices(ctx context.Context) (*dto.ServiceListResponse, error)
	SaveServices(ctx context.Context, req *dto.SaveServicesRequest) (*dto.ServiceListResponse, error)
}

type doctorServiceUsecase struct {
	log         *logrus.Logger
	txManager   repository.TxManager
	serviceRepo repository.DoctorServiceRepository
	audit       service.AuditService
}

func NewDoctorServiceUsecase(
	log *logrus.Logger,
	txManager repository.TxManager,
	serviceRepo repository.DoctorServiceRepository,
	audit service.AuditService,
) DoctorServiceUsecase {
	return &doctorServiceUsecase{
		log:         log,
		txManager:   txManager,
		serviceRepo: serviceRepo,
		audit:       audit,
	}
}

func (u *doctorServiceUsecase) GetServices(ctx context.Context, doctorID string) (*dto.ServiceListResponse, error) {
	id, err := uuid.Parse(doctorID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid doctor id", apperror.ErrValidation)
	}
	return u.list(ctx, id)
}

func (u *doctorServiceUsecase) GetMyServices(ctx context.Context) (*dto.ServiceListResponse, error) {
	actor, err := currentActor(ctx)
	if err != nil {
		return nil, err
	}
	if !actor.IsDoctor() {
		return nil, fmt.Errorf("%w: only doctors have a price list", apperror.ErrForbidden)
	}
	return u.list(ctx, actor.ID)
}

func (u *doctorServiceUsecase) list(ctx context.Context, doctorID uuid.UUID) (*dto.ServiceListResponse, error) {
	services, err := u.serviceRepo.FindByDoctor(ctx, doctorID)
	if err != nil {
		u.log.Warnf("Failed to find services for doctor %s: %+v", doctorID, err)
		return nil, err
	}
	return converter.ServicesToResponse(doctorID, services), nil
}

// SaveServices replaces the whole price list. Rows with neither a name nor a
// price are dropped, a missing price means free, and positions follow the
// order of the kept rows.
func (u *doctorServiceUsecase) SaveServices(ctx context.Context, req *dto.SaveServicesRequest) (*dto.ServiceListResponse, error) {
	actor, err := currentActor(ctx)
	if err != nil {
		return nil, err
	}
	if !actor.IsDoctor() {
		return nil, fmt.Errorf("%w: only doctors have a price list", apperror.ErrForbidden)
	}

	services, err := parseServices(actor.ID, req.Services)
	if err != nil {
		return nil, err
	}

	err = u.txManager.WithinTransaction(ctx, func(tx *gorm.DB) error {
		return u.serviceRepo.ReplaceAll(ctx, tx, actor.ID, services)
	})
	if err != nil {
		u.log.Warnf("Failed to save services for doctor %s: %+v", actor.ID, err)
		return nil, err
	}

	resp := converter.ServicesToResponse(actor.ID, services)
	_ = u.audit.LogUpdate(ctx, &actor.ID, entity.AuditActionServicesUpdate, auditEntityServices, actor.ID.String(), nil, map[string]interface{}{
		"count": len(services),
		"total": resp.Total.StringFixed(2),
	})
	return resp, nil
}

func parseServices(doctorID uuid.UUID, items []dto.ServiceItemRequest) ([]entity.DoctorService, error) {
	services := make([]entity.DoctorService, 0, len(items))
	for i, item := range items {
		name := strings.TrimSpace(item.Name)
		rawPrice := strings.TrimSpace(item.Price)
		if name == "" && rawPrice == "" {
			continue
		}
		if name == "" {
			return nil, fmt.Errorf("%w: service %d has a price but no name", apperror.ErrValidation, i+1)
		}

		price := decimal.Zero
		if rawPrice != "" {
			p, err := decimal.NewFromString(rawPrice)
			if err != nil {
				return nil, fmt.Errorf("%w: service %q has an invalid price %q", apperror.ErrValidation, name, rawPrice)
			}
			if p.IsNegative() {
				return nil, fmt.Errorf("%w: service %q has a negative price", apperror.ErrValidation, name)
			}
			price = p.Round(2)
		}

		services = append(services, entity.DoctorService{
			ID:       uuid.New(),
			DoctorID: doctorID,
			Name:     name,
			Price:    price,
			Position: len(services) + 1,
		})
	}
	return services, nil
}
