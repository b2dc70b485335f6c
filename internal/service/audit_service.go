package service

import (
	"context"

	"github.com/minervamed/clinic-scheduler/internal/domain/entity"
	"github.com/minervamed/clinic-scheduler/internal/domain/repository"
	"github.com/minervamed/clinic-scheduler/pkg/metrics"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AuditService writes audit rows after the audited change has been made.
// A failed write is logged and counted but never undoes the change.
type AuditService interface {
	LogCreate(ctx context.Context, userID *uuid.UUID, action string, entityName string, entityID string, newValue interface{}) error
	LogUpdate(ctx context.Context, userID *uuid.UUID, action string, entityName string, entityID string, oldValue, newValue interface{}) error
	LogDelete(ctx context.Context, userID *uuid.UUID, action string, entityName string, entityID string, oldValue interface{}) error
}

type auditService struct {
	log       *logrus.Logger
	auditRepo repository.AuditLogRepository
	metrics   *metrics.Collector
}

func NewAuditService(log *logrus.Logger, auditRepo repository.AuditLogRepository, m *metrics.Collector) AuditService {
	return &auditService{
		log:       log,
		auditRepo: auditRepo,
		metrics:   m,
	}
}

func (s *auditService) LogCreate(ctx context.Context, userID *uuid.UUID, action string, entityName string, entityID string, newValue interface{}) error {
	return s.write(ctx, userID, action, entityName, entityID, nil, newValue)
}

func (s *auditService) LogUpdate(ctx context.Context, userID *uuid.UUID, action string, entityName string, entityID string, oldValue, newValue interface{}) error {
	return s.write(ctx, userID, action, entityName, entityID, oldValue, newValue)
}

func (s *auditService) LogDelete(ctx context.Context, userID *uuid.UUID, action string, entityName string, entityID string, oldValue interface{}) error {
	return s.write(ctx, userID, action, entityName, entityID, oldValue, nil)
}

func (s *auditService) write(ctx context.Context, userID *uuid.UUID, action, entityName, entityID string, oldValue, newValue interface{}) error {
	auditLog := &entity.AuditLog{
		UserID: userID,
		Action: action,
		Metadata: entity.JSON{
			"entity":    entityName,
			"entity_id": entityID,
			"old_value": oldValue,
			"new_value": newValue,
		},
	}

	if err := s.auditRepo.Create(ctx, auditLog); err != nil {
		s.metrics.AuditFailuresTotal.Inc()
		s.log.WithFields(logrus.Fields{
			"action":    action,
			"entity_id": entityID,
		}).Warnf("Failed to create audit log: %+v", err)
		return err
	}

	s.metrics.AuditEntriesTotal.Inc()
	return nil
}
