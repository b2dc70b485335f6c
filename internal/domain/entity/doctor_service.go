package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DoctorService is one priced entry in a doctor's list of services.
// Position orders the list as the doctor entered it, starting at 1.
type DoctorService struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	DoctorID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"doctor_id"`
	Name      string          `gorm:"type:varchar(255);not null" json:"name"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Position  int             `gorm:"column:slot_number;not null" json:"slot_number"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (DoctorService) TableName() string {
	return "doc_services"
}
