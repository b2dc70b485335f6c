package entity

import "github.com/google/uuid"

// DoctorProfile represents doctor-specific profile data
type DoctorProfile struct {
	UserID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	Specialization string    `gorm:"type:varchar(100);not null;index" json:"specialization"`
	OfficeCode     string    `gorm:"column:office_id;type:varchar(50);not null;index" json:"office_id"`
	Biography      string    `gorm:"type:text" json:"biography,omitempty"`

	// Relationships
	User     User            `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Office   Office          `gorm:"foreignKey:OfficeCode;references:Code" json:"office,omitempty"`
	Services []DoctorService `gorm:"foreignKey:DoctorID" json:"services,omitempty"`
}

func (DoctorProfile) TableName() string {
	return "doctor_profiles"
}
