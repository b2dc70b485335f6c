package entity

import (
	"strings"
	"time"
)

// Office is the practice a doctor works from. Several doctors can share one
// office by registering with the same office code.
type Office struct {
	Code      string    `gorm:"column:office_id;type:varchar(50);primaryKey" json:"office_id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	County    string    `gorm:"type:varchar(100)" json:"county"`
	City      string    `gorm:"type:varchar(100)" json:"city"`
	Address   string    `gorm:"type:text" json:"address"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Office) TableName() string {
	return "doc_offices"
}

// SameDetails compares the descriptive fields, ignoring surrounding whitespace.
func (o *Office) SameDetails(other *Office) bool {
	return strings.TrimSpace(o.Name) == strings.TrimSpace(other.Name) &&
		strings.TrimSpace(o.County) == strings.TrimSpace(other.County) &&
		strings.TrimSpace(o.City) == strings.TrimSpace(other.City) &&
		strings.TrimSpace(o.Address) == strings.TrimSpace(other.Address)
}
