package models

import "time"

// Student is the only record managed by the service.
type Student struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	FirstName string    `gorm:"size:40;not null" json:"first_name"`
	LastName  string    `gorm:"size:40;not null" json:"last_name"`
	BirthDate time.Time `gorm:"type:date;not null" json:"birth_date"`
	Course    int       `gorm:"not null" json:"course"`
	IsErasmus bool      `gorm:"not null" json:"is_erasmus"`
}

