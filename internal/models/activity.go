package models

import (
	"time"

	"gorm.io/datatypes"
)

// Audit actions recorded for student writes.
const (
	ActionStudentCreated = "student.created"
	ActionStudentUpdated = "student.updated"
	ActionStudentDeleted = "student.deleted"

	EntityStudent = "student"
)

// ActivityLog is an audit trail entry for a write against a student.
type ActivityLog struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	ActorID    uint              `gorm:"not null;default:0" json:"actor_id"`
	ActorRole  string            `gorm:"size:32;not null" json:"actor_role"`
	Action     string            `gorm:"size:64;not null;index" json:"action"`
	EntityType string            `gorm:"size:64;not null;index:idx_activity_entity" json:"entity_type"`
	EntityID   uint              `gorm:"not null;index:idx_activity_entity" json:"entity_id"`
	Metadata   datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt  time.Time         `json:"created_at"`
}
