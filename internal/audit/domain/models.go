package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ActorType string

const (
	ActorTypeUser   ActorType = "user"
	ActorTypeSystem ActorType = "system"
)

type AuditLog struct {
	ID            snowflake.ID      `gorm:"primaryKey" json:"id"`
	ActorType     string            `gorm:"type:text;not null" json:"actor_type"`
	ActorID       *string           `json:"actor_id,omitempty"`
	Action        string            `gorm:"type:text;not null;index:idx_audit_logs_action" json:"action"`
	TargetType    string            `gorm:"type:text;not null;index:idx_audit_logs_target,priority:1" json:"target_type"`
	TargetID      *string           `gorm:"index:idx_audit_logs_target,priority:2" json:"target_id,omitempty"`
	Metadata      datatypes.JSONMap `json:"metadata,omitempty"`
	CorrelationID *string           `json:"correlation_id,omitempty"`
	CreatedAt     time.Time         `gorm:"not null;index:idx_audit_logs_created_at" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }

type ListFilter struct {
	Action     string
	TargetType string
	TargetID   string
	ActorType  string
	StartAt    *time.Time
	EndAt      *time.Time
	Limit      int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*AuditLog, error)
}
