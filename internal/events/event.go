package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/purchasing/internal/clock"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	PaymentCreated = "payment.created"
	PaymentUpdated = "payment.updated"
	PaymentDeleted = "payment.deleted"
)

var (
	ErrInvalidEventType = errors.New("invalid_event_type")
	ErrInvalidDedupeKey = errors.New("invalid_dedupe_key")
)

// Event is a lifecycle fact recorded in the outbox.
type Event struct {
	Type      string
	Payload   map[string]any
	DedupeKey string
}

// Record is the persisted outbox row.
type Record struct {
	ID          snowflake.ID   `gorm:"primaryKey"`
	EventType   string         `gorm:"column:event_type;not null"`
	Payload     datatypes.JSON `gorm:"column:payload;not null"`
	DedupeKey   string         `gorm:"column:dedupe_key;not null;uniqueIndex:ux_outbox_events_dedupe_key"`
	Published   bool           `gorm:"column:published;not null;default:false;index:idx_outbox_events_pending,priority:1"`
	Attempts    int            `gorm:"column:attempts;not null;default:0"`
	LastError   string         `gorm:"column:last_error;not null;default:''"`
	CreatedAt   time.Time      `gorm:"column:created_at;not null;index:idx_outbox_events_pending,priority:2"`
	PublishedAt *time.Time     `gorm:"column:published_at"`
}

func (Record) TableName() string { return "outbox_events" }

// Envelope is what handlers receive.
type Envelope struct {
	ID        snowflake.ID
	Type      string
	Payload   json.RawMessage
	CreatedAt time.Time
}

// Decode unmarshals the payload into v.
func (e Envelope) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// Outbox writes events in the caller's transaction.
type Outbox struct {
	genID *snowflake.Node
	clock clock.Clock
}

func NewOutbox(genID *snowflake.Node, clk clock.Clock) *Outbox {
	return &Outbox{genID: genID, clock: clk}
}

// PublishTx inserts evt using tx. A repeated dedupe key is ignored.
func (o *Outbox) PublishTx(ctx context.Context, tx *gorm.DB, evt Event) error {
	eventType := strings.TrimSpace(evt.Type)
	if eventType == "" {
		return ErrInvalidEventType
	}
	dedupeKey := strings.TrimSpace(evt.DedupeKey)
	if dedupeKey == "" {
		return ErrInvalidDedupeKey
	}

	payload := evt.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	record := Record{
		ID:        o.genID.Generate(),
		EventType: eventType,
		Payload:   datatypes.JSON(raw),
		DedupeKey: dedupeKey,
		CreatedAt: o.clock.Now(),
	}
	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "dedupe_key"}},
			DoNothing: true,
		}).
		Create(&record).Error
}
