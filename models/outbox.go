package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/siamcraft/mfginv_backend/config"
	"github.com/siamcraft/mfginv_backend/utils"
	"gorm.io/gorm"
)

// FinancialPostingRecord implements a transactional outbox for the external
// financial-transaction sink: the row is written inside the caller's DB
// transaction, and publishing happens asynchronously after commit via the
// outbox dispatcher.
type FinancialPostingRecord struct {
	ID            int                    `gorm:"primary_key;index:idx_posting_dispatch,priority:3" json:"id"`
	BusinessId    string                 `gorm:"size:64;not null;index" json:"business_id"`
	PostedAt      time.Time              `gorm:"index;not null" json:"posted_at"`
	ReferenceId   int                    `json:"reference_id"`
	ReferenceType FinancialReferenceType `gorm:"type:enum('SL')" json:"reference_type"`
	Payload       []byte                 `gorm:"type:blob" json:"payload"`

	// publish happens after commit via dispatcher
	PublishStatus    string     `gorm:"size:20;index;not null;default:'PENDING';index:idx_posting_dispatch,priority:1" json:"publish_status"`
	PublishedAt      *time.Time `gorm:"index" json:"published_at"`
	PubSubMessageId  *string    `gorm:"size:255" json:"pubsub_message_id"`
	PublishAttempts  int        `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt    *time.Time `gorm:"index;index:idx_posting_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt         *time.Time `gorm:"index" json:"locked_at"`
	LockedBy         *string    `gorm:"size:100" json:"locked_by"`
	LastPublishError *string    `gorm:"type:text" json:"last_publish_error"`

	CorrelationId string    `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// WriteFinancialPosting records the posting inside the caller's transaction.
// It does NOT publish; the dispatcher picks the row up after commit.
func WriteFinancialPosting(ctx context.Context, tx *gorm.DB, businessId string, postedAt time.Time, refId int, refType FinancialReferenceType, payload interface{}) error {
	payloadInByte, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	record := FinancialPostingRecord{
		BusinessId:    businessId,
		PostedAt:      postedAt,
		ReferenceId:   refId,
		ReferenceType: refType,
		Payload:       payloadInByte,
		PublishStatus: OutboxPublishStatusPending,
		CorrelationId: correlationIdFromContextOrNew(ctx),
	}
	return tx.Create(&record).Error
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}

func ConvertToPostingMessage(record FinancialPostingRecord) config.FinancialPostingMessage {
	return config.FinancialPostingMessage{
		ID:            record.ID,
		BusinessId:    record.BusinessId,
		PostedAt:      record.PostedAt,
		ReferenceId:   record.ReferenceId,
		ReferenceType: string(record.ReferenceType),
		Payload:       record.Payload,
		CorrelationId: record.CorrelationId,
	}
}
