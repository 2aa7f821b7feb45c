package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	appctx "kasir/internal/core/context"
	"kasir/internal/core/id"
	"kasir/internal/domain/mutation"
)

// CompressionAlgo specifies the compression algorithm used for a payload.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// AuditEntry represents a single ledger audit log entry.
type AuditEntry struct {
	ID                id.ID           `db:"id"`
	Action            string          `db:"action"`
	EntityID          id.ID           `db:"entity_id"`
	UserID            string          `db:"user_id"`
	Changes           json.RawMessage `db:"changes"`
	ChangesCompressed []byte          `db:"changes_compressed"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo"`
	CreatedAt         time.Time       `db:"created_at"`
}

// AuditService writes the mutation audit trail. Large change payloads are
// zstd-compressed before storage.
type AuditService struct {
	txm               *TxManager
	encoder           *zstd.Encoder
	compressThreshold int // bytes
}

// NewAuditService creates a new audit service.
func NewAuditService(txm *TxManager) (*AuditService, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	return &AuditService{
		txm:               txm,
		encoder:           encoder,
		compressThreshold: 10 * 1024,
	}, nil
}

// Record implements mutation.Auditor. It runs inside the mutation's
// transaction, so audit entries roll back together with the mutation.
func (s *AuditService) Record(ctx context.Context, action string, entityID id.ID, changes map[string]any) error {
	payload, err := json.Marshal(changes)
	if err != nil {
		return fmt.Errorf("marshal changes: %w", err)
	}

	entry := AuditEntry{
		ID:              id.New(),
		Action:          action,
		EntityID:        entityID,
		UserID:          appctx.GetUserID(ctx),
		Changes:         payload,
		CompressionAlgo: CompressionNone,
		CreatedAt:       time.Now().UTC(),
	}

	if len(entry.Changes) > s.compressThreshold {
		entry.ChangesCompressed = s.encoder.EncodeAll(entry.Changes, nil)
		entry.Changes = nil
		entry.CompressionAlgo = CompressionZstd
	}

	sql := `
		INSERT INTO sys_audit (
			id, action, entity_id, user_id,
			changes, changes_compressed, compression_algo, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	querier := s.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql,
		entry.ID, entry.Action, entry.EntityID, entry.UserID,
		entry.Changes, entry.ChangesCompressed, entry.CompressionAlgo, entry.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}

	return nil
}

// Ensure interface compliance.
var _ mutation.Auditor = (*AuditService)(nil)
