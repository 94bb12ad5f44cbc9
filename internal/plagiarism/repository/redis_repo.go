package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smrs-space/smrs-backend/internal/apperr"
)

const (
	tokenKey       = "plagiarism:token"
	scanKeyPrefix  = "plagiarism:scan:"
	defaultScanTTL = 7 * 24 * time.Hour
)

// ScanRecord is what the webhook persists per scan: the latest reported
// status plus the raw vendor payload for later inspection.
type ScanRecord struct {
	ScanID    string          `json:"scan_id"`
	Status    string          `json:"status"`
	Payload   json.RawMessage `json:"payload"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Repo stores the cached vendor token and per-scan webhook state in Redis.
type Repo struct {
	rdb     *redis.Client
	scanTTL time.Duration
}

func New(rdb *redis.Client) *Repo {
	return &Repo{rdb: rdb, scanTTL: defaultScanTTL}
}

func (r *Repo) SaveToken(ctx context.Context, token string, ttl time.Duration) error {
	if err := r.rdb.Set(ctx, tokenKey, token, ttl).Err(); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// GetToken returns the cached token, or NotFound once it expired.
func (r *Repo) GetToken(ctx context.Context) (string, error) {
	token, err := r.rdb.Get(ctx, tokenKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", apperr.NotFound("no cached token")
		}
		return "", fmt.Errorf("get token: %w", err)
	}
	return token, nil
}

func (r *Repo) SaveScan(ctx context.Context, rec ScanRecord) error {
	rec.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal scan record: %w", err)
	}
	if err := r.rdb.Set(ctx, scanKeyPrefix+rec.ScanID, data, r.scanTTL).Err(); err != nil {
		return fmt.Errorf("save scan record: %w", err)
	}
	return nil
}

func (r *Repo) GetScan(ctx context.Context, scanID string) (*ScanRecord, error) {
	data, err := r.rdb.Get(ctx, scanKeyPrefix+scanID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperr.NotFound("scan not found")
		}
		return nil, fmt.Errorf("get scan record: %w", err)
	}

	var rec ScanRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal scan record: %w", err)
	}
	return &rec, nil
}
