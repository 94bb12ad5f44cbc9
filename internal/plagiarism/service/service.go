package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/smrs-space/smrs-backend/internal/apperr"
	"github.com/smrs-space/smrs-backend/internal/plagiarism/client"
	"github.com/smrs-space/smrs-backend/internal/plagiarism/repository"
)

// Vendor talks to the scanning provider; *client.Client in production.
type Vendor interface {
	Login(ctx context.Context) (*client.Token, error)
	Submit(ctx context.Context, token, scanID string, body []byte) error
	SubmitURL(ctx context.Context, token, scanID string, body []byte) error
	Start(ctx context.Context, token string, scanIDs []string) ([]byte, error)
	Result(ctx context.Context, token, scanID string) ([]byte, error)
}

// ScanStore caches the vendor token and records webhook callbacks.
type ScanStore interface {
	SaveToken(ctx context.Context, token string, ttl time.Duration) error
	GetToken(ctx context.Context) (string, error)
	SaveScan(ctx context.Context, rec repository.ScanRecord) error
	GetScan(ctx context.Context, scanID string) (*repository.ScanRecord, error)
}

type Service struct {
	vendor      Vendor
	store       ScanStore
	webhookBase string
	sandbox     bool
	log         zerolog.Logger
}

func New(vendor Vendor, store ScanStore, webhookBase string, sandbox bool, log zerolog.Logger) *Service {
	return &Service{
		vendor:      vendor,
		store:       store,
		webhookBase: strings.TrimRight(webhookBase, "/"),
		sandbox:     sandbox,
		log:         log,
	}
}

// Token returns a valid vendor access token, logging in and caching the new
// token when the cached one expired. The cache TTL shaves a safety margin off
// the vendor expiry so a token is never used right at its edge.
func (s *Service) Token(ctx context.Context) (string, error) {
	token, err := s.store.GetToken(ctx)
	if err == nil {
		return token, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return "", err
	}
	return s.RefreshToken(ctx)
}

func (s *Service) RefreshToken(ctx context.Context) (string, error) {
	tok, err := s.vendor.Login(ctx)
	if err != nil {
		return "", fmt.Errorf("vendor login: %w", err)
	}

	ttl := time.Duration(tok.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if ttl > 10*time.Minute {
		ttl -= 5 * time.Minute
	}

	if err := s.store.SaveToken(ctx, tok.AccessToken, ttl); err != nil {
		return "", err
	}

	s.log.Info().Dur("ttl", ttl).Msg("vendor token refreshed")
	return tok.AccessToken, nil
}

// Submit forwards a scan submission, forcing the sandbox flag and the status
// webhook URL into the request properties. URL submissions must name a
// filename or the vendor rejects them downstream, so that is checked here.
func (s *Service) Submit(ctx context.Context, scanID string, body []byte) error {
	var req map[string]interface{}
	if err := json.Unmarshal(body, &req); err != nil {
		return apperr.InvalidState("submission body is not valid JSON")
	}

	isURL := false
	if _, ok := req["url"]; ok {
		isURL = true
		if name, _ := req["filename"].(string); strings.TrimSpace(name) == "" {
			return apperr.InvalidState("filename is required for url submissions")
		}
	}

	props, _ := req["properties"].(map[string]interface{})
	if props == nil {
		props = map[string]interface{}{}
	}
	props["sandbox"] = s.sandbox

	webhooks, _ := props["webhooks"].(map[string]interface{})
	if webhooks == nil {
		webhooks = map[string]interface{}{}
	}
	webhooks["status"] = fmt.Sprintf("%s/api/plagiarism/webhook/status/{STATUS}/%s", s.webhookBase, scanID)
	props["webhooks"] = webhooks
	req["properties"] = props

	out, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal submission: %w", err)
	}

	token, err := s.Token(ctx)
	if err != nil {
		return err
	}

	if isURL {
		err = s.vendor.SubmitURL(ctx, token, scanID, out)
	} else {
		err = s.vendor.Submit(ctx, token, scanID, out)
	}
	if err != nil {
		return err
	}

	rec := repository.ScanRecord{ScanID: scanID, Status: "submitted"}
	if err := s.store.SaveScan(ctx, rec); err != nil {
		return err
	}

	s.log.Info().Str("scan_id", scanID).Bool("url_submission", isURL).Msg("scan submitted")
	return nil
}

func (s *Service) Start(ctx context.Context, scanID string) ([]byte, error) {
	token, err := s.Token(ctx)
	if err != nil {
		return nil, err
	}
	return s.vendor.Start(ctx, token, []string{scanID})
}

func (s *Service) Result(ctx context.Context, scanID string) ([]byte, error) {
	token, err := s.Token(ctx)
	if err != nil {
		return nil, err
	}
	return s.vendor.Result(ctx, token, scanID)
}

// Webhook records a vendor status callback.
func (s *Service) Webhook(ctx context.Context, status, scanID string, payload []byte) error {
	rec := repository.ScanRecord{
		ScanID:  scanID,
		Status:  strings.ToLower(status),
		Payload: json.RawMessage(payload),
	}
	if err := s.store.SaveScan(ctx, rec); err != nil {
		return err
	}

	s.log.Info().Str("scan_id", scanID).Str("status", rec.Status).Msg("scan status recorded")
	return nil
}

func (s *Service) Scan(ctx context.Context, scanID string) (*repository.ScanRecord, error) {
	return s.store.GetScan(ctx, scanID)
}
