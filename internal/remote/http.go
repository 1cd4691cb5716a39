package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"pocket-ledger/internal/models"
	"pocket-ledger/internal/util"
)

// HTTPStore talks to the cloud document service. Each user owns a single
// snapshot document at /v1/users/{id}/snapshot, replaced atomically on
// every put. Payloads are AES-256-GCM encrypted end to end; the service
// only ever sees ciphertext.
//
// No timeout beyond the configured client timeout and no retries: the
// caller owns retry policy.
type HTTPStore struct {
	baseURL    string
	jwtSecret  string
	encryptKey string
	client     *http.Client
}

func NewHTTPStore(baseURL, jwtSecret, encryptKey string, timeout time.Duration) *HTTPStore {
	return &HTTPStore{
		baseURL:    baseURL,
		jwtSecret:  jwtSecret,
		encryptKey: encryptKey,
		client:     &http.Client{Timeout: timeout},
	}
}

func (s *HTTPStore) snapshotURL(userID uint) string {
	return fmt.Sprintf("%s/v1/users/%d/snapshot", s.baseURL, userID)
}

func (s *HTTPStore) GetSnapshot(ctx context.Context, userID uint) (*models.SyncSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.snapshotURL(userID), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if err := s.authorize(req, userID); err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get snapshot: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read snapshot body: %w", err)
	}
	raw := body
	if s.encryptKey != "" {
		if raw, err = util.DecryptAES(s.encryptKey, body); err != nil {
			return nil, fmt.Errorf("decrypt snapshot: %w", err)
		}
	}

	var snap models.SyncSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

func (s *HTTPStore) PutSnapshot(ctx context.Context, userID uint, snap *models.SyncSnapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	payload := raw
	if s.encryptKey != "" {
		if payload, err = util.EncryptAES(s.encryptKey, raw); err != nil {
			return fmt.Errorf("encrypt snapshot: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.snapshotURL(userID), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	if err := s.authorize(req, userID); err != nil {
		return err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("put snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("put snapshot: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// authorize attaches a short-lived bearer token for the given user.
func (s *HTTPStore) authorize(req *http.Request, userID uint) error {
	token, err := util.GenerateToken(s.jwtSecret, userID, 5*time.Minute)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}
