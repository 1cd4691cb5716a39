package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"pocket-ledger/internal/models"
	"pocket-ledger/internal/util"
)

// FileStore keeps snapshots as encrypted files in a local directory. Used
// when no remote URL is configured (single-machine deployments) and by
// tests; the document semantics are identical to HTTPStore.
type FileStore struct {
	dir        string
	encryptKey string
}

func NewFileStore(dir, encryptKey string) *FileStore {
	return &FileStore{dir: dir, encryptKey: encryptKey}
}

func (s *FileStore) path(userID uint) string {
	return filepath.Join(s.dir, fmt.Sprintf("snapshot-%d.bin", userID))
}

func (s *FileStore) GetSnapshot(_ context.Context, userID uint) (*models.SyncSnapshot, error) {
	data, err := os.ReadFile(s.path(userID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	raw := data
	if s.encryptKey != "" {
		if raw, err = util.DecryptAES(s.encryptKey, data); err != nil {
			return nil, fmt.Errorf("decrypt snapshot: %w", err)
		}
	}

	var snap models.SyncSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

func (s *FileStore) PutSnapshot(_ context.Context, userID uint, snap *models.SyncSnapshot) error {
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

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	if err := os.WriteFile(s.path(userID), payload, 0o600); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}
