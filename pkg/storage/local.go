package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LocalArchive implements Archive on the local filesystem:
// <base>/<account>/<short-id>_<name> plus <base>/<account>/.meta/<id>.json.
type LocalArchive struct {
	basePath string
	now      func() time.Time
}

var _ Archive = (*LocalArchive)(nil)

// NewLocalArchive creates the base directory if needed.
func NewLocalArchive(basePath string) (*LocalArchive, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &LocalArchive{basePath: basePath, now: time.Now}, nil
}

func (s *LocalArchive) Store(ctx context.Context, info StatementInfo, r io.Reader) (*StatementInfo, error) {
	if info.AccountID == "" {
		return nil, errors.New("account id is required")
	}
	info.ID = uuid.New()

	accountDir := s.accountDir(info.AccountID)
	if err := os.MkdirAll(accountDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create account directory: %w", err)
	}

	storedFilename := fmt.Sprintf("%s_%s", info.ID.String()[:8], sanitizeFilename(info.Name))
	filePath := filepath.Join(accountDir, storedFilename)

	f, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	hash := sha256.New()
	size, err := io.Copy(io.MultiWriter(f, hash), r)
	if err != nil {
		os.Remove(filePath)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	info.Size = size
	info.Checksum = hex.EncodeToString(hash.Sum(nil))
	info.Path = storedFilename
	info.CreatedAt = s.now().UTC()

	if err := s.saveMetadata(&info); err != nil {
		os.Remove(filePath)
		return nil, err
	}
	return &info, nil
}

func (s *LocalArchive) Open(ctx context.Context, accountID string, id uuid.UUID) (io.ReadCloser, *StatementInfo, error) {
	info, err := s.GetInfo(ctx, accountID, id)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(filepath.Join(s.accountDir(accountID), info.Path))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, info, nil
}

func (s *LocalArchive) GetInfo(ctx context.Context, accountID string, id uuid.UUID) (*StatementInfo, error) {
	data, err := os.ReadFile(s.metaPath(accountID, id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var info StatementInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}
	return &info, nil
}

func (s *LocalArchive) List(ctx context.Context, accountID string) ([]*StatementInfo, error) {
	metaDir := filepath.Join(s.accountDir(accountID), ".meta")
	entries, err := os.ReadDir(metaDir)
	if os.IsNotExist(err) {
		return []*StatementInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list metadata: %w", err)
	}

	files := make([]*StatementInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id, err := uuid.Parse(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}
		info, err := s.GetInfo(ctx, accountID, id)
		if err != nil {
			continue
		}
		files = append(files, info)
	}

	sort.SliceStable(files, func(i, j int) bool { return files[i].CreatedAt.Before(files[j].CreatedAt) })
	return files, nil
}

func (s *LocalArchive) FindByChecksum(ctx context.Context, accountID, checksum string) (*StatementInfo, error) {
	files, err := s.List(ctx, accountID)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if f.Checksum == checksum {
			return f, nil
		}
	}
	return nil, ErrNotFound
}

func (s *LocalArchive) Delete(ctx context.Context, accountID string, id uuid.UUID) error {
	info, err := s.GetInfo(ctx, accountID, id)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(s.accountDir(accountID), info.Path)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	if err := os.Remove(s.metaPath(accountID, id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete metadata: %w", err)
	}
	return nil
}

// Checksum returns the hex sha256 used to recognize re-imported files.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (s *LocalArchive) accountDir(accountID string) string {
	return filepath.Join(s.basePath, sanitizeFilename(accountID))
}

func (s *LocalArchive) metaPath(accountID string, id uuid.UUID) string {
	return filepath.Join(s.accountDir(accountID), ".meta", id.String()+".json")
}

func (s *LocalArchive) saveMetadata(info *StatementInfo) error {
	metaDir := filepath.Join(s.accountDir(info.AccountID), ".meta")
	if err := os.MkdirAll(metaDir, 0755); err != nil {
		return fmt.Errorf("failed to create metadata directory: %w", err)
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(s.metaPath(info.AccountID, info.ID), data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

// sanitizeFilename removes unsafe characters from filenames
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		"..", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	return replacer.Replace(name)
}
