package credential

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"megumi/internal/adapters/file"
	"megumi/internal/core/domain"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

const credsFile = "creds.json"

// FileStore keeps the auth state of one session as a directory of JSON files: creds.json for the
// credentials and one file per key material entry.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

type keyEntry struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

func (s *FileStore) Load(_ context.Context) (domain.AuthState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := domain.AuthState{Keys: make(map[string]json.RawMessage)}

	buf, err := file.ReadFile(filepath.Join(s.dir, credsFile))
	if err != nil {
		return domain.AuthState{}, fmt.Errorf("failed to read credentials: %w", err)
	}

	if buf != nil {
		if err := json.Unmarshal(buf, &state.Credentials); err != nil {
			return domain.AuthState{}, fmt.Errorf("failed to decode credentials: %w", err)
		}
	}

	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		log.Info().Str("dir", s.dir).Msg("no stored session, starting fresh")
		return state, nil
	}
	if err != nil {
		return domain.AuthState{}, fmt.Errorf("failed to list session directory: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == credsFile || !strings.HasSuffix(name, ".json") {
			continue
		}

		buf, err := file.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			return domain.AuthState{}, fmt.Errorf("failed to read key %s: %w", name, err)
		}

		var ke keyEntry
		if err := json.Unmarshal(buf, &ke); err != nil {
			log.Warn().Err(err).Str("file", name).Msg("skipping unreadable key file")
			continue
		}

		if isDeleted(ke.Value) {
			file.RemoveFile(filepath.Join(s.dir, name))
			continue
		}

		state.Keys[ke.Key] = ke.Value
	}

	log.Debug().Bool("registered", state.Credentials.Registered).Int("keys", len(state.Keys)).
		Msg("loaded session")

	return state, nil
}

// Save writes the credentials and changed keys. Entries with a nil or JSON null value are removed.
func (s *FileStore) Save(_ context.Context, update domain.CredentialsUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf, err := json.Marshal(update.Credentials)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	if err := file.WriteFileAtomic(filepath.Join(s.dir, credsFile), buf); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}

	for key, value := range update.Keys {
		path := filepath.Join(s.dir, keyFileName(key))

		if isDeleted(value) {
			file.RemoveFile(path)
			continue
		}

		buf, err := json.Marshal(keyEntry{Key: key, Value: value})
		if err != nil {
			return fmt.Errorf("failed to encode key %s: %w", key, err)
		}

		if err := file.WriteFileAtomic(path, buf); err != nil {
			return fmt.Errorf("failed to write key %s: %w", key, err)
		}
	}

	return nil
}

// isDeleted reports whether a key material value marks the entry as deleted.
func isDeleted(value json.RawMessage) bool {
	trimmed := bytes.TrimSpace(value)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func keyFileName(key string) string {
	r := strings.NewReplacer("/", "__", ":", "-", "\\", "__")
	return r.Replace(key) + ".json"
}
