package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/renameio/v2"
	"go.uber.org/zap"

	"github.com/ykvlv/duty-bot/internal/domain"
)

const todaySuffix = "_today.json"

// FileStore keeps schedules and statistics as JSON files, one per chat and kind.
// There is no locking: concurrent writers race and the last one wins.
type FileStore struct {
	schedulesDir string
	statsDir     string
	cal          *domain.Calendar
	log          *zap.Logger
}

// OpenFiles prepares <dir>/schedules and <dir>/stats.
func OpenFiles(dir string, cal *domain.Calendar, log *zap.Logger) (*FileStore, error) {
	f := &FileStore{
		schedulesDir: filepath.Join(dir, "schedules"),
		statsDir:     filepath.Join(dir, "stats"),
		cal:          cal,
		log:          log,
	}
	for _, d := range []string{f.schedulesDir, f.statsDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (f *FileStore) schedulePath(chatID int64, kind domain.Kind) string {
	return filepath.Join(f.schedulesDir, fmt.Sprintf("%d_%s.json", chatID, kind))
}

func (f *FileStore) statsPath(chatID int64) string {
	return filepath.Join(f.statsDir, fmt.Sprintf("%d.json", chatID))
}

// LoadSchedule returns the stored document verbatim. A missing document is
// initialized from the matching template and written out immediately.
func (f *FileStore) LoadSchedule(ctx context.Context, chatID int64, kind domain.Kind) (domain.Schedule, error) {
	path := f.schedulePath(chatID, kind)
	var s domain.Schedule
	found, err := readJSON(path, &s)
	if err != nil {
		return nil, fmt.Errorf("load %s schedule of chat %d: %w", kind, chatID, err)
	}
	if found {
		if s == nil {
			s = make(domain.Schedule)
		}
		return s, nil
	}

	s = f.cal.TemplateFor(kind)
	if err := f.SaveSchedule(ctx, chatID, kind, s); err != nil {
		f.log.Warn("initial schedule not persisted", zap.Int64("chat_id", chatID), zap.String("kind", string(kind)))
	}
	return s, nil
}

// HasSchedule reports whether a document was ever persisted, without creating one.
func (f *FileStore) HasSchedule(_ context.Context, chatID int64, kind domain.Kind) (bool, error) {
	_, err := os.Stat(f.schedulePath(chatID, kind))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// SaveSchedule writes the document with the midnight slot last. Failures are
// logged here; callers may ignore the returned error and carry on.
func (f *FileStore) SaveSchedule(_ context.Context, chatID int64, kind domain.Kind, s domain.Schedule) error {
	path := f.schedulePath(chatID, kind)
	if err := writeJSON(path, s); err != nil {
		f.log.Error("save schedule failed", zap.Error(err), zap.String("path", path))
		return err
	}
	f.log.Debug("schedule saved", zap.String("path", path))
	return nil
}

// ListChats returns every chat that has a today document.
func (f *FileStore) ListChats(_ context.Context) ([]int64, error) {
	entries, err := os.ReadDir(f.schedulesDir)
	if err != nil {
		return nil, err
	}
	var chats []int64
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, todaySuffix) {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSuffix(name, todaySuffix), 10, 64)
		if err != nil {
			f.log.Warn("skip unexpected schedule file", zap.String("name", name))
			continue
		}
		chats = append(chats, id)
	}
	return chats, nil
}

// LoadStats returns the chat's statistics, empty when none were saved yet.
func (f *FileStore) LoadStats(_ context.Context, chatID int64) (domain.Stats, error) {
	s := make(domain.Stats)
	if _, err := readJSON(f.statsPath(chatID), &s); err != nil {
		return nil, fmt.Errorf("load stats of chat %d: %w", chatID, err)
	}
	if s == nil {
		s = make(domain.Stats)
	}
	return s, nil
}

// SaveStats writes the chat's statistics.
func (f *FileStore) SaveStats(_ context.Context, chatID int64, s domain.Stats) error {
	path := f.statsPath(chatID)
	if err := writeJSON(path, s); err != nil {
		f.log.Error("save stats failed", zap.Error(err), zap.String("path", path))
		return err
	}
	return nil
}

// readJSON decodes path into v; found is false when the file does not exist.
func readJSON(path string, v any) (found bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return true, err
	}
	return true, nil
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}
	return renameio.WriteFile(path, append(b, '\n'), 0o644)
}
