package localstore

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// File persists each key as one JSON file inside a directory. This is the
// closest analogue to browser local storage for a CLI or desktop host.
type File struct {
	dir string
	log *slog.Logger
}

func NewFile(dir string, l *slog.Logger) *File {
	if l == nil {
		l = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		l.Warn("localstore_dir_unavailable", "dir", dir, "error", err)
	}
	return &File{dir: dir, log: l}
}

func (f *File) path(key string) string {
	key = strings.ReplaceAll(key, string(os.PathSeparator), "_")
	return filepath.Join(f.dir, key+".json")
}

func (f *File) Get(key string) ([]byte, bool) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		return nil, false
	}
	return data, true
}

func (f *File) Set(key string, data []byte) {
	if err := os.WriteFile(f.path(key), data, 0o644); err != nil {
		f.log.Warn("localstore_write_failed", "key", key, "error", err)
	}
}

func (f *File) Delete(key string) {
	if err := os.Remove(f.path(key)); err != nil && !os.IsNotExist(err) {
		f.log.Warn("localstore_delete_failed", "key", key, "error", err)
	}
}
