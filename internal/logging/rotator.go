package logging

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

// FileRotator is an io.Writer over a log file that rotates by size and by
// calendar day. Rotated files are named "<base>-<timestamp>-<seq><ext>",
// optionally gzipped, and pruned by count and age after each rotation.
type FileRotator struct {
	path       string
	maxBytes   int64
	maxAge     int
	maxBackups int
	compress   bool

	mu     sync.Mutex
	file   *os.File
	size   int64
	opened time.Time
	now    func() time.Time
	seq    int

	// background gzip and prune
	pending sync.WaitGroup
}

// NewFileRotator opens cfg.FilePath for appending, creating its directory.
func NewFileRotator(cfg *Config) (*FileRotator, error) {
	if cfg.FilePath == "" {
		return nil, errors.New("log file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0750); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	r := &FileRotator{
		path:       cfg.FilePath,
		maxBytes:   cfg.MaxSize << 20,
		maxAge:     cfg.MaxAge,
		maxBackups: cfg.MaxBackups,
		compress:   cfg.Compress,
		now:        time.Now,
	}
	if err := r.open(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *FileRotator) open() error {
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat log file: %w", err)
	}
	r.file, r.size, r.opened = f, st.Size(), r.now()
	return nil
}

// stem splits the log path into directory, base name without extension and
// extension.
func (r *FileRotator) stem() (dir, name, ext string) {
	dir, base := filepath.Split(r.path)
	ext = filepath.Ext(base)
	return dir, strings.TrimSuffix(base, ext), ext
}

func (r *FileRotator) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		if err := r.open(); err != nil {
			return 0, err
		}
	}
	if r.due(int64(len(p))) {
		if err := r.rotate(); err != nil {
			return 0, fmt.Errorf("rotate log: %w", err)
		}
	}
	n, err := r.file.Write(p)
	r.size += int64(n)
	return n, err
}

// due reports whether writing n more bytes needs a fresh file. An empty file
// is never rotated.
func (r *FileRotator) due(n int64) bool {
	if r.size == 0 {
		return false
	}
	if r.maxBytes > 0 && r.size+n > r.maxBytes {
		return true
	}
	y1, m1, d1 := r.opened.Date()
	y2, m2, d2 := r.now().Date()
	return y1 != y2 || m1 != m2 || d1 != d2
}

func (r *FileRotator) rotate() error {
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("close current log: %w", err)
	}
	r.file = nil

	dir, name, ext := r.stem()
	r.seq++
	rotated := filepath.Join(dir, fmt.Sprintf("%s-%s-%d%s", name, r.now().Format("20060102-150405"), r.seq, ext))
	if err := os.Rename(r.path, rotated); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("rename log file: %w", err)
	}
	if err := r.open(); err != nil {
		return err
	}

	r.pending.Add(1)
	go func() {
		defer r.pending.Done()
		if r.compress {
			// On failure the plain file stays and is pruned like any other.
			_ = gzipFile(rotated)
		}
		r.prune()
	}()
	return nil
}

// gzipFile replaces path with path.gz.
func gzipFile(path string) (err error) {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(path + ".gz")
			return
		}
		os.Remove(path)
	}()

	gz := gzip.NewWriter(out)
	gz.Name = filepath.Base(path)
	if _, err := io.Copy(gz, in); err != nil {
		gz.Close()
		return err
	}
	return gz.Close()
}

type backup struct {
	path    string
	modTime time.Time
}

// backups lists rotated files, oldest first.
func (r *FileRotator) backups() []backup {
	dir, name, ext := r.stem()
	matches, _ := filepath.Glob(filepath.Join(dir, name+"-*"+ext+"*"))
	out := make([]backup, 0, len(matches))
	for _, m := range matches {
		if st, err := os.Stat(m); err == nil {
			out = append(out, backup{m, st.ModTime()})
		}
	}
	slices.SortFunc(out, func(a, b backup) int { return a.modTime.Compare(b.modTime) })
	return out
}

// prune deletes backups beyond maxBackups and those older than maxAge days.
func (r *FileRotator) prune() {
	old := r.backups()
	if r.maxBackups > 0 && len(old) > r.maxBackups {
		for _, b := range old[:len(old)-r.maxBackups] {
			os.Remove(b.path)
		}
		old = old[len(old)-r.maxBackups:]
	}
	if r.maxAge <= 0 {
		return
	}
	cutoff := r.now().AddDate(0, 0, -r.maxAge)
	for _, b := range old {
		if b.modTime.Before(cutoff) {
			os.Remove(b.path)
		}
	}
}

// Files returns the current log file followed by the rotated ones.
func (r *FileRotator) Files() []string {
	files := []string{r.path}
	for _, b := range r.backups() {
		files = append(files, b.path)
	}
	return files
}

// Close waits for background compression and closes the file.
func (r *FileRotator) Close() error {
	r.pending.Wait()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

func (r *FileRotator) Sync() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	return r.file.Sync()
}
