package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// SequentialRotator is an io.Writer that rotates the target file once it
// exceeds maxSize, renaming the full file to <base>.<seq>.log with an
// increasing sequence number. Old backups are pruned by count and by age.
type SequentialRotator struct {
	filename   string
	maxSize    int64 // bytes
	maxAge     int   // days, 0 disables age-based pruning
	maxBackups int   // 0 disables count-based pruning

	mu   sync.Mutex
	file *os.File
	size int64
}

// NewSequentialRotator creates a rotator for filename. maxSizeMB is the
// rotation threshold in megabytes.
func NewSequentialRotator(filename string, maxSizeMB, maxAge, maxBackups int) *SequentialRotator {
	return &SequentialRotator{
		filename:   filename,
		maxSize:    int64(maxSizeMB) * 1024 * 1024,
		maxAge:     maxAge,
		maxBackups: maxBackups,
	}
}

// Write implements io.Writer.
func (r *SequentialRotator) Write(p []byte) (n int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		if err := r.openFile(); err != nil {
			return 0, err
		}
	}

	if r.size+int64(len(p)) > r.maxSize {
		if err := r.rotate(); err != nil {
			return 0, err
		}
	}

	n, err = r.file.Write(p)
	r.size += int64(n)
	return n, err
}

// Close closes the current log file.
func (r *SequentialRotator) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

func (r *SequentialRotator) openFile() error {
	if err := os.MkdirAll(filepath.Dir(r.filename), 0755); err != nil {
		return err
	}

	if info, err := os.Stat(r.filename); err == nil {
		r.size = info.Size()
	} else {
		r.size = 0
	}

	file, err := os.OpenFile(r.filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	r.file = file
	return nil
}

func (r *SequentialRotator) rotate() error {
	if r.file != nil {
		if err := r.file.Close(); err != nil {
			return err
		}
		r.file = nil
	}

	base := strings.TrimSuffix(r.filename, ".log")
	rotated := fmt.Sprintf("%s.%d.log", base, r.nextSequence())
	if err := os.Rename(r.filename, rotated); err != nil {
		return err
	}

	r.pruneBackups()

	r.size = 0
	return r.openFile()
}

// nextSequence scans existing backups for the highest sequence number.
// Backup names look like "2025-07-01.3.log".
func (r *SequentialRotator) nextSequence() int {
	maxSeq := 0
	for _, file := range r.backupFiles() {
		parts := strings.Split(filepath.Base(file), ".")
		if len(parts) < 3 {
			continue
		}
		if seq, err := strconv.Atoi(parts[len(parts)-2]); err == nil && seq > maxSeq {
			maxSeq = seq
		}
	}
	return maxSeq + 1
}

func (r *SequentialRotator) backupFiles() []string {
	dir := filepath.Dir(r.filename)
	base := strings.TrimSuffix(filepath.Base(r.filename), ".log")
	files, err := filepath.Glob(filepath.Join(dir, base+".*.log"))
	if err != nil {
		return nil
	}
	return files
}

func (r *SequentialRotator) pruneBackups() {
	type backup struct {
		path    string
		modTime time.Time
		seq     int
	}

	var backups []backup
	for _, file := range r.backupFiles() {
		info, err := os.Stat(file)
		if err != nil {
			continue
		}
		seq := 0
		parts := strings.Split(filepath.Base(file), ".")
		if len(parts) >= 3 {
			if s, err := strconv.Atoi(parts[len(parts)-2]); err == nil {
				seq = s
			}
		}
		backups = append(backups, backup{path: file, modTime: info.ModTime(), seq: seq})
	}

	// Newest first.
	sort.Slice(backups, func(i, j int) bool {
		return backups[i].seq > backups[j].seq
	})

	if r.maxBackups > 0 && len(backups) > r.maxBackups {
		for _, b := range backups[r.maxBackups:] {
			_ = os.Remove(b.path)
		}
		backups = backups[:r.maxBackups]
	}

	if r.maxAge > 0 {
		cutoff := time.Now().AddDate(0, 0, -r.maxAge)
		for _, b := range backups {
			if b.modTime.Before(cutoff) {
				_ = os.Remove(b.path)
			}
		}
	}
}
