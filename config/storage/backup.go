package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DefaultBackupRetention is the number of backups kept per store file
const DefaultBackupRetention = 3

const backupInfix = ".backup-"

// BackupManager keeps timestamped copies of store files so a schema
// migration or a failed write can be rolled back
type BackupManager struct {
	MaxBackups int
	now        func() time.Time
}

// NewBackupManager creates a BackupManager retaining maxBackups copies
func NewBackupManager(maxBackups int) *BackupManager {
	if maxBackups <= 0 {
		maxBackups = DefaultBackupRetention
	}
	return &BackupManager{MaxBackups: maxBackups, now: time.Now}
}

// CreateBackup copies filePath to filePath.backup-<timestamp>-<pid>
func (bm *BackupManager) CreateBackup(filePath string) (string, error) {
	stamp := bm.now().UTC().Format("20060102150405.000000000")
	backupPath := fmt.Sprintf("%s%s%s-%d", filePath, backupInfix, stamp, os.Getpid())
	if err := copyFile(filePath, backupPath); err != nil {
		return "", fmt.Errorf("failed to create backup: %w", err)
	}
	return backupPath, nil
}

// ListBackups returns the backups of filePath, oldest first. The timestamp
// embedded in the name sorts lexically.
func (bm *BackupManager) ListBackups(filePath string) ([]string, error) {
	matches, err := filepath.Glob(filePath + backupInfix + "*")
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}
	sort.Strings(matches)
	return matches, nil
}

// CleanupOldBackups removes all but the newest MaxBackups backups
func (bm *BackupManager) CleanupOldBackups(filePath string) error {
	backups, err := bm.ListBackups(filePath)
	if err != nil {
		return err
	}
	excess := len(backups) - bm.MaxBackups
	for i := 0; i < excess; i++ {
		if err := os.Remove(backups[i]); err != nil {
			return fmt.Errorf("failed to remove old backup %s: %w", backups[i], err)
		}
	}
	return nil
}

// RestoreFromBackup copies backupPath over filePath
func (bm *BackupManager) RestoreFromBackup(filePath, backupPath string) error {
	if !strings.HasPrefix(backupPath, filePath+backupInfix) {
		return fmt.Errorf("backup path %s is not a valid backup for %s", backupPath, filePath)
	}
	if err := copyFile(backupPath, filePath); err != nil {
		return fmt.Errorf("failed to restore from backup: %w", err)
	}
	return nil
}

// copyFile copies src to dst keeping the source permissions
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
