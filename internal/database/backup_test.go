package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ohbang/internal/config"
	"ohbang/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupService(t *testing.T) {
	tempDir := t.TempDir()
	db := setupTestDBAt(t, filepath.Join(tempDir, "menu.db"))
	require.NoError(t, db.InsertAll(context.Background(), []models.MenuItemRecord{{ID: 1, Name: "Shoyu Ramen"}}))

	storagePath := filepath.Join(tempDir, "backups")
	cfg := config.BackupConfig{
		Enabled:       true,
		StoragePath:   storagePath,
		RetentionDays: 1,
	}
	logger := zerolog.Nop()
	s := NewBackupService(db, cfg, &logger)

	t.Run("PerformBackup", func(t *testing.T) {
		path, err := s.PerformBackup(context.Background())
		require.NoError(t, err)
		assert.FileExists(t, path)

		restored, err := NewDB(path, &logger)
		require.NoError(t, err)
		defer restored.Close()

		n, err := restored.Count(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("CleanupOldBackups", func(t *testing.T) {
		oldFile := filepath.Join(storagePath, "menu_old.db")
		require.NoError(t, os.WriteFile(oldFile, []byte("old"), 0o644))

		oldTime := time.Now().AddDate(0, 0, -2)
		require.NoError(t, os.Chtimes(oldFile, oldTime, oldTime))

		unrelated := filepath.Join(storagePath, "notes.txt")
		require.NoError(t, os.WriteFile(unrelated, []byte("keep"), 0o644))
		require.NoError(t, os.Chtimes(unrelated, oldTime, oldTime))

		s.CleanupOldBackups()

		assert.NoFileExists(t, oldFile)
		assert.FileExists(t, unrelated)
	})
}

func TestBackupService_Fallback(t *testing.T) {
	tempDir := t.TempDir()
	db := setupTestDBAt(t, filepath.Join(tempDir, "menu.db"))
	logger := zerolog.Nop()
	s := NewBackupService(db, config.BackupConfig{StoragePath: tempDir}, &logger)

	backupPath := filepath.Join(tempDir, "copy.db")
	require.NoError(t, s.performBackupFallback(backupPath))
	assert.FileExists(t, backupPath)
}

func TestBackupService_BadStoragePath(t *testing.T) {
	tmpFile, err := os.CreateTemp(t.TempDir(), "notadir")
	require.NoError(t, err)
	tmpFile.Close()

	db := setupTestDB(t)
	logger := zerolog.Nop()
	s := NewBackupService(db, config.BackupConfig{Enabled: true, StoragePath: tmpFile.Name() + "/subdir"}, &logger)

	_, err = s.PerformBackup(context.Background())
	assert.Error(t, err)
}

func TestBackupService_Disabled(_ *testing.T) {
	logger := zerolog.Nop()
	s := NewBackupService(nil, config.BackupConfig{Enabled: false}, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Start(ctx)
}

func TestBackupService_Loop(t *testing.T) {
	tempDir := t.TempDir()
	db := setupTestDBAt(t, filepath.Join(tempDir, "menu.db"))
	logger := zerolog.Nop()

	storage := filepath.Join(tempDir, "loop")
	s := NewBackupService(db, config.BackupConfig{Enabled: true, Schedule: "1h", StoragePath: storage}, &logger)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	s.Start(ctx)

	files, err := os.ReadDir(storage)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}
