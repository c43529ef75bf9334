package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/natefinch/lumberjack.v2"

	"jobtrack/app/config"
)

func Test_setupLogsWithLogsDisabled(t *testing.T) {
	opts.Log.Enabled = false
	assert.Equal(t, os.Stdout, setupLogs())
}

func Test_setupLogsToFile(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name()) //nolint:errcheck // test cleanup

	opts.Log.Enabled = true
	opts.Log.Filename = tmpfile.Name()
	opts.Log.MaxSize = 100
	opts.Log.MaxBackups = 7
	opts.Log.MaxAge = 0
	opts.Log.EnabledCompress = false
	defer func() { opts.Log.Enabled, opts.Log.Filename = false, "" }()

	out := setupLogs()
	require.IsType(t, &lumberjack.Logger{}, out)

	logger := out.(*lumberjack.Logger)
	assert.Equal(t, tmpfile.Name(), logger.Filename)
	assert.Equal(t, 100, logger.MaxSize)
	assert.Equal(t, 7, logger.MaxBackups)
	assert.Equal(t, 0, logger.MaxAge)
	assert.False(t, logger.Compress)
}

func Test_applySettings(t *testing.T) {
	opts.Listen = "127.0.0.1:8080"
	opts.DataDir = "."
	opts.Backup.Schedule = ""
	opts.Backup.Keep = 10
	opts.Notify.Webhook = ""

	applySettings(config.Settings{
		Listen: "0.0.0.0:9090",
		Backup: config.BackupSettings{Schedule: "@daily", Keep: 5},
		Notify: config.NotifySettings{Webhook: "https://hooks.example.com/x"},
	})

	assert.Equal(t, "0.0.0.0:9090", opts.Listen)
	assert.Equal(t, ".", opts.DataDir, "empty file value keeps the flag default")
	assert.Equal(t, "@daily", opts.Backup.Schedule)
	assert.Equal(t, 5, opts.Backup.Keep)
	assert.Equal(t, "https://hooks.example.com/x", opts.Notify.Webhook)
}

func Test_makeBackupService(t *testing.T) {
	opts.DataDir = t.TempDir()
	opts.Backup.Schedule = "@daily"
	opts.Backup.Dir = ""
	opts.Backup.Keep = 3

	t.Run("defaults without webhook", func(t *testing.T) {
		opts.Notify.Webhook = ""
		svc := makeBackupService(nil)
		assert.Equal(t, filepath.Join(opts.DataDir, "backups"), svc.Dir)
		assert.Equal(t, 3, svc.Keep)
		assert.NotNil(t, svc.Repeater)
		assert.Nil(t, svc.Notifier, "no webhook means no notifier")
	})

	t.Run("webhook wires notifier", func(t *testing.T) {
		opts.Notify.Webhook = "https://hooks.example.com/x"
		defer func() { opts.Notify.Webhook = "" }()

		svc := makeBackupService(nil)
		assert.NotNil(t, svc.Notifier)
		assert.Equal(t, "https://hooks.example.com/x", svc.WebhookURL)
	})
}
