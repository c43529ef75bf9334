package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/notify"
	"github.com/go-pkgz/repeater"
	"github.com/go-pkgz/repeater/strategy"
	"github.com/gofrs/flock"
	"github.com/umputun/go-flags"
	"gopkg.in/natefinch/lumberjack.v2"

	"jobtrack/app/backup"
	"jobtrack/app/config"
	"jobtrack/app/store"
	"jobtrack/app/store/persistence"
	"jobtrack/app/web"
)

var opts struct {
	Listen  string `short:"l" long:"listen" env:"JOBTRACK_LISTEN" default:"127.0.0.1:8080" description:"web server listen address"`
	DataDir string `short:"d" long:"data" env:"JOBTRACK_DATA" default:"." description:"directory for the database and lock file"`
	Conf    string `short:"c" long:"conf" env:"JOBTRACK_CONF" description:"optional YAML settings file"`

	Backup struct {
		Schedule string  `long:"schedule" env:"SCHEDULE" description:"cron schedule for CSV snapshots, empty disables backups"`
		Dir      string  `long:"dir" env:"DIR" description:"snapshot directory, defaults to <data>/backups"`
		Keep     int     `long:"keep" env:"KEEP" default:"10" description:"how many snapshots to keep, 0 keeps all"`
		MinFree  float64 `long:"min-free" env:"MIN_FREE" description:"skip snapshots when free disk percent drops below"`
	} `group:"backup" namespace:"backup" env-namespace:"JOBTRACK_BACKUP"`

	Repeater struct {
		Attempts int           `long:"attempts" env:"ATTEMPTS" default:"3" description:"how many times repeat failed backup write"`
		Duration time.Duration `long:"duration" env:"DURATION" default:"1s" description:"initial retry duration"`
		Factor   float64       `long:"factor" env:"FACTOR" default:"3" description:"backoff factor"`
		Jitter   bool          `long:"jitter" env:"JITTER" description:"enable retry jitter"`
	} `group:"repeater" namespace:"repeater" env-namespace:"JOBTRACK_REPEATER"`

	Notify struct {
		Webhook string        `long:"webhook" env:"WEBHOOK" description:"webhook URL notified on backup failures"`
		Timeout time.Duration `long:"timeout" env:"TIMEOUT" default:"10s" description:"notification timeout"`
	} `group:"notify" namespace:"notify" env-namespace:"JOBTRACK_NOTIFY"`

	Log struct {
		Enabled         bool   `long:"enabled" env:"ENABLED" description:"enable logging"`
		Filename        string `long:"file" env:"FILE" description:"log to file as well as stdout"`
		MaxSize         int    `long:"max-size" env:"MAX_SIZE" default:"100" description:"max log file size in megabytes"`
		MaxBackups      int    `long:"max-backups" env:"MAX_BACKUPS" default:"10" description:"max rotated log files"`
		MaxAge          int    `long:"max-age" env:"MAX_AGE" description:"max age of rotated files in days"`
		EnabledCompress bool   `long:"compress" env:"COMPRESS" description:"compress rotated log files"`
	} `group:"log" namespace:"log" env-namespace:"JOBTRACK_LOG"`

	Dbg bool `long:"dbg" env:"JOBTRACK_DEBUG" description:"debug mode"`
}

var revision = "unknown"

func main() {
	fmt.Printf("jobtrack %s\n", revision)

	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(2)
	}
	setupLogs()

	defer func() {
		if x := recover(); x != nil {
			log.Printf("[WARN] run time panic:\n%v", x)
			panic(x)
		}
	}()

	if opts.Conf != "" {
		settings, err := config.Load(opts.Conf)
		if err != nil {
			log.Fatalf("[ERROR] failed to load settings: %v", err)
		}
		applySettings(settings)
	}

	ctx, cancel := context.WithCancel(context.Background())
	signals(cancel) // handle SIGQUIT and SIGTERM

	if err := run(ctx); err != nil {
		log.Fatalf("[ERROR] %v", err)
	}
}

func run(ctx context.Context) error {
	if err := os.MkdirAll(opts.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to make data dir %s: %w", opts.DataDir, err)
	}

	// a single instance owns the database, refuse to start a second one
	fileLock := flock.New(filepath.Join(opts.DataDir, "jobtrack.lock"))
	locked, err := fileLock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock in %s: %w", opts.DataDir, err)
	}
	if !locked {
		return fmt.Errorf("another instance is already running in %s", opts.DataDir)
	}
	defer func() {
		if err := fileLock.Unlock(); err != nil {
			log.Printf("[WARN] failed to release lock: %v", err)
		}
	}()

	db, err := persistence.NewSQLiteStore(filepath.Join(opts.DataDir, "jobtrack.db"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("[WARN] failed to close database: %v", err)
		}
	}()

	st := store.NewStore(db)

	if opts.Backup.Schedule != "" {
		svc := makeBackupService(st)
		go func() {
			if err := svc.Do(ctx); err != nil {
				log.Printf("[ERROR] backup service failed: %v", err)
			}
		}()
	}

	srv, err := web.New(web.Config{Store: st, Version: revision})
	if err != nil {
		return fmt.Errorf("failed to create web server: %w", err)
	}
	return srv.Run(ctx, opts.Listen)
}

// makeBackupService wires the snapshot service from options
func makeBackupService(st *store.Store) *backup.Service {
	svc := &backup.Service{
		Records:  st,
		Schedule: opts.Backup.Schedule,
		Dir:      opts.Backup.Dir,
		Keep:     opts.Backup.Keep,
		MinFree:  opts.Backup.MinFree,
		Repeater: repeater.New(&strategy.Backoff{Repeats: opts.Repeater.Attempts, Duration: opts.Repeater.Duration,
			Factor: opts.Repeater.Factor, Jitter: opts.Repeater.Jitter}),
	}
	if svc.Dir == "" {
		svc.Dir = filepath.Join(opts.DataDir, "backups")
	}
	if opts.Notify.Webhook != "" {
		svc.Notifier = notify.NewWebhook(notify.WebhookParams{Timeout: opts.Notify.Timeout})
		svc.WebhookURL = opts.Notify.Webhook
	}
	return svc
}

// applySettings overlays non-empty file settings over flag/env values
func applySettings(s config.Settings) {
	if s.Listen != "" {
		opts.Listen = s.Listen
	}
	if s.DataDir != "" {
		opts.DataDir = s.DataDir
	}
	if s.Backup.Schedule != "" {
		opts.Backup.Schedule = s.Backup.Schedule
	}
	if s.Backup.Dir != "" {
		opts.Backup.Dir = s.Backup.Dir
	}
	if s.Backup.Keep != 0 {
		opts.Backup.Keep = s.Backup.Keep
	}
	if s.Backup.MinFree != 0 {
		opts.Backup.MinFree = s.Backup.MinFree
	}
	if s.Notify.Webhook != "" {
		opts.Notify.Webhook = s.Notify.Webhook
	}
}

func setupLogs() io.Writer {
	if !opts.Log.Enabled {
		log.Setup(log.Out(io.Discard), log.Err(io.Discard))
		return os.Stdout
	}

	logOpts := []log.Option{log.Msec}
	if opts.Dbg {
		logOpts = []log.Option{log.Debug, log.Msec, log.CallerFunc, log.CallerPkg, log.CallerFile}
	}

	if opts.Log.Filename != "" {
		fileLogger := &lumberjack.Logger{
			Filename:   opts.Log.Filename,
			MaxSize:    opts.Log.MaxSize,
			MaxBackups: opts.Log.MaxBackups,
			MaxAge:     opts.Log.MaxAge,
			Compress:   opts.Log.EnabledCompress,
		}
		logOpts = append(logOpts, log.Out(io.MultiWriter(os.Stdout, fileLogger)))
		log.Setup(logOpts...)
		return fileLogger
	}

	log.Setup(logOpts...)
	return os.Stdout
}

func signals(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	go func() {
		stacktrace := make([]byte, 8192)
		for sig := range sigChan {
			if sig == syscall.SIGQUIT { // catch SIGQUIT and print stack traces
				length := runtime.Stack(stacktrace, true)
				fmt.Println(string(stacktrace[:length]))
				continue
			}
			cancel() // terminate on SIGINT and SIGTERM
		}
	}()
	signal.Notify(sigChan, syscall.SIGQUIT, syscall.SIGINT, syscall.SIGTERM)
}
