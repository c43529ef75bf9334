// Package backup writes scheduled CSV snapshots of the record collection.
// Snapshots are plain export files, so any of them can be re-imported through
// the regular CSV import path.
package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/robfig/cron/v3"
	"github.com/shirou/gopsutil/v4/disk"

	"jobtrack/app/csvcodec"
	"jobtrack/app/store"
)

// Records provides snapshot access to the collection
type Records interface {
	All() []store.JobRecord
}

// Repeater retries failed snapshot writes
type Repeater interface {
	Do(ctx context.Context, fun func() error, errs ...error) error
}

// Notifier delivers backup failure notifications
type Notifier interface {
	Send(ctx context.Context, destination, text string) error
}

// Service runs CSV snapshots on a cron schedule
type Service struct {
	Records  Records
	Schedule string
	Dir      string
	Keep     int     // snapshots to retain, 0 keeps everything
	MinFree  float64 // skip snapshot when free disk percent drops below, 0 disables

	Repeater   Repeater // optional, write retries
	Notifier   Notifier // optional, failure notifications
	WebhookURL string
}

// Do blocks until ctx is canceled, running snapshots per the schedule
func (s *Service) Do(ctx context.Context) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to make backup dir %s: %w", s.Dir, err)
	}

	c := cron.New()
	if _, err := c.AddFunc(s.Schedule, func() { s.runOnce(ctx) }); err != nil {
		return fmt.Errorf("invalid backup schedule %q: %w", s.Schedule, err)
	}
	log.Printf("[INFO] backup scheduled %q to %s, keep %d", s.Schedule, s.Dir, s.Keep)
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// runOnce writes a single dated snapshot and prunes old ones
func (s *Service) runOnce(ctx context.Context) {
	if !s.diskOK() {
		log.Printf("[WARN] backup skipped, free disk below %.1f%% in %s", s.MinFree, s.Dir)
		return
	}

	name := fmt.Sprintf("job-tracker-%s.csv", time.Now().Format("2006-01-02"))
	path := filepath.Join(s.Dir, name)
	data := []byte(csvcodec.Serialize(s.Records.All()))

	write := func() error { return os.WriteFile(path, data, 0o600) }
	var err error
	if s.Repeater != nil {
		err = s.Repeater.Do(ctx, write)
	} else {
		err = write()
	}
	if err != nil {
		log.Printf("[WARN] backup failed: %v", err)
		s.notify(ctx, fmt.Sprintf("jobtrack backup to %s failed: %v", path, err))
		return
	}

	log.Printf("[INFO] backup written to %s", path)
	s.prune()
}

// diskOK checks the free space guard; any stat failure lets the backup proceed
func (s *Service) diskOK() bool {
	if s.MinFree <= 0 {
		return true
	}
	usage, err := disk.Usage(s.Dir)
	if err != nil {
		log.Printf("[DEBUG] failed to get disk usage for %s: %v", s.Dir, err)
		return true
	}
	return 100-usage.UsedPercent >= s.MinFree
}

// prune removes the oldest snapshots beyond Keep. Dated names sort
// chronologically, so a name sort is enough.
func (s *Service) prune() {
	if s.Keep <= 0 {
		return
	}
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		log.Printf("[WARN] failed to read backup dir %s: %v", s.Dir, err)
		return
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "job-tracker-") && strings.HasSuffix(e.Name(), ".csv") {
			names = append(names, e.Name())
		}
	}
	if len(names) <= s.Keep {
		return
	}

	sort.Sort(sort.Reverse(sort.StringSlice(names))) // newest first
	for _, name := range names[s.Keep:] {
		if err := os.Remove(filepath.Join(s.Dir, name)); err != nil {
			log.Printf("[WARN] failed to remove old backup %s: %v", name, err)
		}
	}
}

func (s *Service) notify(ctx context.Context, text string) {
	if s.Notifier == nil || s.WebhookURL == "" {
		return
	}
	if err := s.Notifier.Send(ctx, s.WebhookURL, text); err != nil {
		log.Printf("[WARN] failed to send backup notification: %v", err)
	}
}
