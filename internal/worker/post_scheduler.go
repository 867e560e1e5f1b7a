package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/lumina_api/internal/models"
)

const runTimeout = 2 * time.Minute

// ChannelPoster publishes the next product to the promotional channel.
type ChannelPoster interface {
	PostNext(ctx context.Context) (*models.ChannelPost, error)
}

// SchedulerStatus describes the post scheduler for the admin API.
type SchedulerStatus struct {
	Running  bool       `json:"running"`
	Schedule string     `json:"schedule"`
	NextRun  *time.Time `json:"nextRun,omitempty"`
}

// PostScheduler periodically posts a product to the channel. It is owned by
// main and controlled through the admin API.
type PostScheduler struct {
	mu       sync.Mutex
	poster   ChannelPoster
	schedule string
	cron     *cron.Cron
	entry    cron.EntryID
}

// NewPostScheduler constructs a stopped PostScheduler. schedule uses cron
// syntax or descriptors such as "@every 1h".
func NewPostScheduler(poster ChannelPoster, schedule string) (*PostScheduler, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid post schedule %q: %w", schedule, err)
	}
	return &PostScheduler{poster: poster, schedule: schedule}, nil
}

// Start begins posting on schedule. Starting a running scheduler is a no-op.
func (s *PostScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		log.Info().Msg("Post scheduler already running")
		return nil
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	id, err := c.AddFunc(s.schedule, func() {
		_, _ = s.RunOnce(context.Background())
	})
	if err != nil {
		return err
	}
	c.Start()

	s.cron = c
	s.entry = id
	log.Info().Str("schedule", s.schedule).Msg("Post scheduler started")
	return nil
}

// Stop halts the schedule and waits for a running post to finish.
func (s *PostScheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	log.Info().Msg("Post scheduler stopped")
}

// IsRunning reports whether the schedule is active.
func (s *PostScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cron != nil
}

// Status reports the schedule and, while running, the next run time.
func (s *PostScheduler) Status() SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := SchedulerStatus{Running: s.cron != nil, Schedule: s.schedule}
	if s.cron != nil {
		if next := s.cron.Entry(s.entry).Next; !next.IsZero() {
			st.NextRun = &next
		}
	}
	return st
}

// RunOnce posts the next product immediately.
func (s *PostScheduler) RunOnce(ctx context.Context) (*models.ChannelPost, error) {
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	start := time.Now()
	post, err := s.poster.PostNext(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Scheduled channel post failed")
		return post, err
	}
	if post == nil {
		log.Info().Msg("Scheduled channel post skipped: catalog is empty")
		return nil, nil
	}

	log.Info().Dur("duration", time.Since(start)).Int("post_id", post.ID).Msg("Scheduled channel post completed")
	return post, nil
}
