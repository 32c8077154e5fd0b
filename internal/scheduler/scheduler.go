// Package scheduler runs the periodic treasury refresh on clock-aligned
// boundaries using gocron.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Task is the unit of work run on every tick
type Task func(ctx context.Context) error

// Scheduler wraps a single gocron job
type Scheduler struct {
	cron           gocron.Scheduler
	job            gocron.Job
	interval       string
	timezone       *time.Location
	runImmediately bool
	logger         *slog.Logger
}

// Config holds scheduler configuration
type Config struct {
	Name           string         // Job name, shown in logs
	Interval       string         // Duration ("5m") or cron expression ("*/5 * * * *")
	Timezone       *time.Location // Location for cron expressions (default: UTC)
	RunImmediately bool           // Run once before the first tick
	Logger         *slog.Logger
}

var (
	cronPattern = regexp.MustCompile(`^(\S+\s+){4,5}\S+$`)

	// divisors keep duration schedules aligned to the clock
	secondDivisors = map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true, 6: true, 10: true, 12: true, 15: true, 20: true, 30: true}
	minuteDivisors = secondDivisors
	hourDivisors   = map[int]bool{1: true, 2: true, 3: true, 4: true, 6: true, 8: true, 12: true, 24: true}
)

// NewScheduler registers task under the configured schedule. Ticks never
// overlap: a tick arriving while the task still runs is skipped.
func NewScheduler(ctx context.Context, cfg Config, task Task) (*Scheduler, error) {
	if cfg.Timezone == nil {
		cfg.Timezone = time.UTC
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Name == "" {
		cfg.Name = "refresh"
	}

	s := &Scheduler{
		interval:       cfg.Interval,
		timezone:       cfg.Timezone,
		runImmediately: cfg.RunImmediately,
		logger:         cfg.Logger.With("job", cfg.Name),
	}

	cron, err := gocron.NewScheduler(
		gocron.WithLocation(cfg.Timezone),
		gocron.WithLogger(newGocronLoggerAdapter(cfg.Logger)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	s.cron = cron

	expr := cfg.Interval
	if !IsCronExpression(expr) {
		expr, err = durationToCron(cfg.Interval)
		if err != nil {
			return nil, fmt.Errorf("invalid interval: %w", err)
		}
		s.logger.Info("Converting duration to cron", "duration", cfg.Interval, "cron", expr)
	}

	job, err := cron.NewJob(
		gocron.CronJob(expr, len(strings.Fields(expr)) == 6),
		gocron.NewTask(func() {
			if err := task(ctx); err != nil {
				s.logger.Error("Scheduled task failed", "error", err)
			}
		}),
		gocron.WithName(cfg.Name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduled job: %w", err)
	}
	s.job = job

	return s, nil
}

// Start begins ticking, running the task first when configured to
func (s *Scheduler) Start() error {
	if s.runImmediately {
		s.logger.Info("Running task before first tick")
		if err := s.job.RunNow(); err != nil {
			s.logger.Error("Immediate execution failed", "error", err)
		}
	}

	s.cron.Start()

	if next, err := s.NextRun(); err == nil {
		s.logger.Info("Scheduler started", "next_run", next.Format(time.RFC3339), "timezone", s.timezone.String())
	} else {
		s.logger.Info("Scheduler started")
	}
	return nil
}

// Stop shuts the scheduler down, waiting for a running task
func (s *Scheduler) Stop() error {
	s.logger.Info("Stopping scheduler")
	return s.cron.Shutdown()
}

// NextRun returns the next scheduled run time
func (s *Scheduler) NextRun() (time.Time, error) {
	next, err := s.job.NextRun()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get next run: %w", err)
	}
	return next, nil
}

// LastRun returns the last run time
func (s *Scheduler) LastRun() (time.Time, error) {
	last, err := s.job.LastRun()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get last run: %w", err)
	}
	return last, nil
}

// ExpectedInterval is the nominal spacing between runs. Cron expressions
// can be irregular, so they report a conservative five minutes.
func (s *Scheduler) ExpectedInterval() time.Duration {
	if d, err := time.ParseDuration(s.interval); err == nil {
		return d
	}
	return 5 * time.Minute
}

// IsCronExpression reports whether s has the 5 or 6 fields of a cron line
func IsCronExpression(s string) bool {
	return cronPattern.MatchString(s)
}

// durationToCron converts a duration to a clock-aligned cron expression:
//
//	"5m"  -> "*/5 * * * *"
//	"1h"  -> "0 */1 * * *"
//	"30s" -> "*/30 * * * * *"
func durationToCron(durationStr string) (string, error) {
	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return "", fmt.Errorf("invalid duration format: %w", err)
	}

	switch {
	case d < time.Minute:
		n := int(d.Seconds())
		if float64(n) != d.Seconds() || !secondDivisors[n] {
			return "", fmt.Errorf("second interval must divide evenly into 60 (got %s)", durationStr)
		}
		return fmt.Sprintf("*/%d * * * * *", n), nil

	case d < time.Hour:
		if d%time.Minute != 0 || !minuteDivisors[int(d.Minutes())] {
			return "", fmt.Errorf("minute interval must divide evenly into 60 (got %s)", durationStr)
		}
		return fmt.Sprintf("*/%d * * * *", int(d.Minutes())), nil

	case d%time.Hour == 0:
		if !hourDivisors[int(d.Hours())] {
			return "", fmt.Errorf("hour interval must divide evenly into 24 (got %s)", durationStr)
		}
		return fmt.Sprintf("0 */%d * * *", int(d.Hours())), nil
	}

	return "", fmt.Errorf("duration must be whole seconds, minutes, or hours (got %s)", durationStr)
}

// ValidateScheduleInterval validates a duration or cron interval. Empty
// means one-shot mode and is valid.
func ValidateScheduleInterval(interval string) error {
	if interval == "" {
		return nil
	}
	if IsCronExpression(interval) {
		if n := len(strings.Fields(interval)); n != 5 && n != 6 {
			return errors.New("cron expression must have 5 or 6 fields")
		}
		return nil
	}
	_, err := durationToCron(interval)
	return err
}

// DescribeSchedule renders a schedule for logs
func DescribeSchedule(interval string, timezone *time.Location) string {
	if timezone == nil {
		timezone = time.UTC
	}
	if IsCronExpression(interval) {
		return fmt.Sprintf("cron: %s (%s)", interval, timezone.String())
	}

	d, err := time.ParseDuration(interval)
	if err != nil {
		return fmt.Sprintf("invalid: %s", interval)
	}
	expr, err := durationToCron(interval)
	if err != nil {
		return fmt.Sprintf("duration: %s (non-aligned)", interval)
	}
	return fmt.Sprintf("every %s (aligned to clock, cron: %s, %s)", d, expr, timezone.String())
}

// gocronLoggerAdapter adapts slog.Logger to gocron.Logger
type gocronLoggerAdapter struct {
	logger *slog.Logger
}

func newGocronLoggerAdapter(logger *slog.Logger) gocron.Logger {
	return &gocronLoggerAdapter{logger: logger}
}

func (a *gocronLoggerAdapter) Debug(msg string, args ...any) { a.logger.Debug(msg, args...) }
func (a *gocronLoggerAdapter) Info(msg string, args ...any)  { a.logger.Info(msg, args...) }
func (a *gocronLoggerAdapter) Warn(msg string, args ...any)  { a.logger.Warn(msg, args...) }
func (a *gocronLoggerAdapter) Error(msg string, args ...any) { a.logger.Error(msg, args...) }
