// Package scanner implements the finder-side beacon scan protocol: a
// repeating detection cycle that turns nearby beacon ids into anonymous
// sighting reports.
package scanner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrAlreadyScanning = errors.New("scanner already running")

// ErrTransient marks a submit failure worth retrying (network errors, server
// 5xx). Non-transient failures are dropped without retry.
var ErrTransient = errors.New("transient submit failure")

const (
	maxSubmitRetries = 3
	submitBaseDelay  = 250 * time.Millisecond
	submitTimeout    = 30 * time.Second
)

type State int

const (
	Idle State = iota
	Scanning
)

// Detector observes nearby beacon ids. A single call returns the ids within
// range right now, possibly none. The radio technology behind it is not this
// package's concern.
type Detector interface {
	Detect(ctx context.Context) ([]string, error)
}

// Locator supplies the scanner's current best-known position.
type Locator interface {
	Location(ctx context.Context) (latitude, longitude, accuracy float64, err error)
}

// Report is one anonymous sighting ready for submission.
type Report struct {
	DeviceID      string    `json:"device_id"`
	ReporterToken string    `json:"reporter_token"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	Accuracy      float64   `json:"accuracy"`
	ObservedAt    time.Time `json:"observed_at"`
}

// Submitter delivers a report to the location report store.
type Submitter interface {
	Submit(ctx context.Context, report Report) error
}

// Scanner runs the Idle/Scanning state machine. Reporting failures never
// halt scanning: a report is retried a bounded number of times and then
// dropped with a local diagnostic.
type Scanner struct {
	detector      Detector
	locator       Locator
	submitter     Submitter
	interval      time.Duration
	detectTimeout time.Duration
	logger        *zap.Logger

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(detector Detector, locator Locator, submitter Submitter, interval, detectTimeout time.Duration, logger *zap.Logger) *Scanner {
	return &Scanner{
		detector:      detector,
		locator:       locator,
		submitter:     submitter,
		interval:      interval,
		detectTimeout: detectTimeout,
		logger:        logger,
	}
}

func (s *Scanner) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start transitions Idle -> Scanning and begins detection cycles.
func (s *Scanner) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Scanning {
		return ErrAlreadyScanning
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.state = Scanning
	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("scanning started", zap.Duration("interval", s.interval))
	return nil
}

// Stop transitions Scanning -> Idle. A detection call still waiting on the
// radio layer is cancelled; submissions already in flight run to completion.
func (s *Scanner) Stop() {
	s.mu.Lock()
	if s.state != Scanning {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.state = Idle
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("scanning stopped")
}

func (s *Scanner) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.cycle(ctx)
	for {
		select {
		case <-ticker.C:
			s.cycle(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scanner) cycle(ctx context.Context) {
	detectCtx, cancel := context.WithTimeout(ctx, s.detectTimeout)
	defer cancel()

	ids, err := s.detector.Detect(detectCtx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("detection cycle failed", zap.Error(err))
		}
		return
	}
	if len(ids) == 0 {
		return
	}

	latitude, longitude, accuracy, err := s.locator.Location(ctx)
	if err != nil {
		s.logger.Warn("no location estimate, skipping cycle", zap.Error(err))
		return
	}

	// Stop cancels detection, not submissions already under way
	submitCtx := context.WithoutCancel(ctx)
	observedAt := time.Now()

	g := new(errgroup.Group)
	for _, id := range ids {
		report := Report{
			DeviceID: id,
			// Fresh pseudonym per report: sightings must not be linkable to
			// this scanner, or to each other.
			ReporterToken: uuid.New().String(),
			Latitude:      latitude,
			Longitude:     longitude,
			Accuracy:      accuracy,
			ObservedAt:    observedAt,
		}
		g.Go(func() error {
			s.submit(submitCtx, report)
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Scanner) submit(ctx context.Context, report Report) {
	ctx, cancel := context.WithTimeout(ctx, submitTimeout)
	defer cancel()

	backoff := retry.WithMaxRetries(maxSubmitRetries, retry.NewExponential(submitBaseDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := s.submitter.Submit(ctx, report)
		if errors.Is(err, ErrTransient) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		s.logger.Warn("sighting dropped",
			zap.String("beacon_id", report.DeviceID),
			zap.Error(err),
		)
		return
	}

	s.logger.Info("sighting reported", zap.String("beacon_id", report.DeviceID))
}
