package monitor

import (
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/driftworks/vehiclectl/pkg/core"
)

// DefaultInterval is used when Dependencies.Interval is not positive.
const DefaultInterval = time.Second

// Counters is the recorder side of the status: frames written, dropped and failed.
type Counters interface {
	Processed() uint64
	Dropped() uint64
	Failed() uint64
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	StatusFile string
	Interval   time.Duration
	Session    *core.Session
	Recorder   Counters
	Logger     *slog.Logger
}

// Status is what gets written to the status file.
type Status struct {
	Time      time.Time      `json:"time"`
	Session   string         `json:"session,omitempty"`
	Step      uint64         `json:"step"`
	SimTime   time.Duration  `json:"simTime"`
	Gear      core.GearState `json:"gear"`
	SpeedKmh  float64        `json:"speedKmh"`
	Drifting  bool           `json:"drifting"`
	Processed uint64         `json:"processed"`
	Dropped   uint64         `json:"dropped"`
	Failed    uint64         `json:"failed"`
}

// Service periodically rewrites a status file with the latest published frame
// and the recorder counters.
type Service struct {
	deps Dependencies

	mu        sync.RWMutex
	last      core.Frame
	isRunning bool
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{deps: deps}
}

// Publish stores the most recent frame. Safe to call from the control loop.
func (s *Service) Publish(f core.Frame) {
	s.mu.Lock()
	s.last = f
	s.mu.Unlock()
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Status returns the current status.
func (s *Service) Status() Status {
	s.mu.RLock()
	f := s.last
	s.mu.RUnlock()

	st := Status{
		Time:     time.Now(),
		Step:     f.Step,
		SimTime:  f.SimTime,
		Gear:     f.Gear,
		SpeedKmh: f.SpeedKmh,
		Drifting: f.Drifting,
	}
	if s.deps.Session != nil {
		st.Session = s.deps.Session.ID
	}
	if r := s.deps.Recorder; r != nil {
		st.Processed = r.Processed()
		st.Dropped = r.Dropped()
		st.Failed = r.Failed()
	}
	return st
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	f, err := os.Create(s.deps.StatusFile)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer f.Close()
		logger := s.deps.Logger
		logger.Debug("Starting status monitor", "file", s.deps.StatusFile, "interval", s.deps.Interval)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				// final status so the file reflects the end of the run
				if err := s.write(f); err != nil {
					logger.Error("Error writing status file", "error", err)
				}
				return
			case <-ticker.C:
				if err := s.write(f); err != nil {
					logger.Error("Error writing status file", "error", err)
				}
			}
		}
	}()
	return nil
}

func (s *Service) write(f *os.File) error {
	b, err := json.MarshalIndent(s.Status(), "", "  ")
	if err != nil {
		return err
	}
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	_, err = f.Write(append(b, '\n'))
	return err
}

// Stop stops the status monitor and waits for the final write.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
