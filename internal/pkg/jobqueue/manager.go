package jobqueue

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

const defaultSweepInterval = 5 * time.Minute

// StaleSweeper finalizes webhook logs abandoned mid-processing.
type StaleSweeper interface {
	SweepStale(ctx context.Context) (int64, error)
}

// Manager manages the job queue and background tasks
type Manager struct {
	queue         *Queue
	sweeper       StaleSweeper
	sweepInterval time.Duration
	sweepTicker   *time.Ticker
	stopCh        chan struct{}
	wg            sync.WaitGroup
	mu            sync.Mutex
	running       bool
}

// NewManager creates a manager running queue and, when sweeper is set, a
// periodic stale webhook sweep.
func NewManager(queue *Queue, sweeper StaleSweeper, sweepInterval time.Duration) *Manager {
	if sweepInterval <= 0 {
		sweepInterval = defaultSweepInterval
	}
	return &Manager{
		queue:         queue,
		sweeper:       sweeper,
		sweepInterval: sweepInterval,
		stopCh:        make(chan struct{}),
	}
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Start starts the job queue and background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue and background tasks")

	m.queue.Start()

	if m.sweeper != nil {
		m.sweepTicker = time.NewTicker(m.sweepInterval)
		m.wg.Add(1)
		go m.sweepWorker(m.sweepTicker, m.stopCh)
	}

	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops the job queue and background tasks
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping job queue and background tasks...")

	if m.sweepTicker != nil {
		m.sweepTicker.Stop()
	}

	close(m.stopCh)
	m.running = false
	m.wg.Wait()

	m.queue.Stop()

	log.Info("[JobQueue Manager] Stopped successfully")
}

// sweepWorker periodically finalizes stale webhook logs
func (m *Manager) sweepWorker(ticker *time.Ticker, stopCh <-chan struct{}) {
	defer m.wg.Done()
	log.Infof("[JobQueue Manager] Started stale webhook sweeper (interval: %s)", m.sweepInterval)

	for {
		select {
		case <-stopCh:
			log.Info("[JobQueue Manager] Stale webhook sweeper stopping")
			return
		case <-ticker.C:
			m.RunSweepOnce()
		}
	}
}

// RunSweepOnce runs a single stale webhook sweep.
func (m *Manager) RunSweepOnce() {
	if m.sweeper == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if _, err := m.sweeper.SweepStale(ctx); err != nil {
		log.Errorf("[JobQueue Manager] Stale webhook sweep error: %v", err)
	}
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
