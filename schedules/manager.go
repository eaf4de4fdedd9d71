package schedules

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pevans/newsscraper/discovery"
	"github.com/pevans/newsscraper/websites"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Scraper runs scrapes on behalf of the manager.
type Scraper interface {
	Scrape(ctx context.Context, websiteID uuid.UUID) (*discovery.Result, error)
	ScrapeAll(ctx context.Context) *discovery.Summary
}

// Options configures a Manager.
type Options struct {
	// GlobalInterval, when positive, also scrapes every active website on
	// that interval regardless of per-website schedules.
	GlobalInterval time.Duration
	// Logger receives cron's own messages. Defaults to discarding them.
	Logger cron.Logger
}

// Manager keeps one cron entry per active schedule. Runs of the same entry
// never overlap; a tick that arrives while the previous run is still going
// is skipped.
type Manager struct {
	store   *Store
	scraper Scraper
	opts    Options
	cron    *cron.Cron

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	entries map[uuid.UUID]cron.EntryID
	started bool
}

// NewManager creates a schedule manager. Call Start to begin running jobs.
func NewManager(store *Store, scraper Scraper, opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = cron.DiscardLogger
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		store:   store,
		scraper: scraper,
		opts:    opts,
		cron: cron.New(
			cron.WithLogger(opts.Logger),
			cron.WithChain(cron.Recover(opts.Logger), cron.SkipIfStillRunning(opts.Logger)),
		),
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[uuid.UUID]cron.EntryID),
	}
}

// Start loads the active schedules and starts the cron loop.
func (m *Manager) Start() error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	m.mu.Unlock()

	n, err := m.LoadActive()
	if err != nil {
		return err
	}

	if m.opts.GlobalInterval > 0 {
		m.cron.Schedule(cron.Every(m.opts.GlobalInterval), cron.FuncJob(m.runGlobal))
		log.Info().Dur("interval", m.opts.GlobalInterval).Msg("Global scrape scheduled")
	}

	m.cron.Start()
	log.Info().Int("schedules", n).Int("entries", m.Entries()).Msg("Scheduler started")
	return nil
}

// Stop cancels running scrapes and waits for their jobs to return.
func (m *Manager) Stop() {
	m.cancel()
	<-m.cron.Stop().Done()
	log.Info().Msg("Scheduler stopped")
}

// LoadActive (re)registers a cron entry for every active schedule and
// returns how many were loaded.
func (m *Manager) LoadActive() (int, error) {
	schedules, err := m.store.List(true)
	if err != nil {
		return 0, err
	}

	for i := range schedules {
		m.register(&schedules[i])
	}
	return len(schedules), nil
}

// Entries returns the number of schedules with a cron entry.
func (m *Manager) Entries() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// register replaces the cron entry of sched, or removes it when inactive.
func (m *Manager) register(sched *Schedule) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.entries[sched.ID]; ok {
		m.cron.Remove(id)
		delete(m.entries, sched.ID)
	}
	if !sched.Active || sched.IntervalSeconds <= 0 {
		return
	}

	scheduleID := sched.ID
	m.entries[scheduleID] = m.cron.Schedule(cron.Every(sched.Interval()), cron.FuncJob(func() {
		m.runScheduled(scheduleID)
	}))
}

func (m *Manager) unregister(scheduleID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.entries[scheduleID]; ok {
		m.cron.Remove(id)
		delete(m.entries, scheduleID)
	}
}

// Create adds a schedule for a website and registers it.
func (m *Manager) Create(websiteID uuid.UUID, intervalSeconds int) (*Schedule, error) {
	sched, err := m.store.Create(websiteID, intervalSeconds)
	if err != nil {
		return nil, err
	}
	m.register(sched)
	return sched, nil
}

// Update changes a schedule's interval or active flag.
func (m *Manager) Update(id uuid.UUID, update Update) (*Schedule, error) {
	sched, err := m.store.Update(id, update)
	if err != nil {
		return nil, err
	}
	m.register(sched)
	return sched, nil
}

// Toggle flips a schedule between active and paused.
func (m *Manager) Toggle(id uuid.UUID) (*Schedule, error) {
	sched, err := m.store.Get(id)
	if err != nil {
		return nil, err
	}
	active := !sched.Active
	return m.Update(id, Update{Active: &active})
}

// Delete removes a schedule.
func (m *Manager) Delete(id uuid.UUID) error {
	m.unregister(id)
	return m.store.Delete(id)
}

// RemoveWebsite deletes a website's schedule, if any.
func (m *Manager) RemoveWebsite(websiteID uuid.UUID) error {
	sched, err := m.store.GetByWebsite(websiteID)
	if errors.Is(err, ErrScheduleNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return m.Delete(sched.ID)
}

// SyncWebsite makes a website's schedule follow its auto-scrape settings:
// auto-scrape on means an active schedule at the website's interval, off
// means no schedule.
func (m *Manager) SyncWebsite(w *websites.Website) error {
	if !w.AutoScrape {
		return m.RemoveWebsite(w.ID)
	}

	sched, err := m.store.GetByWebsite(w.ID)
	if errors.Is(err, ErrScheduleNotFound) {
		_, err = m.Create(w.ID, w.ScrapeInterval)
		return err
	}
	if err != nil {
		return err
	}

	interval, active := w.ScrapeInterval, true
	_, err = m.Update(sched.ID, Update{IntervalSeconds: &interval, Active: &active})
	return err
}

// RunAll runs every active schedule once, now, and returns how many ran.
func (m *Manager) RunAll(ctx context.Context) (int, error) {
	schedules, err := m.store.List(true)
	if err != nil {
		return 0, err
	}

	ran := 0
	for i := range schedules {
		if ctx.Err() != nil {
			return ran, ctx.Err()
		}
		m.run(ctx, &schedules[i])
		ran++
	}
	return ran, nil
}

func (m *Manager) runScheduled(scheduleID uuid.UUID) {
	sched, err := m.store.Get(scheduleID)
	if err != nil {
		log.Error().Err(err).Str("schedule_id", scheduleID.String()).Msg("Scheduled job lost its schedule")
		m.unregister(scheduleID)
		return
	}
	if !sched.Active {
		return
	}
	m.run(m.ctx, sched)
}

// run scrapes the schedule's website and records the outcome.
func (m *Manager) run(ctx context.Context, sched *Schedule) {
	ranAt := time.Now()
	logger := log.With().
		Str("schedule_id", sched.ID.String()).
		Str("website_id", sched.WebsiteID.String()).
		Logger()

	res, err := m.scraper.Scrape(ctx, sched.WebsiteID)
	if errors.Is(err, websites.ErrWebsiteNotFound) {
		logger.Warn().Msg("Website of schedule no longer exists, removing schedule")
		if err := m.Delete(sched.ID); err != nil && !errors.Is(err, ErrScheduleNotFound) {
			logger.Error().Err(err).Msg("Failed to remove orphaned schedule")
		}
		return
	}

	success := err == nil && res.Success
	if err != nil {
		logger.Error().Err(err).Msg("Scheduled scrape failed")
	} else {
		logger.Info().
			Bool("success", res.Success).
			Int("articles", res.ArticlesScraped).
			Msg("Scheduled scrape finished")
	}

	if err := m.store.RecordRun(sched.ID, success, ranAt); err != nil {
		logger.Error().Err(err).Msg("Failed to record schedule run")
	}
}

func (m *Manager) runGlobal() {
	summary := m.scraper.ScrapeAll(m.ctx)
	if len(summary.Errors) > 0 {
		log.Warn().Strs("errors", summary.Errors).Msg("Global scrape finished with errors")
	}
}
