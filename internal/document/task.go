package document

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"romaneio-backend/internal/models"
)

// Renderer turns a run and its items into document bytes. The xlsx renderer
// in this package is the default; a PDF collaborator can be plugged in
// without touching the runner.
type Renderer interface {
	Render(run models.PrintRun, items []models.PrintRunItem) ([]byte, string, error)
}

// Storage persists rendered documents and returns a location handle.
type Storage interface {
	Save(name string, data []byte) (string, error)
}

// Runner generates run documents off the critical path. Failures are logged
// and recorded in the tracker, never returned to the operation that scheduled
// the task: a run is valid without its document.
type Runner struct {
	renderer Renderer
	storage  Storage
	tracker  *Tracker
	log      zerolog.Logger

	wg  sync.WaitGroup
	now func() time.Time
}

func NewRunner(renderer Renderer, storage Storage, tracker *Tracker, log zerolog.Logger) *Runner {
	return &Runner{
		renderer: renderer,
		storage:  storage,
		tracker:  tracker,
		log:      log,
		now:      time.Now,
	}
}

// Schedule queues document generation for the run and returns immediately.
func (r *Runner) Schedule(run models.PrintRun, items []models.PrintRunItem) {
	r.tracker.queued(run.ID, r.now())
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				r.tracker.failed(run.ID, fmt.Sprint(rec), r.now())
				r.log.Error().Str("run_id", run.ID).Interface("panic", rec).
					Msg("document task panicked")
			}
		}()
		r.generate(run, items)
	}()
}

// Wait blocks until every scheduled task finished. Shutdown and tests only.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) generate(run models.PrintRun, items []models.PrintRunItem) {
	r.tracker.rendering(run.ID, 25)

	data, ext, err := r.renderer.Render(run, items)
	if err != nil {
		r.tracker.failed(run.ID, err.Error(), r.now())
		r.log.Warn().Err(err).Str("run_id", run.ID).Msg("document rendering failed")
		return
	}
	r.tracker.rendering(run.ID, 75)

	name := fmt.Sprintf("%s_%s%s", run.ID, r.now().Format("20060102_150405"), ext)
	location, err := r.storage.Save(name, data)
	if err != nil {
		r.tracker.failed(run.ID, err.Error(), r.now())
		r.log.Warn().Err(err).Str("run_id", run.ID).Msg("document persist failed")
		return
	}

	r.tracker.done(run.ID, location, r.now())
	r.log.Info().Str("run_id", run.ID).Str("file", location).Msg("document generated")
}
