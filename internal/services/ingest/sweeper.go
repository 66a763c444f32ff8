// -----------------------------------------------------------------------
// Stale Sweeper - Fails processing documents orphaned by a restart
// -----------------------------------------------------------------------

package ingest

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/corvus-labs/gnosis/internal/common"
	"github.com/corvus-labs/gnosis/internal/interfaces"
	"github.com/corvus-labs/gnosis/internal/models"
)

// Sweeper periodically fails documents stuck in processing. A document can
// only be orphaned there by a process restart, since a live pass always
// reaches a terminal state; the sweep restores the state machine invariant
// that processing implies an active job.
type Sweeper struct {
	storage    interfaces.DocumentStorage
	staleAfter time.Duration
	cron       *cron.Cron
	logger     arbor.ILogger
}

// NewSweeper creates the stale-processing sweeper.
func NewSweeper(storage interfaces.DocumentStorage, cfg common.ProcessingConfig, logger arbor.ILogger) (*Sweeper, error) {
	staleAfter, err := time.ParseDuration(cfg.StaleAfter)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid stale_after %q: %v", models.ErrConfiguration, cfg.StaleAfter, err)
	}

	return &Sweeper{
		storage:    storage,
		staleAfter: staleAfter,
		cron:       cron.New(),
		logger:     logger,
	}, nil
}

// Start schedules the sweep. An immediate pass runs first so documents
// orphaned by the previous process are failed at startup, not a schedule
// tick later.
func (s *Sweeper) Start(schedule string) error {
	s.Sweep()

	if _, err := s.cron.AddFunc(schedule, s.Sweep); err != nil {
		return fmt.Errorf("%w: invalid sweep schedule %q: %v", models.ErrConfiguration, schedule, err)
	}
	s.cron.Start()

	s.logger.Info().
		Str("schedule", schedule).
		Str("stale_after", s.staleAfter.String()).
		Msg("Stale-processing sweeper started")

	return nil
}

// Stop halts the schedule. A sweep in flight runs to completion.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Sweep fails every processing document whose last update is older than the
// stale threshold.
func (s *Sweeper) Sweep() {
	docs, err := s.storage.ListDocumentsByStatus(models.StatusProcessing)
	if err != nil {
		s.logger.Error().Err(err).Msg("Stale sweep could not list processing documents")
		return
	}

	cutoff := time.Now().Add(-s.staleAfter)
	swept := 0
	for _, doc := range docs {
		if doc.UpdatedAt.After(cutoff) {
			continue
		}

		now := time.Now()
		doc.Status = models.StatusFailed
		doc.Error = "processing interrupted: document orphaned by a service restart"
		doc.CompletedAt = &now
		if err := s.storage.SaveDocument(doc); err != nil {
			s.logger.Error().Err(err).Str("document_id", doc.ID).Msg("Failed to sweep stale document")
			continue
		}
		swept++
	}

	if swept > 0 {
		s.logger.Warn().Int("documents", swept).Msg("Failed stale processing documents")
	}
}
