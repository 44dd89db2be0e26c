package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/echonet/echonet/pkg/internal/models"
	"github.com/echonet/echonet/pkg/internal/platform"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// SweepReport summarizes one expiry pass. Failures are collected per record
// and left for the next cycle instead of aborting the sweep.
type SweepReport struct {
	SweepID string            `json:"sweep_id"`
	Expired int               `json:"expired"`
	Removed []string          `json:"removed"`
	Failed  map[string]string `json:"failed"`
}

// Sweeper periodically reconciles the registry against expiry deadlines,
// reusing the engine's deletion semantics record by record.
type Sweeper struct {
	engine *Engine
}

func NewSweeper(engine *Engine) *Sweeper {
	return &Sweeper{engine: engine}
}

// RunSweepOnce scans for expired records, tears each down independently and
// persists all removals in a single batched write at the end.
func (v *Sweeper) RunSweepOnce(ctx context.Context) SweepReport {
	report := SweepReport{
		SweepID: uuid.NewString(),
		Removed: []string{},
		Failed:  map[string]string{},
	}

	e := v.engine
	expired, err := e.expiredSnapshot(e.now())
	if err != nil {
		log.Error().Err(err).Msg("Unable to load the registry for sweeping...")
		report.Failed["registry"] = err.Error()
		return report
	}
	report.Expired = len(expired)
	if len(expired) == 0 {
		return report
	}

	log.Info().Str("sweep", report.SweepID).Int("expired", len(expired)).Msg("Now sweeping expired channels...")

	for _, record := range expired {
		if err := e.platform.DeleteChannel(ctx, record.ChannelID, "Time limit expired"); err != nil && !errors.Is(err, platform.ErrNotFound) {
			report.Failed[record.ChannelID] = err.Error()
			log.Warn().Err(err).Str("channel", record.ChannelID).Msg("Unable to delete an expired channel, retrying next sweep...")
			continue
		}

		// The owner hears about it once the channel is actually gone.
		if err := e.platform.SendDirectMessage(ctx, record.OwnerID, fmt.Sprintf("Your voice channel **%s** has expired and been deleted.", record.Name)); err != nil {
			log.Debug().Err(err).Str("user", record.OwnerID).Msg("Unable to notify an owner about expiry...")
		}

		if ref := record.MenuMessageRef; ref != nil {
			if err := e.platform.DeleteMessage(ctx, ref.ChannelID, ref.MessageID); err != nil && !errors.Is(err, platform.ErrNotFound) {
				log.Warn().Err(err).Str("channel", record.ChannelID).Msg("Unable to delete the management menu of an expired channel...")
			}
		}

		report.Removed = append(report.Removed, record.ChannelID)
		if e.audit != nil {
			sweepId := report.SweepID
			e.audit.Record(models.AuditEntry{
				SweepID:   &sweepId,
				ChannelID: record.ChannelID,
				ActorID:   ActorSweeper,
				Action:    "expire",
				Detail:    fmt.Sprintf("expired_at=%s", record.ExpiresAt.Format(time.RFC3339)),
			})
		}
	}

	if err := e.dropAll(report.Removed); err != nil {
		log.Error().Err(err).Str("sweep", report.SweepID).Msg("Unable to persist the sweep result...")
		report.Failed["registry"] = err.Error()
	}

	log.Info().
		Str("sweep", report.SweepID).
		Int("removed", len(report.Removed)).
		Int("failed", len(report.Failed)).
		Msg("Sweep of expired channels accomplished.")

	return report
}
