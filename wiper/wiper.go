package wiper

import (
	"time"

	"github.com/discord-votebot/common"
	"github.com/discord-votebot/config"
	"github.com/discord-votebot/db/dao"
	"github.com/discord-votebot/logging"
	"github.com/discord-votebot/metrics"
)

const DefaultWipeInterval = 1 * time.Hour

// OrphanWiper is the administrative cleanup path for votes that were
// persisted but never bound to a poll message, e.g. when the process died
// between AddVote and ActivateVote. The controller never tracks them, so a
// periodic sweep removes them once they are older than the configured TTL.
type OrphanWiper struct {
	daoManager    *dao.DaoManager
	cfg           *config.VoteConfig
	metricService *metrics.MetricService
}

func NewOrphanWiper(daoManager *dao.DaoManager, cfg *config.VoteConfig,
	metricService *metrics.MetricService) *OrphanWiper {
	return &OrphanWiper{
		daoManager:    daoManager,
		cfg:           cfg,
		metricService: metricService,
	}
}

func (w *OrphanWiper) WipeLoop() {
	interval := time.Duration(w.cfg.OrphanWipeInterval) * time.Second
	if interval <= 0 {
		interval = DefaultWipeInterval
	}
	ticker := time.NewTicker(interval)
	for range ticker.C {
		err := w.Wipe(time.Now().Unix())
		if err != nil {
			time.Sleep(common.RetryInterval)
		}
	}
}

// Wipe deletes every orphaned vote created more than the TTL before now.
func (w *OrphanWiper) Wipe(now int64) error {
	createdBefore := now - int64(w.cfg.OrphanTTLSec)
	orphans, err := w.daoManager.GetAllOrphaned(createdBefore)
	if err != nil {
		return err
	}
	for _, orphan := range orphans {
		if !w.daoManager.DeleteVote(orphan) {
			logging.Logger.Errorf("wipe orphaned vote failed, guildId=%s, voteId=%d",
				orphan.GuildId, orphan.Id)
			continue
		}
		logging.Logger.Infof("wiped orphaned vote, guildId=%s, voteId=%d, createdTime=%d",
			orphan.GuildId, orphan.Id, orphan.CreatedTime)
		w.metricService.IncOrphansWiped()
	}
	return nil
}
