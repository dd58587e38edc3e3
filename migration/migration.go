package migration

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/discord-votebot/db/model"
	"github.com/discord-votebot/logging"
	"github.com/discord-votebot/metrics"
	"github.com/discord-votebot/util"
	"github.com/discord-votebot/vote"
)

// Legacy vote data: one flat JSON document per guild, written by the old
// settings layer. Converted once at startup into the relational schema.

type LegacyServerData struct {
	ActiveVotes []LegacyVote `json:"activeVotes"`
}

type LegacyVote struct {
	ChannelId    string            `json:"channelId"`
	MessageId    string            `json:"messageId"`
	Description  string            `json:"description"`
	EndDate      int64             `json:"endDate"` // epoch seconds, 0 when no timer
	Exceptional  bool              `json:"exceptional"`
	HasDefault   bool              `json:"hasDefault"`
	WinThreshold int               `json:"winThreshold"`
	VotePoints   []LegacyVotePoint `json:"votePoints"`
	AllowedRoles []string          `json:"allowedRoles"`
}

type LegacyVotePoint struct {
	Text            string `json:"text"`
	Emoji           string `json:"emoji"`
	CustomEmojiId   string `json:"customEmojiId"`
	CustomEmojiName string `json:"customEmojiName"`
}

type Migrator struct {
	dataProvider  vote.DataProvider
	metricService *metrics.MetricService
}

func NewMigrator(dataProvider vote.DataProvider, metricService *metrics.MetricService) *Migrator {
	return &Migrator{
		dataProvider:  dataProvider,
		metricService: metricService,
	}
}

// MigrateDir converts every per-guild legacy file found in dir. A missing dir
// means there is nothing to migrate. Converted files are renamed so a restart
// does not import them twice; a failing file or vote is logged and skipped,
// startup always continues.
func (m *Migrator) MigrateDir(dir string) error {
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		guildId := strings.TrimSuffix(entry.Name(), ".json")
		path := filepath.Join(dir, entry.Name())

		data, err := loadLegacyFile(path)
		if err != nil {
			logging.Logger.Errorf("read legacy vote file failed, path=%s, err=%+v", path, err)
			continue
		}

		migrated, failed := m.MigrateServer(guildId, data)
		logging.Logger.Infof("legacy vote migration, guildId=%s, migrated=%d, failed=%d",
			guildId, migrated, failed)

		if err := os.Rename(path, path+".migrated"); err != nil {
			logging.Logger.Errorf("rename migrated file failed, path=%s, err=%+v", path, err)
		}
	}
	return nil
}

// MigrateServer converts one guild's legacy votes via AddVote and
// ActivateVote, keeping the original poll message id. Each vote converts or
// fails on its own.
func (m *Migrator) MigrateServer(guildId string, data *LegacyServerData) (migrated, failed int) {
	for i := range data.ActiveVotes {
		legacy := &data.ActiveVotes[i]
		if err := m.migrateVote(guildId, legacy); err != nil {
			logging.Logger.Errorf("migrate legacy vote failed, guildId=%s, messageId=%s, err=%+v",
				guildId, legacy.MessageId, err)
			m.metricService.IncMigrationFailed()
			failed++
			continue
		}
		m.metricService.IncMigratedVotes()
		migrated++
	}
	return migrated, failed
}

func (m *Migrator) migrateVote(guildId string, legacy *LegacyVote) error {
	draft := convertVote(guildId, legacy)

	stored, err := m.dataProvider.AddVote(draft)
	if err != nil {
		return err
	}

	stored.MessageId = legacy.MessageId
	_, err = m.dataProvider.ActivateVote(stored)
	if err != nil {
		// roll the half-converted vote back so a later run can retry it
		m.dataProvider.DeleteVote(stored)
		return err
	}
	return nil
}

func convertVote(guildId string, legacy *LegacyVote) *model.Vote {
	points := make([]*model.VotePoint, 0, len(legacy.VotePoints))
	for _, legacyPoint := range legacy.VotePoints {
		point := &model.VotePoint{
			Text:            legacyPoint.Text,
			Emoji:           legacyPoint.Emoji,
			CustomEmojiId:   legacyPoint.CustomEmojiId,
			CustomEmojiName: legacyPoint.CustomEmojiName,
		}
		// some legacy files stored the raw <:name:id> mention instead of
		// split custom emoji fields
		if point.CustomEmojiId == "" {
			if name, id, ok := util.ParseCustomEmote(point.Emoji); ok {
				point.Emoji = ""
				point.CustomEmojiId = id
				point.CustomEmojiName = name
			}
		}
		points = append(points, point)
	}
	filters := make([]*model.VoteRoleFilter, 0, len(legacy.AllowedRoles))
	for _, roleId := range legacy.AllowedRoles {
		filters = append(filters, &model.VoteRoleFilter{RoleId: roleId})
	}
	return &model.Vote{
		GuildId:      guildId,
		ChannelId:    legacy.ChannelId,
		Description:  legacy.Description,
		HasTimer:     legacy.EndDate > 0,
		FinishTime:   legacy.EndDate,
		Exceptional:  legacy.Exceptional,
		HasDefault:   legacy.HasDefault,
		WinThreshold: legacy.WinThreshold,
		Points:       points,
		RoleFilters:  filters,
	}
}

func loadLegacyFile(path string) (*LegacyServerData, error) {
	bz, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data LegacyServerData
	if err := json.Unmarshal(bz, &data); err != nil {
		return nil, err
	}
	return &data, nil
}
