package migration

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/discord-votebot/config"
	"github.com/discord-votebot/db/dao"
	"github.com/discord-votebot/db/model"
	"github.com/discord-votebot/metrics"
)

var testMetrics = metrics.NewMetricService(&config.Config{})

type migrationSuite struct {
	suite.Suite
	db       *dao.Database
	manager  *dao.DaoManager
	migrator *Migrator
}

func TestMigrationSuite(t *testing.T) {
	suite.Run(t, new(migrationSuite))
}

func (s *migrationSuite) SetupTest() {
	db, err := dao.RunDB(dao.GetDBName(s))
	s.Require().NoError(err)
	s.db = db

	model.InitVoteTable(db.DB)
	model.InitVotePointTable(db.DB)
	model.InitVoteRoleFilterTable(db.DB)

	s.manager = dao.NewDaoManager(dao.NewVoteDao(db.DB))
	s.migrator = NewMigrator(s.manager, testMetrics)
}

func (s *migrationSuite) TearDownTest() {
	s.Require().NoError(s.db.ClearDB())
	s.Require().NoError(s.db.StopDB())
}

func legacyVote(messageId string) LegacyVote {
	return LegacyVote{
		ChannelId:   "200",
		MessageId:   messageId,
		Description: "legacy poll",
		EndDate:     1700000000,
		VotePoints: []LegacyVotePoint{
			{Text: "Yes", Emoji: "\U0001F44D"},
			{Text: "No", Emoji: "\U0001F44E"},
		},
		AllowedRoles: []string{"300"},
	}
}

func (s *migrationSuite) TestMigrateServer() {
	data := &LegacyServerData{ActiveVotes: []LegacyVote{legacyVote("500")}}

	migrated, failed := s.migrator.MigrateServer("100", data)
	s.Require().Equal(1, migrated)
	s.Require().Equal(0, failed)

	votes, err := s.manager.GetAll("100")
	s.Require().NoError(err)
	s.Require().Len(votes, 1)

	vote := votes[0]
	s.Require().Equal("500", vote.MessageId) // original message id preserved
	s.Require().True(vote.HasTimer)
	s.Require().EqualValues(1700000000, vote.FinishTime)
	s.Require().Len(vote.Points, 2)
	s.Require().Len(vote.RoleFilters, 1)
	s.Require().Equal("500", vote.RoleFilters[0].MessageId)
}

func (s *migrationSuite) TestMigrateServerSplitsMentionEmotes() {
	legacy := legacyVote("500")
	legacy.VotePoints[0] = LegacyVotePoint{Text: "Wave", Emoji: "<:blobwave:4000>"}
	data := &LegacyServerData{ActiveVotes: []LegacyVote{legacy}}

	migrated, failed := s.migrator.MigrateServer("100", data)
	s.Require().Equal(1, migrated)
	s.Require().Equal(0, failed)

	votes, err := s.manager.GetAll("100")
	s.Require().NoError(err)
	s.Require().Len(votes, 1)

	point := votes[0].Points[0]
	s.Require().Equal("", point.Emoji)
	s.Require().Equal("4000", point.CustomEmojiId)
	s.Require().Equal("blobwave", point.CustomEmojiName)
}

func (s *migrationSuite) TestMigrateServerContinuesPastFailures() {
	broken := legacyVote("") // no message id, cannot be activated
	data := &LegacyServerData{ActiveVotes: []LegacyVote{broken, legacyVote("501")}}

	migrated, failed := s.migrator.MigrateServer("100", data)
	s.Require().Equal(1, migrated)
	s.Require().Equal(1, failed)

	// the failed record must not leave a partial vote behind
	votes, err := s.manager.GetAll("100")
	s.Require().NoError(err)
	s.Require().Len(votes, 1)
	s.Require().Equal("501", votes[0].MessageId)
}

func (s *migrationSuite) TestMigrateDir() {
	dir := s.T().TempDir()
	data := LegacyServerData{ActiveVotes: []LegacyVote{legacyVote("500")}}
	bz, err := json.Marshal(&data)
	s.Require().NoError(err)
	path := filepath.Join(dir, "100.json")
	s.Require().NoError(os.WriteFile(path, bz, 0o600))

	s.Require().NoError(s.migrator.MigrateDir(dir))

	votes, err := s.manager.GetAll("100")
	s.Require().NoError(err)
	s.Require().Len(votes, 1)

	// the file is renamed so a restart does not import it twice
	_, err = os.Stat(path)
	s.Require().True(os.IsNotExist(err))
	_, err = os.Stat(path + ".migrated")
	s.Require().NoError(err)
}

func (s *migrationSuite) TestMigrateDirMissing() {
	s.Require().NoError(s.migrator.MigrateDir(filepath.Join(s.T().TempDir(), "nope")))
	s.Require().NoError(s.migrator.MigrateDir(""))
}
