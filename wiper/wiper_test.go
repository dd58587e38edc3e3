package wiper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/discord-votebot/config"
	"github.com/discord-votebot/db/dao"
	"github.com/discord-votebot/db/model"
	"github.com/discord-votebot/metrics"
)

var testMetrics = metrics.NewMetricService(&config.Config{})

type wiperSuite struct {
	suite.Suite
	db      *dao.Database
	manager *dao.DaoManager
	wiper   *OrphanWiper
}

func TestWiperSuite(t *testing.T) {
	suite.Run(t, new(wiperSuite))
}

func (s *wiperSuite) SetupTest() {
	db, err := dao.RunDB(dao.GetDBName(s))
	s.Require().NoError(err)
	s.db = db

	model.InitVoteTable(db.DB)
	model.InitVotePointTable(db.DB)
	model.InitVoteRoleFilterTable(db.DB)

	s.manager = dao.NewDaoManager(dao.NewVoteDao(db.DB))
	s.wiper = NewOrphanWiper(s.manager, &config.VoteConfig{OrphanTTLSec: 3600}, testMetrics)
}

func (s *wiperSuite) TearDownTest() {
	s.Require().NoError(s.db.ClearDB())
	s.Require().NoError(s.db.StopDB())
}

func (s *wiperSuite) addVote() *model.Vote {
	draft := &model.Vote{
		GuildId:     "100",
		ChannelId:   "200",
		Description: "orphan candidate",
		Points: []*model.VotePoint{
			{Text: "Yes", Emoji: "\U0001F44D"},
		},
	}
	stored, err := s.manager.AddVote(draft)
	s.Require().NoError(err)
	return stored
}

func (s *wiperSuite) TestWipeRemovesStaleOrphans() {
	orphan := s.addVote()

	activated := s.addVote()
	activated.MessageId = "500"
	_, err := s.manager.ActivateVote(activated)
	s.Require().NoError(err)

	// both votes were just created; inside the TTL nothing is wiped
	s.Require().NoError(s.wiper.Wipe(time.Now().Unix()))
	votes, err := s.manager.GetAll("100")
	s.Require().NoError(err)
	s.Require().Len(votes, 2)

	// past the TTL only the never-activated vote goes
	s.Require().NoError(s.wiper.Wipe(time.Now().Unix() + 7200))
	votes, err = s.manager.GetAll("100")
	s.Require().NoError(err)
	s.Require().Len(votes, 1)
	s.Require().NotEqual(orphan.Id, votes[0].Id)
	s.Require().Equal("500", votes[0].MessageId)
}
