package dao

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/discord-votebot/common"
	"github.com/discord-votebot/db/model"
)

type voteSuite struct {
	suite.Suite
	dao *VoteDao
	db  *Database
}

func TestVoteSuite(t *testing.T) {
	suite.Run(t, new(voteSuite))
}

func (s *voteSuite) SetupTest() {
	db, err := RunDB(GetDBName(s))
	s.Require().NoError(err)
	s.db = db

	model.InitVoteTable(s.db.DB)
	model.InitVotePointTable(s.db.DB)
	model.InitVoteRoleFilterTable(s.db.DB)

	s.dao = NewVoteDao(s.db.DB)
}

func (s *voteSuite) TearDownTest() {
	err := s.db.ClearDB()
	s.Require().NoError(err)
	err = s.db.StopDB()
	s.Require().NoError(err)
}

func (s *voteSuite) createDraft() *model.Vote {
	return &model.Vote{
		GuildId:     "100",
		ChannelId:   "200",
		Description: "pizza or pasta?",
		Points: []*model.VotePoint{
			{Text: "pizza", Emoji: "\U0001F355"},
			{Text: "pasta", Emoji: "\U0001F35D"},
		},
		RoleFilters: []*model.VoteRoleFilter{
			{RoleId: "300"},
		},
	}
}

func (s *voteSuite) TestVoteDao_AddVote() {
	stored, err := s.dao.AddVote(s.createDraft())
	s.Require().NoError(err, "failed to add")
	s.Require().True(stored.Id > 0)
	s.Require().Len(stored.Points, 2)
	s.Require().Len(stored.RoleFilters, 1)
	s.Require().Equal(stored.Id, stored.Points[0].VoteId)
	s.Require().Equal("", stored.MessageId)
}

func (s *voteSuite) TestVoteDao_AddVoteEmptyPoints() {
	draft := s.createDraft()
	draft.Points = nil
	_, err := s.dao.AddVote(draft)
	s.Require().ErrorIs(err, common.ErrEmptyPoints)

	votes, err := s.dao.GetAll(draft.GuildId)
	s.Require().NoError(err)
	s.Require().Len(votes, 0)
}

func (s *voteSuite) TestVoteDao_AddVoteInvalidEmoji() {
	draft := s.createDraft()
	draft.Points[0].CustomEmojiId = "4000" // both identities set
	_, err := s.dao.AddVote(draft)
	s.Require().ErrorIs(err, common.ErrInvalidEmoji)
}

func (s *voteSuite) TestVoteDao_AddVoteAtomic() {
	// a duplicate emoji identity fails the second point insert mid-transaction;
	// nothing of the vote may remain visible afterwards
	draft := s.createDraft()
	draft.Points[1].Emoji = draft.Points[0].Emoji
	_, err := s.dao.AddVote(draft)
	s.Require().Error(err)
	storageErr := &common.StorageError{}
	s.Require().ErrorAs(err, &storageErr)

	votes, err := s.dao.GetAll(draft.GuildId)
	s.Require().NoError(err)
	s.Require().Len(votes, 0)

	points := make([]*model.VotePoint, 0)
	s.Require().NoError(s.db.DB.Find(&points).Error)
	s.Require().Len(points, 0)
}

func (s *voteSuite) TestVoteDao_ActivateVote() {
	stored, err := s.dao.AddVote(s.createDraft())
	s.Require().NoError(err)

	stored.MessageId = "500"
	activated, err := s.dao.ActivateVote(stored)
	s.Require().NoError(err, "failed to activate")
	s.Require().Equal("500", activated.MessageId)
	s.Require().Equal("500", activated.RoleFilters[0].MessageId)
}

func (s *voteSuite) TestVoteDao_ActivateVoteValidation() {
	stored, err := s.dao.AddVote(s.createDraft())
	s.Require().NoError(err)

	_, err = s.dao.ActivateVote(stored)
	s.Require().ErrorIs(err, common.ErrMissingMessage)

	unsaved := s.createDraft()
	unsaved.MessageId = "500"
	_, err = s.dao.ActivateVote(unsaved)
	s.Require().ErrorIs(err, common.ErrNotPersisted)
}

func (s *voteSuite) TestVoteDao_ActivateVoteFirstMessageWins() {
	stored, err := s.dao.AddVote(s.createDraft())
	s.Require().NoError(err)

	stored.MessageId = "500"
	_, err = s.dao.ActivateVote(stored)
	s.Require().NoError(err)

	// reconfirming the stored message id is the idempotent path
	again, err := s.dao.ActivateVote(stored)
	s.Require().NoError(err)
	s.Require().Equal("500", again.MessageId)

	// a different message id must not replace the stored one
	stored.MessageId = "501"
	_, err = s.dao.ActivateVote(stored)
	s.Require().Error(err)

	current, err := s.dao.GetVoteById(stored.Id)
	s.Require().NoError(err)
	s.Require().Equal("500", current.MessageId)
}

func (s *voteSuite) TestVoteDao_GetAll() {
	first, err := s.dao.AddVote(s.createDraft())
	s.Require().NoError(err)

	second := s.createDraft()
	second.RoleFilters = nil
	_, err = s.dao.AddVote(second)
	s.Require().NoError(err)

	votes, err := s.dao.GetAll("100")
	s.Require().NoError(err, "failed to query")
	s.Require().Len(votes, 2)
	s.Require().Equal(first.Id, votes[0].Id)
	s.Require().Len(votes[0].Points, 2)
	s.Require().Len(votes[1].RoleFilters, 0)

	votes, err = s.dao.GetAll("999")
	s.Require().NoError(err)
	s.Require().Len(votes, 0)
}

func (s *voteSuite) TestVoteDao_GetAllExpired() {
	now := time.Now().Unix()

	timed := s.createDraft()
	timed.HasTimer = true
	timed.FinishTime = now - 60
	_, err := s.dao.AddVote(timed)
	s.Require().NoError(err)

	future := s.createDraft()
	future.HasTimer = true
	future.FinishTime = now + 3600
	_, err = s.dao.AddVote(future)
	s.Require().NoError(err)

	untimed := s.createDraft()
	_, err = s.dao.AddVote(untimed)
	s.Require().NoError(err)

	expired, err := s.dao.GetAllExpired("100", now)
	s.Require().NoError(err, "failed to query")
	s.Require().Len(expired, 1)
	s.Require().Equal(timed.FinishTime, expired[0].FinishTime)
}

func (s *voteSuite) TestVoteDao_GetAllowedRoles() {
	stored, err := s.dao.AddVote(s.createDraft())
	s.Require().NoError(err)
	stored.MessageId = "500"
	_, err = s.dao.ActivateVote(stored)
	s.Require().NoError(err)

	roles, err := s.dao.GetAllowedRoles("500")
	s.Require().NoError(err, "failed to query")
	s.Require().Equal([]string{"300"}, roles)

	roles, err = s.dao.GetAllowedRoles("999")
	s.Require().NoError(err)
	s.Require().Len(roles, 0)
}

func (s *voteSuite) TestVoteDao_GetAllOrphaned() {
	stored, err := s.dao.AddVote(s.createDraft())
	s.Require().NoError(err)

	activated, err := s.dao.AddVote(s.createDraft())
	s.Require().NoError(err)
	activated.MessageId = "500"
	_, err = s.dao.ActivateVote(activated)
	s.Require().NoError(err)

	orphans, err := s.dao.GetAllOrphaned(time.Now().Unix())
	s.Require().NoError(err, "failed to query")
	s.Require().Len(orphans, 1)
	s.Require().Equal(stored.Id, orphans[0].Id)

	orphans, err = s.dao.GetAllOrphaned(time.Now().Unix() - 3600)
	s.Require().NoError(err)
	s.Require().Len(orphans, 0)
}

func (s *voteSuite) TestVoteDao_DeleteVote() {
	stored, err := s.dao.AddVote(s.createDraft())
	s.Require().NoError(err)

	ok := s.dao.DeleteVote(stored)
	s.Require().True(ok)

	votes, err := s.dao.GetAll("100")
	s.Require().NoError(err)
	s.Require().Len(votes, 0)

	points := make([]*model.VotePoint, 0)
	s.Require().NoError(s.db.DB.Find(&points).Error)
	s.Require().Len(points, 0)

	filters := make([]*model.VoteRoleFilter, 0)
	s.Require().NoError(s.db.DB.Find(&filters).Error)
	s.Require().Len(filters, 0)
}
