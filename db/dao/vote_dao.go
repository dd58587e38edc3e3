package dao

import (
	"time"

	"gorm.io/gorm"

	"github.com/discord-votebot/common"
	"github.com/discord-votebot/db/model"
	"github.com/discord-votebot/logging"
)

type VoteDao struct {
	DB *gorm.DB
}

func NewVoteDao(db *gorm.DB) *VoteDao {
	return &VoteDao{
		DB: db,
	}
}

// AddVote persists a draft vote with its points and role filters as one
// transaction and reads the stored vote back. The id is assigned by storage.
func (d *VoteDao) AddVote(vote *model.Vote) (*model.Vote, error) {
	if len(vote.Points) == 0 {
		return nil, common.ErrEmptyPoints
	}
	for _, point := range vote.Points {
		if (point.Emoji == "") == (point.CustomEmojiId == "") {
			return nil, common.ErrInvalidEmoji
		}
	}

	now := time.Now().Unix()
	vote.CreatedTime = now
	vote.UpdatedTime = now

	err := d.DB.Transaction(func(dbTx *gorm.DB) error {
		if err := dbTx.Create(vote).Error; err != nil {
			return err
		}
		for _, point := range vote.Points {
			point.VoteId = vote.Id
			point.CreatedTime = now
			point.UpdatedTime = now
			if err := dbTx.Create(point).Error; err != nil {
				return err
			}
		}
		for _, filter := range vote.RoleFilters {
			filter.VoteId = vote.Id
			filter.MessageId = vote.MessageId
			if err := dbTx.Create(filter).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logging.Logger.Errorf("add vote failed, guildId=%s, err=%+v", vote.GuildId, err)
		return nil, common.NewStorageError("AddVote", vote.GuildId, 0, err)
	}

	return d.GetVoteById(vote.Id)
}

// ActivateVote binds the sent poll message to the vote and its role-filter
// rows in one transaction. The first stored message id wins; re-activating
// with the same id is the idempotent path, a different id fails.
func (d *VoteDao) ActivateVote(vote *model.Vote) (*model.Vote, error) {
	if vote.MessageId == "" {
		return nil, common.ErrMissingMessage
	}
	if vote.Id <= 0 {
		return nil, common.ErrNotPersisted
	}

	err := d.DB.Transaction(func(dbTx *gorm.DB) error {
		res := dbTx.Model(&model.Vote{}).
			Where("id = ? AND (message_id = '' OR message_id = ?)", vote.Id, vote.MessageId).
			Updates(map[string]interface{}{
				"message_id":   vote.MessageId,
				"updated_time": time.Now().Unix(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return gorm.ErrRecordNotFound
		}
		return dbTx.Model(&model.VoteRoleFilter{}).
			Where("vote_id = ?", vote.Id).
			Update("message_id", vote.MessageId).Error
	})
	if err != nil {
		logging.Logger.Errorf("activate vote failed, guildId=%s, voteId=%d, messageId=%s, err=%+v",
			vote.GuildId, vote.Id, vote.MessageId, err)
		return nil, common.NewStorageError("ActivateVote", vote.GuildId, vote.Id, err)
	}

	return d.GetVoteById(vote.Id)
}

// GetVoteById returns the vote with its points (ordered, index 0 first) and
// role filters.
func (d *VoteDao) GetVoteById(id int64) (*model.Vote, error) {
	vote := model.Vote{}
	err := d.DB.Where("id = ?", id).Take(&vote).Error
	if err != nil {
		logging.Logger.Errorf("get vote failed, voteId=%d, err=%+v", id, err)
		return nil, common.NewStorageError("GetVoteById", "", id, err)
	}
	if err := d.assemble([]*model.Vote{&vote}); err != nil {
		return nil, common.NewStorageError("GetVoteById", vote.GuildId, id, err)
	}
	return &vote, nil
}

// GetAll returns every vote recorded for a guild. A point-less or filter-less
// vote is still returned, with empty collections.
func (d *VoteDao) GetAll(guildId string) ([]*model.Vote, error) {
	votes := make([]*model.Vote, 0)
	err := d.DB.Where("guild_id = ?", guildId).Order("id asc").Find(&votes).Error
	if err != nil {
		logging.Logger.Errorf("get all votes failed, guildId=%s, err=%+v", guildId, err)
		return nil, common.NewStorageError("GetAll", guildId, 0, err)
	}
	if err := d.assemble(votes); err != nil {
		return nil, common.NewStorageError("GetAll", guildId, 0, err)
	}
	return votes, nil
}

// GetAllExpired returns the guild's votes whose finish time is set and at or
// before asOf.
func (d *VoteDao) GetAllExpired(guildId string, asOf int64) ([]*model.Vote, error) {
	votes := make([]*model.Vote, 0)
	err := d.DB.Where("guild_id = ? AND finish_time > 0 AND finish_time <= ?", guildId, asOf).
		Order("finish_time asc").
		Find(&votes).Error
	if err != nil {
		logging.Logger.Errorf("get expired votes failed, guildId=%s, asOf=%d, err=%+v", guildId, asOf, err)
		return nil, common.NewStorageError("GetAllExpired", guildId, 0, err)
	}
	if err := d.assemble(votes); err != nil {
		return nil, common.NewStorageError("GetAllExpired", guildId, 0, err)
	}
	return votes, nil
}

// GetAllActivated returns every vote of every guild that has been bound to a
// poll message, used to resume tracking after a restart.
func (d *VoteDao) GetAllActivated() ([]*model.Vote, error) {
	votes := make([]*model.Vote, 0)
	err := d.DB.Where("message_id <> ''").Order("id asc").Find(&votes).Error
	if err != nil {
		logging.Logger.Errorf("get activated votes failed, err=%+v", err)
		return nil, common.NewStorageError("GetAllActivated", "", 0, err)
	}
	if err := d.assemble(votes); err != nil {
		return nil, common.NewStorageError("GetAllActivated", "", 0, err)
	}
	return votes, nil
}

// GetAllOrphaned lists votes that were persisted but never activated and are
// older than the given creation time. These are left behind when the process
// dies between AddVote and ActivateVote.
func (d *VoteDao) GetAllOrphaned(createdBefore int64) ([]*model.Vote, error) {
	votes := make([]*model.Vote, 0)
	err := d.DB.Where("message_id = '' AND created_time <= ?", createdBefore).
		Order("id asc").
		Find(&votes).Error
	if err != nil {
		logging.Logger.Errorf("get orphaned votes failed, createdBefore=%d, err=%+v", createdBefore, err)
		return nil, common.NewStorageError("GetAllOrphaned", "", 0, err)
	}
	if err := d.assemble(votes); err != nil {
		return nil, common.NewStorageError("GetAllOrphaned", "", 0, err)
	}
	return votes, nil
}

// GetAllowedRoles returns the role ids allowed to vote on the given poll
// message, without resolving the full vote.
func (d *VoteDao) GetAllowedRoles(messageId string) ([]string, error) {
	roleIds := make([]string, 0)
	err := d.DB.Model(&model.VoteRoleFilter{}).
		Where("message_id = ?", messageId).
		Pluck("role_id", &roleIds).Error
	if err != nil {
		logging.Logger.Errorf("get allowed roles failed, messageId=%s, err=%+v", messageId, err)
		return nil, common.NewStorageError("GetAllowedRoles", "", 0, err)
	}
	return roleIds, nil
}

// DeleteVote removes the vote's points, role filters and the vote row itself.
// All three deletions are attempted; only a surviving vote row makes the
// deletion fail, orphaned child rows carry no referential meaning.
func (d *VoteDao) DeleteVote(vote *model.Vote) bool {
	if err := d.DB.Where("vote_id = ?", vote.Id).Delete(&model.VotePoint{}).Error; err != nil {
		logging.Logger.Errorf("delete vote points failed, guildId=%s, voteId=%d, err=%+v",
			vote.GuildId, vote.Id, err)
	}
	if err := d.DB.Where("vote_id = ?", vote.Id).Delete(&model.VoteRoleFilter{}).Error; err != nil {
		logging.Logger.Errorf("delete vote role filters failed, guildId=%s, voteId=%d, err=%+v",
			vote.GuildId, vote.Id, err)
	}
	if err := d.DB.Where("id = ?", vote.Id).Delete(&model.Vote{}).Error; err != nil {
		logging.Logger.Errorf("delete vote failed, guildId=%s, voteId=%d, err=%+v",
			vote.GuildId, vote.Id, err)
		return false
	}
	return true
}

func (d *VoteDao) assemble(votes []*model.Vote) error {
	if len(votes) == 0 {
		return nil
	}

	voteIds := make([]int64, 0, len(votes))
	byId := make(map[int64]*model.Vote, len(votes))
	for _, vote := range votes {
		vote.Points = make([]*model.VotePoint, 0)
		vote.RoleFilters = make([]*model.VoteRoleFilter, 0)
		voteIds = append(voteIds, vote.Id)
		byId[vote.Id] = vote
	}

	points := make([]*model.VotePoint, 0)
	err := d.DB.Where("vote_id IN ?", voteIds).Order("id asc").Find(&points).Error
	if err != nil {
		return err
	}
	for _, point := range points {
		if vote, ok := byId[point.VoteId]; ok {
			vote.Points = append(vote.Points, point)
		}
	}

	filters := make([]*model.VoteRoleFilter, 0)
	err = d.DB.Where("vote_id IN ?", voteIds).Order("id asc").Find(&filters).Error
	if err != nil {
		return err
	}
	for _, filter := range filters {
		if vote, ok := byId[filter.VoteId]; ok {
			vote.RoleFilters = append(vote.RoleFilters, filter)
		}
	}
	return nil
}
