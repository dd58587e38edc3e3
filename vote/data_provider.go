package vote

import (
	"github.com/discord-votebot/db/model"
)

// DataProvider is the persistence surface the controller needs. *dao.DaoManager
// satisfies it; tests substitute failing implementations.
type DataProvider interface {
	AddVote(vote *model.Vote) (*model.Vote, error)
	ActivateVote(vote *model.Vote) (*model.Vote, error)
	GetAll(guildId string) ([]*model.Vote, error)
	GetAllActivated() ([]*model.Vote, error)
	DeleteVote(vote *model.Vote) bool
}
