package model

import (
	"gorm.io/gorm"
)

// Vote is one poll instance. MessageId stays empty until the poll message has
// been sent and the vote activated; after that it is immutable.
type Vote struct {
	Id           int64
	GuildId      string `gorm:"NOT NULL;index:idx_guild_id"`
	ChannelId    string `gorm:"NOT NULL"`
	MessageId    string `gorm:"index:idx_vote_message_id"`
	Description  string `gorm:"NOT NULL"`
	HasTimer     bool   `gorm:"NOT NULL"`
	FinishTime   int64  `gorm:"NOT NULL;index:idx_finish_time"` // unix seconds, 0 when no timer
	Exceptional  bool   `gorm:"NOT NULL"`
	HasDefault   bool   `gorm:"NOT NULL"`
	WinThreshold int    `gorm:"NOT NULL"` // 0 when unset, only valid with exactly two points
	CreatedTime  int64  `gorm:"NOT NULL"`
	UpdatedTime  int64  `gorm:"NOT NULL"`

	Points      []*VotePoint      `gorm:"-"`
	RoleFilters []*VoteRoleFilter `gorm:"-"`
}

func (*Vote) TableName() string {
	return "votes"
}

func InitVoteTable(db *gorm.DB) {
	if !db.Migrator().HasTable(&Vote{}) {
		err := db.Migrator().CreateTable(&Vote{})
		if err != nil {
			panic(err)
		}
	}
}

// Activated reports whether the vote has been bound to a sent poll message.
func (v *Vote) Activated() bool {
	return v.MessageId != ""
}

// Expired reports whether a timer vote's deadline has passed.
func (v *Vote) Expired(asOf int64) bool {
	return v.HasTimer && v.FinishTime > 0 && v.FinishTime <= asOf
}
