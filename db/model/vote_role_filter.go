package model

import (
	"gorm.io/gorm"
)

// VoteRoleFilter restricts a vote to holders of RoleId. MessageId is
// denormalised from the parent vote so reaction events can be checked without
// resolving the full vote; it is written in the activation transaction.
type VoteRoleFilter struct {
	Id        int64
	VoteId    int64  `gorm:"NOT NULL;index:idx_filter_vote_id"`
	RoleId    string `gorm:"NOT NULL"`
	MessageId string `gorm:"index:idx_filter_message_id"`
}

func (*VoteRoleFilter) TableName() string {
	return "vote_role_filters"
}

func InitVoteRoleFilterTable(db *gorm.DB) {
	if !db.Migrator().HasTable(&VoteRoleFilter{}) {
		err := db.Migrator().CreateTable(&VoteRoleFilter{})
		if err != nil {
			panic(err)
		}
	}
}
