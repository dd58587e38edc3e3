package model

import (
	"gorm.io/gorm"
)

// VotePoint is one selectable choice of a vote. Exactly one of Emoji (unicode)
// and CustomEmojiId must be set; CustomEmojiName is carried alongside the id
// so the bot can seed the reaction on the poll message.
type VotePoint struct {
	Id              int64
	VoteId          int64  `gorm:"NOT NULL;index:idx_point_vote_id;uniqueIndex:idx_vote_emoji"`
	Text            string `gorm:"NOT NULL"`
	Emoji           string `gorm:"uniqueIndex:idx_vote_emoji"`
	CustomEmojiId   string `gorm:"uniqueIndex:idx_vote_emoji"`
	CustomEmojiName string
	CreatedTime     int64 `gorm:"NOT NULL"`
	UpdatedTime     int64 `gorm:"NOT NULL"`
}

func (*VotePoint) TableName() string {
	return "vote_points"
}

func InitVotePointTable(db *gorm.DB) {
	if !db.Migrator().HasTable(&VotePoint{}) {
		err := db.Migrator().CreateTable(&VotePoint{})
		if err != nil {
			panic(err)
		}
	}
}

// EmojiKey returns the reaction identity of the point: the unicode value for
// plain emoji, the custom emoji id otherwise.
func (p *VotePoint) EmojiKey() string {
	if p.CustomEmojiId != "" {
		return p.CustomEmojiId
	}
	return p.Emoji
}

// APIName returns the emoji in the form the gateway needs to add a reaction.
func (p *VotePoint) APIName() string {
	if p.CustomEmojiId != "" {
		return p.CustomEmojiName + ":" + p.CustomEmojiId
	}
	return p.Emoji
}
