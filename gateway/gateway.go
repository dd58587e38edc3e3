package gateway

// Gateway is the messaging side of the bot: sending poll and result messages,
// managing reactions and answering role membership questions. The vote
// controller only ever talks to this interface.
type Gateway interface {
	// SendMessage posts content to a channel and returns the message id.
	SendMessage(channelId, content string) (string, error)
	// AddReaction adds the bot's own reaction, seeding a vote point.
	AddReaction(channelId, messageId, emojiAPIName string) error
	// RemoveReaction removes a single user's reaction from a message.
	RemoveReaction(channelId, messageId, emojiAPIName, userId string) error
	// MessageReactions lists the user ids currently reacting with the emoji.
	MessageReactions(channelId, messageId, emojiAPIName string) ([]string, error)
	// RoleMembership returns the role ids the user holds in the guild.
	RoleMembership(guildId, userId string) ([]string, error)
	// GuildMembers returns the user ids of the guild, bot users excluded.
	GuildMembers(guildId string) ([]string, error)
	// BotUserId identifies the bot itself so its reactions are not counted.
	BotUserId() string
}

// ReactionHandler receives live reaction events in gateway delivery order.
type ReactionHandler interface {
	OnReactionAdd(channelId, messageId, userId, emojiKey string)
	OnReactionRemove(channelId, messageId, userId, emojiKey string)
}
