package gateway

import (
	"github.com/bwmarrin/discordgo"

	"github.com/discord-votebot/config"
	"github.com/discord-votebot/logging"
)

const reactionPageSize = 100

// DiscordGateway implements Gateway on top of a discordgo session. Events are
// dispatched synchronously so the handler sees reaction adds and removes in
// gateway delivery order; retraction of an earlier choice depends on it.
type DiscordGateway struct {
	session *discordgo.Session
	handler ReactionHandler
}

func NewDiscordGateway(cfg *config.DiscordConfig) (*DiscordGateway, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, err
	}
	// without this discordgo runs every handler invocation on its own
	// goroutine and two rapid events for the same vote can apply inverted
	session.SyncEvents = true
	session.Identify.Intents = discordgo.IntentGuilds |
		discordgo.IntentGuildMembers |
		discordgo.IntentGuildMessages |
		discordgo.IntentGuildMessageReactions

	return &DiscordGateway{session: session}, nil
}

// SetReactionHandler must be called before Start.
func (g *DiscordGateway) SetReactionHandler(handler ReactionHandler) {
	g.handler = handler
}

func (g *DiscordGateway) Start() error {
	g.session.AddHandler(g.onReactionAdd)
	g.session.AddHandler(g.onReactionRemove)
	if err := g.session.Open(); err != nil {
		return err
	}
	logging.Logger.Infof("discord gateway connected, botUserId=%s", g.BotUserId())
	return nil
}

func (g *DiscordGateway) Stop() error {
	return g.session.Close()
}

func (g *DiscordGateway) onReactionAdd(_ *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if g.handler == nil || r.UserID == g.BotUserId() {
		return
	}
	g.handler.OnReactionAdd(r.ChannelID, r.MessageID, r.UserID, emojiKey(&r.Emoji))
}

func (g *DiscordGateway) onReactionRemove(_ *discordgo.Session, r *discordgo.MessageReactionRemove) {
	if g.handler == nil || r.UserID == g.BotUserId() {
		return
	}
	g.handler.OnReactionRemove(r.ChannelID, r.MessageID, r.UserID, emojiKey(&r.Emoji))
}

func (g *DiscordGateway) SendMessage(channelId, content string) (string, error) {
	msg, err := g.session.ChannelMessageSend(channelId, content)
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (g *DiscordGateway) AddReaction(channelId, messageId, emojiAPIName string) error {
	return g.session.MessageReactionAdd(channelId, messageId, emojiAPIName)
}

func (g *DiscordGateway) RemoveReaction(channelId, messageId, emojiAPIName, userId string) error {
	return g.session.MessageReactionRemove(channelId, messageId, emojiAPIName, userId)
}

func (g *DiscordGateway) MessageReactions(channelId, messageId, emojiAPIName string) ([]string, error) {
	userIds := make([]string, 0)
	afterId := ""
	for {
		users, err := g.session.MessageReactions(channelId, messageId, emojiAPIName, reactionPageSize, "", afterId)
		if err != nil {
			return nil, err
		}
		for _, user := range users {
			if user.ID == g.BotUserId() || user.Bot {
				continue
			}
			userIds = append(userIds, user.ID)
		}
		if len(users) < reactionPageSize {
			return userIds, nil
		}
		afterId = users[len(users)-1].ID
	}
}

func (g *DiscordGateway) RoleMembership(guildId, userId string) ([]string, error) {
	member, err := g.session.State.Member(guildId, userId)
	if err != nil {
		member, err = g.session.GuildMember(guildId, userId)
		if err != nil {
			return nil, err
		}
	}
	return member.Roles, nil
}

func (g *DiscordGateway) GuildMembers(guildId string) ([]string, error) {
	userIds := make([]string, 0)
	afterId := ""
	for {
		members, err := g.session.GuildMembers(guildId, afterId, 1000)
		if err != nil {
			return nil, err
		}
		for _, member := range members {
			if member.User == nil || member.User.Bot {
				continue
			}
			userIds = append(userIds, member.User.ID)
		}
		if len(members) < 1000 {
			return userIds, nil
		}
		afterId = members[len(members)-1].User.ID
	}
}

func (g *DiscordGateway) BotUserId() string {
	if g.session.State != nil && g.session.State.User != nil {
		return g.session.State.User.ID
	}
	return ""
}

// emojiKey maps a discord emoji to the vote point identity: the custom emoji
// id when present, the unicode value otherwise.
func emojiKey(emoji *discordgo.Emoji) string {
	if emoji.ID != "" {
		return emoji.ID
	}
	return emoji.Name
}
