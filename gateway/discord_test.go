package gateway

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/require"

	"github.com/discord-votebot/config"
)

func TestNewDiscordGatewayDispatchesInOrder(t *testing.T) {
	g, err := NewDiscordGateway(&config.DiscordConfig{Token: "token"})
	require.NoError(t, err)

	// reaction events must reach the handler in gateway delivery order;
	// concurrent dispatch would let a later add apply before an earlier one
	// and an exceptional vote would keep the user's earlier choice
	require.True(t, g.session.SyncEvents)

	require.NotZero(t, g.session.Identify.Intents&discordgo.IntentGuildMessageReactions)
	require.NotZero(t, g.session.Identify.Intents&discordgo.IntentGuildMembers)
}
