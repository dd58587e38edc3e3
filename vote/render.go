package vote

import (
	"fmt"
	"strings"

	"github.com/discord-votebot/db/model"
)

func renderEmoji(point *model.VotePoint) string {
	if point.CustomEmojiId != "" {
		return fmt.Sprintf("<:%s:%s>", point.CustomEmojiName, point.CustomEmojiId)
	}
	return point.Emoji
}

func renderPoll(vote *model.Vote) string {
	var b strings.Builder
	b.WriteString(vote.Description)
	b.WriteString("\n")
	for _, point := range vote.Points {
		fmt.Fprintf(&b, "\n%s %s", renderEmoji(point), point.Text)
	}
	return b.String()
}

// renderResult is emitted on every finalization, zero counts included.
func renderResult(vote *model.Vote, ranking Ranking) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Vote #%d finished: %s\n", vote.Id, vote.Description)
	for i, entry := range ranking {
		fmt.Fprintf(&b, "\n%d. %s %s: %d", i+1, renderEmoji(entry.Point), entry.Point.Text, entry.Count)
	}
	if ranking.Tied() {
		b.WriteString("\n\nThe vote ended in a tie.")
	}
	return b.String()
}
