package alert

import (
	"testing"
)

func TestAlertDisabledWithoutIds(t *testing.T) {
	// no bot or chat id means alerting is off; must not reach out anywhere
	SendTelegramMessage("votebot", "", "chat", "hi")
	SendTelegramMessage("votebot", "bot", "", "hi")
	SendTelegramMessage("votebot", "bot", "chat", "")
}
