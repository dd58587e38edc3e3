package util

import (
	"strings"
)

func IndexOf(element string, data []string) int {
	for i, v := range data {
		if element == v {
			return i
		}
	}
	return -1
}

// ParseCustomEmote splits a chat-format custom emote like <:name:id> or
// <a:name:id> into its name and id. ok is false for anything else, including
// plain unicode emoji.
func ParseCustomEmote(emote string) (name string, id string, ok bool) {
	if !strings.HasPrefix(emote, "<") || !strings.HasSuffix(emote, ">") {
		return "", "", false
	}
	trimmed := strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(emote, "<a"), "<"), ">")
	trimmed = strings.TrimPrefix(trimmed, ":")
	parts := strings.SplitN(trimmed, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
