package channel

import (
	"strings"

	"github.com/flemzord/dashbot/pkg/message"
)

// AllowList controls which users and chats may use the bot. An empty
// AllowList is open: every sender is allowed. Callers should warn about
// open lists at startup.
type AllowList struct {
	users  map[string]struct{}
	groups map[string]struct{}
}

// NewAllowList creates an AllowList with O(1) lookups. Keys are trimmed and
// lowercased at construction time so that IsAllowed can use direct map lookups.
func NewAllowList(users, groups []string) *AllowList {
	a := &AllowList{
		users:  make(map[string]struct{}, len(users)),
		groups: make(map[string]struct{}, len(groups)),
	}
	for _, u := range users {
		if k := normalize(u); k != "" {
			a.users[k] = struct{}{}
		}
	}
	for _, g := range groups {
		if k := normalize(g); k != "" {
			a.groups[k] = struct{}{}
		}
	}
	return a
}

// IsOpen reports whether the list has no entries and thus allows everyone.
func (a *AllowList) IsOpen() bool {
	return a == nil || (len(a.users) == 0 && len(a.groups) == 0)
}

// IsAllowed reports whether the message sender or chat is permitted.
//
// Rules:
//   - If both maps are empty → allow.
//   - If the sender's ID or username matches a user entry → allow.
//   - If the chat's ID matches a group entry → allow.
//   - Otherwise → deny.
func (a *AllowList) IsAllowed(msg message.InboundMessage) bool {
	if a.IsOpen() {
		return true
	}

	if _, ok := a.users[normalize(msg.Sender.ID)]; ok {
		return true
	}
	if msg.Sender.Username != "" {
		if _, ok := a.users["@"+normalize(msg.Sender.Username)]; ok {
			return true
		}
	}
	if _, ok := a.groups[normalize(msg.Chat.ID)]; ok {
		return true
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
