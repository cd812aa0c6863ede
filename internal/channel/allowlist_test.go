package channel

import (
	"testing"

	"github.com/flemzord/dashbot/pkg/message"
)

func dmMsg(senderID string) message.InboundMessage {
	return message.InboundMessage{
		Sender: message.Sender{ID: senderID},
		Chat:   message.Chat{ID: senderID, Type: message.ChatDM},
	}
}

func groupMsg(senderID, groupID string) message.InboundMessage {
	return message.InboundMessage{
		Sender: message.Sender{ID: senderID},
		Chat:   message.Chat{ID: groupID, Type: message.ChatGroup},
	}
}

func TestAllowList_NilAllowsAll(t *testing.T) {
	t.Parallel()
	var a *AllowList
	if !a.IsOpen() || !a.IsAllowed(dmMsg("1001")) {
		t.Error("nil AllowList should allow everyone")
	}
}

func TestAllowList_EmptyAllowsAll(t *testing.T) {
	t.Parallel()
	a := NewAllowList(nil, []string{"  "})
	if !a.IsOpen() {
		t.Error("blank entries should leave the list open")
	}
	if !a.IsAllowed(groupMsg("1001", "-100200")) {
		t.Error("empty AllowList should allow everyone")
	}
}

func TestAllowList_Users(t *testing.T) {
	t.Parallel()
	a := NewAllowList([]string{"1001", "@Manager"}, nil)

	tests := []struct {
		name    string
		msg     message.InboundMessage
		allowed bool
	}{
		{"by id", dmMsg("1001"), true},
		{"unknown id", dmMsg("1002"), false},
		{"by username", message.InboundMessage{Sender: message.Sender{ID: "7", Username: "manager"}}, true},
		{"other username", message.InboundMessage{Sender: message.Sender{ID: "8", Username: "intern"}}, false},
		{"allowed user in any group", groupMsg("1001", "-100200"), true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := a.IsAllowed(tc.msg); got != tc.allowed {
				t.Errorf("IsAllowed = %v, want %v", got, tc.allowed)
			}
		})
	}
}

func TestAllowList_Groups(t *testing.T) {
	t.Parallel()
	a := NewAllowList(nil, []string{" -100200 "})

	if !a.IsAllowed(groupMsg("anyone", "-100200")) {
		t.Error("message in allowed group should pass")
	}
	if a.IsAllowed(groupMsg("anyone", "-100300")) {
		t.Error("message in unknown group should be denied")
	}
	if a.IsAllowed(dmMsg("anyone")) {
		t.Error("DM from unknown user should be denied once the list is closed")
	}
}
