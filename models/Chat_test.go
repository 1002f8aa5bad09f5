package models

import "testing"

func TestChatInvolves(t *testing.T) {
	chat := Chat{CreatorID: "u1", Participants: []string{"u2", "u3"}}

	for _, id := range []string{"u1", "u2", "u3"} {
		if !chat.Involves(id) {
			t.Errorf("expected %s to be involved", id)
		}
	}
	if chat.Involves("u9") {
		t.Error("u9 should not be involved")
	}
}

func TestChatAudienceIncludesCreator(t *testing.T) {
	chat := Chat{CreatorID: "u1", Participants: []string{"u2"}}

	audience := chat.Audience()
	if len(audience) != 2 {
		t.Fatalf("expected creator + participant, got %v", audience)
	}
	if audience[0] != "u1" || audience[1] != "u2" {
		t.Fatalf("unexpected audience order: %v", audience)
	}
}

func TestChatAudienceDeduplicates(t *testing.T) {
	chat := Chat{CreatorID: "u1", Participants: []string{"u1", "u2", "u2"}}

	audience := chat.Audience()
	if len(audience) != 2 {
		t.Fatalf("expected deduplicated audience, got %v", audience)
	}
}

func TestStatusAdvances(t *testing.T) {
	cases := []struct {
		current, next MessageStatus
		want          bool
	}{
		{MessageStatusSent, MessageStatusDelivered, true},
		{MessageStatusSent, MessageStatusRead, true},
		{MessageStatusDelivered, MessageStatusRead, true},
		{MessageStatusRead, MessageStatusDelivered, false},
		{MessageStatusDelivered, MessageStatusSent, false},
		{MessageStatusRead, MessageStatusRead, false},
	}
	for _, c := range cases {
		if got := StatusAdvances(c.current, c.next); got != c.want {
			t.Errorf("StatusAdvances(%s, %s) = %v, want %v", c.current, c.next, got, c.want)
		}
	}
}
