package models

import "testing"

func TestParseAction(t *testing.T) {
	for _, a := range Actions {
		got, err := ParseAction(string(a))
		if err != nil || got != a {
			t.Errorf("ParseAction(%q) = %q, %v", a, got, err)
		}
	}

	if _, err := ParseAction("activity_deleted"); err == nil {
		t.Error("expected error for unknown action")
	}
	if Action("").Valid() {
		t.Error("empty action should be invalid")
	}
}

func TestActionCategory(t *testing.T) {
	tests := map[Action]string{
		ActionCommentMentioned:  "mention",
		ActionActivityAssigned:  "activity",
		ActionActivityOverdue:   "activity",
		ActionProjectInvitation: "project",
		ActionMemberJoined:      "project",
		ActionMessageReceived:   "all",
		ActionCommentAdded:      "all",
	}
	for action, want := range tests {
		if got := action.Category(); got != want {
			t.Errorf("%s.Category() = %q, want %q", action, got, want)
		}
	}
}

func TestActionTitleAndIcon(t *testing.T) {
	if got := ActionActivityDueSoon.Title(); got != "Due Date Approaching" {
		t.Errorf("unexpected title %q", got)
	}
	if got := ActionActivityOverdue.IconType(); got != "warning" {
		t.Errorf("unexpected icon %q", got)
	}
	if got := Action("bogus").Title(); got != "Notification" {
		t.Errorf("unexpected fallback title %q", got)
	}
}

func TestNotificationMeta(t *testing.T) {
	n := &Notification{Metadata: `{"days_until_due":3}`}
	if got := n.Meta()["days_until_due"]; got != float64(3) {
		t.Errorf("unexpected meta value %v", got)
	}

	n.Metadata = "{broken"
	if len(n.Meta()) != 0 {
		t.Error("expected empty map for malformed metadata")
	}
}

func TestNotifiableKind(t *testing.T) {
	if !ActivityTarget(4).Kind.Valid() {
		t.Error("activity kind should be valid")
	}
	if NotifiableKind("todo").Valid() {
		t.Error("unknown kind should be invalid")
	}
}

func TestUserDisplayName(t *testing.T) {
	u := &User{Email: "pat@example.com"}
	if u.DisplayName() != "pat@example.com" {
		t.Errorf("expected email fallback, got %q", u.DisplayName())
	}
	u.Username = NormalizeUsername("  Pat_R ")
	if u.DisplayName() != "pat_r" {
		t.Errorf("expected normalized username, got %q", u.DisplayName())
	}
	if NormalizeUsername("   ") != nil {
		t.Error("blank username should normalize to nil")
	}
	var nobody *User
	if nobody.DisplayName() != "Someone" {
		t.Error("nil user should display as Someone")
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Site.Lead@Example.COM "); got != "site.lead@example.com" {
		t.Errorf("unexpected normalized email %q", got)
	}
}
