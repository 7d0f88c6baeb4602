package services

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/huangang/campy/internal/models"
	"github.com/huangang/campy/internal/testutil"
)

func TestMentions(t *testing.T) {
	tests := []struct {
		body string
		want []string
	}{
		{"@Bob please check", []string{"bob"}},
		{"cc @bob, @carol_2 and @bob again.", []string{"bob", "carol_2"}},
		{"mail me at bob@example.com", nil},
		{"thanks @dave.", []string{"dave"}},
		{"no mentions here", nil},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			if got := Mentions(tt.body); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Mentions(%q) = %v, expected %v", tt.body, got, tt.want)
			}
		})
	}
}

type commentFixture struct {
	*testEnv
	svc      *CommentService
	owner    *models.User
	sub      *models.User
	other    *models.User
	observer *models.User
	project  *models.Project
	activity *models.Activity
}

func newCommentFixture(t *testing.T) *commentFixture {
	env := newEnv(t)
	f := &commentFixture{testEnv: env, svc: NewCommentService(env.db, env.notifications)}
	f.owner = testutil.CreateUser(t, env.db, "owner@example.com")
	f.sub = testutil.CreateUser(t, env.db, "sub@example.com")
	f.other = testutil.CreateUser(t, env.db, "other@example.com")
	f.observer = testutil.CreateUser(t, env.db, "observer@example.com")
	f.project = testutil.CreateProject(t, env.db, f.owner, "Tower")
	testutil.AddMember(t, env.db, f.project, f.sub, models.MemberRoleSubcontractor)
	testutil.AddMember(t, env.db, f.project, f.other, models.MemberRoleSubcontractor)
	testutil.AddMember(t, env.db, f.project, f.observer, models.MemberRoleObserver)
	f.activity = testutil.CreateActivity(t, env.db, f.project, "Framing", testutil.Date(2025, 6, 1), testutil.Date(2025, 6, 20), f.sub)
	return f
}

func TestCommentService_Permissions(t *testing.T) {
	f := newCommentFixture(t)

	if _, err := f.svc.Create(f.as(f.sub), f.activity.ID, &CreateCommentRequest{Body: "on it"}); err != nil {
		t.Errorf("assigned subcontractor should comment: %v", err)
	}
	_, err := f.svc.Create(f.as(f.other), f.activity.ID, &CreateCommentRequest{Body: "me too"})
	wantErr(t, err, ErrForbidden)
	_, err = f.svc.Create(f.as(f.observer), f.activity.ID, &CreateCommentRequest{Body: "hmm"})
	wantErr(t, err, ErrForbidden)
	_, err = f.svc.Create(f.as(f.owner), f.activity.ID, &CreateCommentRequest{Body: "  "})
	wantField(t, err, "body")

	if _, err := f.svc.List(f.as(f.observer), f.activity.ID); err != nil {
		t.Errorf("observer should read comments: %v", err)
	}
}

func TestCommentService_Threads(t *testing.T) {
	f := newCommentFixture(t)
	actor := f.as(f.owner)

	root, err := f.svc.Create(actor, f.activity.ID, &CreateCommentRequest{Body: "root"})
	if err != nil {
		t.Fatal(err)
	}
	reply, err := f.svc.Create(actor, f.activity.ID, &CreateCommentRequest{Body: "reply", ParentID: &root.ID})
	if err != nil {
		t.Fatal(err)
	}
	nested, err := f.svc.Create(actor, f.activity.ID, &CreateCommentRequest{Body: "nested", ParentID: &reply.ID})
	if err != nil {
		t.Fatal(err)
	}
	if nested.ParentID == nil || *nested.ParentID != root.ID {
		t.Errorf("nested reply parent = %v, want root", nested.ParentID)
	}
	second, _ := f.svc.Create(actor, f.activity.ID, &CreateCommentRequest{Body: "second"})

	elsewhere := testutil.CreateActivity(t, f.db, f.project, "Other", testutil.Date(2025, 6, 1), testutil.Date(2025, 6, 2), nil)
	_, err = f.svc.Create(actor, elsewhere.ID, &CreateCommentRequest{Body: "x", ParentID: &root.ID})
	wantErr(t, err, ErrInvalidParent)
	_, err = f.svc.Create(actor, f.activity.ID, &CreateCommentRequest{Body: "x", ParentID: uintPtr(9999)})
	wantErr(t, err, ErrInvalidParent)

	list, err := f.svc.List(actor, f.activity.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != second.ID || list[1].ID != root.ID {
		t.Fatalf("roots = %+v", list)
	}
	if len(list[1].Replies) != 2 || list[1].Replies[0].ID != reply.ID {
		t.Errorf("replies = %+v", list[1].Replies)
	}
}

func TestCommentService_Notifications(t *testing.T) {
	f := newCommentFixture(t)
	outsider := testutil.CreateUser(t, f.db, "outsider@example.com")

	c, err := f.svc.Create(f.as(f.sub), f.activity.ID, &CreateCommentRequest{Body: "@owner @observer @outsider @ghost ready"})
	if err != nil {
		t.Fatal(err)
	}

	mention := []models.Action{models.ActionCommentMentioned}
	if got := actionsOf(notificationsOf(t, f.db, f.owner.ID)); !reflect.DeepEqual(got, mention) {
		t.Errorf("owner = %v, want a single mention", got)
	}
	if got := actionsOf(notificationsOf(t, f.db, f.observer.ID)); !reflect.DeepEqual(got, mention) {
		t.Errorf("observer = %v", got)
	}
	if got := notificationsOf(t, f.db, f.sub.ID); len(got) != 0 {
		t.Errorf("author notified: %v", actionsOf(got))
	}
	if got := notificationsOf(t, f.db, outsider.ID); len(got) != 0 {
		t.Errorf("user outside the project notified: %v", actionsOf(got))
	}
	if got := notificationsOf(t, f.db, f.other.ID); len(got) != 0 {
		t.Errorf("unmentioned member notified: %v", actionsOf(got))
	}

	ns := notificationsOf(t, f.db, f.owner.ID)
	if URL(&ns[0]) != fmt.Sprintf("/activities/%d", f.activity.ID) || ns[0].NotifiableID != c.ID {
		t.Errorf("mention target = %+v", ns[0])
	}

	if _, err := f.svc.Create(f.as(f.owner), f.activity.ID, &CreateCommentRequest{Body: "thanks"}); err != nil {
		t.Fatal(err)
	}
	if got := actionsOf(notificationsOf(t, f.db, f.sub.ID)); !reflect.DeepEqual(got, []models.Action{models.ActionCommentAdded}) {
		t.Errorf("assignee = %v", got)
	}
}

func TestCommentService_Delete(t *testing.T) {
	f := newCommentFixture(t)

	root, _ := f.svc.Create(f.as(f.sub), f.activity.ID, &CreateCommentRequest{Body: "root"})
	reply, _ := f.svc.Create(f.as(f.owner), f.activity.ID, &CreateCommentRequest{Body: "reply", ParentID: &root.ID})
	if _, err := f.svc.ToggleReaction(f.as(f.owner), reply.ID, &ReactionRequest{Emoji: models.ReactionEmojis[0]}); err != nil {
		t.Fatal(err)
	}

	wantErr(t, f.svc.Delete(f.as(f.other), root.ID), ErrForbidden)
	if err := f.svc.Delete(f.as(f.sub), root.ID); err != nil {
		t.Fatalf("author delete: %v", err)
	}
	if n := count(t, f.db, &models.Comment{}, ""); n != 0 {
		t.Errorf("comments left = %d", n)
	}
	if n := count(t, f.db, &models.CommentReaction{}, ""); n != 0 {
		t.Errorf("reactions left = %d", n)
	}
	if n := count(t, f.db, &models.Notification{}, "notifiable_kind = ?", models.NotifiableComment); n != 0 {
		t.Errorf("comment notifications left = %d", n)
	}
	wantErr(t, f.svc.Delete(f.as(f.owner), root.ID), ErrNotFound)
}

func TestCommentService_ToggleReaction(t *testing.T) {
	f := newCommentFixture(t)
	c, _ := f.svc.Create(f.as(f.owner), f.activity.ID, &CreateCommentRequest{Body: "looks good"})
	thumbs, party := models.ReactionEmojis[0], models.ReactionEmojis[1]

	s, err := f.svc.ToggleReaction(f.as(f.observer), c.ID, &ReactionRequest{Emoji: thumbs})
	if err != nil {
		t.Fatal(err)
	}
	if !s.Added || s.Counts[thumbs] != 1 || !reflect.DeepEqual(s.Mine, []string{thumbs}) {
		t.Errorf("after add = %+v", s)
	}

	f.svc.ToggleReaction(f.as(f.owner), c.ID, &ReactionRequest{Emoji: thumbs})
	f.svc.ToggleReaction(f.as(f.owner), c.ID, &ReactionRequest{Emoji: party})

	s, err = f.svc.ToggleReaction(f.as(f.observer), c.ID, &ReactionRequest{Emoji: thumbs})
	if err != nil {
		t.Fatal(err)
	}
	if s.Added || s.Counts[thumbs] != 1 || s.Counts[party] != 1 || len(s.Mine) != 0 {
		t.Errorf("after remove = %+v", s)
	}

	_, err = f.svc.ToggleReaction(f.as(f.owner), c.ID, &ReactionRequest{Emoji: "🦄"})
	wantField(t, err, "emoji")

	outsider := testutil.CreateUser(t, f.db, "outsider@example.com")
	_, err = f.svc.ToggleReaction(f.as(outsider), c.ID, &ReactionRequest{Emoji: thumbs})
	wantErr(t, err, ErrForbidden)
}
