package services

import (
	"reflect"
	"testing"

	"github.com/huangang/campy/internal/models"
	"github.com/huangang/campy/internal/testutil"
)

type messagingFixture struct {
	*testEnv
	svc      *MessagingService
	owner    *models.User
	alice    *models.User
	bob      *models.User
	observer *models.User
	outsider *models.User
	project  *models.Project
}

func newMessagingFixture(t *testing.T) *messagingFixture {
	env := newEnv(t)
	f := &messagingFixture{testEnv: env, svc: NewMessagingService(env.db, env.notifications, env.hub)}
	f.owner = testutil.CreateUser(t, env.db, "owner@example.com")
	f.alice = testutil.CreateUser(t, env.db, "alice@example.com")
	f.bob = testutil.CreateUser(t, env.db, "bob@example.com")
	f.observer = testutil.CreateUser(t, env.db, "observer@example.com")
	f.outsider = testutil.CreateUser(t, env.db, "outsider@example.com")
	f.project = testutil.CreateProject(t, env.db, f.owner, "Bridge")
	testutil.AddMember(t, env.db, f.project, f.alice, models.MemberRoleContributor)
	testutil.AddMember(t, env.db, f.project, f.bob, models.MemberRoleSubcontractor)
	testutil.AddMember(t, env.db, f.project, f.observer, models.MemberRoleObserver)
	return f
}

func TestMessagingService_Teammates(t *testing.T) {
	f := newMessagingFixture(t)

	users, err := f.svc.Teammates(f.as(f.owner))
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, u := range users {
		names = append(names, u.Email)
	}
	want := []string{"alice@example.com", "bob@example.com"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("teammates = %v, want %v", names, want)
	}

	users, err = f.svc.Teammates(f.as(f.outsider))
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 0 {
		t.Errorf("outsider teammates = %d", len(users))
	}
}

func TestMessagingService_Start(t *testing.T) {
	f := newMessagingFixture(t)

	_, err := f.svc.Start(f.as(f.alice), &StartConversationRequest{UserID: f.alice.ID})
	wantErr(t, err, ErrSelfMessage)
	_, err = f.svc.Start(f.as(f.alice), &StartConversationRequest{UserID: f.outsider.ID})
	wantErr(t, err, ErrNotTeammate)
	_, err = f.svc.Start(f.as(f.alice), &StartConversationRequest{UserID: f.observer.ID})
	wantErr(t, err, ErrNotTeammate)

	c, err := f.svc.Start(f.as(f.alice), &StartConversationRequest{UserID: f.bob.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Memberships) != 2 {
		t.Fatalf("memberships = %d", len(c.Memberships))
	}
	again, err := f.svc.Start(f.as(f.bob), &StartConversationRequest{UserID: f.alice.ID})
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != c.ID {
		t.Errorf("second start = %d, want existing %d", again.ID, c.ID)
	}
	if n := count(t, f.db, &models.Conversation{}, ""); n != 1 {
		t.Errorf("conversations = %d", n)
	}
}

func TestMessagingService_Send(t *testing.T) {
	f := newMessagingFixture(t)
	c, err := f.svc.Start(f.as(f.alice), &StartConversationRequest{UserID: f.bob.ID})
	if err != nil {
		t.Fatal(err)
	}
	events := f.hub.Subscribe("bob-tab", f.bob.ID)
	defer f.hub.Unsubscribe("bob-tab")

	msg, err := f.svc.Send(f.as(f.alice), c.ID, &SendMessageRequest{Body: " hello "})
	if err != nil {
		t.Fatal(err)
	}
	if msg.Body != "hello" || msg.User == nil || msg.User.ID != f.alice.ID {
		t.Errorf("message = %+v", msg)
	}

	seen := map[string]bool{}
	for len(events) > 0 {
		seen[(<-events).Type] = true
	}
	if !seen[EventMessage] || !seen[EventNotification] {
		t.Errorf("bob events = %v", seen)
	}

	ns := notificationsOf(t, f.db, f.bob.ID)
	if len(ns) != 1 || ns[0].Action != models.ActionMessageReceived || ns[0].NotifiableID != msg.ID {
		t.Fatalf("bob notifications = %+v", ns)
	}
	if got := len(notificationsOf(t, f.db, f.alice.ID)); got != 0 {
		t.Errorf("sender notified %d times", got)
	}

	_, err = f.svc.Send(f.as(f.alice), c.ID, &SendMessageRequest{Body: "  "})
	wantField(t, err, "body")
	_, err = f.svc.Send(f.as(f.owner), c.ID, &SendMessageRequest{Body: "peek"})
	wantErr(t, err, ErrNotFound)
}

func TestMessagingService_RevokedTeammate(t *testing.T) {
	f := newMessagingFixture(t)
	c, err := f.svc.Start(f.as(f.alice), &StartConversationRequest{UserID: f.bob.ID})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Send(f.as(f.alice), c.ID, &SendMessageRequest{Body: "first"}); err != nil {
		t.Fatal(err)
	}

	if err := f.db.Where("user_id = ?", f.bob.ID).Delete(&models.ProjectMembership{}).Error; err != nil {
		t.Fatal(err)
	}

	_, err = f.svc.Send(f.as(f.alice), c.ID, &SendMessageRequest{Body: "still there?"})
	wantErr(t, err, ErrNotTeammate)
	_, _, err = f.svc.Get(f.as(f.alice), c.ID)
	wantErr(t, err, ErrNotTeammate)

	list, err := f.svc.List(f.as(f.alice))
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].CanMessage || list[0].LastMessage == nil || list[0].LastMessage.Body != "first" {
		t.Errorf("list = %+v", list)
	}
}

func TestMessagingService_Get(t *testing.T) {
	f := newMessagingFixture(t)
	c, _ := f.svc.Start(f.as(f.owner), &StartConversationRequest{UserID: f.alice.ID})
	for _, body := range []string{"one", "two", "three"} {
		if _, err := f.svc.Send(f.as(f.owner), c.ID, &SendMessageRequest{Body: body}); err != nil {
			t.Fatal(err)
		}
	}

	view, messages, err := f.svc.Get(f.as(f.alice), c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !view.CanMessage || len(view.Users) != 2 {
		t.Errorf("view = %+v", view)
	}
	var bodies []string
	for _, m := range messages {
		bodies = append(bodies, m.Body)
	}
	if !reflect.DeepEqual(bodies, []string{"one", "two", "three"}) {
		t.Errorf("messages = %v", bodies)
	}
}
