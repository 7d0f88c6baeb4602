package services

import (
	"strings"
	"testing"
	"time"

	"github.com/huangang/campy/internal/models"
	"github.com/huangang/campy/internal/testutil"
)

func TestDigestService_Run(t *testing.T) {
	env := newEnv(t)
	sender := &recordingSender{}
	queue := NewSyncQueue()
	queue.SetProcessor(sender.Send)

	// testNow is 10:30, so only 10:xx digests go out.
	due := testutil.CreateUser(t, env.db, "due@example.com")
	env.db.Model(due).Updates(map[string]interface{}{"daily_digest": true, "digest_time": "10:00"})
	otherHour := testutil.CreateUser(t, env.db, "later@example.com")
	env.db.Model(otherHour).Updates(map[string]interface{}{"daily_digest": true, "digest_time": "17:00"})
	optedOut := testutil.CreateUser(t, env.db, "quiet@example.com")
	env.db.Model(optedOut).Update("digest_time", "10:00")
	empty := testutil.CreateUser(t, env.db, "empty@example.com")
	env.db.Model(empty).Updates(map[string]interface{}{"daily_digest": true, "digest_time": "10:15"})

	for _, u := range []*models.User{due, otherHour, optedOut} {
		env.notifications.NotifyEach([]uint{u.ID}, NotifyParams{
			Target:   models.ActivityTarget(1),
			Action:   models.ActionActivityOverdue,
			Metadata: map[string]interface{}{MetaActivityTitle: "Framing"},
		})
	}
	env.notifications.NotifyEach([]uint{due.ID}, NotifyParams{Target: models.ProjectTarget(2), Action: models.ActionMemberJoined,
		Metadata: map[string]interface{}{MetaProjectName: "Tower"}})
	old, _ := env.notifications.Notify(NotifyParams{RecipientID: due.ID, Target: models.ActivityTarget(5), Action: models.ActionActivityAssigned})
	env.db.Model(old).Update("created_at", testNow.Add(-48*time.Hour))
	stale, _ := env.notifications.Notify(NotifyParams{RecipientID: empty.ID, Target: models.ActivityTarget(5), Action: models.ActionActivityAssigned})
	env.db.Model(stale).Update("created_at", testNow.Add(-30*time.Hour))

	sent, err := NewDigestService(env.db, queue, env.clock).Run()
	if err != nil {
		t.Fatal(err)
	}
	queue.Wait()

	if sent != 1 {
		t.Fatalf("sent = %d, want 1", sent)
	}
	tasks := sender.sent()
	if len(tasks) != 1 || tasks[0].To != "due@example.com" {
		t.Fatalf("tasks = %+v", tasks)
	}
	if tasks[0].Subject != "Your daily digest - 2 new notifications" {
		t.Errorf("subject = %q", tasks[0].Subject)
	}
	for _, want := range []string{"Hi due,", "Activities (1)", "- Framing is overdue (/activities/1)", "Projects (1)"} {
		if !strings.Contains(tasks[0].Body, want) {
			t.Errorf("body missing %q:\n%s", want, tasks[0].Body)
		}
	}
	if strings.Contains(tasks[0].Body, "Messages") {
		t.Error("empty sections should be omitted")
	}
}

func TestDigestSubject(t *testing.T) {
	if got := DigestSubject(1); got != "Your daily digest - 1 new notification" {
		t.Errorf("DigestSubject(1) = %q", got)
	}
}
