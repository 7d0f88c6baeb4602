package services

import (
	"testing"
	"time"

	"github.com/huangang/campy/internal/models"
	"github.com/huangang/campy/internal/testutil"
)

func TestPercent(t *testing.T) {
	tests := []struct {
		part, total int64
		want        int
	}{
		{0, 0, 0},
		{1, 3, 33},
		{2, 3, 67},
		{4, 4, 100},
	}
	for _, tt := range tests {
		if got := percent(tt.part, tt.total); got != tt.want {
			t.Errorf("percent(%d, %d) = %d, want %d", tt.part, tt.total, got, tt.want)
		}
	}
}

func TestDashboardService_Get(t *testing.T) {
	env := newEnv(t)
	svc := NewDashboardService(env.db, env.clock)

	user := testutil.CreateUser(t, env.db, "user@example.com")
	boss := testutil.CreateUser(t, env.db, "boss@example.com")
	mine := testutil.CreateProject(t, env.db, user, "Mine")
	theirs := testutil.CreateProject(t, env.db, boss, "Theirs")
	testutil.CreateProject(t, env.db, boss, "Hidden")
	testutil.AddMember(t, env.db, theirs, user, models.MemberRoleSubcontractor)

	testutil.CreateActivity(t, env.db, theirs, "Late", day(2025, 6, 1), day(2025, 6, 5), user)
	testutil.CreateActivity(t, env.db, mine, "Soon", day(2025, 6, 10), day(2025, 6, 13), user)
	testutil.CreateActivity(t, env.db, mine, "Finished", day(2025, 6, 1), day(2025, 6, 2), user)
	testutil.CreateActivity(t, env.db, mine, "Far", day(2025, 7, 1), day(2025, 7, 30), user)
	testutil.CreateActivity(t, env.db, theirs, "Someone else", day(2025, 6, 1), day(2025, 6, 2), boss)
	// Everything in Mine is finished, including the upcoming one.
	env.db.Model(&models.Activity{}).Where("project_id = ?", mine.ID).Update("is_done", true)

	for _, e := range []*models.CalendarEvent{
		{UserID: user.ID, Title: "Yesterday", StartAt: testNow.AddDate(0, 0, -1), EndAt: testNow.AddDate(0, 0, -1), EventType: models.EventTypeCustom},
		{UserID: user.ID, Title: "This morning", StartAt: time.Date(2025, 6, 11, 7, 0, 0, 0, time.UTC), EndAt: time.Date(2025, 6, 11, 8, 0, 0, 0, time.UTC), EventType: models.EventTypeCustom},
		{UserID: boss.ID, Title: "Boss only", StartAt: testNow, EndAt: testNow, EventType: models.EventTypeCustom},
	} {
		if err := env.db.Create(e).Error; err != nil {
			t.Fatal(err)
		}
	}

	resp, err := svc.Get(env.as(user))
	if err != nil {
		t.Fatal(err)
	}

	if len(resp.Projects) != 2 {
		t.Errorf("projects = %d, want 2", len(resp.Projects))
	}
	if len(resp.AssignedActivities) != 4 {
		t.Errorf("assigned = %d, want 4", len(resp.AssignedActivities))
	}
	if len(resp.UpcomingEvents) != 1 || resp.UpcomingEvents[0].Title != "This morning" {
		t.Errorf("events = %+v", resp.UpcomingEvents)
	}

	want := ActivityStats{Total: 4, Done: 3, Overdue: 1, Upcoming: 1, DonePct: 75, OverduePct: 25}
	if resp.ActivityStats != want {
		t.Errorf("activity stats = %+v, want %+v", resp.ActivityStats, want)
	}
	wantProjects := ProjectStats{Total: 2, Owned: 1, Active: 1}
	if resp.ProjectStats != wantProjects {
		t.Errorf("project stats = %+v, want %+v", resp.ProjectStats, wantProjects)
	}
}
