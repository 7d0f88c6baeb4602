package services

import (
	"testing"

	"github.com/huangang/campy/internal/models"
	"github.com/huangang/campy/internal/scheduling"
	"github.com/huangang/campy/internal/testutil"
)

type activityFixture struct {
	*testEnv
	svc         *ActivityService
	owner       *models.User
	contributor *models.User
	sub         *models.User
	observer    *models.User
	project     *models.Project
}

func newActivityFixture(t *testing.T) *activityFixture {
	env := newEnv(t)
	f := &activityFixture{testEnv: env, svc: NewActivityService(env.db, env.notifications, env.clock)}
	f.owner = testutil.CreateUser(t, env.db, "owner@example.com")
	f.contributor = testutil.CreateUser(t, env.db, "contrib@example.com")
	f.sub = testutil.CreateUser(t, env.db, "sub@example.com")
	f.observer = testutil.CreateUser(t, env.db, "observer@example.com")
	f.project = testutil.CreateProject(t, env.db, f.owner, "Tower")
	testutil.AddMember(t, env.db, f.project, f.contributor, models.MemberRoleContributor)
	testutil.AddMember(t, env.db, f.project, f.sub, models.MemberRoleSubcontractor)
	testutil.AddMember(t, env.db, f.project, f.observer, models.MemberRoleObserver)
	return f
}

func duration(s string) *scheduling.DurationInput {
	d := scheduling.ParseDurationInput(s)
	return &d
}

func TestActivityService_CreateDefaultsDates(t *testing.T) {
	f := newActivityFixture(t)

	a, err := f.svc.Create(f.as(f.owner), f.project.ID, &ActivityInput{Title: strPtr("Survey")})
	if err != nil {
		t.Fatal(err)
	}
	if !a.StartOn.Equal(testutil.Date(2025, 6, 11)) || !a.DueOn.Equal(testutil.Date(2025, 6, 12)) {
		t.Errorf("dates = %v..%v", a.StartOn, a.DueOn)
	}
}

func TestActivityService_CreateDerivesInclusiveDueDate(t *testing.T) {
	f := newActivityFixture(t)

	tests := []struct {
		days string
		due  int
	}{
		{"1", 3},
		{"5", 7},
	}
	for _, tt := range tests {
		t.Run(tt.days, func(t *testing.T) {
			a, err := f.svc.Create(f.as(f.owner), f.project.ID, &ActivityInput{
				Title:        strPtr("Pour"),
				StartOn:      strPtr("2025-03-03"),
				DueOn:        strPtr("2025-12-31"),
				DurationDays: duration(tt.days),
			})
			if err != nil {
				t.Fatal(err)
			}
			if !a.DueOn.Equal(testutil.Date(2025, 3, tt.due)) {
				t.Errorf("due_on = %v, want March %d", a.DueOn, tt.due)
			}
		})
	}
}

func TestActivityService_CreateValidation(t *testing.T) {
	f := newActivityFixture(t)

	tests := []struct {
		name  string
		in    ActivityInput
		field string
	}{
		{"blank title", ActivityInput{Title: strPtr(" ")}, "title"},
		{"bad date", ActivityInput{Title: strPtr("x"), StartOn: strPtr("03/32/2025")}, "start_on"},
		{"due before start", ActivityInput{Title: strPtr("x"), StartOn: strPtr("2025-03-05"), DueOn: strPtr("2025-03-01")}, "due_on"},
		{"zero duration", ActivityInput{Title: strPtr("x"), DurationDays: duration("0")}, "duration_days"},
		{"text duration", ActivityInput{Title: strPtr("x"), DurationDays: duration("abc")}, "duration_days"},
		{"observer assignee", ActivityInput{Title: strPtr("x"), AssigneeID: &f.observer.ID}, "assignee"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(f.as(f.owner), f.project.ID, &tt.in)
			wantField(t, err, tt.field)
		})
	}
	if n := count(t, f.db, &models.Activity{}, ""); n != 0 {
		t.Errorf("invalid activities stored: %d", n)
	}
}

func TestActivityService_Permissions(t *testing.T) {
	f := newActivityFixture(t)
	outsider := testutil.CreateUser(t, f.db, "outsider@example.com")

	_, err := f.svc.Create(f.as(f.sub), f.project.ID, &ActivityInput{Title: strPtr("x")})
	wantErr(t, err, ErrForbidden)

	a, err := f.svc.Create(f.as(f.contributor), f.project.ID, &ActivityInput{Title: strPtr("x"), AssigneeID: &f.sub.ID})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Get(f.as(f.observer), a.ID); err != nil {
		t.Errorf("observer should view: %v", err)
	}
	_, err = f.svc.Get(f.as(outsider), a.ID)
	wantErr(t, err, ErrForbidden)

	_, err = f.svc.Update(f.as(f.sub), a.ID, &ActivityInput{Title: strPtr("y")})
	wantErr(t, err, ErrForbidden)

	toggled, err := f.svc.ToggleDone(f.as(f.sub), a.ID)
	if err != nil || !toggled.IsDone {
		t.Fatalf("assigned subcontractor toggle = %v, %v", toggled, err)
	}
	_, err = f.svc.ToggleDone(f.as(f.observer), a.ID)
	wantErr(t, err, ErrForbidden)

	wantErr(t, f.svc.Delete(f.as(f.sub), a.ID), ErrForbidden)
	if err := f.svc.Delete(f.as(f.contributor), a.ID); err != nil {
		t.Fatal(err)
	}
	_, err = f.svc.Get(f.as(f.owner), a.ID)
	wantErr(t, err, ErrNotFound)
}

func TestActivityService_Notifications(t *testing.T) {
	f := newActivityFixture(t)

	a, err := f.svc.Create(f.as(f.contributor), f.project.ID, &ActivityInput{Title: strPtr("Framing"), AssigneeID: &f.sub.ID})
	if err != nil {
		t.Fatal(err)
	}
	ns := notificationsOf(t, f.db, f.sub.ID)
	if len(ns) != 1 || ns[0].Action != models.ActionActivityAssigned {
		t.Fatalf("sub notifications = %v", actionsOf(ns))
	}
	if Message(&ns[0]) != "contrib assigned you to Framing" {
		t.Errorf("message = %q", Message(&ns[0]))
	}

	if _, err := f.svc.Update(f.as(f.contributor), a.ID, &ActivityInput{Description: strPtr("level 2")}); err != nil {
		t.Fatal(err)
	}
	if got := actionsOf(notificationsOf(t, f.db, f.sub.ID)); len(got) != 2 || got[1] != models.ActionActivityUpdated {
		t.Errorf("sub after update = %v", got)
	}

	if _, err := f.svc.Update(f.as(f.owner), a.ID, &ActivityInput{AssigneeID: &f.contributor.ID}); err != nil {
		t.Fatal(err)
	}
	got := actionsOf(notificationsOf(t, f.db, f.contributor.ID))
	if len(got) != 1 || got[0] != models.ActionActivityAssigned {
		t.Errorf("new assignee should only get assigned: %v", got)
	}
	if n := len(notificationsOf(t, f.db, f.owner.ID)); n != 1 {
		t.Errorf("owner got %d notifications, want 1 from the contributor's update", n)
	}
}

func TestActivityService_UpdateClearsFields(t *testing.T) {
	f := newActivityFixture(t)
	a, err := f.svc.Create(f.as(f.owner), f.project.ID, &ActivityInput{
		Title: strPtr("x"), StartOn: strPtr("2025-03-03"), DurationDays: duration("3"), AssigneeID: &f.sub.ID,
	})
	if err != nil {
		t.Fatal(err)
	}

	updated, err := f.svc.Update(f.as(f.owner), a.ID, &ActivityInput{DurationDays: duration(""), DueOn: strPtr("2025-03-10"), AssigneeID: uintPtr(0)})
	if err != nil {
		t.Fatal(err)
	}
	if updated.DurationDays != nil || updated.AssigneeID != nil {
		t.Errorf("fields not cleared: %+v", updated)
	}
	if !updated.DueOn.Equal(testutil.Date(2025, 3, 10)) {
		t.Errorf("due_on = %v", updated.DueOn)
	}

	_, err = f.svc.Update(f.as(f.owner), a.ID, &ActivityInput{StartOn: strPtr("")})
	wantField(t, err, "start_on")
}

func TestActivityService_ListAndAssigned(t *testing.T) {
	f := newActivityFixture(t)
	first := testutil.CreateActivity(t, f.db, f.project, "first", testutil.Date(2025, 1, 1), testutil.Date(2025, 1, 9), f.sub)
	second := testutil.CreateActivity(t, f.db, f.project, "second", testutil.Date(2025, 1, 5), testutil.Date(2025, 1, 6), f.sub)
	done := testutil.CreateActivity(t, f.db, f.project, "done", testutil.Date(2025, 1, 2), testutil.Date(2025, 1, 3), f.sub)
	f.db.Model(done).Update("is_done", true)
	testutil.CreateActivity(t, f.db, f.project, "other", testutil.Date(2025, 1, 3), testutil.Date(2025, 1, 4), f.contributor)

	all, err := f.svc.List(f.as(f.observer), f.project.ID, &ListActivitiesRequest{})
	if err != nil || len(all) != 4 || all[0].ID != first.ID {
		t.Fatalf("List = %d items, %v", len(all), err)
	}
	active, _ := f.svc.List(f.as(f.observer), f.project.ID, &ListActivitiesRequest{Status: "active", AssigneeID: f.sub.ID})
	if len(active) != 2 {
		t.Errorf("active for sub = %d", len(active))
	}

	mine, err := f.svc.Assigned(f.as(f.sub))
	if err != nil {
		t.Fatal(err)
	}
	var order []uint
	for _, a := range mine {
		order = append(order, a.ID)
	}
	if len(order) != 3 || order[0] != second.ID || order[1] != first.ID || order[2] != done.ID {
		t.Errorf("assigned order = %v", order)
	}
}

func TestActivityService_Reschedule(t *testing.T) {
	f := newActivityFixture(t)
	testutil.CreateActivity(t, f.db, f.project, "anchor", testutil.Date(2025, 3, 1), testutil.Date(2025, 3, 21), nil)
	spanned := testutil.CreateActivity(t, f.db, f.project, "span", testutil.Date(2025, 3, 2), testutil.Date(2025, 3, 4), nil)

	moved, err := f.svc.Reschedule(f.as(f.owner), spanned.ID, &RescheduleRequest{StartOn: "2025-03-10"})
	if err != nil {
		t.Fatal(err)
	}
	if !moved.StartOn.Equal(testutil.Date(2025, 3, 10)) || !moved.DueOn.Equal(testutil.Date(2025, 3, 12)) {
		t.Errorf("moved = %v..%v", moved.StartOn, moved.DueOn)
	}

	days := 4
	f.db.Model(spanned).Update("duration_days", days)
	half := 50.0
	moved, err = f.svc.Reschedule(f.as(f.owner), spanned.ID, &RescheduleRequest{OffsetPercent: &half})
	if err != nil {
		t.Fatal(err)
	}
	if !moved.StartOn.Equal(testutil.Date(2025, 3, 11)) || !moved.DueOn.Equal(testutil.Date(2025, 3, 14)) {
		t.Errorf("offset move = %v..%v", moved.StartOn, moved.DueOn)
	}

	_, err = f.svc.Reschedule(f.as(f.owner), spanned.ID, &RescheduleRequest{})
	wantField(t, err, "start_on")
	_, err = f.svc.Reschedule(f.as(f.observer), spanned.ID, &RescheduleRequest{StartOn: "2025-03-10"})
	wantErr(t, err, ErrForbidden)
}
