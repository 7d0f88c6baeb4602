package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/huangang/campy/internal/models"
)

type fakeStore struct {
	roles      map[roleKey]Role
	owners     map[uint]uint
	teams      map[uint][]Team
	err        error
	roleCalls  int
	ownerCalls int
	teamCalls  int
}

func (f *fakeStore) MembershipRole(_ context.Context, projectID, userID uint) (Role, error) {
	f.roleCalls++
	if f.err != nil {
		return RoleNone, f.err
	}
	return f.roles[roleKey{projectID, userID}], nil
}

func (f *fakeStore) ProjectOwnerID(_ context.Context, projectID uint) (uint, error) {
	f.ownerCalls++
	if f.err != nil {
		return 0, f.err
	}
	return f.owners[projectID], nil
}

func (f *fakeStore) AccessibleTeams(_ context.Context, userID uint) ([]Team, error) {
	f.teamCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.teams[userID], nil
}

const (
	ownerID    uint = 1
	contribID  uint = 2
	subID      uint = 3
	observerID uint = 4
	strangerID uint = 5
)

func newFixture() (*fakeStore, *models.Project) {
	project := &models.Project{ID: 10, OwnerID: ownerID}
	store := &fakeStore{
		roles: map[roleKey]Role{
			{10, contribID}:  RoleContributor,
			{10, subID}:      RoleSubcontractor,
			{10, observerID}: RoleObserver,
		},
		owners: map[uint]uint{10: ownerID},
	}
	return store, project
}

func TestResolveRole(t *testing.T) {
	store, project := newFixture()
	c := NewChecker(context.Background(), store)

	tests := []struct {
		user uint
		want Role
	}{
		{ownerID, RoleOwner},
		{contribID, RoleContributor},
		{subID, RoleSubcontractor},
		{observerID, RoleObserver},
		{strangerID, RoleNone},
		{0, RoleNone},
	}
	for _, tt := range tests {
		if got := c.ResolveRole(project, tt.user); got != tt.want {
			t.Errorf("ResolveRole(user %d) = %s, want %s", tt.user, got, tt.want)
		}
	}
	if got := c.ResolveRole(nil, ownerID); got != RoleNone {
		t.Errorf("nil project resolved to %s", got)
	}
}

func TestResolveRole_OwnerSkipsLookup(t *testing.T) {
	store, project := newFixture()
	c := NewChecker(context.Background(), store)
	c.ResolveRole(project, ownerID)
	if store.roleCalls != 0 {
		t.Errorf("owner check should not hit the store, got %d calls", store.roleCalls)
	}
}

func TestResolveRole_Memoized(t *testing.T) {
	store, project := newFixture()
	c := NewChecker(context.Background(), store)

	for i := 0; i < 5; i++ {
		c.CanManageProject(project, contribID)
		c.CanAccessProject(project, contribID)
		c.ResolveRole(project, strangerID)
	}
	if store.roleCalls != 2 {
		t.Errorf("expected 2 store lookups, got %d", store.roleCalls)
	}

	fresh := NewChecker(context.Background(), store)
	fresh.ResolveRole(project, contribID)
	if store.roleCalls != 3 {
		t.Errorf("a new checker must not share the cache, got %d lookups", store.roleCalls)
	}
}

func TestResolveRole_StoreErrorDenies(t *testing.T) {
	store, project := newFixture()
	store.err = errors.New("db down")
	c := NewChecker(context.Background(), store)

	if c.CanAccessProject(project, contribID) {
		t.Error("store failure must deny access")
	}
	if !c.CanManageProject(project, ownerID) {
		t.Error("owner check does not need the store")
	}
}

func TestObserverScenario(t *testing.T) {
	store, project := newFixture()
	c := NewChecker(context.Background(), store)
	if c.CanManageProject(project, observerID) {
		t.Error("observer must not manage project")
	}
	if !c.CanAccessProject(project, observerID) {
		t.Error("observer must access project")
	}
	if c.CanAccessFiles(project, observerID) {
		t.Error("observer must not access files")
	}
	if c.CanBeAssigned(project, observerID) {
		t.Error("observer must not be assignable")
	}
}

func TestActivityCapabilities(t *testing.T) {
	store, project := newFixture()
	sub := subID
	assigned := &models.Activity{ID: 1, ProjectID: project.ID, Project: project, AssigneeID: &sub}
	other := &models.Activity{ID: 2, ProjectID: project.ID, Project: project}

	c := NewChecker(context.Background(), store)

	if !c.CanUpdateActivityStatus(assigned, subID) {
		t.Error("assigned subcontractor should toggle status")
	}
	if c.CanUpdateActivityStatus(other, subID) {
		t.Error("subcontractor should not toggle unassigned activity")
	}
	if !c.CanCommentOnActivity(assigned, subID) || c.CanCommentOnActivity(other, subID) {
		t.Error("subcontractor comment rule violated")
	}
	if !c.CanCommentOnActivity(other, contribID) || !c.CanCommentOnActivity(other, ownerID) {
		t.Error("managers should comment on any activity")
	}
	if c.CanCommentOnActivity(other, observerID) || c.CanCommentOnActivity(other, strangerID) {
		t.Error("observer and strangers should not comment")
	}
	if !c.CanViewActivity(other, observerID) || c.CanViewActivity(other, strangerID) {
		t.Error("view rule violated")
	}
}

func TestActivityCapabilities_LoadsOwnerOnce(t *testing.T) {
	store, _ := newFixture()
	c := NewChecker(context.Background(), store)
	bare := &models.Activity{ID: 3, ProjectID: 10}

	if !c.CanUpdateActivityStatus(bare, ownerID) {
		t.Error("owner should toggle any activity")
	}
	c.CanCommentOnActivity(bare, ownerID)
	if store.ownerCalls != 1 {
		t.Errorf("expected one owner lookup, got %d", store.ownerCalls)
	}
}

func TestCanMessageUser(t *testing.T) {
	store := &fakeStore{
		teams: map[uint][]Team{
			contribID: {
				{ProjectID: 10, OwnerID: ownerID, Members: []Member{
					{UserID: contribID, Role: RoleContributor},
					{UserID: subID, Role: RoleSubcontractor},
					{UserID: observerID, Role: RoleObserver},
				}},
			},
		},
	}
	c := NewChecker(context.Background(), store)

	tests := []struct {
		target uint
		want   bool
	}{
		{ownerID, true},
		{subID, true},
		{observerID, false},
		{strangerID, false},
		{contribID, false},
		{0, false},
	}
	for _, tt := range tests {
		if got := c.CanMessageUser(tt.target, contribID); got != tt.want {
			t.Errorf("CanMessageUser(%d) = %v, want %v", tt.target, got, tt.want)
		}
	}
	if store.teamCalls != 1 {
		t.Errorf("teammate set should be computed once per checker, got %d", store.teamCalls)
	}
	if c.CanMessageUser(contribID, 0) {
		t.Error("absent current user must not message")
	}
}

func TestTeammateSet(t *testing.T) {
	teams := []Team{
		{ProjectID: 1, OwnerID: 7, Members: []Member{{UserID: 8, Role: RoleObserver}, {UserID: 9, Role: RoleSubcontractor}}},
		{ProjectID: 2, OwnerID: 9, Members: []Member{{UserID: 7, Role: RoleContributor}}},
	}
	set := TeammateSet(7, teams)
	if _, ok := set[9]; !ok {
		t.Error("expected 9 in teammates")
	}
	if _, ok := set[8]; ok {
		t.Error("observer 8 must be excluded")
	}
	if _, ok := set[7]; ok {
		t.Error("current user must be excluded")
	}
	if len(set) != 1 {
		t.Errorf("unexpected set %v", set)
	}
}
