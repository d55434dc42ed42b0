package services

import (
	"context"
	"errors"
	"task_tracker/internal/auth"
	"task_tracker/internal/models"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type testEnv struct {
	store     *memStore
	users     *memUserRepo
	projects  *memProjectRepo
	tasks     *memTaskRepo
	tokens    *memTokenStore
	publisher *fakePublisher

	auth       AuthService
	userSvc    UserService
	projectSvc ProjectService
	taskSvc    TaskService
	commentSvc CommentService
	recurSvc   RecurrenceService

	now time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newMemStore()
	env := &testEnv{
		store:     store,
		users:     &memUserRepo{s: store},
		projects:  &memProjectRepo{s: store},
		tasks:     &memTaskRepo{s: store},
		tokens:    newMemTokenStore(),
		publisher: &fakePublisher{},
		now:       time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC),
	}
	log := zap.NewNop()
	clock := func() time.Time { return env.now }

	authSvc := NewAuthService(env.users, auth.NewTokenManager("test-secret", time.Hour), env.tokens, log).(*authService)
	authSvc.now = clock
	env.auth = authSvc

	env.userSvc = NewUserService(env.users, env.projects, env.tokens, NewMailService(env.publisher, "http://app.test"), time.Hour, log)
	env.projectSvc = NewProjectService(env.projects, env.users, log)

	taskSvc := NewTaskService(env.tasks, env.projects, env.users, log).(*taskService)
	taskSvc.now = clock
	env.taskSvc = taskSvc

	commentSvc := NewCommentService(env.tasks, env.projects, env.users, log).(*commentService)
	commentSvc.now = clock
	env.commentSvc = commentSvc

	env.recurSvc = NewRecurrenceService(env.tasks, time.UTC, log)
	return env
}

// seedUser stores an active user directly, with a password when one is given.
func (e *testEnv) seedUser(t *testing.T, name string, role models.UserRole, password string) *models.User {
	t.Helper()
	u := &models.User{Name: name, Email: name + "@example.com", Role: string(role), IsActive: true}
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		if err != nil {
			t.Fatal(err)
		}
		u.PasswordHash = string(hash)
	}
	if err := e.users.Create(context.Background(), u); err != nil {
		t.Fatal(err)
	}
	return u
}

func (e *testEnv) seedProject(t *testing.T, name string, members ...*models.User) *models.Project {
	t.Helper()
	ids := make([]uint, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	p, err := e.projectSvc.Create(context.Background(), ProjectInput{Name: name, Client: "Acme Corp", MemberIDs: ids})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p
}

func (e *testEnv) seedTask(t *testing.T, project *models.Project, title string, assignees ...*models.User) *TaskView {
	t.Helper()
	ids := make([]uint, 0, len(assignees))
	for _, a := range assignees {
		ids = append(ids, a.ID)
	}
	due := e.now
	task, err := e.taskSvc.Create(context.Background(), project.ID, CreateTaskInput{
		Title:       title,
		Category:    string(models.Reel),
		DueDate:     &due,
		AssigneeIDs: ids,
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func admin() *Principal { return &Principal{ID: 0, Role: string(models.RoleAdmin)} }

func principalOf(u *models.User) *Principal { return &Principal{ID: u.ID, Role: u.Role} }

func wantErr(t *testing.T, err, want error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}
}
