package services

import (
	"context"
	"reflect"
	"task_tracker/internal/models"
	"testing"
	"time"
)

func TestCreateTaskRequiresAssignees(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.seedProject(t, "Alpha")

	_, err := env.taskSvc.Create(ctx, p.ID, CreateTaskInput{Title: "Teaser", Category: string(models.Post)})
	wantErr(t, err, ErrNoAssignees)
	if KindOf(err) != KindValidation {
		t.Fatalf("kind = %v, want validation", KindOf(err))
	}
	if len(env.store.tasks) != 0 {
		t.Fatalf("task persisted despite missing assignees")
	}
}

func TestCreateTaskValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ann := env.seedUser(t, "ann", models.RoleUser, "")
	p := env.seedProject(t, "Alpha", ann)

	valid := CreateTaskInput{Title: "Teaser", Category: string(models.Post), AssigneeIDs: []uint{ann.ID}}

	tests := []struct {
		name   string
		mutate func(in *CreateTaskInput)
		want   Kind
	}{
		{"blank title", func(in *CreateTaskInput) { in.Title = "  " }, KindValidation},
		{"unknown category", func(in *CreateTaskInput) { in.Category = "Podcast" }, KindValidation},
		{"unknown status", func(in *CreateTaskInput) { in.Status = "Published" }, KindValidation},
		{"unknown assignee", func(in *CreateTaskInput) { in.AssigneeIDs = []uint{404} }, KindNotFound},
		{"bad frequency", func(in *CreateTaskInput) {
			in.Recurrence = RecurrenceInput{IsRecurring: true, Frequency: "yearly"}
		}, KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			_, err := env.taskSvc.Create(ctx, p.ID, in)
			if KindOf(err) != tt.want {
				t.Fatalf("err = %v (kind %v), want kind %v", err, KindOf(err), tt.want)
			}
		})
	}

	_, err := env.taskSvc.Create(ctx, 999, valid)
	wantErr(t, err, ErrProjectNotFound)

	task, err := env.taskSvc.Create(ctx, p.ID, valid)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.Status != string(models.StatusToDo) || task.Description != "" || task.Recurrence != nil {
		t.Fatalf("defaults not applied: %+v", task)
	}

	_, err = env.taskSvc.Create(ctx, p.ID, valid)
	wantErr(t, err, ErrDuplicateTask)

	other := env.seedProject(t, "Beta", ann)
	if _, err := env.taskSvc.Create(ctx, other.ID, valid); err != nil {
		t.Fatalf("same title in another project: %v", err)
	}

	project, _ := env.projectSvc.Get(ctx, admin(), p.ID)
	if len(project.Tasks) != 1 || project.Tasks[0].ID != task.ID {
		t.Fatalf("project task list = %+v", project.Tasks)
	}
}

func TestTransitionStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ann := env.seedUser(t, "ann", models.RoleUser, "")
	bob := env.seedUser(t, "bob", models.RoleUser, "")
	p := env.seedProject(t, "Alpha", ann, bob)
	task := env.seedTask(t, p, "Teaser", ann)

	_, err := env.taskSvc.TransitionStatus(ctx, principalOf(bob), task.ID, string(models.StatusInProgress))
	wantErr(t, err, ErrForbidden)

	_, err = env.taskSvc.TransitionStatus(ctx, principalOf(ann), task.ID, "Published")
	if KindOf(err) != KindValidation {
		t.Fatalf("invalid status: err = %v", err)
	}

	_, err = env.taskSvc.TransitionStatus(ctx, principalOf(ann), 999, string(models.StatusInProgress))
	wantErr(t, err, ErrTaskNotFound)
	_, err = env.taskSvc.TransitionStatus(ctx, principalOf(ann), 999, "Published")
	wantErr(t, err, ErrTaskNotFound)

	got, err := env.taskSvc.TransitionStatus(ctx, principalOf(ann), task.ID, string(models.StatusInReview))
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if got.Status != string(models.StatusInReview) || len(got.CompletedDates) != 0 {
		t.Fatalf("after review: %+v", got)
	}

	got, err = env.taskSvc.TransitionStatus(ctx, admin(), task.ID, string(models.StatusCompleted))
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if len(got.CompletedDates) != 1 || !got.CompletedDates[0].Equal(env.now) {
		t.Fatalf("completed dates = %v", got.CompletedDates)
	}
}

func TestCompletedTaskIsTerminal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ann := env.seedUser(t, "ann", models.RoleUser, "")
	p := env.seedProject(t, "Alpha", ann)
	task := env.seedTask(t, p, "Teaser", ann)

	if _, err := env.taskSvc.TransitionStatus(ctx, principalOf(ann), task.ID, string(models.StatusCompleted)); err != nil {
		t.Fatal(err)
	}
	before, _ := env.tasks.GetByID(ctx, task.ID)

	for _, status := range []string{string(models.StatusCompleted), string(models.StatusToDo)} {
		_, err := env.taskSvc.TransitionStatus(ctx, principalOf(ann), task.ID, status)
		wantErr(t, err, ErrTaskAlreadyCompleted)
	}

	_, err := env.taskSvc.Update(ctx, admin(), task.ID, UpdateTaskInput{
		Title:       "Renamed",
		Category:    string(models.Post),
		Status:      string(models.StatusToDo),
		AssigneeIDs: []uint{ann.ID},
	})
	wantErr(t, err, ErrTaskAlreadyCompleted)
	if KindOf(err) != KindForbidden {
		t.Fatalf("kind = %v, want forbidden", KindOf(err))
	}

	after, _ := env.tasks.GetByID(ctx, task.ID)
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("completed task changed:\nbefore %+v\nafter  %+v", before, after)
	}
}

func TestUpdateTaskReplacesFields(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ann := env.seedUser(t, "ann", models.RoleUser, "")
	bob := env.seedUser(t, "bob", models.RoleUser, "")
	p := env.seedProject(t, "Alpha", ann, bob)
	task := env.seedTask(t, p, "Teaser", ann)

	end := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	got, err := env.taskSvc.Update(ctx, principalOf(ann), task.ID, UpdateTaskInput{
		Title:       "Teaser v2",
		Category:    string(models.LandscapeVideo),
		Status:      string(models.StatusInProgress),
		AssigneeIDs: []uint{bob.ID},
		Recurrence:  RecurrenceInput{IsRecurring: true, Frequency: "weekly", Interval: 0, EndDate: &end},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Title != "Teaser v2" || got.Category != string(models.LandscapeVideo) || got.DueDate != nil {
		t.Fatalf("fields not replaced: %+v", got.Task)
	}
	if len(got.Assignees) != 1 || got.Assignees[0].ID != bob.ID {
		t.Fatalf("assignees = %+v", got.Assignees)
	}
	wantRule := &models.Recurrence{Frequency: "weekly", Interval: 1, EndDate: &end}
	if !reflect.DeepEqual(got.Recurrence, wantRule) || !got.IsRecurring {
		t.Fatalf("recurrence = %+v, want %+v", got.Recurrence, wantRule)
	}

	// ann is no longer an assignee.
	_, err = env.taskSvc.Update(ctx, principalOf(ann), task.ID, UpdateTaskInput{
		Title: "x", Category: string(models.Post), AssigneeIDs: []uint{ann.ID},
	})
	wantErr(t, err, ErrForbidden)

	got, err = env.taskSvc.Update(ctx, principalOf(bob), task.ID, UpdateTaskInput{
		Title:       "Teaser v2",
		Category:    string(models.LandscapeVideo),
		Status:      string(models.StatusCompleted),
		AssigneeIDs: []uint{bob.ID},
	})
	if err != nil {
		t.Fatalf("complete via update: %v", err)
	}
	if got.Recurrence != nil || got.IsRecurring {
		t.Fatalf("recurrence not cleared: %+v", got.Recurrence)
	}
	if len(got.CompletedDates) != 1 {
		t.Fatalf("completed dates = %v", got.CompletedDates)
	}

	_, err = env.taskSvc.Update(ctx, admin(), 999, UpdateTaskInput{Title: "x", Category: string(models.Post), AssigneeIDs: []uint{bob.ID}})
	wantErr(t, err, ErrTaskNotFound)
}

func TestUpdateTaskRejectsEmptyAssignees(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ann := env.seedUser(t, "ann", models.RoleUser, "")
	p := env.seedProject(t, "Alpha", ann)
	task := env.seedTask(t, p, "Teaser", ann)

	_, err := env.taskSvc.Update(ctx, admin(), task.ID, UpdateTaskInput{Title: "Teaser", Category: string(models.Reel)})
	wantErr(t, err, ErrNoAssignees)
}

func TestDeleteTask(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ann := env.seedUser(t, "ann", models.RoleUser, "")
	p := env.seedProject(t, "Alpha", ann)
	task := env.seedTask(t, p, "Teaser", ann)
	if _, err := env.commentSvc.Add(ctx, principalOf(ann), task.ID, "first"); err != nil {
		t.Fatal(err)
	}

	if err := env.taskSvc.Delete(ctx, task.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	wantErr(t, env.taskSvc.Delete(ctx, task.ID), ErrTaskNotFound)

	project, _ := env.projectSvc.Get(ctx, admin(), p.ID)
	if len(project.Tasks) != 0 {
		t.Fatalf("project still lists %d tasks", len(project.Tasks))
	}
	if len(env.store.comments) != 0 {
		t.Fatalf("comments of deleted task survived")
	}
}

func TestListTasks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ann := env.seedUser(t, "ann", models.RoleUser, "")
	bob := env.seedUser(t, "bob", models.RoleUser, "")
	p := env.seedProject(t, "Alpha", ann)
	t1 := env.seedTask(t, p, "One", ann)
	env.seedTask(t, p, "Two", ann, bob)

	mine, err := env.taskSvc.ListByAssignee(ctx, ann.ID)
	if err != nil || len(mine) != 2 {
		t.Fatalf("ann's tasks = %d, err %v", len(mine), err)
	}
	theirs, _ := env.taskSvc.ListByAssignee(ctx, bob.ID)
	if len(theirs) != 1 {
		t.Fatalf("bob's tasks = %d", len(theirs))
	}

	if _, err := env.taskSvc.ListByProject(ctx, principalOf(bob), p.ID); err != ErrProjectNotFound {
		t.Fatalf("non-member listing project: err = %v", err)
	}
	byProject, err := env.taskSvc.ListByProject(ctx, principalOf(ann), p.ID)
	if err != nil || len(byProject) != 2 || byProject[0].ID != t1.ID {
		t.Fatalf("project tasks = %+v, err %v", byProject, err)
	}

	all, _ := env.taskSvc.ListAll(ctx)
	if len(all) != 2 {
		t.Fatalf("all tasks = %d", len(all))
	}
}

func TestTaskViewResolvesCommentAuthors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ann := env.seedUser(t, "ann", models.RoleUser, "")
	p := env.seedProject(t, "Alpha", ann)
	task := env.seedTask(t, p, "Teaser", ann)

	if _, err := env.commentSvc.Add(ctx, principalOf(ann), task.ID, "looks good"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.commentSvc.Add(ctx, &Principal{ID: 4242, Role: string(models.RoleAdmin)}, task.ID, "from a removed account"); err != nil {
		t.Fatal(err)
	}

	views, err := env.taskSvc.ListByAssignee(ctx, ann.ID)
	if err != nil {
		t.Fatal(err)
	}
	comments := views[0].Comments
	if len(comments) != 2 {
		t.Fatalf("comments = %+v", comments)
	}
	if comments[0].User.Name != "ann" || comments[1].User.Name != unknownAuthor {
		t.Fatalf("authors = %q, %q", comments[0].User.Name, comments[1].User.Name)
	}
}
