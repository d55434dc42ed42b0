package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"task_tracker/internal/messaging"
	"task_tracker/internal/models"
	"task_tracker/internal/redis"
	"task_tracker/internal/repository"
	"time"

	"gorm.io/gorm"
)

// memStore is an in-memory stand-in for the database shared by the fake
// repositories below. Reads hand out copies.
type memStore struct {
	mu sync.Mutex

	users    map[uint]models.User
	projects map[uint]models.Project
	members  map[uint][]uint
	tasks    map[uint]models.Task
	comments []models.Comment
	counters map[string]int64

	nextID uint
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[uint]models.User),
		projects: make(map[uint]models.Project),
		members:  make(map[uint][]uint),
		tasks:    make(map[uint]models.Task),
		counters: make(map[string]int64),
	}
}

func (s *memStore) id() uint {
	s.nextID++
	return s.nextID
}

func (s *memStore) usersFor(ids []uint) []models.User {
	var out []models.User
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memStore) taskCopy(t models.Task) models.Task {
	t.Assignees = s.usersFor(idsOf(t.Assignees))
	t.CompletedDates = append([]time.Time(nil), t.CompletedDates...)
	t.Comments = nil
	for _, c := range s.sortedComments() {
		if c.TaskID == t.ID {
			t.Comments = append(t.Comments, c)
		}
	}
	return t
}

func (s *memStore) sortedComments() []models.Comment {
	out := append([]models.Comment(nil), s.comments...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (s *memStore) sortedTasks(keep func(models.Task) bool) []models.Task {
	var out []models.Task
	for _, t := range s.tasks {
		if keep(t) {
			out = append(out, s.taskCopy(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func idsOf(users []models.User) []uint {
	ids := make([]uint, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids
}

// --- users ---

type memUserRepo struct {
	s *memStore

	setPasswordErr func(id uint) error
}

var _ repository.UserRepository = (*memUserRepo)(nil)

func (r *memUserRepo) Create(ctx context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	user.ID = r.s.id()
	r.s.users[user.ID] = *user
	return nil
}

func (r *memUserRepo) GetByID(ctx context.Context, id uint) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memUserRepo) GetByIDs(ctx context.Context, ids []uint) ([]models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.usersFor(ids), nil
}

func (r *memUserRepo) GetAll(ctx context.Context) ([]models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := make([]uint, 0, len(r.s.users))
	for id := range r.s.users {
		ids = append(ids, id)
	}
	return r.s.usersFor(ids), nil
}

func (r *memUserRepo) SetPassword(ctx context.Context, id uint, hash string) error {
	if r.setPasswordErr != nil {
		if err := r.setPasswordErr(id); err != nil {
			return err
		}
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.PasswordHash = hash
	r.s.users[id] = u
	return nil
}

func (r *memUserRepo) UpdateGuarded(ctx context.Context, id uint, fn repository.AdminGuardFunc) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	var admins int64
	for _, other := range r.s.users {
		if other.IsAdmin() && other.IsActive {
			admins++
		}
	}
	if err := fn(&u, admins); err != nil {
		return nil, err
	}
	r.s.users[id] = u
	return &u, nil
}

// --- projects ---

type memProjectRepo struct {
	s *memStore

	createErr func(project *models.Project) error
}

var _ repository.ProjectRepository = (*memProjectRepo)(nil)

// Create mirrors the repository transaction: the counter only advances when
// the insert succeeds.
func (r *memProjectRepo) Create(ctx context.Context, project *models.Project, memberIDs []uint, displayID func(seq int64) string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.projects {
		if p.Name == project.Name {
			return gorm.ErrDuplicatedKey
		}
	}
	seq := r.s.counters[models.ProjectCounter] + 1
	project.DisplayID = displayID(seq)
	if r.createErr != nil {
		if err := r.createErr(project); err != nil {
			project.DisplayID = ""
			return err
		}
	}
	r.s.counters[models.ProjectCounter] = seq
	project.ID = r.s.id()
	r.s.projects[project.ID] = *project
	r.s.members[project.ID] = append([]uint(nil), memberIDs...)
	return nil
}

func (r *memProjectRepo) load(id uint) (*models.Project, bool) {
	p, ok := r.s.projects[id]
	if !ok {
		return nil, false
	}
	p.Members = r.s.usersFor(r.s.members[id])
	p.Tasks = r.s.sortedTasks(func(t models.Task) bool { return t.ProjectID == id })
	return &p, true
}

func (r *memProjectRepo) GetByID(ctx context.Context, id uint) (*models.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.load(id)
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (r *memProjectRepo) list(keep func(id uint) bool) []models.Project {
	var out []models.Project
	for id := range r.s.projects {
		if keep(id) {
			p, _ := r.load(id)
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *memProjectRepo) GetAll(ctx context.Context) ([]models.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.list(func(uint) bool { return true }), nil
}

func (r *memProjectRepo) GetByMember(ctx context.Context, userID uint) ([]models.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.list(func(id uint) bool {
		for _, m := range r.s.members[id] {
			if m == userID {
				return true
			}
		}
		return false
	}), nil
}

func (r *memProjectRepo) ExistsByName(ctx context.Context, name string, excludeID uint) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, p := range r.s.projects {
		if id != excludeID && strings.EqualFold(p.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memProjectRepo) Update(ctx context.Context, project *models.Project, memberIDs []uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.projects[project.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.Name = project.Name
	p.Client = project.Client
	r.s.projects[p.ID] = p
	r.s.members[p.ID] = append([]uint(nil), memberIDs...)
	return nil
}

// --- tasks ---

type memTaskRepo struct {
	s *memStore

	createOccurrenceErr func(task *models.Task) error
}

var _ repository.TaskRepository = (*memTaskRepo)(nil)

func (r *memTaskRepo) store(task *models.Task) {
	t := *task
	t.Assignees = append([]models.User(nil), task.Assignees...)
	t.CompletedDates = append([]time.Time(nil), task.CompletedDates...)
	t.Comments = nil
	r.s.tasks[t.ID] = t
}

func (r *memTaskRepo) Create(ctx context.Context, task *models.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	task.ID = r.s.id()
	r.store(task)
	return nil
}

func (r *memTaskRepo) CreateOccurrence(ctx context.Context, task *models.Task) (bool, error) {
	if r.createOccurrenceErr != nil {
		if err := r.createOccurrenceErr(task); err != nil {
			return false, err
		}
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.tasks {
		if t.SourceTaskID != nil && t.OccurrenceDate != nil &&
			*t.SourceTaskID == *task.SourceTaskID && t.OccurrenceDate.Equal(*task.OccurrenceDate) {
			return false, nil
		}
	}
	task.ID = r.s.id()
	r.store(task)
	return true, nil
}

func (r *memTaskRepo) GetByID(ctx context.Context, id uint) (*models.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tasks[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := r.s.taskCopy(t)
	return &c, nil
}

func (r *memTaskRepo) GetAll(ctx context.Context) ([]models.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.sortedTasks(func(models.Task) bool { return true }), nil
}

func (r *memTaskRepo) GetByProject(ctx context.Context, projectID uint) ([]models.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.sortedTasks(func(t models.Task) bool { return t.ProjectID == projectID }), nil
}

func (r *memTaskRepo) GetByAssignee(ctx context.Context, userID uint) ([]models.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.sortedTasks(func(t models.Task) bool { return t.IsAssignedTo(userID) }), nil
}

func (r *memTaskRepo) GetRecurring(ctx context.Context) ([]models.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.sortedTasks(func(t models.Task) bool {
		return t.IsRecurring && models.ValidFrequency(t.RecurrenceFrequency)
	}), nil
}

func (r *memTaskRepo) ExistsDuplicate(ctx context.Context, projectID uint, title, description string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.tasks {
		if t.ProjectID == projectID && t.Title == title && t.Description == description {
			return true, nil
		}
	}
	return false, nil
}

func (r *memTaskRepo) Update(ctx context.Context, task *models.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.tasks[task.ID]
	if !ok || stored.IsCompleted() {
		return repository.ErrStaleWrite
	}
	r.store(task)
	return nil
}

func (r *memTaskRepo) UpdateStatus(ctx context.Context, task *models.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.tasks[task.ID]
	if !ok || stored.IsCompleted() {
		return repository.ErrStaleWrite
	}
	stored.Status = task.Status
	stored.CompletedDates = append([]time.Time(nil), task.CompletedDates...)
	r.s.tasks[task.ID] = stored
	return nil
}

func (r *memTaskRepo) Delete(ctx context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tasks[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.s.tasks, id)
	kept := r.s.comments[:0]
	for _, c := range r.s.comments {
		if c.TaskID != id {
			kept = append(kept, c)
		}
	}
	r.s.comments = kept
	return nil
}

func (r *memTaskRepo) AddComment(ctx context.Context, comment *models.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	comment.ID = r.s.id()
	r.s.comments = append(r.s.comments, *comment)
	return nil
}

func (r *memTaskRepo) GetComments(ctx context.Context, taskID uint) ([]models.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Comment
	for _, c := range r.s.sortedComments() {
		if c.TaskID == taskID {
			out = append(out, c)
		}
	}
	return out, nil
}

// --- token stores and mail ---

type memTokenStore struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
	setup   map[string]uint

	storeErr error
}

func newMemTokenStore() *memTokenStore {
	return &memTokenStore{revoked: make(map[string]time.Duration), setup: make(map[string]uint)}
}

func (m *memTokenStore) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[jti] = ttl
	return nil
}

func (m *memTokenStore) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[jti]
	return ok, nil
}

func (m *memTokenStore) StoreSetupToken(ctx context.Context, token string, userID uint, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storeErr != nil {
		return m.storeErr
	}
	m.setup[token] = userID
	return nil
}

func (m *memTokenStore) ConsumeSetupToken(ctx context.Context, token string) (uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.setup[token]
	if !ok {
		return 0, redis.ErrSetupTokenNotFound
	}
	delete(m.setup, token)
	return id, nil
}

type fakePublisher struct {
	publishFunc func(ctx context.Context, msg messaging.MailMessage) error
	published   []messaging.MailMessage
}

func (f *fakePublisher) PublishMail(ctx context.Context, msg messaging.MailMessage) error {
	if f.publishFunc != nil {
		if err := f.publishFunc(ctx, msg); err != nil {
			return err
		}
	}
	f.published = append(f.published, msg)
	return nil
}
