// Package repotest holds in-memory implementations of the repo interfaces.
// They mirror the Postgres behaviour the services depend on: owner scoping,
// unique constraints reported as *repo.ConstraintError and ErrNotFound for
// rows that are missing or belong to someone else.
package repotest

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	dom "todocalendar/internal/domain"
	"todocalendar/internal/repo"
)

// Store is the shared in-memory database. Its repo views are safe for
// concurrent use.
type Store struct {
	mu sync.Mutex
	// txMu serialises InTx blocks the way a row lock would.
	txMu sync.Mutex

	seq int64
	Now func() time.Time

	users        map[int64]dom.User
	categories   map[int64]dom.Category
	todos        map[int64]dom.Todo
	comments     map[int64]dom.TodoComment
	todoFiles    map[int64]dom.Attachment
	calendars    map[int64]dom.Calendar
	events       map[int64]dom.Event
	participants map[int64]dom.Participant
	eventFiles   map[int64]dom.Attachment
	reminders    map[int64]dom.Reminder
}

func NewStore() *Store {
	return &Store{
		Now:          time.Now,
		users:        map[int64]dom.User{},
		categories:   map[int64]dom.Category{},
		todos:        map[int64]dom.Todo{},
		comments:     map[int64]dom.TodoComment{},
		todoFiles:    map[int64]dom.Attachment{},
		calendars:    map[int64]dom.Calendar{},
		events:       map[int64]dom.Event{},
		participants: map[int64]dom.Participant{},
		eventFiles:   map[int64]dom.Attachment{},
		reminders:    map[int64]dom.Reminder{},
	}
}

func (s *Store) Users() *UserRepo          { return &UserRepo{s} }
func (s *Store) Categories() *CategoryRepo { return &CategoryRepo{s} }
func (s *Store) Todos() *TodoRepo          { return &TodoRepo{s} }
func (s *Store) Calendars() *CalendarRepo  { return &CalendarRepo{s: s} }
func (s *Store) Events() *EventRepo        { return &EventRepo{s} }

// CountDefaults returns how many calendars of userID are flagged default.
func (s *Store) CountDefaults(userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calendars {
		if c.UserID == userID && c.IsDefault {
			n++
		}
	}
	return n
}

// EventCount returns the number of stored events across all users.
func (s *Store) EventCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

func conflict(constraint string) error {
	return &repo.ConstraintError{Kind: repo.ErrConflict, Constraint: constraint, Err: repo.ErrConflict}
}

func contains(field *string, q string) bool {
	return field != nil && strings.Contains(strings.ToLower(*field), strings.ToLower(q))
}

// ordering splits a DRF-style ordering parameter.
func ordering(param string) (string, bool) {
	if strings.HasPrefix(param, "-") {
		return param[1:], true
	}
	return param, false
}

func sortBy[T any](list []T, desc bool, compare func(a, b T) int, id func(T) int64) {
	slices.SortStableFunc(list, func(a, b T) int {
		c := compare(a, b)
		if c == 0 {
			c = cmp.Compare(id(a), id(b))
		}
		if desc {
			return -c
		}
		return c
	})
}

func fullName(u dom.User) string { return u.FullName() }

// --- users ---

type UserRepo struct{ s *Store }

var _ repo.UserRepo = (*UserRepo)(nil)

func (r *UserRepo) GetByID(_ context.Context, id int64) (dom.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return dom.User{}, repo.ErrNotFound
	}
	return u, nil
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (dom.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return dom.User{}, repo.ErrNotFound
}

func (r *UserRepo) uniqueLocked(u dom.User) error {
	for _, other := range r.s.users {
		if other.ID == u.ID {
			continue
		}
		if strings.EqualFold(other.Email, u.Email) {
			return conflict(repo.ConstraintUserEmail)
		}
		if other.Username == u.Username {
			return conflict(repo.ConstraintUsername)
		}
	}
	return nil
}

func (r *UserRepo) Create(_ context.Context, u dom.User) (dom.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.uniqueLocked(u); err != nil {
		return dom.User{}, err
	}
	u.ID = r.s.nextID()
	u.IsActive = true
	u.CreatedAt = r.s.Now()
	u.UpdatedAt = u.CreatedAt
	r.s.users[u.ID] = u
	return u, nil
}

func (r *UserRepo) UpdateProfile(_ context.Context, u dom.User) (dom.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.users[u.ID]
	if !ok {
		return dom.User{}, repo.ErrNotFound
	}
	if err := r.uniqueLocked(dom.User{ID: u.ID, Email: cur.Email, Username: u.Username}); err != nil {
		return dom.User{}, err
	}
	cur.Username = u.Username
	cur.FirstName = u.FirstName
	cur.LastName = u.LastName
	cur.PhoneNumber = u.PhoneNumber
	cur.BirthDate = u.BirthDate
	cur.Bio = u.Bio
	cur.UpdatedAt = r.s.Now()
	r.s.users[u.ID] = cur
	return cur, nil
}

func (r *UserRepo) SetPassword(_ context.Context, id int64, hash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return repo.ErrNotFound
	}
	u.PasswordHash = hash
	r.s.users[id] = u
	return nil
}

// SetActive flips is_active; there is no API for it.
func (r *UserRepo) SetActive(id int64, active bool) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u := r.s.users[id]
	u.IsActive = active
	r.s.users[id] = u
}

// --- categories ---

type CategoryRepo struct{ s *Store }

var _ repo.CategoryRepo = (*CategoryRepo)(nil)

func (r *CategoryRepo) withCountLocked(c dom.Category) dom.Category {
	c.TodoCount = 0
	for _, t := range r.s.todos {
		if t.CategoryID != nil && *t.CategoryID == c.ID {
			c.TodoCount++
		}
	}
	return c
}

func (r *CategoryRepo) List(_ context.Context, userID int64, f repo.CategoryFilter) ([]dom.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := []dom.Category{}
	for _, c := range r.s.categories {
		if c.UserID != userID || (f.Search != "" && !contains(&c.Name, f.Search)) {
			continue
		}
		list = append(list, r.withCountLocked(c))
	}
	field, desc := ordering(f.Ordering)
	id := func(c dom.Category) int64 { return c.ID }
	switch field {
	case "name":
		sortBy(list, desc, func(a, b dom.Category) int { return cmp.Compare(a.Name, b.Name) }, id)
	case "created_at":
		sortBy(list, desc, func(a, b dom.Category) int { return 0 }, id)
	default:
		sortBy(list, true, func(a, b dom.Category) int { return 0 }, id)
	}
	return list, nil
}

func (r *CategoryRepo) Get(_ context.Context, userID, id int64) (dom.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.categories[id]
	if !ok || c.UserID != userID {
		return dom.Category{}, repo.ErrNotFound
	}
	return r.withCountLocked(c), nil
}

func (r *CategoryRepo) uniqueLocked(c dom.Category) error {
	for _, o := range r.s.categories {
		if o.ID != c.ID && o.UserID == c.UserID && o.Name == c.Name {
			return conflict(repo.ConstraintCategoryName)
		}
	}
	return nil
}

func (r *CategoryRepo) Create(_ context.Context, c dom.Category) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.uniqueLocked(c); err != nil {
		return 0, err
	}
	c.ID = r.s.nextID()
	c.CreatedAt = r.s.Now()
	c.UpdatedAt = c.CreatedAt
	r.s.categories[c.ID] = c
	return c.ID, nil
}

func (r *CategoryRepo) Update(_ context.Context, c dom.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.categories[c.ID]
	if !ok || cur.UserID != c.UserID {
		return repo.ErrNotFound
	}
	if err := r.uniqueLocked(c); err != nil {
		return err
	}
	cur.Name, cur.Color, cur.UpdatedAt = c.Name, c.Color, r.s.Now()
	r.s.categories[c.ID] = cur
	return nil
}

func (r *CategoryRepo) Delete(_ context.Context, userID, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.categories[id]
	if !ok || c.UserID != userID {
		return repo.ErrNotFound
	}
	delete(r.s.categories, id)
	for tid, t := range r.s.todos {
		if t.CategoryID != nil && *t.CategoryID == id {
			t.CategoryID = nil
			r.s.todos[tid] = t
		}
	}
	return nil
}

// --- todos ---

type TodoRepo struct{ s *Store }

var _ repo.TodoRepo = (*TodoRepo)(nil)

var priorityRank = map[dom.Priority]int{
	dom.PriorityLow: 1, dom.PriorityMedium: 2, dom.PriorityHigh: 3, dom.PriorityUrgent: 4,
}

func (r *TodoRepo) joinLocked(t dom.Todo) dom.Todo {
	t.CategoryName, t.CategoryColor = nil, nil
	if t.CategoryID != nil {
		if c, ok := r.s.categories[*t.CategoryID]; ok {
			name, color := c.Name, c.Color
			t.CategoryName, t.CategoryColor = &name, &color
		}
	}
	return t
}

func timeCmp(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return a.Compare(*b)
}

func (r *TodoRepo) List(_ context.Context, userID int64, f repo.TodoFilter) ([]dom.Todo, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := []dom.Todo{}
	for _, t := range r.s.todos {
		switch {
		case t.UserID != userID,
			f.IsCompleted != nil && t.IsCompleted != *f.IsCompleted,
			f.Priority != nil && t.Priority != *f.Priority,
			f.IsImportant != nil && t.IsImportant != *f.IsImportant,
			f.CategoryID != nil && (t.CategoryID == nil || *t.CategoryID != *f.CategoryID),
			f.Search != "" && !contains(&t.Title, f.Search) && !contains(t.Description, f.Search),
			f.DueFrom != nil && (t.DueDate == nil || t.DueDate.Before(*f.DueFrom)),
			f.DueTo != nil && (t.DueDate == nil || t.DueDate.After(*f.DueTo)):
			continue
		}
		list = append(list, r.joinLocked(t))
	}
	field, desc := ordering(f.Ordering)
	id := func(t dom.Todo) int64 { return t.ID }
	switch field {
	case "title":
		sortBy(list, desc, func(a, b dom.Todo) int { return cmp.Compare(a.Title, b.Title) }, id)
	case "due_date":
		sortBy(list, desc, func(a, b dom.Todo) int { return timeCmp(a.DueDate, b.DueDate) }, id)
	case "priority":
		sortBy(list, desc, func(a, b dom.Todo) int {
			return cmp.Compare(priorityRank[a.Priority], priorityRank[b.Priority])
		}, id)
	case "created_at":
		sortBy(list, desc, func(a, b dom.Todo) int { return 0 }, id)
	default:
		sortBy(list, true, func(a, b dom.Todo) int { return 0 }, id)
	}
	return list, nil
}

func (r *TodoRepo) Get(_ context.Context, userID, id int64) (dom.Todo, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.todos[id]
	if !ok || t.UserID != userID {
		return dom.Todo{}, repo.ErrNotFound
	}
	return r.joinLocked(t), nil
}

// checkTodo enforces the completed_at table constraint.
func checkTodo(t dom.Todo) error {
	if t.IsCompleted != (t.CompletedAt != nil) {
		return ErrCheckViolation
	}
	return nil
}

func (r *TodoRepo) Create(_ context.Context, t dom.Todo) (int64, error) {
	if err := checkTodo(t); err != nil {
		return 0, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t.ID = r.s.nextID()
	t.CreatedAt = r.s.Now()
	t.UpdatedAt = t.CreatedAt
	r.s.todos[t.ID] = t
	return t.ID, nil
}

func (r *TodoRepo) Update(_ context.Context, t dom.Todo) error {
	if err := checkTodo(t); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.todos[t.ID]
	if !ok || cur.UserID != t.UserID {
		return repo.ErrNotFound
	}
	t.CreatedAt = cur.CreatedAt
	t.UpdatedAt = r.s.Now()
	r.s.todos[t.ID] = t
	return nil
}

func (r *TodoRepo) Delete(_ context.Context, userID, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.todos[id]
	if !ok || t.UserID != userID {
		return repo.ErrNotFound
	}
	delete(r.s.todos, id)
	return nil
}

func (r *TodoRepo) Stats(_ context.Context, userID int64, now time.Time) (dom.TodoStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var st dom.TodoStats
	for _, t := range r.s.todos {
		if t.UserID != userID {
			continue
		}
		st.Total++
		if t.IsCompleted {
			st.Completed++
		} else {
			st.Pending++
		}
		if t.Priority == dom.PriorityHigh {
			st.HighPriority++
		}
		if !t.IsCompleted && t.DueDate != nil && t.DueDate.Before(now) {
			st.Overdue++
		}
	}
	return st, nil
}

func (r *TodoRepo) ownedLocked(userID, todoID int64) bool {
	t, ok := r.s.todos[todoID]
	return ok && t.UserID == userID
}

func (r *TodoRepo) AddComment(_ context.Context, userID int64, c dom.TodoComment) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if !r.ownedLocked(userID, c.TodoID) {
		return 0, repo.ErrNotFound
	}
	c.ID = r.s.nextID()
	c.UserID = userID
	c.CreatedAt = r.s.Now()
	c.UpdatedAt = c.CreatedAt
	r.s.comments[c.ID] = c
	return c.ID, nil
}

func (r *TodoRepo) commentLocked(c dom.TodoComment) dom.TodoComment {
	u := r.s.users[c.UserID]
	c.UserUsername = u.Username
	c.UserFullName = fullName(u)
	return c
}

func (r *TodoRepo) ListComments(_ context.Context, userID, todoID int64) ([]dom.TodoComment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := []dom.TodoComment{}
	if !r.ownedLocked(userID, todoID) {
		return list, nil
	}
	for _, c := range r.s.comments {
		if c.TodoID == todoID {
			list = append(list, r.commentLocked(c))
		}
	}
	sortBy(list, true, func(a, b dom.TodoComment) int { return 0 }, func(c dom.TodoComment) int64 { return c.ID })
	return list, nil
}

func (r *TodoRepo) GetComment(_ context.Context, userID, id int64) (dom.TodoComment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.comments[id]
	if !ok || !r.ownedLocked(userID, c.TodoID) {
		return dom.TodoComment{}, repo.ErrNotFound
	}
	return r.commentLocked(c), nil
}

func (r *TodoRepo) AddAttachment(_ context.Context, userID int64, a dom.Attachment) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if !r.ownedLocked(userID, a.ParentID) {
		return 0, repo.ErrNotFound
	}
	a.ID = r.s.nextID()
	a.UploadedAt = r.s.Now()
	r.s.todoFiles[a.ID] = a
	return a.ID, nil
}

func (r *TodoRepo) ListAttachments(_ context.Context, userID, todoID int64) ([]dom.Attachment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return attachmentsLocked(r.s.todoFiles, todoID, r.ownedLocked(userID, todoID)), nil
}

func attachmentsLocked(m map[int64]dom.Attachment, parentID int64, owned bool) []dom.Attachment {
	list := []dom.Attachment{}
	if !owned {
		return list
	}
	for _, a := range m {
		if a.ParentID == parentID {
			list = append(list, a)
		}
	}
	sortBy(list, false, func(a, b dom.Attachment) int { return 0 }, func(a dom.Attachment) int64 { return a.ID })
	return list
}
