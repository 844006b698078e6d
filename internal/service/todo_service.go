package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	dom "todocalendar/internal/domain"
	"todocalendar/internal/repo"
)

const (
	maxTitleLength        = 200
	maxCategoryNameLength = 100
	upcomingWindow        = 7 * 24 * time.Hour
)

var categoryUnique = map[string]uniqueField{
	repo.ConstraintCategoryName: {"name", "You already have a category with this name."},
}

// FileStore keeps attachment contents. Save reports the number of bytes it
// actually wrote.
type FileStore interface {
	Save(ctx context.Context, dir, filename string, r io.Reader) (path string, size int64, err error)
	Remove(ctx context.Context, path string) error
}

type CategoryInput struct {
	Name  dom.Optional[string]
	Color dom.Optional[string]
}

// TodoInput is a create or update payload. On update, unset fields keep
// their stored value.
type TodoInput struct {
	Title             dom.Optional[string]
	Description       dom.Optional[*string]
	CategoryID        dom.Optional[*int64]
	Priority          dom.Optional[dom.Priority]
	DueDate           dom.Optional[*time.Time]
	IsCompleted       dom.Optional[bool]
	IsImportant       dom.Optional[bool]
	IsStarred         dom.Optional[bool]
	EstimatedDuration dom.Optional[*time.Duration]
	ActualDuration    dom.Optional[*time.Duration]
}

type TodoService struct {
	todos      repo.TodoRepo
	categories repo.CategoryRepo
	files      FileStore
	now        func() time.Time
}

func NewTodoService(todos repo.TodoRepo, categories repo.CategoryRepo, files FileStore) *TodoService {
	return &TodoService{todos: todos, categories: categories, files: files, now: time.Now}
}

func requiredText(verr *ValidationError, field string, v dom.Optional[string], partial bool, max int) {
	if !v.Set {
		if !partial {
			verr.Add(field, "This field is required.")
		}
		return
	}
	switch {
	case strings.TrimSpace(v.Value) == "":
		verr.Add(field, "This field may not be blank.")
	case utf8.RuneCountInString(v.Value) > max:
		verr.Add(field, fmt.Sprintf("Ensure this field has no more than %d characters.", max))
	}
}

// --- categories ---

func (s *TodoService) ListCategories(ctx context.Context, userID int64, f repo.CategoryFilter) ([]dom.Category, error) {
	return s.categories.List(ctx, userID, f)
}

func (s *TodoService) GetCategory(ctx context.Context, userID, id int64) (dom.Category, error) {
	c, err := s.categories.Get(ctx, userID, id)
	if err != nil {
		return dom.Category{}, storeErr(err, nil)
	}
	return c, nil
}

func (s *TodoService) CreateCategory(ctx context.Context, userID int64, in CategoryInput) (dom.Category, error) {
	verr := &ValidationError{}
	requiredText(verr, "name", in.Name, false, maxCategoryNameLength)
	if err := verr.OrNil(); err != nil {
		return dom.Category{}, err
	}
	id, err := s.categories.Create(ctx, dom.Category{
		UserID: userID,
		Name:   strings.TrimSpace(in.Name.Value),
		Color:  in.Color.Or(dom.DefaultColor),
	})
	if err != nil {
		return dom.Category{}, storeErr(err, categoryUnique)
	}
	return s.GetCategory(ctx, userID, id)
}

// UpdateCategory applies in; a full update (partial == false) requires name.
func (s *TodoService) UpdateCategory(ctx context.Context, userID, id int64, in CategoryInput, partial bool) (dom.Category, error) {
	c, err := s.GetCategory(ctx, userID, id)
	if err != nil {
		return dom.Category{}, err
	}
	verr := &ValidationError{}
	requiredText(verr, "name", in.Name, partial, maxCategoryNameLength)
	if err := verr.OrNil(); err != nil {
		return dom.Category{}, err
	}
	c.Name = strings.TrimSpace(in.Name.Or(c.Name))
	c.Color = in.Color.Or(c.Color)
	if err := s.categories.Update(ctx, c); err != nil {
		return dom.Category{}, storeErr(err, categoryUnique)
	}
	return s.GetCategory(ctx, userID, id)
}

func (s *TodoService) DeleteCategory(ctx context.Context, userID, id int64) error {
	return storeErr(s.categories.Delete(ctx, userID, id), nil)
}

// --- todos ---

func (s *TodoService) List(ctx context.Context, userID int64, f repo.TodoFilter) ([]dom.Todo, error) {
	return s.todos.List(ctx, userID, f)
}

func (s *TodoService) Get(ctx context.Context, userID, id int64) (dom.Todo, error) {
	t, err := s.todos.Get(ctx, userID, id)
	if err != nil {
		return dom.Todo{}, storeErr(err, nil)
	}
	return t, nil
}

// Detail returns the todo with its category, comments and attachments.
func (s *TodoService) Detail(ctx context.Context, userID, id int64) (dom.TodoDetail, error) {
	t, err := s.Get(ctx, userID, id)
	if err != nil {
		return dom.TodoDetail{}, err
	}
	d := dom.TodoDetail{Todo: t}
	if t.CategoryID != nil {
		c, err := s.categories.Get(ctx, userID, *t.CategoryID)
		switch {
		case err == nil:
			d.Category = &c
		case !errors.Is(err, repo.ErrNotFound):
			return dom.TodoDetail{}, err
		}
	}
	if d.Comments, err = s.todos.ListComments(ctx, userID, id); err != nil {
		return dom.TodoDetail{}, err
	}
	if d.Attachments, err = s.todos.ListAttachments(ctx, userID, id); err != nil {
		return dom.TodoDetail{}, err
	}
	return d, nil
}

func durationSeconds(d *time.Duration) *int64 {
	if d == nil {
		return nil
	}
	secs := int64(d.Round(time.Second) / time.Second)
	return &secs
}

// apply merges in over t and validates the result.
func (s *TodoService) apply(ctx context.Context, userID int64, t *dom.Todo, in TodoInput, partial bool) error {
	verr := &ValidationError{}
	requiredText(verr, "title", in.Title, partial, maxTitleLength)
	if in.Priority.Set && !in.Priority.Value.Valid() {
		verr.Add("priority", fmt.Sprintf("%q is not a valid choice.", in.Priority.Value))
	}
	for field, d := range map[string]dom.Optional[*time.Duration]{
		"estimated_duration": in.EstimatedDuration,
		"actual_duration":    in.ActualDuration,
	} {
		if d.Set && d.Value != nil && *d.Value < 0 {
			verr.Add(field, "Duration may not be negative.")
		}
	}
	if in.CategoryID.Set && in.CategoryID.Value != nil {
		if _, err := s.categories.Get(ctx, userID, *in.CategoryID.Value); err != nil {
			if !errors.Is(err, repo.ErrNotFound) {
				return err
			}
			verr.Add("category_id", fmt.Sprintf("Invalid pk %q - object does not exist.", strconv.FormatInt(*in.CategoryID.Value, 10)))
		}
	}
	if err := verr.OrNil(); err != nil {
		return err
	}

	t.Title = strings.TrimSpace(in.Title.Or(t.Title))
	t.Description = in.Description.Or(t.Description)
	t.CategoryID = in.CategoryID.Or(t.CategoryID)
	t.Priority = in.Priority.Or(t.Priority)
	t.DueDate = in.DueDate.Or(t.DueDate)
	t.IsImportant = in.IsImportant.Or(t.IsImportant)
	t.IsStarred = in.IsStarred.Or(t.IsStarred)
	if in.EstimatedDuration.Set {
		t.EstimatedSeconds = durationSeconds(in.EstimatedDuration.Value)
	}
	if in.ActualDuration.Set {
		t.ActualSeconds = durationSeconds(in.ActualDuration.Value)
	}
	return nil
}

// Create stores a new open todo for userID.
func (s *TodoService) Create(ctx context.Context, userID int64, in TodoInput) (dom.Todo, error) {
	t := dom.Todo{UserID: userID, Priority: dom.PriorityMedium}
	in.IsCompleted = dom.Optional[bool]{}
	if err := s.apply(ctx, userID, &t, in, false); err != nil {
		return dom.Todo{}, err
	}
	t.SetCompleted(false, s.now())
	id, err := s.todos.Create(ctx, t)
	if err != nil {
		return dom.Todo{}, storeErr(err, nil)
	}
	return s.Get(ctx, userID, id)
}

// Update applies in to the todo. Completion changes go through
// Todo.SetCompleted so completed_at follows is_completed.
func (s *TodoService) Update(ctx context.Context, userID, id int64, in TodoInput, partial bool) (dom.Todo, error) {
	t, err := s.Get(ctx, userID, id)
	if err != nil {
		return dom.Todo{}, err
	}
	if err := s.apply(ctx, userID, &t, in, partial); err != nil {
		return dom.Todo{}, err
	}
	t.SetCompleted(in.IsCompleted.Or(t.IsCompleted), s.now())
	if err := s.todos.Update(ctx, t); err != nil {
		return dom.Todo{}, storeErr(err, nil)
	}
	return s.Get(ctx, userID, id)
}

func (s *TodoService) Delete(ctx context.Context, userID, id int64) error {
	return storeErr(s.todos.Delete(ctx, userID, id), nil)
}

// Toggle flips completion and returns the updated detail view.
func (s *TodoService) Toggle(ctx context.Context, userID, id int64) (dom.TodoDetail, error) {
	t, err := s.Get(ctx, userID, id)
	if err != nil {
		return dom.TodoDetail{}, err
	}
	t.Toggle(s.now())
	if err := s.todos.Update(ctx, t); err != nil {
		return dom.TodoDetail{}, storeErr(err, nil)
	}
	return s.Detail(ctx, userID, id)
}

func (s *TodoService) AddComment(ctx context.Context, userID, todoID int64, text string) (dom.TodoComment, error) {
	if strings.TrimSpace(text) == "" {
		return dom.TodoComment{}, fieldError("comment", "This field may not be blank.")
	}
	id, err := s.todos.AddComment(ctx, userID, dom.TodoComment{TodoID: todoID, UserID: userID, Comment: text})
	if err != nil {
		return dom.TodoComment{}, storeErr(err, nil)
	}
	c, err := s.todos.GetComment(ctx, userID, id)
	if err != nil {
		return dom.TodoComment{}, storeErr(err, nil)
	}
	return c, nil
}

// AddAttachment stores the upload and records it under the todo. The size is
// what the store wrote, not what the client announced.
func (s *TodoService) AddAttachment(ctx context.Context, userID, todoID int64, filename string, r io.Reader) (dom.Attachment, error) {
	if _, err := s.Get(ctx, userID, todoID); err != nil {
		return dom.Attachment{}, err
	}
	return saveAttachment(ctx, s.files, "todo_attachments", todoID, filename, r, s.now(),
		func(a dom.Attachment) (int64, error) { return s.todos.AddAttachment(ctx, userID, a) })
}

func saveAttachment(ctx context.Context, files FileStore, dir string, parentID int64, filename string, r io.Reader,
	now time.Time, insert func(dom.Attachment) (int64, error)) (dom.Attachment, error) {
	if strings.TrimSpace(filename) == "" {
		return dom.Attachment{}, fieldError("file", "No file was submitted.")
	}
	path, size, err := files.Save(ctx, dir, filename, r)
	if err != nil {
		return dom.Attachment{}, fmt.Errorf("store attachment: %w", err)
	}
	a := dom.Attachment{ParentID: parentID, Filename: filename, File: path, FileSize: size, UploadedAt: now}
	id, err := insert(a)
	if err != nil {
		_ = files.Remove(ctx, path)
		return dom.Attachment{}, storeErr(err, nil)
	}
	a.ID = id
	return a, nil
}

// Statistics counts the caller's todos; overdue means due strictly before now
// and still open.
func (s *TodoService) Statistics(ctx context.Context, userID int64) (dom.TodoStats, error) {
	return s.todos.Stats(ctx, userID, s.now())
}

// Upcoming lists open todos due within the next seven days, soonest first.
func (s *TodoService) Upcoming(ctx context.Context, userID int64) ([]dom.Todo, error) {
	now := s.now()
	until := now.Add(upcomingWindow)
	open := false
	return s.todos.List(ctx, userID, repo.TodoFilter{
		IsCompleted: &open,
		DueFrom:     &now,
		DueTo:       &until,
		Ordering:    "due_date",
	})
}
