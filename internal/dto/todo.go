package dto

import (
	"time"

	dom "todocalendar/internal/domain"
	"todocalendar/internal/service"
)

// MediaURL prefixes stored attachment paths in responses.
const MediaURL = "/media/"

type CategoryRequest struct {
	Name  dom.Optional[string] `json:"name"`
	Color dom.Optional[string] `json:"color"`
}

func (r CategoryRequest) Input() (service.CategoryInput, error) {
	verr := &service.ValidationError{}
	checkColor(verr, "color", r.Color.Set, r.Color.Value)
	if err := verr.OrNil(); err != nil {
		return service.CategoryInput{}, err
	}
	return service.CategoryInput{Name: r.Name, Color: r.Color}, nil
}

// TodoRequest is the body for creating and updating todos. On create
// is_completed is ignored.
type TodoRequest struct {
	Title             dom.Optional[string]       `json:"title"`
	Description       dom.Optional[*string]      `json:"description"`
	CategoryID        dom.Optional[*int64]       `json:"category_id"`
	Priority          dom.Optional[dom.Priority] `json:"priority" swaggertype:"string"`
	DueDate           dom.Optional[FlexTime]     `json:"due_date" swaggertype:"string"`
	IsCompleted       dom.Optional[bool]         `json:"is_completed"`
	IsImportant       dom.Optional[bool]         `json:"is_important"`
	IsStarred         dom.Optional[bool]         `json:"is_starred"`
	EstimatedDuration dom.Optional[*Duration]    `json:"estimated_duration" swaggertype:"string"`
	ActualDuration    dom.Optional[*Duration]    `json:"actual_duration" swaggertype:"string"`
}

func (r TodoRequest) Input() service.TodoInput {
	return service.TodoInput{
		Title:             r.Title,
		Description:       r.Description,
		CategoryID:        r.CategoryID,
		Priority:          r.Priority,
		DueDate:           timeOpt(r.DueDate),
		IsCompleted:       r.IsCompleted,
		IsImportant:       r.IsImportant,
		IsStarred:         r.IsStarred,
		EstimatedDuration: durationOpt(r.EstimatedDuration),
		ActualDuration:    durationOpt(r.ActualDuration),
	}
}

type CommentRequest struct {
	Comment string `json:"comment" binding:"required"`
}

type CategoryResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	TodoCount int64     `json:"todo_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewCategoryResponse(c dom.Category) CategoryResponse {
	return CategoryResponse{
		ID:        c.ID,
		Name:      c.Name,
		Color:     c.Color,
		TodoCount: c.TodoCount,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// TodoResponse is the list representation of a todo.
type TodoResponse struct {
	ID            int64        `json:"id"`
	Title         string       `json:"title"`
	Description   *string      `json:"description"`
	Category      *int64       `json:"category"`
	CategoryName  *string      `json:"category_name"`
	CategoryColor *string      `json:"category_color"`
	IsCompleted   bool         `json:"is_completed"`
	Priority      dom.Priority `json:"priority" swaggertype:"string"`
	DueDate       *time.Time   `json:"due_date"`
	IsImportant   bool         `json:"is_important"`
	IsStarred     bool         `json:"is_starred"`
	DaysUntilDue  *int         `json:"days_until_due"`
	IsOverdue     bool         `json:"is_overdue"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

func NewTodoResponse(t dom.Todo, now time.Time) TodoResponse {
	return TodoResponse{
		ID:            t.ID,
		Title:         t.Title,
		Description:   t.Description,
		Category:      t.CategoryID,
		CategoryName:  t.CategoryName,
		CategoryColor: t.CategoryColor,
		IsCompleted:   t.IsCompleted,
		Priority:      t.Priority,
		DueDate:       t.DueDate,
		IsImportant:   t.IsImportant,
		IsStarred:     t.IsStarred,
		DaysUntilDue:  t.DaysUntilDue(now),
		IsOverdue:     t.IsOverdue(now),
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

func NewTodoList(list []dom.Todo, now time.Time) []TodoResponse {
	out := make([]TodoResponse, len(list))
	for i := range list {
		out[i] = NewTodoResponse(list[i], now)
	}
	return out
}

type CommentResponse struct {
	ID           int64     `json:"id"`
	User         int64     `json:"user"`
	UserName     string    `json:"user_name"`
	UserUsername string    `json:"user_username"`
	Comment      string    `json:"comment"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func NewCommentResponse(c dom.TodoComment) CommentResponse {
	return CommentResponse{
		ID:           c.ID,
		User:         c.UserID,
		UserName:     c.UserFullName,
		UserUsername: c.UserUsername,
		Comment:      c.Comment,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

type AttachmentResponse struct {
	ID         int64     `json:"id"`
	Filename   string    `json:"filename"`
	File       string    `json:"file"`
	FileSize   int64     `json:"file_size"`
	UploadedAt time.Time `json:"uploaded_at"`
}

func NewAttachmentResponse(a dom.Attachment) AttachmentResponse {
	return AttachmentResponse{
		ID:         a.ID,
		Filename:   a.Filename,
		File:       MediaURL + a.File,
		FileSize:   a.FileSize,
		UploadedAt: a.UploadedAt,
	}
}

func newAttachments(list []dom.Attachment) []AttachmentResponse {
	out := make([]AttachmentResponse, len(list))
	for i := range list {
		out[i] = NewAttachmentResponse(list[i])
	}
	return out
}

// TodoDetailResponse is a todo with its category and children.
type TodoDetailResponse struct {
	ID                int64                `json:"id"`
	Title             string               `json:"title"`
	Description       *string              `json:"description"`
	Category          *CategoryResponse    `json:"category"`
	IsCompleted       bool                 `json:"is_completed"`
	Priority          dom.Priority         `json:"priority" swaggertype:"string"`
	DueDate           *time.Time           `json:"due_date"`
	CompletedAt       *time.Time           `json:"completed_at"`
	IsImportant       bool                 `json:"is_important"`
	IsStarred         bool                 `json:"is_starred"`
	EstimatedDuration *Duration            `json:"estimated_duration" swaggertype:"string"`
	ActualDuration    *Duration            `json:"actual_duration" swaggertype:"string"`
	DaysUntilDue      *int                 `json:"days_until_due"`
	IsOverdue         bool                 `json:"is_overdue"`
	Duration          *Duration            `json:"duration" swaggertype:"string"`
	Attachments       []AttachmentResponse `json:"attachments"`
	Comments          []CommentResponse    `json:"comments"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

func NewTodoDetailResponse(d dom.TodoDetail, now time.Time) TodoDetailResponse {
	out := TodoDetailResponse{
		ID:                d.ID,
		Title:             d.Title,
		Description:       d.Description,
		IsCompleted:       d.IsCompleted,
		Priority:          d.Priority,
		DueDate:           d.DueDate,
		CompletedAt:       d.CompletedAt,
		IsImportant:       d.IsImportant,
		IsStarred:         d.IsStarred,
		EstimatedDuration: DurationOf(d.EstimatedDuration()),
		ActualDuration:    DurationOf(d.ActualDuration()),
		DaysUntilDue:      d.DaysUntilDue(now),
		IsOverdue:         d.IsOverdue(now),
		Duration:          DurationOf(d.Todo.Duration()),
		Attachments:       newAttachments(d.Attachments),
		Comments:          make([]CommentResponse, len(d.Comments)),
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
	if d.Category != nil {
		c := NewCategoryResponse(*d.Category)
		out.Category = &c
	}
	for i := range d.Comments {
		out.Comments[i] = NewCommentResponse(d.Comments[i])
	}
	return out
}

type TodoStatsResponse struct {
	TotalTodos        int64 `json:"total_todos"`
	CompletedTodos    int64 `json:"completed_todos"`
	PendingTodos      int64 `json:"pending_todos"`
	HighPriorityTodos int64 `json:"high_priority_todos"`
	OverdueTodos      int64 `json:"overdue_todos"`
}

func NewTodoStatsResponse(s dom.TodoStats) TodoStatsResponse {
	return TodoStatsResponse{
		TotalTodos:        s.Total,
		CompletedTodos:    s.Completed,
		PendingTodos:      s.Pending,
		HighPriorityTodos: s.HighPriority,
		OverdueTodos:      s.Overdue,
	}
}
