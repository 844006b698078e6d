package handlers

import (
	"io"
	"net/http"
	"time"

	"todocalendar/internal/auth"
	dom "todocalendar/internal/domain"
	"todocalendar/internal/dto"
	"todocalendar/internal/repo"
	"todocalendar/internal/service"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

type TodoHandler struct {
	svc *service.TodoService
	log *log.Logger
	now func() time.Time
}

func NewTodoHandler(svc *service.TodoService, logger *log.Logger) *TodoHandler {
	return &TodoHandler{svc: svc, log: logger, now: time.Now}
}

// ListCategories godoc
// @Summary      List categories
// @Tags         categories
// @Produce      json
// @Security     BearerAuth
// @Param        search    query     string  false  "Name contains"
// @Param        ordering  query     string  false  "name, created_at; prefix - for descending"
// @Success      200       {array}   dto.CategoryResponse
// @Router       /todos/categories/ [get]
func (h *TodoHandler) ListCategories(c *gin.Context) {
	list, err := h.svc.ListCategories(c.Request.Context(), auth.UserIDFromContext(c), repo.CategoryFilter{
		Search:   c.Query("search"),
		Ordering: c.Query("ordering"),
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	out := make([]dto.CategoryResponse, len(list))
	for i := range list {
		out[i] = dto.NewCategoryResponse(list[i])
	}
	c.JSON(http.StatusOK, out)
}

// CreateCategory godoc
// @Summary      Create a category
// @Tags         categories
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      dto.CategoryRequest  true  "Category"
// @Success      201   {object}  dto.CategoryResponse
// @Failure      400   {object}  dto.ValidationErrorResponse
// @Router       /todos/categories/ [post]
func (h *TodoHandler) CreateCategory(c *gin.Context) {
	var req dto.CategoryRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	in, err := req.Input()
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	cat, err := h.svc.CreateCategory(c.Request.Context(), auth.UserIDFromContext(c), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewCategoryResponse(cat))
}

// GetCategory godoc
// @Summary      Get a category
// @Tags         categories
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Category ID"
// @Success      200  {object}  dto.CategoryResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /todos/categories/{id}/ [get]
func (h *TodoHandler) GetCategory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	cat, err := h.svc.GetCategory(c.Request.Context(), auth.UserIDFromContext(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewCategoryResponse(cat))
}

// UpdateCategory godoc
// @Summary      Update a category
// @Description  PUT replaces the category and requires name; PATCH changes only the sent fields.
// @Tags         categories
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                  true  "Category ID"
// @Param        body  body      dto.CategoryRequest  true  "Category"
// @Success      200   {object}  dto.CategoryResponse
// @Failure      400   {object}  dto.ValidationErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /todos/categories/{id}/ [put]
// @Router       /todos/categories/{id}/ [patch]
func (h *TodoHandler) UpdateCategory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.CategoryRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	in, err := req.Input()
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	cat, err := h.svc.UpdateCategory(c.Request.Context(), auth.UserIDFromContext(c), id, in, isPatch(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewCategoryResponse(cat))
}

// DeleteCategory godoc
// @Summary      Delete a category
// @Description  Todos in the category are kept without a category.
// @Tags         categories
// @Security     BearerAuth
// @Param        id   path  int  true  "Category ID"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /todos/categories/{id}/ [delete]
func (h *TodoHandler) DeleteCategory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteCategory(c.Request.Context(), auth.UserIDFromContext(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func todoFilter(c *gin.Context) (repo.TodoFilter, error) {
	verr := &service.ValidationError{}
	f := repo.TodoFilter{
		IsCompleted: queryBool(c, verr, "is_completed"),
		IsImportant: queryBool(c, verr, "is_important"),
		CategoryID:  queryInt(c, verr, "category"),
		Search:      c.Query("search"),
		Ordering:    c.Query("ordering"),
	}
	if raw := c.Query("priority"); raw != "" {
		p := dom.Priority(raw)
		if !p.Valid() {
			verr.Add("priority", "Select a valid choice. "+raw+" is not one of the available choices.")
		}
		f.Priority = &p
	}
	return f, verr.OrNil()
}

// List godoc
// @Summary      List todos
// @Tags         todos
// @Produce      json
// @Security     BearerAuth
// @Param        is_completed  query     bool    false  "Completion state"
// @Param        priority      query     string  false  "low, medium, high, urgent"
// @Param        is_important  query     bool    false  "Important flag"
// @Param        category      query     int     false  "Category ID"
// @Param        search        query     string  false  "Title or description contains"
// @Param        ordering      query     string  false  "title, created_at, due_date, priority; prefix - for descending"
// @Success      200           {array}   dto.TodoResponse
// @Failure      400           {object}  dto.ValidationErrorResponse
// @Router       /todos/ [get]
func (h *TodoHandler) List(c *gin.Context) {
	f, err := todoFilter(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	list, err := h.svc.List(c.Request.Context(), auth.UserIDFromContext(c), f)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewTodoList(list, h.now()))
}

func (h *TodoHandler) detail(c *gin.Context, status int, id int64) {
	d, err := h.svc.Detail(c.Request.Context(), auth.UserIDFromContext(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(status, dto.NewTodoDetailResponse(d, h.now()))
}

// Create godoc
// @Summary      Create a todo
// @Tags         todos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      dto.TodoRequest  true  "Todo"
// @Success      201   {object}  dto.TodoDetailResponse
// @Failure      400   {object}  dto.ValidationErrorResponse
// @Router       /todos/ [post]
func (h *TodoHandler) Create(c *gin.Context) {
	var req dto.TodoRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	t, err := h.svc.Create(c.Request.Context(), auth.UserIDFromContext(c), req.Input())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	h.detail(c, http.StatusCreated, t.ID)
}

// Get godoc
// @Summary      Get a todo with its category, comments and attachments
// @Tags         todos
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Todo ID"
// @Success      200  {object}  dto.TodoDetailResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /todos/{id}/ [get]
func (h *TodoHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	h.detail(c, http.StatusOK, id)
}

// Update godoc
// @Summary      Update a todo
// @Description  PUT requires title; PATCH changes only the sent fields. completed_at follows is_completed.
// @Tags         todos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int              true  "Todo ID"
// @Param        body  body      dto.TodoRequest  true  "Todo"
// @Success      200   {object}  dto.TodoDetailResponse
// @Failure      400   {object}  dto.ValidationErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /todos/{id}/ [put]
// @Router       /todos/{id}/ [patch]
func (h *TodoHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.TodoRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	if _, err := h.svc.Update(c.Request.Context(), auth.UserIDFromContext(c), id, req.Input(), isPatch(c)); err != nil {
		respondError(c, h.log, err)
		return
	}
	h.detail(c, http.StatusOK, id)
}

// Delete godoc
// @Summary      Delete a todo
// @Tags         todos
// @Security     BearerAuth
// @Param        id   path  int  true  "Todo ID"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /todos/{id}/ [delete]
func (h *TodoHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), auth.UserIDFromContext(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Toggle godoc
// @Summary      Flip a todo's completion state
// @Tags         todos
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Todo ID"
// @Success      200  {object}  dto.TodoDetailResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /todos/{id}/toggle/ [post]
func (h *TodoHandler) Toggle(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	d, err := h.svc.Toggle(c.Request.Context(), auth.UserIDFromContext(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewTodoDetailResponse(d, h.now()))
}

// AddComment godoc
// @Summary      Comment on a todo
// @Tags         todos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                 true  "Todo ID"
// @Param        body  body      dto.CommentRequest  true  "Comment"
// @Success      201   {object}  dto.CommentResponse
// @Failure      400   {object}  dto.ValidationErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /todos/{id}/comments/ [post]
func (h *TodoHandler) AddComment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.CommentRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	cm, err := h.svc.AddComment(c.Request.Context(), auth.UserIDFromContext(c), id, req.Comment)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewCommentResponse(cm))
}

// AddAttachment godoc
// @Summary      Attach a file to a todo
// @Tags         todos
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int   true  "Todo ID"
// @Param        file  formData  file  true  "File"
// @Success      201   {object}  dto.AttachmentResponse
// @Failure      400   {object}  dto.ValidationErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /todos/{id}/attachments/ [post]
func (h *TodoHandler) AddAttachment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	upload(c, h.log, func(filename string, r io.Reader) (dom.Attachment, error) {
		return h.svc.AddAttachment(c.Request.Context(), auth.UserIDFromContext(c), id, filename, r)
	})
}

// Statistics godoc
// @Summary      Todo counters for the current user
// @Tags         todos
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  dto.TodoStatsResponse
// @Router       /todos/statistics/ [get]
func (h *TodoHandler) Statistics(c *gin.Context) {
	st, err := h.svc.Statistics(c.Request.Context(), auth.UserIDFromContext(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewTodoStatsResponse(st))
}

// Upcoming godoc
// @Summary      Open todos due within seven days
// @Tags         todos
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  dto.TodoResponse
// @Router       /todos/upcoming/ [get]
func (h *TodoHandler) Upcoming(c *gin.Context) {
	list, err := h.svc.Upcoming(c.Request.Context(), auth.UserIDFromContext(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewTodoList(list, h.now()))
}
