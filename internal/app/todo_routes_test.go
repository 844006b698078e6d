package app

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTodoLifecycle(t *testing.T) {
	s := newTestServer(t)
	alice := s.register("alice")

	w := s.do(alice.Access, http.MethodPost, "/api/todos/categories/", object{"name": "Work", "color": "#ff0000"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	catID := int64(decode[object](t, w)["id"].(float64))

	due := time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339)
	w = s.do(alice.Access, http.MethodPost, "/api/todos/", object{
		"title": "Write report", "category_id": catID, "priority": "high",
		"due_date": due, "estimated_duration": "01:30:00", "is_completed": true,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[object](t, w)
	todoID := int64(created["id"].(float64))
	assert.Equal(t, false, created["is_completed"])
	assert.Nil(t, created["completed_at"])
	assert.Equal(t, "Work", created["category"].(object)["name"])
	assert.Equal(t, "01:30:00", created["duration"])

	w = s.do(alice.Access, http.MethodPatch, path("/api/todos/%d/", todoID), object{"is_completed": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotNil(t, decode[object](t, w)["completed_at"])

	w = s.do(alice.Access, http.MethodPost, path("/api/todos/%d/toggle/", todoID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	toggled := decode[object](t, w)
	assert.Equal(t, false, toggled["is_completed"])
	assert.Nil(t, toggled["completed_at"])

	w = s.do(alice.Access, http.MethodPost, path("/api/todos/%d/comments/", todoID), object{"comment": "started"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "alice", decode[object](t, w)["user_username"])

	w = s.upload(alice.Access, path("/api/todos/%d/attachments/", todoID), "notes.txt", []byte("hello world"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	att := decode[object](t, w)
	assert.Equal(t, float64(11), att["file_size"])
	assert.Equal(t, "notes.txt", att["filename"])

	w = s.do(alice.Access, http.MethodGet, path("/api/todos/%d/", todoID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode[object](t, w)
	assert.Len(t, detail["comments"], 1)
	assert.Len(t, detail["attachments"], 1)

	w = s.do(alice.Access, http.MethodGet, "/api/todos/categories/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	cats := decode[[]object](t, w)
	require.Len(t, cats, 1)
	assert.Equal(t, float64(1), cats[0]["todo_count"])

	w = s.do(alice.Access, http.MethodGet, "/api/todos/upcoming/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]object](t, w), 1)

	w = s.do(alice.Access, http.MethodDelete, path("/api/todos/%d/", todoID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(alice.Access, http.MethodGet, path("/api/todos/%d/", todoID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTodoListFiltersAndStatistics(t *testing.T) {
	s := newTestServer(t)
	alice := s.register("alice")

	past := time.Now().Add(-24 * time.Hour).UTC().Format(time.RFC3339)
	for _, body := range []object{
		{"title": "a", "priority": "high", "due_date": past},
		{"title": "b", "priority": "low", "is_important": true},
		{"title": "c", "priority": "high", "description": "quarterly numbers"},
	} {
		w := s.do(alice.Access, http.MethodPost, "/api/todos/", body)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w := s.do(alice.Access, http.MethodGet, "/api/todos/?priority=high&ordering=title", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]object](t, w)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0]["title"])
	assert.Equal(t, true, list[0]["is_overdue"])

	w = s.do(alice.Access, http.MethodGet, "/api/todos/?search=QUARTERLY", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]object](t, w), 1)

	// Wildcard characters are matched literally.
	w = s.do(alice.Access, http.MethodGet, "/api/todos/?search=_", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]object](t, w))
	w = s.do(alice.Access, http.MethodGet, "/api/todos/?search=%25", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]object](t, w))

	w = s.do(alice.Access, http.MethodGet, "/api/todos/?is_important=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]object](t, w), 1)

	w = s.do(alice.Access, http.MethodGet, "/api/todos/?priority=critical", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorsOf(t, w), "priority")

	w = s.do(alice.Access, http.MethodGet, "/api/todos/statistics/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, object{
		"total_todos": 3.0, "completed_todos": 0.0, "pending_todos": 3.0,
		"high_priority_todos": 2.0, "overdue_todos": 1.0,
	}, decode[object](t, w))
}

func TestTodoValidation(t *testing.T) {
	s := newTestServer(t)
	alice := s.register("alice")

	w := s.do(alice.Access, http.MethodPost, "/api/todos/", object{"priority": "critical"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	errs := errorsOf(t, w)
	assert.Contains(t, errs, "title")
	assert.Contains(t, errs, "priority")

	w = s.do(alice.Access, http.MethodPost, "/api/todos/categories/", object{"name": "Home", "color": "blue"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorsOf(t, w), "color")

	w = s.do(alice.Access, http.MethodPost, "/api/todos/categories/", object{"name": "Home"})
	require.Equal(t, http.StatusCreated, w.Code)
	w = s.do(alice.Access, http.MethodPost, "/api/todos/categories/", object{"name": "Home"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorsOf(t, w), "name")

	w = s.do(alice.Access, http.MethodPost, "/api/todos/", object{"title": "x", "due_date": "soon"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(alice.Access, http.MethodGet, "/api/todos/abc/", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.upload(alice.Access, "/api/todos/1/attachments/", "", nil)
	assert.NotEqual(t, http.StatusCreated, w.Code)
}

func TestTodoOwnership(t *testing.T) {
	s := newTestServer(t)
	alice := s.register("alice")
	bob := s.register("bob")

	w := s.do(alice.Access, http.MethodPost, "/api/todos/categories/", object{"name": "Private"})
	require.Equal(t, http.StatusCreated, w.Code)
	catID := int64(decode[object](t, w)["id"].(float64))

	w = s.do(alice.Access, http.MethodPost, "/api/todos/", object{"title": "secret"})
	require.Equal(t, http.StatusCreated, w.Code)
	todoID := int64(decode[object](t, w)["id"].(float64))

	for _, req := range []struct {
		method, path string
		body         any
	}{
		{http.MethodGet, path("/api/todos/%d/", todoID), nil},
		{http.MethodPatch, path("/api/todos/%d/", todoID), object{"title": "mine"}},
		{http.MethodDelete, path("/api/todos/%d/", todoID), nil},
		{http.MethodPost, path("/api/todos/%d/toggle/", todoID), nil},
		{http.MethodPost, path("/api/todos/%d/comments/", todoID), object{"comment": "hi"}},
		{http.MethodGet, path("/api/todos/categories/%d/", catID), nil},
		{http.MethodDelete, path("/api/todos/categories/%d/", catID), nil},
	} {
		w := s.do(bob.Access, req.method, req.path, req.body)
		assert.Equal(t, http.StatusNotFound, w.Code, "%s %s", req.method, req.path)
	}

	w = s.do(bob.Access, http.MethodPost, "/api/todos/", object{"title": "sneaky", "category_id": catID})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorsOf(t, w), "category_id")

	w = s.do(bob.Access, http.MethodGet, "/api/todos/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]object](t, w))

	w = s.do(alice.Access, http.MethodGet, path("/api/todos/%d/", todoID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "secret", decode[object](t, w)["title"])
}
