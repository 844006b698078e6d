package service

import (
	"context"
	"testing"
	"time"

	dom "todocalendar/internal/domain"
	"todocalendar/internal/logger"
	"todocalendar/internal/repo/repotest"
	"todocalendar/internal/storage"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

type fixture struct {
	store     *repotest.Store
	users     *UserService
	todos     *TodoService
	calendars *CalendarService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repotest.NewStore()
	store.Now = clock
	files := storage.NewLocal(t.TempDir(), 1<<20)

	users := NewUserService(store.Users())
	users.hashCost = bcrypt.MinCost
	todos := NewTodoService(store.Todos(), store.Categories(), files)
	todos.now = clock
	calendars := NewCalendarService(store.Calendars(), store.Events(), store.Users(), files, time.UTC, logger.Discard())
	calendars.now = clock

	return &fixture{store: store, users: users, todos: todos, calendars: calendars}
}

func (f *fixture) user(t *testing.T, username string) dom.User {
	t.Helper()
	u, err := f.store.Users().Create(context.Background(), dom.User{
		Email:     username + "@example.com",
		Username:  username,
		FirstName: username,
		LastName:  "Tester",
	})
	require.NoError(t, err)
	return u
}

func ptr[T any](v T) *T { return &v }

func requireFieldError(t *testing.T, err error, field string) {
	t.Helper()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, field, "fields: %v", verr.Fields)
}
