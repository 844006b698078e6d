package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"todocalendar/internal/auth"
	"todocalendar/internal/logger"
	"todocalendar/internal/service"
	"todocalendar/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

func TestRespondError(t *testing.T) {
	verr := &service.ValidationError{}
	verr.Add("title", "This field is required.")

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"validation", verr, http.StatusBadRequest, `{"errors":{"title":["This field is required."]}}`},
		{"bad request", badRequest{msg: "unexpected EOF"}, http.StatusBadRequest, `{"error":"unexpected EOF"}`},
		{"file too large", fmt.Errorf("save: %w", storage.ErrTooLarge), http.StatusBadRequest, `{"errors":{"file":["The submitted file is too large."]}}`},
		{"not found", fmt.Errorf("todo 7: %w", service.ErrNotFound), http.StatusNotFound, `{"error":"Not found."}`},
		{"conflict", service.ErrConflict, http.StatusConflict, `{"error":"Object already exists."}`},
		{"credentials", service.ErrInvalidCredentials, http.StatusUnauthorized, `{"error":"Invalid email or password."}`},
		{"inactive", service.ErrInactiveAccount, http.StatusUnauthorized, `{"error":"User account is disabled."}`},
		{"token", auth.ErrInvalidToken, http.StatusUnauthorized, `{"error":"Token is invalid or expired."}`},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError, `{"error":"internal error"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			respondError(c, logger.Discard(), tt.err)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

type bindTarget struct {
	Title    string `json:"title" binding:"required,max=5"`
	Priority string `json:"priority" binding:"omitempty,oneof=low high"`
	Count    int    `json:"count"`
}

func bindBody(t *testing.T, body string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	var req bindTarget
	return w, bindJSON(c, logger.Discard(), &req)
}

func TestBindJSON(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantOK     bool
		wantFields map[string][]string
	}{
		{name: "valid", body: `{"title":"abc","priority":"low"}`, wantOK: true},
		{name: "empty body is validated", body: ``, wantFields: map[string][]string{
			"title": {"This field is required."},
		}},
		{name: "reports json names", body: `{"title":"toolong","priority":"mid"}`, wantFields: map[string][]string{
			"title":    {"Ensure this field has no more than 5 characters."},
			"priority": {`"mid" is not a valid choice.`},
		}},
		{name: "wrong type", body: `{"title":"abc","count":"three"}`, wantFields: map[string][]string{
			"count": {"Incorrect type. Expected int."},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, ok := bindBody(t, tt.body)
			require.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				return
			}
			require.Equal(t, http.StatusBadRequest, w.Code)
			var got struct {
				Errors map[string][]string `json:"errors"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			assert.Equal(t, tt.wantFields, got.Errors)
		})
	}
}

func TestBindJSONMalformed(t *testing.T) {
	w, ok := bindBody(t, `{"title":`)
	require.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"error"`)
}

func TestParseID(t *testing.T) {
	for raw, want := range map[string]bool{"12": true, "0": false, "-3": false, "abc": false} {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Params = gin.Params{{Key: "id", Value: raw}}

		id, ok := parseID(c, "id")
		assert.Equal(t, want, ok, raw)
		if want {
			assert.Equal(t, int64(12), id)
		} else {
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.JSONEq(t, `{"error":"invalid id"}`, w.Body.String())
		}
	}
}

func TestQueryFilters(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?is_completed=true&category=x&is_important=", bytes.NewReader(nil))

	verr := &service.ValidationError{}
	done := queryBool(c, verr, "is_completed")
	require.NotNil(t, done)
	assert.True(t, *done)
	assert.Nil(t, queryBool(c, verr, "is_important"))
	assert.Nil(t, queryInt(c, verr, "category"))
	assert.Equal(t, map[string][]string{"category": {"Enter a number."}}, verr.Fields)
}
