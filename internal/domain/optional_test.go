package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptional_UnmarshalJSON(t *testing.T) {
	var body struct {
		Title   Optional[string]     `json:"title"`
		DueDate Optional[*time.Time] `json:"due_date"`
		Starred Optional[bool]       `json:"is_starred"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"title":"Write report","due_date":null}`), &body))

	assert.True(t, body.Title.Set)
	assert.Equal(t, "Write report", body.Title.Value)
	assert.True(t, body.DueDate.Set)
	assert.Nil(t, body.DueDate.Value)
	assert.False(t, body.Starred.Set)
	assert.True(t, body.Starred.Or(true))
}
