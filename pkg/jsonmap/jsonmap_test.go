package jsonmap

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestFromMap(t *testing.T) {
	require.Equal(t, datatypes.JSONMap{}, FromMap(nil))
	require.Equal(t, datatypes.JSONMap{"title": "Design Doc"}, FromMap(map[string]any{"title": "Design Doc"}))
}

func TestFromValueUsesJSONTags(t *testing.T) {
	status := "Done"
	patch := struct {
		Status *string `json:"status,omitempty"`
		Title  *string `json:"title,omitempty"`
	}{Status: &status}

	values, err := FromValue(patch)
	require.NoError(t, err)
	require.Equal(t, datatypes.JSONMap{"status": "Done"}, values)
}

func TestFromValueRejectsNonObjects(t *testing.T) {
	_, err := FromValue([]int{1, 2})
	require.Error(t, err)

	_, err = FromValue(make(chan int))
	require.Error(t, err)
}

func TestString(t *testing.T) {
	values := datatypes.JSONMap{"title": "Design Doc", "count": 2, "empty": ""}

	title, ok := String(values, "title")
	require.True(t, ok)
	require.Equal(t, "Design Doc", title)

	_, ok = String(values, "count")
	require.False(t, ok)
	_, ok = String(values, "empty")
	require.False(t, ok)
	_, ok = String(nil, "title")
	require.False(t, ok)
}
