// AngelaMos | 2026
// entity_test.go

package blog

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello World", "hello-world"},
		{"  Go   Concurrency  Patterns ", "go-concurrency-patterns"},
		{"C++ & Rust: a comparison!", "c-rust-a-comparison"},
		{"already-a-slug", "already-a-slug"},
		{"dash -- heavy --- title", "dash-heavy-title"},
		{"Ünïcödé tïtle", "ncd-ttle"},
		{"!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeSlug(tt.in))
		})
	}
}

func TestTagsUnmarshalAcceptsArrayOrString(t *testing.T) {
	var fromArray Tags
	require.NoError(t, json.Unmarshal([]byte(`["go", " web ", ""]`), &fromArray))
	assert.Equal(t, Tags{"go", "web"}, fromArray)

	var fromString Tags
	require.NoError(t, json.Unmarshal([]byte(`"go, web,  ,databases"`), &fromString))
	assert.Equal(t, Tags{"go", "web", "databases"}, fromString)

	var bad Tags
	assert.Error(t, json.Unmarshal([]byte(`42`), &bad))
}

func TestTagsScanAndValue(t *testing.T) {
	value, err := Tags{"go", "sql"}.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte(`["go","sql"]`), value)

	value, err = Tags(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, []byte(`[]`), value)

	var tags Tags
	require.NoError(t, tags.Scan([]byte(`["a","b"]`)))
	assert.Equal(t, Tags{"a", "b"}, tags)

	require.NoError(t, tags.Scan(nil))
	assert.Empty(t, tags)

	assert.Error(t, tags.Scan(42))
}

func TestSetStatus(t *testing.T) {
	now := time.Now()
	b := &Blog{Status: StatusDraft}

	b.SetStatus(StatusPublished, now)
	assert.True(t, b.IsPublished)
	require.NotNil(t, b.PublishedAt)
	assert.Equal(t, now, *b.PublishedAt)

	b.SetStatus(StatusPublished, now.Add(time.Hour))
	assert.Equal(t, now, *b.PublishedAt)

	b.SetStatus(StatusDraft, now)
	assert.False(t, b.IsPublished)
	assert.Nil(t, b.PublishedAt)
	assert.Equal(t, StatusDraft, b.Status)

	b.SetStatus("archived", now)
	assert.Equal(t, StatusDraft, b.Status)
}

func TestOwnedBy(t *testing.T) {
	b := &Blog{AuthorID: "user-1"}
	assert.True(t, b.OwnedBy("user-1"))
	assert.False(t, b.OwnedBy("user-2"))
	assert.False(t, (&Blog{}).OwnedBy(""))
}
