package portal

import (
	"context"
	"testing"

	"github.com/goliatone/go-auth-portal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateDataAnonymous(t *testing.T) {
	data := TemplateData(context.Background(), nil)
	assert.Equal(t, false, data["is_authenticated"])
	assert.Nil(t, data[TemplateUserKey])

	data = TemplateData(context.Background(), NewSession(store.NewMemory()))
	assert.Equal(t, false, data["is_authenticated"])
}

func TestTemplateDataSignedIn(t *testing.T) {
	ctx := context.Background()
	sess := NewSession(store.NewMemory())
	require.NoError(t, sess.Save(ctx, "tok", User{ID: "u-1", Email: "jane@example.com", Name: "Jane"}))

	data := TemplateData(ctx, sess)
	assert.Equal(t, true, data["is_authenticated"])

	user, ok := data[TemplateUserKey].(*User)
	require.True(t, ok)
	assert.Equal(t, "Jane", user.Name)
}

func TestMergeTemplateData(t *testing.T) {
	base := map[string]any{"a": 1, "b": 1}
	out := MergeTemplateData(base, map[string]any{"b": 2}, nil)

	assert.Equal(t, map[string]any{"a": 1, "b": 2}, out)
	assert.Equal(t, 1, base["b"])
}
