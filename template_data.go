package portal

import (
	"context"
	"maps"
)

// TemplateUserKey is the view key holding the signed in user.
var TemplateUserKey = "current_user"

// TemplateData returns the values every page can use: the stored user under
// TemplateUserKey and is_authenticated. A nil session yields an anonymous
// view.
func TemplateData(ctx context.Context, sess *Session) map[string]any {
	data := map[string]any{
		TemplateUserKey:    nil,
		"is_authenticated": false,
	}
	if sess == nil {
		return data
	}

	data["is_authenticated"] = sess.IsAuthenticated(ctx)
	if user, err := sess.User(ctx); err == nil && user != nil {
		data[TemplateUserKey] = user
	}
	return data
}

// MergeTemplateData copies each map into a new one. Later maps win.
func MergeTemplateData(data ...map[string]any) map[string]any {
	out := map[string]any{}
	for _, d := range data {
		maps.Copy(out, d)
	}
	return out
}
