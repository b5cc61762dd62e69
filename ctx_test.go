package portal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContext(t *testing.T) {
	sess := NewSession(nil, WithNamespace("sid-1"))

	tests := []struct {
		name     string
		setupCtx func() context.Context
		want     *Session
		wantOK   bool
	}{
		{
			name: "should return session when present in context",
			setupCtx: func() context.Context {
				return WithContext(context.Background(), sess)
			},
			want:   sess,
			wantOK: true,
		},
		{
			name: "should return false when no session in context",
			setupCtx: func() context.Context {
				return context.Background()
			},
			wantOK: false,
		},
		{
			name: "should return false when context has wrong type",
			setupCtx: func() context.Context {
				return context.WithValue(context.Background(), sessionCtxKey, "not-a-session")
			},
			wantOK: false,
		},
		{
			name: "should return false for a nil session",
			setupCtx: func() context.Context {
				return WithContext(context.Background(), nil)
			},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FromContext(tt.setupCtx())
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Same(t, tt.want, got)
			}
		})
	}
}
