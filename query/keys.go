package query

import "strings"

// Key identifies a cached query. Keys are hierarchical: invalidating
// Key{"user"} also invalidates Key{"user", "profile"}.
type Key []string

func (k Key) String() string {
	return strings.Join(k, "/")
}

// HasPrefix reports whether p is a leading segment list of k. An empty
// prefix matches every key.
func (k Key) HasPrefix(p Key) bool {
	if len(p) > len(k) {
		return false
	}
	for i := range p {
		if k[i] != p[i] {
			return false
		}
	}
	return true
}

func (k Key) with(more Key) Key {
	out := make(Key, 0, len(k)+len(more))
	out = append(out, k...)
	return append(out, more...)
}

// Well known keys.
var (
	AuthAll     = Key{"auth"}
	AuthHealth  = Key{"auth", "health"}
	UserAll     = Key{"user"}
	UserProfile = Key{"user", "profile"}
)
