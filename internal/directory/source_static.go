package directory

import (
	"context"
	"encoding/json"

	dErrors "complyflow/pkg/domain-errors"
)

// StaticSource serves a fixed reviewer roster. Used for local development and
// tests where no directory backend exists.
type StaticSource struct {
	users []User
}

func NewStaticSource(users []User) *StaticSource {
	return &StaticSource{users: users}
}

// ParseStaticSource builds a StaticSource from a JSON array of
// {"id","role","department"} objects.
func ParseStaticSource(data []byte) (*StaticSource, error) {
	var users []User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "malformed reviewer roster")
	}
	return &StaticSource{users: users}, nil
}

func (s *StaticSource) ListUsers(_ context.Context, filter Filter) ([]User, error) {
	wantRole := toSet(filter.Roles)
	wantDept := toSet(filter.Departments)

	var out []User
	for _, u := range s.users {
		if len(wantRole) > 0 && !wantRole[u.Role] {
			continue
		}
		if len(wantDept) > 0 && !wantDept[u.Department] {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
