package auth

import (
	"strings"

	"github.com/franciscosanchezn/gin-refresh-grant/internal/models"
)

// Scopes is an ordered set of scope names
type Scopes []string

// ParseScopes splits a space-delimited scope string, keeping first-seen order
// and dropping duplicates.
func ParseScopes(s string) Scopes {
	fields := strings.Fields(s)
	scopes := make(Scopes, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, name := range fields {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		scopes = append(scopes, name)
	}
	return scopes
}

func (s Scopes) String() string {
	return strings.Join(s, " ")
}

func (s Scopes) Has(name string) bool {
	for _, scope := range s {
		if scope == name {
			return true
		}
	}
	return false
}

// Missing returns the members of other that s does not contain
func (s Scopes) Missing(other Scopes) Scopes {
	var missing Scopes
	for _, name := range other {
		if !s.Has(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// ResolveScopes narrows the original grant to the requested scopes.
//
// A nil or blank request keeps the original set. The result follows the order
// of original, not of the request.
func ResolveScopes(original Scopes, requested *string) (Scopes, error) {
	if requested == nil || strings.TrimSpace(*requested) == "" {
		return original, nil
	}

	wanted := ParseScopes(*requested)
	if missing := original.Missing(wanted); len(missing) > 0 {
		return nil, models.NewInvalidScope("requested scope exceeds the original grant: " + missing.String())
	}

	resolved := make(Scopes, 0, len(wanted))
	for _, name := range original {
		if wanted.Has(name) {
			resolved = append(resolved, name)
		}
	}
	return resolved, nil
}

// RefreshParams are the optional parameters of a refresh grant.
// Both fields hold space-delimited scope names; Scope takes precedence.
type RefreshParams struct {
	Scope  *string
	Scopes *string
}

// RequestedScopes returns the authoritative scope parameter, or nil when none was sent
func (p RefreshParams) RequestedScopes() *string {
	if p.Scope != nil {
		return p.Scope
	}
	return p.Scopes
}
