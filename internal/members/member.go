// Package members builds the member directory view: annotation of a roster
// relative to the viewer, search and ordering.
package members

import "context"

// SelfSuffix is appended to the viewer's own display name.
const SelfSuffix = " (you)"

// Member is one roster entry. The Is* flags are derived per viewer and are
// only set on annotated copies.
type Member struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Address   string `json:"address"`
	ENSName   string `json:"ens_name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Online    bool   `json:"online"`

	IsSelf    bool `json:"is_self"`
	IsBlocked bool `json:"is_blocked"`
	IsStarred bool `json:"is_starred"`
}

// Roster supplies the directory inputs for one viewer.
type Roster interface {
	ViewerID() string
	Members(ctx context.Context) ([]Member, error)
	IsBlocked(id string) bool
	StarredIDs() map[string]struct{}
}

// Route is a navigation target produced by the directory.
type Route struct {
	Screen string            `json:"screen"`
	Params map[string]string `json:"params,omitempty"`
}

// MemberDetailScreen is the screen opened when a member is selected.
const MemberDetailScreen = "MemberDetail"
