package common

import "github.com/deemkeen/nostrodon/domain"

// Profiles is shared by every model of a session. Only newer metadata
// replaces what is already known.
type Profiles map[string]*domain.Profile

func (p Profiles) Observe(profile *domain.Profile) bool {
	if profile == nil {
		return false
	}
	if old, ok := p[profile.PubKey]; ok && old.CreatedAt >= profile.CreatedAt {
		return false
	}
	p[profile.PubKey] = profile
	return true
}

// Label is the best display name known for pubkey.
func (p Profiles) Label(pubkey string) string {
	if profile, ok := p[pubkey]; ok {
		return profile.DisplayLabel()
	}
	return domain.ShortKey(pubkey)
}

// TabTitle names a tab for the tab bar.
func (p Profiles) TabTitle(tab domain.TabIdentity) string {
	if tab.IsHome() {
		return "Home"
	}
	return p.Label(tab.Author)
}
