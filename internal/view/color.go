package view

import "famcal/internal/model"

// ResolveColor looks up the display color for a member id. Unknown ids get
// the fallback color: dangling member references are expected in event data
// and must degrade, never error.
func ResolveColor(memberID string, members []model.FamilyMember, fallback string) string {
	for _, m := range members {
		if m.ID == memberID {
			return m.Color
		}
	}
	return fallback
}

func (e *Engine) resolveColor(memberID string, members []model.FamilyMember) string {
	return ResolveColor(memberID, members, e.cfg.FallbackColor)
}
