package domain

// ProfilePatch is a partial update of a user's display fields.
// A nil field means "not changed" and must be left alone by consumers.
type ProfilePatch struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,max=100"`
	Image *string `json:"image,omitempty" validate:"omitempty,max=2048"`
}

// ProfileUpdate announces that UserID's display fields changed.
type ProfileUpdate struct {
	UserID string       `json:"user_id"`
	Patch  ProfilePatch `json:"patch"`
}

// Empty reports whether the patch carries no fields.
func (p ProfilePatch) Empty() bool {
	return p.Name == nil && p.Image == nil
}

// Apply merges the patch into u, leaving fields the patch does not carry untouched.
func (p ProfilePatch) Apply(u *UserRef) {
	if u == nil {
		return
	}
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Image != nil {
		u.Image = *p.Image
	}
}

// StringPtr is a small helper for building patches.
func StringPtr(s string) *string { return &s }
