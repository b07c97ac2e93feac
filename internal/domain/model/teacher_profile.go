package model

import "time"

// TeacherProfile is the auxiliary role profile provisioned for role-granting
// plans. Active and ExpiresAt always mirror the teacher_mode entitlement the
// same activation computed; the profile never carries its own expiration logic.
type TeacherProfile struct {
	UserID      int64
	TeacherCode string // short shareable code students use to link with a teacher
	RoleTier    string
	Active      bool
	ExpiresAt   time.Time
	CreatedAt   time.Time
}
