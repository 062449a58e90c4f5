// Package account implements the lifecycle hooks of the core identity
// record: normalization of candidate records, sanitization of update
// payloads, role-profile cascades and post-commit notifications.
package account

import (
	"time"

	"github.com/shule-app/shule/core"
	"github.com/shule-app/shule/core/hook"
)

const Entity = hook.Entity("account")

// Roles
const (
	RoleStudent     = "student"
	RoleTeacher     = "teacher"
	RoleSchoolAdmin = "school_admin"
)

var AllRoles = []string{RoleStudent, RoleTeacher, RoleSchoolAdmin}

// Fields is the authoritative set of fields an account may carry on an
// update payload. Anything else arriving from a caller is dropped by
// the sanitizer. Credentials are deliberately absent: they live in the
// external auth service's own store.
var Fields = []string{
	"email", "emailVerified", "image", "name", "username", "displayUsername",
	"slug", "role", "isActive", "createdAt", "updatedAt",
	// student-specific fields
	"teacherId", "grade", "classId",
	// teacher-specific fields
	"isIndependent", "schoolId", "department", "subjects", "isVerified",
	// school admin-specific fields
	"schoolName", "schoolAddress", "schoolPlaceId", "schoolType", "schoolDistrict",
	"studentCount", "teacherCount",
}

// Account is a typed view over an account record for callers that want
// structured access to fetched data.
type Account struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
	Name          string    `json:"name"`
	Username      string    `json:"username"`
	Slug          string    `json:"slug"`
	Role          string    `json:"role"`
	IsActive      bool      `json:"is_active"`
	TeacherID     string    `json:"teacher_id,omitempty"`
	Grade         string    `json:"grade,omitempty"`
	SchoolID      string    `json:"school_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at"` // UTC
}

func FromRecord(rec hook.Record) Account {
	acc := Account{
		ID:        rec.Str("id"),
		Email:     rec.Str("email"),
		Name:      rec.Str("name"),
		Username:  rec.Str("username"),
		Slug:      rec.Str("slug"),
		Role:      rec.Str("role"),
		TeacherID: rec.Str("teacherId"),
		Grade:     rec.Str("grade"),
		SchoolID:  rec.Str("schoolId"),
	}
	acc.EmailVerified, _ = rec.Bool("emailVerified")
	acc.IsActive, _ = rec.Bool("isActive")
	if t, ok := rec["createdAt"].(time.Time); ok {
		acc.CreatedAt = t
	}
	if t, ok := rec["updatedAt"].(time.Time); ok {
		acc.UpdatedAt = t
	}
	return acc
}

// NewAccount contains information needed to create a new account
// through the pipeline. Everything is optional but what is provided
// must be well-formed; the normalizer fills in the rest.
type NewAccount struct {
	Name      string `json:"name"`
	Email     string `json:"email" validate:"omitempty,email"`
	Role      string `json:"role" validate:"omitempty,role"`
	TeacherID string `json:"teacherId"`
	SchoolID  string `json:"schoolId"`
	Grade     string `json:"grade"`
}

func (na *NewAccount) Validate() error {
	na.Name = core.CleanString(na.Name)
	na.Email = core.CleanString(na.Email, true /* lower */)
	na.Role = core.CleanString(na.Role, true /* lower */)
	return core.TranslateValidatorError(core.Validate.Struct(na))
}

// Record converts the intent into the candidate record submitted to the
// pipeline, omitting empty fields so the normalizer sees them as absent.
func (na NewAccount) Record() hook.Record {
	rec := hook.Record{}
	set := func(key, val string) {
		if val != "" {
			rec[key] = val
		}
	}
	set("name", na.Name)
	set("email", na.Email)
	set("role", na.Role)
	set("teacherId", na.TeacherID)
	set("schoolId", na.SchoolID)
	set("grade", na.Grade)
	return rec
}
