// Package profile defines the 1:1 role-profile satellite records
// (student, teacher, school admin). Profiles are created exclusively by
// the account cascade, never by direct user action; the store's
// uniqueness constraint on accountId is what keeps them 1:1 under
// retries.
package profile

import (
	"time"

	"github.com/shule-app/shule/core/hook"
)

const (
	Student     = hook.Entity("student")
	Teacher     = hook.Entity("teacher")
	SchoolAdmin = hook.Entity("schoolAdmin")
)

// Authoritative field sets per profile entity.
var (
	StudentFields = []string{
		"id", "accountId", "grade", "createdAt", "updatedAt",
	}
	TeacherFields = []string{
		"id", "accountId", "bio", "isVerified", "isIndependent", "createdAt", "updatedAt",
	}
	SchoolAdminFields = []string{
		"id", "accountId", "schoolId", "createdAt", "updatedAt",
	}
)

// NewStudent builds the student profile record cascaded from an
// accepted account. Grade may be empty.
func NewStudent(accountID, grade string, now time.Time) hook.Record {
	return hook.Record{
		"accountId": accountID,
		"grade":     grade,
		"createdAt": now,
		"updatedAt": now,
	}
}

func NewTeacher(accountID string, isVerified, isIndependent bool, now time.Time) hook.Record {
	return hook.Record{
		"accountId":     accountID,
		"bio":           "",
		"isVerified":    isVerified,
		"isIndependent": isIndependent,
		"createdAt":     now,
		"updatedAt":     now,
	}
}

func NewSchoolAdmin(accountID, schoolID string, now time.Time) hook.Record {
	return hook.Record{
		"accountId": accountID,
		"schoolId":  schoolID,
		"createdAt": now,
		"updatedAt": now,
	}
}
