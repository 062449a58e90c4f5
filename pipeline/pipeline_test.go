package pipeline_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shule-app/shule/core/account"
	"github.com/shule-app/shule/core/gradelevel"
	"github.com/shule-app/shule/core/hook"
	"github.com/shule-app/shule/core/profile"
	"github.com/shule-app/shule/core/session"
	"github.com/shule-app/shule/core/waitlist"
	testutil "github.com/shule-app/shule/tests"
)

func TestStudentAccountEndToEnd(t *testing.T) {
	eng, _, _, mailSvc := testutil.Pipeline(t)
	ctx := context.Background()

	acc := testutil.CreateAccount(t, eng, hook.Record{
		"role": account.RoleStudent, "name": "Sam Otieno", "grade": "3", "teacherId": "t1",
	})

	assert.Equal(t, "sam.otieno", acc.Str("username"))
	assert.Equal(t, "sam.otieno@student.school.com", acc.Str("email"))
	assert.Equal(t, false, acc["emailVerified"])

	// exactly one student profile, linked back to the account
	profiles, err := eng.Get(ctx, profile.Student, hook.Selector{"accountId": acc.Str("id")})
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "3", profiles[0].Str("grade"))

	// the provisioned student got an invitation
	sent := mailSvc.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "sam.otieno@student.school.com", sent[0].To[0].Address)
}

func TestTeacherAccountEndToEnd(t *testing.T) {
	eng, _, _, mailSvc := testutil.Pipeline(t)
	ctx := context.Background()

	acc := testutil.CreateAccount(t, eng, hook.Record{"email": "jane.doe@example.com"})

	assert.Equal(t, account.RoleTeacher, acc.Str("role"))
	assert.Equal(t, "jane-doe", acc.Str("slug"))

	profiles, err := eng.Get(ctx, profile.Teacher, hook.Selector{"accountId": acc.Str("id")})
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, false, profiles[0]["isVerified"])
	assert.Equal(t, true, profiles[0]["isIndependent"])

	assert.Empty(t, mailSvc.Sent(), "teachers get no invitation")
}

func TestSchoolAdminWithoutSchool(t *testing.T) {
	eng, _, recorder, _ := testutil.Pipeline(t)
	ctx := context.Background()

	acc := testutil.CreateAccount(t, eng, hook.Record{
		"email": "admin@example.com", "role": account.RoleSchoolAdmin,
	})

	// no profile, no error, one soft-fail event
	profiles, err := eng.Get(ctx, profile.SchoolAdmin, hook.Selector{"accountId": acc.Str("id")})
	require.NoError(t, err)
	assert.Empty(t, profiles)

	events := recorder.ByKind(hook.EventSoftFail)
	require.Len(t, events, 1)
	assert.Equal(t, "schoolId", events[0].Field)
}

func TestCascadeRetryIsIdempotent(t *testing.T) {
	eng, store, recorder, _ := testutil.Pipeline(t)
	ctx := context.Background()

	// a previous attempt already created the profile; the re-submitted
	// account must still be accepted with no second profile
	_, err := store.Add(ctx, profile.Teacher, hook.Record{"accountId": "a-retry"})
	require.NoError(t, err)

	acc := testutil.CreateAccount(t, eng, hook.Record{
		"id": "a-retry", "email": "retry@example.com", "role": account.RoleTeacher,
	})
	assert.Equal(t, "a-retry", acc.Str("id"))

	profiles, err := eng.Get(ctx, profile.Teacher, hook.Selector{"accountId": "a-retry"})
	require.NoError(t, err)
	assert.Len(t, profiles, 1)
	assert.Len(t, recorder.ByKind(hook.EventCascadeDuplicate), 1)
}

func TestSlugConflictSurfaces(t *testing.T) {
	eng, _, _, _ := testutil.Pipeline(t)
	ctx := context.Background()

	testutil.CreateAccount(t, eng, hook.Record{"name": "Jane Doe", "email": "jane@example.com"})

	// same name derives the same slug; the store rejects it
	_, err := eng.Add(ctx, account.Entity, hook.Record{"name": "Jane Doe", "email": "jane2@example.com"})
	require.Error(t, err)
	assert.True(t, hook.IsUniqueViolation(err))

	accs, err := eng.Get(ctx, account.Entity, hook.Selector{})
	require.NoError(t, err)
	assert.Len(t, accs, 1, "the rejected account must not be stored")
}

func TestAccountUpdateSanitized(t *testing.T) {
	eng, _, recorder, _ := testutil.Pipeline(t)
	ctx := context.Background()

	acc := testutil.CreateAccount(t, eng, hook.Record{"email": "jane@example.com"})

	updated, err := eng.Set(ctx, account.Entity, hook.ByID(acc.Str("id")), hook.Record{
		"name":     "Jane Renamed",
		"password": "hunter2",
		"isAdmin":  true,
	})
	require.NoError(t, err)
	require.Len(t, updated, 1)

	rec := updated[0]
	assert.Equal(t, "Jane Renamed", rec.Str("name"))
	assert.Equal(t, "jane-renamed", rec.Str("slug"))
	assert.False(t, rec.Has("password"))
	assert.False(t, rec.Has("isAdmin"))

	assert.Len(t, recorder.ByKind(hook.EventCredentialStripped), 1)
	assert.Len(t, recorder.ByKind(hook.EventFieldDropped), 1)
}

func TestProfileUpdateSanitized(t *testing.T) {
	eng, _, recorder, _ := testutil.Pipeline(t)
	ctx := context.Background()

	acc := testutil.CreateAccount(t, eng, hook.Record{"email": "jane@example.com"})

	updated, err := eng.Set(ctx, profile.Teacher, hook.Selector{"accountId": acc.Str("id")}, hook.Record{
		"bio":     "Maths, grades 7-9",
		"isAdmin": true,
	})
	require.NoError(t, err)
	require.Len(t, updated, 1)

	assert.Equal(t, "Maths, grades 7-9", updated[0].Str("bio"))
	assert.False(t, updated[0].Has("isAdmin"))
	dropped := recorder.ByKind(hook.EventFieldDropped)
	require.Len(t, dropped, 1)
	assert.Equal(t, profile.Teacher, dropped[0].Entity)
}

func TestSessionLifecycle(t *testing.T) {
	eng, _, recorder, _ := testutil.Pipeline(t)
	ctx := context.Background()

	acc := testutil.CreateAccount(t, eng, hook.Record{"email": "jane@example.com"})

	sessions, err := eng.Add(ctx, session.Entity,
		hook.Record{"token": "tok-live", "accountId": acc.Str("id")},
		hook.Record{"token": "tok-orphan", "accountId": "never-existed"},
	)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	expiry, ok := sessions[0]["expiresAt"].(time.Time)
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), expiry, time.Minute)

	// the orphan is purged on read
	got, err := eng.Get(ctx, session.Entity, hook.Selector{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "tok-live", got[0].Str("token"))
	assert.Len(t, recorder.ByKind(hook.EventOrphanRemoved), 1)

	// a second read finds a consistent store
	got, err = eng.Get(ctx, session.Entity, hook.Selector{})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestGradeLevelEndToEnd(t *testing.T) {
	eng, _, _, _ := testutil.Pipeline(t)
	ctx := context.Background()

	accepted, err := eng.Add(ctx, gradelevel.Entity,
		hook.Record{"name": "9th Grade", "teacherId": "t1"},
		hook.Record{"name": "Beginner", "teacherId": "t1"},
	)
	require.NoError(t, err)
	require.Len(t, accepted, 2)

	assert.Equal(t, "9", accepted[0].Str("code"))
	assert.Equal(t, 9, accepted[0]["sortOrder"])
	assert.Equal(t, "BEG", accepted[1].Str("code"))
	assert.Equal(t, gradelevel.SortOrderSentinel, accepted[1]["sortOrder"])
}

func TestWaitlistLookupOverPipelineStore(t *testing.T) {
	eng, store, _, _ := testutil.Pipeline(t)
	ctx := context.Background()

	_, err := store.Add(ctx, waitlist.Entity, hook.Record{
		"email": "jane@example.com", "isApproved": true,
	})
	require.NoError(t, err)

	svc := waitlist.NewService(eng.Store())
	ok, err := svc.Approved(ctx, "JANE@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
}
