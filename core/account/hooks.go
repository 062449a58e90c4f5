package account

import (
	"context"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/shule-app/shule/core"
	"github.com/shule-app/shule/core/hook"
	"github.com/shule-app/shule/core/profile"
)

var nowFunc = time.Now

var (
	whitespaceRegex  = regexp.MustCompile(`\s+`)
	nonSlugCharRegex = regexp.MustCompile(`[^a-z0-9-]`)
)

// Hooks holds the account entity's lifecycle hooks. Register them via
// the pipeline wiring; they are not discovered by convention.
type Hooks struct {
	cfg    *core.Config
	log    core.Logger
	events *hook.Emitter
	mail   core.EmailService

	allow hook.TransformFunc
}

func NewHooks(cfg *core.Config, log core.Logger, events *hook.Emitter, mailSvc core.EmailService) *Hooks {
	return &Hooks{
		cfg:    cfg,
		log:    log,
		events: events,
		mail:   mailSvc,
		allow:  hook.AllowFields(Entity, Fields, events, log),
	}
}

// NormalizeAdd fills defaults and derived fields on every candidate
// record of a pending add. Each record is normalized independently.
func (h *Hooks) NormalizeAdd(_ context.Context, q *hook.Query) error {
	for _, rec := range q.With {
		h.normalizeNew(rec)
	}
	return nil
}

// normalizeNew mirrors the account creation rules. Evaluation order
// matters: the student branch keys off the role as provided by the
// caller, before role defaulting runs.
func (h *Hooks) normalizeNew(rec hook.Record) {
	// default name from the email local part, else a placeholder
	if rec.Str("name") == "" {
		if email := rec.Str("email"); email != "" {
			rec["name"] = core.EmailLocalPart(email)
		} else {
			rec["name"] = "User"
		}
		h.events.Emit(hook.Event{Kind: hook.EventFieldDefaulted, Entity: Entity, Field: "name"})
	}

	if rec.Str("role") == RoleStudent {
		h.normalizeNewStudent(rec)
	} else if rec.Str("slug") == "" {
		// prefer the name as slug base; fall back to the email
		base := "user"
		if name := rec.Str("name"); name != "" {
			base = name
		} else if email := rec.Str("email"); email != "" {
			base = strings.ReplaceAll(email, "@", "-at-")
		}
		rec["slug"] = core.Slugify(base, "user")
		h.events.Emit(hook.Event{Kind: hook.EventFieldDefaulted, Entity: Entity, Field: "slug"})
	}

	if !rec.Has("emailVerified") && rec.Str("role") != RoleStudent {
		rec["emailVerified"] = false
	}

	if rec.Str("role") == "" {
		// accounts reaching us with an email signed up themselves and
		// are teachers (or later promoted); students are provisioned by
		// a teacher and may have no login email yet
		if rec.Str("email") != "" {
			rec["role"] = RoleTeacher
		} else {
			rec["role"] = RoleStudent
		}
		h.events.Emit(hook.Event{Kind: hook.EventFieldDefaulted, Entity: Entity, Field: "role"})
	}

	h.stripCredentials(rec)

	now := nowFunc().UTC()
	rec["createdAt"] = now
	rec["updatedAt"] = now
}

func (h *Hooks) normalizeNewStudent(rec hook.Record) {
	if rec.Str("username") == "" && rec.Str("name") != "" {
		rec["username"] = whitespaceRegex.ReplaceAllString(strings.ToLower(rec.Str("name")), ".")
		h.events.Emit(hook.Event{Kind: hook.EventFieldDefaulted, Entity: Entity, Field: "username"})
	}

	if rec.Str("email") == "" && rec.Str("name") != "" {
		rec["email"] = rec.Str("username") + "@" + h.cfg.StudentEmailDomain
		h.events.Emit(hook.Event{Kind: hook.EventFieldDefaulted, Entity: Entity, Field: "email"})
	}

	if rec.Str("slug") == "" {
		switch {
		case rec.Str("username") != "":
			rec["slug"] = rec.Str("username")
		case rec.Str("email") != "":
			slug := nonSlugCharRegex.ReplaceAllString(strings.ToLower(core.EmailLocalPart(rec.Str("email"))), "")
			if slug == "" {
				slug = "student"
			}
			rec["slug"] = slug
		default:
			rec["slug"] = "student"
		}
		h.events.Emit(hook.Event{Kind: hook.EventFieldDefaulted, Entity: Entity, Field: "slug"})
	}

	if !rec.Has("isActive") {
		rec["isActive"] = true
	}
	// students do not verify their email; the teacher vouches for them
	rec["emailVerified"] = false

	if rec.Str("teacherId") == "" {
		h.log.Warn("student account created without a teacher reference")
		h.events.Emit(hook.Event{
			Kind:   hook.EventSoftFail,
			Entity: Entity,
			Field:  "teacherId",
			Reason: "student without teacher reference",
		})
	}
}

// NormalizeSet re-stamps the update timestamp, regenerates the slug on
// a name change and canonicalizes stored image addresses.
func (h *Hooks) NormalizeSet(_ context.Context, q *hook.Query) error {
	to := q.To
	if to == nil {
		return nil
	}

	to["updatedAt"] = nowFunc().UTC()

	if to.Has("image") {
		h.normalizeImage(to)
	}

	if to.Str("name") != "" && to.Str("slug") == "" {
		to["slug"] = core.Slugify(to.Str("name"), "user")
		h.events.Emit(hook.Event{Kind: hook.EventFieldDefaulted, Entity: Entity, Field: "slug"})
	}
	return nil
}

// normalizeImage fixes stored-object payloads whose src field is a bare
// object key instead of the canonical storage address.
func (h *Hooks) normalizeImage(to hook.Record) {
	switch img := to["image"].(type) {
	case nil:
		// explicit removal
	case string:
		if img == "" {
			to["image"] = nil
		}
	case map[string]interface{}:
		key, _ := img["key"].(string)
		src, _ := img["src"].(string)
		if key == "" || src == "" || strings.HasPrefix(src, "https://") {
			return
		}
		fixed := make(map[string]interface{}, len(img))
		for k, v := range img {
			fixed[k] = v
		}
		fixed["src"] = h.cfg.StorageBaseURL + key
		to["image"] = fixed
		h.events.Emit(hook.Event{
			Kind:   hook.EventFieldDefaulted,
			Entity: Entity,
			Field:  "image",
			Reason: "canonicalized storage address",
		})
	}
}

// SanitizeSet strips credential-shaped fields unconditionally, then
// drops everything outside the account allowlist.
func (h *Hooks) SanitizeSet(ctx context.Context, q *hook.Query) error {
	if q.To == nil {
		return nil
	}
	h.stripCredentials(q.To)
	return h.allow(ctx, q)
}

func (h *Hooks) stripCredentials(rec hook.Record) {
	if !rec.Has("password") {
		return
	}
	delete(rec, "password")
	h.log.Warn("removed password field from account payload; credentials belong to the auth service")
	h.events.Emit(hook.Event{Kind: hook.EventCredentialStripped, Entity: Entity, Field: "password"})
}

// CascadeAdd schedules the role-profile creation for an accepted
// account. It never checks for an existing profile first: the store's
// uniqueness constraint on the profile's accountId is the idempotency
// guarantee under retries.
func (h *Hooks) CascadeAdd(_ context.Context, accepted hook.Record) ([]hook.Query, error) {
	now := nowFunc().UTC()
	id := accepted.Str("id")

	switch accepted.Str("role") {
	case RoleStudent:
		return []hook.Query{
			hook.AddOne(profile.Student, profile.NewStudent(id, accepted.Str("grade"), now)),
		}, nil

	case RoleTeacher:
		isVerified := accepted.BoolDefault("isVerified", false)
		isIndependent := accepted.BoolDefault("isIndependent", true)
		return []hook.Query{
			hook.AddOne(profile.Teacher, profile.NewTeacher(id, isVerified, isIndependent, now)),
		}, nil

	case RoleSchoolAdmin:
		schoolID := accepted.Str("schoolId")
		if schoolID == "" {
			// deliberate soft-fail: the caller may attach the school in
			// a later step
			h.log.Warn(fmt.Sprintf("school admin account %s created without a school reference; profile skipped", id))
			h.events.Emit(hook.Event{
				Kind:     hook.EventSoftFail,
				Entity:   Entity,
				Field:    "schoolId",
				RecordID: id,
				Reason:   "school admin without school reference; profile skipped",
			})
			return nil, nil
		}
		return []hook.Query{
			hook.AddOne(profile.SchoolAdmin, profile.NewSchoolAdmin(id, schoolID, now)),
		}, nil
	}
	return nil, nil
}

// NotifyAdd sends the invitation email for students provisioned by a
// teacher. Best effort: the account already exists, failures are the
// email service's to log.
func (h *Hooks) NotifyAdd(_ context.Context, _ hook.Query, _, after []hook.Record) {
	if h.mail == nil {
		return
	}
	for _, rec := range after {
		acc := FromRecord(rec)
		if acc.Role != RoleStudent {
			continue
		}
		if acc.Email == "" || acc.TeacherID == "" {
			continue
		}
		name := acc.Name
		if name == "" {
			name = "Student"
		}
		h.mail.SendMessages(&core.EmailMessage{
			To:      []mail.Address{{Name: name, Address: acc.Email}},
			Subject: "Your student account is ready",
			TextContent: fmt.Sprintf(
				"Hi %s,\n\nYour teacher created a %s account for you. Sign in with username %q.\n",
				name, h.cfg.AppName, acc.Username,
			),
		})
	}
}

// NotifySet observes the committed state of image updates, once the
// store has resolved the blob into its canonical address form.
func (h *Hooks) NotifySet(_ context.Context, q hook.Query, _, after []hook.Record) {
	if q.To == nil || !q.To.Has("image") {
		return
	}
	for _, rec := range after {
		if img, ok := rec["image"].(map[string]interface{}); ok {
			h.log.Info(fmt.Sprintf("account %s image committed (key=%v, src=%v)", rec.Str("id"), img["key"], img["src"]))
		} else {
			h.log.Info(fmt.Sprintf("account %s image removed", rec.Str("id")))
		}
	}
}
