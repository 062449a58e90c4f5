// Package pipeline assembles the hook registry: every entity's
// lifecycle hooks, in invocation order, resolved once at startup. This
// table is the single place that decides what runs when; there is no
// discovery by naming convention.
package pipeline

import (
	"github.com/shule-app/shule/core"
	"github.com/shule-app/shule/core/account"
	"github.com/shule-app/shule/core/educontext"
	"github.com/shule-app/shule/core/gradelevel"
	"github.com/shule-app/shule/core/hook"
	"github.com/shule-app/shule/core/profile"
	"github.com/shule-app/shule/core/session"
)

// New wires every entity's hooks into a registry and returns the
// engine driving them. mailSvc may be nil, in which case no
// notification emails go out.
func New(store hook.Store, cfg *core.Config, log core.Logger, events *hook.Emitter, mailSvc core.EmailService) *hook.Engine {
	reg := hook.NewRegistry()

	acc := account.NewHooks(cfg, log, events, mailSvc)
	reg.Transform(account.Entity, hook.BeforeAdd, acc.NormalizeAdd)
	reg.Transform(account.Entity, hook.BeforeSet, acc.NormalizeSet, acc.SanitizeSet)
	reg.Cascade(account.Entity, hook.AfterAdd, acc.CascadeAdd)
	reg.Commit(account.Entity, hook.CommitAdd, acc.NotifyAdd)
	reg.Commit(account.Entity, hook.CommitSet, acc.NotifySet)

	// profiles are created by the account cascade; direct updates still
	// go through their allowlists
	for entity, fields := range map[hook.Entity][]string{
		profile.Student:     profile.StudentFields,
		profile.Teacher:     profile.TeacherFields,
		profile.SchoolAdmin: profile.SchoolAdminFields,
	} {
		reg.Transform(entity, hook.BeforeSet, hook.AllowFields(entity, fields, events, log))
	}

	ses := session.NewHooks(cfg, log, events)
	reg.Transform(session.Entity, hook.BeforeAdd, ses.NormalizeAdd)
	reg.Transform(session.Entity, hook.BeforeSet,
		ses.NormalizeSet,
		hook.AllowFields(session.Entity, session.Fields, events, log),
	)
	reg.Read(session.Entity, ses.ValidateAccounts)

	gl := gradelevel.NewHooks(log, events)
	reg.Transform(gradelevel.Entity, hook.BeforeAdd, gl.NormalizeAdd)
	reg.Transform(gradelevel.Entity, hook.BeforeSet,
		gl.NormalizeSet,
		hook.AllowFields(gradelevel.Entity, gradelevel.Fields, events, log),
	)

	ec := educontext.NewHooks(log, events)
	reg.Transform(educontext.Entity, hook.BeforeAdd, ec.NormalizeAdd)
	reg.Transform(educontext.Entity, hook.BeforeSet,
		ec.NormalizeSet,
		hook.AllowFields(educontext.Entity, educontext.Fields, events, log),
	)

	return hook.NewEngine(store, reg, log, events)
}
