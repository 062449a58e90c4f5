// Package gradelevel holds the lifecycle hooks of teacher-defined grade
// levels ("9th Grade", "Beginner", ...). Codes and sort orders are
// derived deterministically so a level always sorts somewhere defined.
package gradelevel

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shule-app/shule/core"
	"github.com/shule-app/shule/core/hook"
)

const Entity = hook.Entity("gradeLevel")

// SortOrderSentinel pushes non-numeric levels behind every numbered grade.
const SortOrderSentinel = 1000

var nowFunc = time.Now

var (
	digitRunRegex = regexp.MustCompile(`\d+`)
	numericRegex  = regexp.MustCompile(`^\d+$`)
)

// Fields is the authoritative set of fields a grade level may carry.
var Fields = []string{
	"name", "code", "description", "category", "educationType",
	"teacherId", "schoolId", "sortOrder", "isActive",
	"createdAt", "updatedAt",
}

// NewGradeLevel contains information needed to create a grade level.
type NewGradeLevel struct {
	Name          string `json:"name" validate:"required,notblank"`
	Code          string `json:"code"`
	Category      string `json:"category" validate:"required"`
	EducationType string `json:"educationType" validate:"required"`
	TeacherID     string `json:"teacherId" validate:"required"`
	SchoolID      string `json:"schoolId"`
}

func (ngl *NewGradeLevel) Validate() error {
	ngl.Name = core.CleanString(ngl.Name)
	ngl.Code = core.CleanString(ngl.Code)
	return core.TranslateValidatorError(core.Validate.Struct(ngl))
}

func (ngl NewGradeLevel) Record() hook.Record {
	rec := hook.Record{
		"name":          ngl.Name,
		"category":      ngl.Category,
		"educationType": ngl.EducationType,
		"teacherId":     ngl.TeacherID,
	}
	if ngl.Code != "" {
		rec["code"] = ngl.Code
	}
	if ngl.SchoolID != "" {
		rec["schoolId"] = ngl.SchoolID
	}
	return rec
}

type Hooks struct {
	log    core.Logger
	events *hook.Emitter
}

func NewHooks(log core.Logger, events *hook.Emitter) *Hooks {
	return &Hooks{log: log, events: events}
}

// NormalizeAdd derives code and sort order, defaults the active flag
// and stamps timestamps on every candidate record.
func (h *Hooks) NormalizeAdd(_ context.Context, q *hook.Query) error {
	for _, rec := range q.With {
		h.normalizeNew(rec)
	}
	return nil
}

func (h *Hooks) normalizeNew(rec hook.Record) {
	if rec.Str("code") == "" && rec.Str("name") != "" {
		rec["code"] = DeriveCode(rec.Str("name"))
		h.events.Emit(hook.Event{Kind: hook.EventFieldDefaulted, Entity: Entity, Field: "code"})
	}

	if !rec.Has("sortOrder") || rec["sortOrder"] == nil {
		rec["sortOrder"] = deriveSortOrder(rec.Str("code"))
		h.events.Emit(hook.Event{Kind: hook.EventFieldDefaulted, Entity: Entity, Field: "sortOrder"})
	}

	rec["isActive"] = rec.BoolDefault("isActive", true)

	now := nowFunc().UTC()
	rec["createdAt"] = now
	rec["updatedAt"] = now
}

func (h *Hooks) NormalizeSet(_ context.Context, q *hook.Query) error {
	if q.To != nil {
		q.To["updatedAt"] = nowFunc().UTC()
	}
	return nil
}

// DeriveCode computes a level code from its name: traditional grades
// ("9th Grade") yield their first run of digits, anything else the
// first three characters upper-cased.
func DeriveCode(name string) string {
	if strings.Contains(name, "Grade") {
		if digits := digitRunRegex.FindString(name); digits != "" {
			return digits
		}
		return name
	}
	if r := []rune(name); len(r) > 3 {
		name = string(r[:3])
	}
	return strings.ToUpper(name)
}

// deriveSortOrder orders numeric codes by their value and pushes
// everything else behind them via the sentinel.
func deriveSortOrder(code string) int {
	if numericRegex.MatchString(code) {
		n, err := strconv.Atoi(code)
		if err == nil {
			return n
		}
	}
	return SortOrderSentinel
}
