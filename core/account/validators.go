package account

import (
	"github.com/go-playground/validator/v10"

	"github.com/shule-app/shule/core"
)

var roleTag = "role"

func init() {
	_ = core.Validate.RegisterValidation(roleTag, roleValidation)
	core.RegisterCustomTranslation(roleTag, "invalid role")
}

// roleValidation checks that a provided role is one of AllRoles.
func roleValidation(fl validator.FieldLevel) bool {
	role := fl.Field().String()
	for _, r := range AllRoles {
		if role == r {
			return true
		}
	}
	return false
}
