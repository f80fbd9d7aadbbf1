package model

import (
	"reflect"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("primary_in_members", primaryInMembers)
	return v
}

// primaryInMembers requires the tagged string field to appear in the sibling
// MemberCodes slice.
func primaryInMembers(fl validator.FieldLevel) bool {
	parent := fl.Parent()
	if parent.Kind() == reflect.Ptr {
		parent = parent.Elem()
	}
	members := parent.FieldByName("MemberCodes")
	if !members.IsValid() || members.Kind() != reflect.Slice {
		return false
	}
	primary := fl.Field().String()
	for i := 0; i < members.Len(); i++ {
		if members.Index(i).String() == primary {
			return true
		}
	}
	return false
}
