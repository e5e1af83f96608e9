package handler

import (
	"reflect"
	"strings"

	"github.com/dermaclinic/backend/internal/domain/stock"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Custom binding validators for ledger enums, so unknown kinds are rejected
// at the request boundary instead of surfacing as domain errors. Validation
// errors report the JSON field name rather than the Go struct field.
func init() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("movementkind", func(fl validator.FieldLevel) bool {
		return stock.MovementKind(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("referencetype", func(fl validator.FieldLevel) bool {
		return stock.ReferenceType(fl.Field().String()).IsValid()
	})
}
