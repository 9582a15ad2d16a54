package dto

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventory-ledger/internal/domain"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		// nombres de campo JSON en los mensajes
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		// las cantidades decimal se validan como número (gt=0, gte=0, ne=0)
		validate.RegisterCustomTypeFunc(func(v reflect.Value) interface{} {
			d, ok := v.Interface().(decimal.Decimal)
			if !ok {
				return nil
			}
			f, _ := d.Float64()
			return f
		}, decimal.Decimal{})
	})
	return validate
}

// Validate aplica las etiquetas validate: y devuelve un domain.ValidationError con el primer campo inválido.
func Validate(v any) error {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return domain.Invalid("", err.Error())
	}
	fe := verrs[0]
	return domain.Invalid(fe.Namespace()[strings.Index(fe.Namespace(), ".")+1:], messageFor(fe))
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "es requerido"
	case "oneof":
		return "debe ser uno de: " + fe.Param()
	case "min":
		return "debe ser al menos " + fe.Param()
	case "max":
		return "debe ser a lo sumo " + fe.Param()
	case "nefield":
		return "debe ser distinto de " + fe.Param()
	case "gt":
		return "debe ser mayor que " + fe.Param()
	case "gte":
		return "debe ser mayor o igual a " + fe.Param()
	case "ne":
		return "no puede ser " + fe.Param()
	default:
		return "no es válido (" + fe.Tag() + ")"
	}
}
