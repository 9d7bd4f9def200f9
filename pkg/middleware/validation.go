package middleware

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

var (
	itemKinds       = map[string]bool{"material": true, "leather": true, "hardware": true, "product": true}
	locationRegex   = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 ._/-]{0,63}$`)
	dangerousMarkup = regexp.MustCompile(`(?i)<\s*script|javascript:`)
)

// InitValidator registers the stock validators on a standalone validator and
// on gin's binding engine
func InitValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		register(validate)

		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			register(v)
		}
	})
	return validate
}

func register(v *validator.Validate) {
	_ = v.RegisterValidation("item_kind", validateItemKind)
	_ = v.RegisterValidation("quantity", validateQuantity)
	_ = v.RegisterValidation("location", validateLocation)
	_ = v.RegisterValidation("safe_string", validateSafeString)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
}

// GetValidator returns the shared validator instance
func GetValidator() *validator.Validate {
	return InitValidator()
}

func validateItemKind(fl validator.FieldLevel) bool {
	return itemKinds[strings.ToLower(fl.Field().String())]
}

// quantity accepts any decimal literal; sign checks belong to the engine
func validateQuantity(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	_, err := decimal.NewFromString(s)
	return err == nil
}

func validateLocation(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return s == "" || locationRegex.MatchString(s)
}

func validateSafeString(fl validator.FieldLevel) bool {
	return !dangerousMarkup.MatchString(fl.Field().String())
}

// ValidationErrorFields flattens validator errors into field -> rule
func ValidationErrorFields(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return fields
}
