package models

import (
	"fmt"
	"reflect"
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var symbolPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]*$`)

// ValidationRules are the domain tags used by request payloads.
func ValidationRules() map[string]validator.Func {
	return map[string]validator.Func{
		"symbol": func(fl validator.FieldLevel) bool {
			return symbolPattern.MatchString(fl.Field().String())
		},
		"payment_method": func(fl validator.FieldLevel) bool {
			v := fl.Field().String()
			for _, m := range PaymentMethods {
				if m == v {
					return true
				}
			}
			return false
		},
	}
}

// DecimalValue lets numeric tags (gt, lte) apply to decimal fields.
func DecimalValue(v reflect.Value) interface{} {
	d, ok := v.Interface().(decimal.Decimal)
	if !ok {
		return nil
	}
	f, _ := d.Float64()
	return f
}

// RegisterValidations installs the domain tags and decimal support on v.
func RegisterValidations(v *validator.Validate) error {
	v.RegisterCustomTypeFunc(DecimalValue, decimal.Decimal{})
	for tag, fn := range ValidationRules() {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

var registerOnce sync.Once

// MustRegisterValidations installs the domain tags on v at most once per process.
func MustRegisterValidations(v *validator.Validate) {
	registerOnce.Do(func() {
		if err := RegisterValidations(v); err != nil {
			panic(fmt.Sprintf("register validations: %v", err))
		}
	})
}
