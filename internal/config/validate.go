package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"k8s.io/apimachinery/pkg/util/validation"

	"github.com/imamik/kinstall/internal/helm"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report YAML field names instead of Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	_ = v.RegisterValidation("k8sname", func(fl validator.FieldLevel) bool {
		return len(validation.IsDNS1123Label(fl.Field().String())) == 0
	})

	v.RegisterStructValidation(validateStep, StepConfig{})
	v.RegisterStructValidation(validateRelease, ReleaseConfig{})
	return v
}

func validateStep(sl validator.StructLevel) {
	step := sl.Current().Interface().(StepConfig)
	if len(step.Namespaces) == 0 && len(step.Manifests) == 0 && step.Release == nil && len(step.Waits) == 0 {
		sl.ReportError(step.Name, "name", "Name", "has_work", "")
	}
}

func validateRelease(sl validator.StructLevel) {
	rel := sl.Current().Interface().(ReleaseConfig)
	if rel.Addon != "" {
		if _, ok := helm.DefaultCharts[rel.Addon]; !ok {
			sl.ReportError(rel.Addon, "addon", "Addon", "catalog", "")
		}
	}
	if rel.Timeout.Duration < 0 {
		sl.ReportError(rel.Timeout, "timeout", "Timeout", "gte", "0")
	}
}

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, errors.New(describe(fe)))
	}
	return errors.Join(msgs...)
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required", "required_without":
		return fmt.Sprintf("%s is required", field)
	case "required_if", "required_unless":
		return fmt.Sprintf("%s is required for this kind (%s)", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s needs at least %s entry", field, fe.Param())
	case "unique":
		return fmt.Sprintf("%s must have unique %s values", field, strings.ToLower(fe.Param()))
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value())
	case "k8sname":
		return fmt.Sprintf("%s %q must be a lowercase RFC 1123 label", field, fe.Value())
	case "url":
		return fmt.Sprintf("%s %q is not a valid URL", field, fe.Value())
	case "has_work":
		return fmt.Sprintf("step %q declares no namespaces, manifests, release or waits", fe.Value())
	case "catalog":
		return fmt.Sprintf("%s %q is not in the chart catalog %v", field, fe.Value(), helm.CatalogNames())
	}
	return fmt.Sprintf("%s failed %q validation", field, fe.Tag())
}
