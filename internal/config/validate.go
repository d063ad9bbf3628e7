package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(validateServerConfig, ServerConfig{})
	v.RegisterStructValidation(validateObjectServer, ObjectServerDefinition{})
	return v
}

func validateServerConfig(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(ServerConfig)

	roles := make(map[Role]bool)
	for i, def := range cfg.Infrastructure {
		if roles[def.Role] {
			sl.ReportError(cfg.Infrastructure[i].Role, fmt.Sprintf("Infrastructure[%d].Role", i), "Role", "unique", "")
		}
		roles[def.Role] = true
	}

	profiles := make(map[string]bool)
	for i, def := range cfg.ObjectServers {
		if profiles[def.Profile] {
			sl.ReportError(cfg.ObjectServers[i].Profile, fmt.Sprintf("ObjectServers[%d].Profile", i), "Profile", "unique", "")
		}
		profiles[def.Profile] = true
	}
}

func validateObjectServer(sl validator.StructLevel) {
	def := sl.Current().Interface().(ObjectServerDefinition)
	if (def.Kind == "" || def.Kind == ObjectServerKindExec) && len(def.Command) == 0 {
		sl.ReportError(def.Command, "Command", "Command", "required_for_exec", "")
	}
}

// Validate checks the configuration and returns a single error listing every problem.
func Validate(cfg ServerConfig) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "ServerConfig.")
	switch fe.Tag() {
	case "required", "required_for_exec":
		return fmt.Sprintf("%s is required", field)
	case "unique":
		return fmt.Sprintf("%s %v is duplicated", field, fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %v", field, fe.Param(), fe.Value())
	case "min", "max":
		return fmt.Sprintf("%s must be %s %s, got %v", field, bound(fe.Tag()), fe.Param(), fe.Value())
	case "hostname_port":
		return fmt.Sprintf("%s must be host:port, got %v", field, fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

func bound(tag string) string {
	if tag == "min" {
		return ">="
	}
	return "<="
}
