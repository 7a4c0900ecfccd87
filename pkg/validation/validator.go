package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

const (
	// MaxActivateNodes bounds one POST /activate body.
	MaxActivateNodes = 1000
	// MaxIDLength bounds a node id.
	MaxIDLength = 256
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	_ = validate.RegisterValidation("nodeid", validNodeID)
}

// ErrEmptyActivation is returned when an activate request names no node.
var ErrEmptyActivation = errors.New("nodeIds or nodes must name at least one node")

// NodeEntry is one {id, name} pair of an activate request.
type NodeEntry struct {
	ID   string `json:"id" validate:"required,nodeid"`
	Name string `json:"name" validate:"max=256"`
}

// ActivateRequest is the body of POST /activate.
type ActivateRequest struct {
	NodeIDs []string    `json:"nodeIds" validate:"omitempty,max=1000,dive,required,nodeid"`
	Nodes   []NodeEntry `json:"nodes" validate:"omitempty,max=1000,dive"`
	Append  bool        `json:"append"`
}

// ValidateActivateRequest checks tags and requires at least one node.
func ValidateActivateRequest(req *ActivateRequest) error {
	if req == nil {
		return errors.New("activate request cannot be nil")
	}
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	if len(req.NodeIDs) == 0 && len(req.Nodes) == 0 {
		return ErrEmptyActivation
	}
	if total := len(req.NodeIDs) + len(req.Nodes); total > MaxActivateNodes {
		return fmt.Errorf("activate request names %d nodes, maximum is %d", total, MaxActivateNodes)
	}
	return nil
}

// ValidateNodeID checks a single id outside of a request.
func ValidateNodeID(id string) error {
	return formatValidationError(validate.Var(id, "required,nodeid"))
}

// nodeid: non-blank, bounded, no control characters, no surrounding space.
func validNodeID(fl validator.FieldLevel) bool {
	id := fl.Field().String()
	if id == "" || len(id) > MaxIDLength || strings.TrimSpace(id) != id {
		return false
	}
	return strings.IndexFunc(id, unicode.IsControl) < 0
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	// Report the first failure; clients fix one field at a time.
	e := validationErrs[0]
	field := e.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	if field == "" {
		field = "id"
	}
	switch e.Tag() {
	case "required":
		return fmt.Errorf("%s: field is required", field)
	case "max":
		return fmt.Errorf("%s: must not exceed %s", field, e.Param())
	case "nodeid":
		return fmt.Errorf("%s: invalid node id %q", field, e.Value())
	default:
		return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
	}
}
