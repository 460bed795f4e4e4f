package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Validation error codes.
const (
	CodeCyclicTypeReference = "cyclic_type_reference"
	CodeUndefinedType       = "undefined_type"
	CodeInvalidVoidUsage    = "invalid_void_usage"
	CodeInvalidMapKeyType   = "invalid_map_key_type"
	CodeEmptyEnum           = "empty_enum"
	CodeEmptyUnion          = "empty_union"
	CodeEmptyStruct         = "empty_struct"
	CodeInvalidFixedLength  = "invalid_fixed_length"
	CodeDuplicateMember     = "duplicate_member"
)

// ValidationError is a single problem found in a draft.
type ValidationError struct {
	Code string
	// Type is the named type the problem was found in; for undefined and
	// cyclic references it is the offending name.
	Type string
	// Path locates the problem inside Type, e.g. "address.lines[*]".
	Path    string
	Message string
}

func (e ValidationError) Error() string {
	loc := e.Type
	if e.Path != "" {
		loc += "." + e.Path
	}
	if loc == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s at %s: %s", e.Code, loc, e.Message)
}

// ValidationErrors is the complete list of problems found by Validate.
type ValidationErrors []ValidationError

// Error summarizes the first few errors.
func (errs ValidationErrors) Error() string {
	if len(errs) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	lim := len(errs)
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(errs[i].Error())
	}
	if len(errs) > lim {
		fmt.Fprintf(b, "; ... (total %d)", len(errs))
	}
	return b.String()
}

// Has reports whether any error carries code.
func (errs ValidationErrors) Has(code string) bool {
	for _, e := range errs {
		if e.Code == code {
			return true
		}
	}
	return false
}

// AsValidationErrors extracts ValidationErrors from err.
func AsValidationErrors(err error) (ValidationErrors, bool) {
	if err == nil {
		return nil, false
	}
	var errs ValidationErrors
	if errors.As(err, &errs) {
		return errs, true
	}
	return nil, false
}
