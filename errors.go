package materia

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/reoring/materia/i18n"
)

// Issue codes (exported consts for IDE completion and type safety by convention)
const (
	CodeValidationFailed      = "validation_failed"
	CodeTypeMismatch          = "type_mismatch"
	CodeCastFailure           = "cast_failure"
	CodeMissingRequired       = "missing_required"
	CodeUnresolvedNestedType  = "unresolved_nested_type"
	CodeUnknownTransformer    = "unknown_transformer"
	CodeRequired              = "required"
	CodeUnknownKey            = "unknown_key"
	CodeInvalidType           = "invalid_type"
	CodeTooSmall              = "too_small"
	CodeTooBig                = "too_big"
	CodeTooShort              = "too_short"
	CodeTooLong               = "too_long"
	CodeInvalidFormat         = "invalid_format"
	CodeInvalidEnum           = "invalid_enum"
	CodePattern               = "pattern"
	CodeTransformationFailure = "transformation_failure"
	CodeDuplicateKey          = "duplicate_key"
	CodeParseError            = "parse_error"
	CodeTruncated             = "truncated"
)

// Sentinel errors; every typed error below unwraps to exactly one of them.
var (
	ErrValidationFailed        = errors.New("materia: validation failed")
	ErrTypeMismatch            = errors.New("materia: type mismatch")
	ErrCastFailure             = errors.New("materia: cast failure")
	ErrMissingRequiredProperty = errors.New("materia: missing required property")
	ErrUnresolvedNestedType    = errors.New("materia: unresolved nested type")
	ErrUnknownTransformer      = errors.New("materia: unknown transformer")
)

// Issue represents a single validation entry.
type Issue struct {
	Path    string // JSON Pointer of the offending property (for example: /title).
	Code    string // One of the codes listed above.
	Message string
	// Params carries structured parameters (e.g., {"max":10, "got":42}).
	Params map[string]any
	// Rule optionally records the rule name that produced this issue.
	Rule string
}

// Field returns the top-level property name addressed by the issue path.
func (it Issue) Field() string {
	p := strings.TrimPrefix(it.Path, "/")
	if i := strings.IndexByte(p, '/'); i >= 0 {
		p = p[:i]
	}
	return p
}

// Issues is a collection of validation errors that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := n
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		// e.g. too_long at /title
		fmt.Fprintf(b, "%s at %s", it.Code, it.Path)
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// AppendIssues appends issues to the destination, initializing the slice when
// needed.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = Issues{}
	}
	dst = append(dst, more...)
	return dst
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Issues, true
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

// ValidationError is raised when the validator rejects the raw input. The
// issues are carried verbatim.
type ValidationError struct {
	Type   string
	Issues Issues
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", i18n.T(CodeValidationFailed, nil), e.Type, e.Issues.Error())
}

func (e *ValidationError) Unwrap() error { return ErrValidationFailed }

// Fields groups issue messages by top-level property name.
func (e *ValidationError) Fields() map[string][]string {
	out := make(map[string][]string, len(e.Issues))
	for _, it := range e.Issues {
		f := it.Field()
		out[f] = append(out[f], it.Message)
	}
	return out
}

// TypeMismatchError reports a cast result that does not satisfy the declared type.
type TypeMismatchError struct {
	Property string
	Expected DeclaredType
	Actual   any
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%s: property %q expects %q, got %s",
		i18n.T(CodeTypeMismatch, nil), e.Property, e.Expected, ValueKind(e.Actual))
}

func (e *TypeMismatchError) Unwrap() error { return ErrTypeMismatch }

// CastError reports a caster that could not coerce its input.
type CastError struct {
	Property  string
	Kind      string // target cast kind
	ValueKind string // inferred kind of the offending value
	Reason    string
	Cause     error
}

func (e *CastError) Error() string {
	msg := fmt.Sprintf("%s: cannot cast %s to %q: %s", i18n.T(CodeCastFailure, nil), e.ValueKind, e.Kind, e.Reason)
	if e.Property != "" {
		msg = fmt.Sprintf("%s (property %q)", msg, e.Property)
	}
	return msg
}

func (e *CastError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrCastFailure, e.Cause}
	}
	return []error{ErrCastFailure}
}

// NewCastError builds a CastError for value v.
func NewCastError(kind string, v any, reason string) *CastError {
	return &CastError{Kind: kind, ValueKind: ValueKind(v), Reason: reason}
}

// MissingPropertyError reports a required property with no value and no default.
type MissingPropertyError struct {
	Type     string
	Property string
}

func (e *MissingPropertyError) Error() string {
	return fmt.Sprintf("%s: %s.%s", i18n.T(CodeMissingRequired, nil), e.Type, e.Property)
}

func (e *MissingPropertyError) Unwrap() error { return ErrMissingRequiredProperty }

// UnresolvedTypeError reports a nested reference that does not resolve to a
// registered record or enum type.
type UnresolvedTypeError struct {
	Property string
	Ref      string
}

func (e *UnresolvedTypeError) Error() string {
	if e.Ref == "" {
		return fmt.Sprintf("%s: property %q declares no type reference", i18n.T(CodeUnresolvedNestedType, nil), e.Property)
	}
	return fmt.Sprintf("%s: %q (property %q)", i18n.T(CodeUnresolvedNestedType, nil), e.Ref, e.Property)
}

func (e *UnresolvedTypeError) Unwrap() error { return ErrUnresolvedNestedType }

// UnknownTransformerError reports a transformer reference that cannot be resolved.
type UnknownTransformerError struct {
	Ref    string
	Reason string
}

func (e *UnknownTransformerError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %q: %s", i18n.T(CodeUnknownTransformer, nil), e.Ref, e.Reason)
	}
	return fmt.Sprintf("%s: %q", i18n.T(CodeUnknownTransformer, nil), e.Ref)
}

func (e *UnknownTransformerError) Unwrap() error { return ErrUnknownTransformer }

// KindOf returns a stable label for the error taxonomy, "" for nil and
// "other" for errors outside it.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidationFailed):
		return CodeValidationFailed
	case errors.Is(err, ErrTypeMismatch):
		return CodeTypeMismatch
	case errors.Is(err, ErrMissingRequiredProperty):
		return CodeMissingRequired
	case errors.Is(err, ErrUnresolvedNestedType):
		return CodeUnresolvedNestedType
	case errors.Is(err, ErrUnknownTransformer):
		return CodeUnknownTransformer
	case errors.Is(err, ErrCastFailure):
		return CodeCastFailure
	default:
		return "other"
	}
}

// ValueKind names the runtime kind of v for error messages.
func ValueKind(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case *Record:
		if t == nil {
			return "null"
		}
		return "record(" + t.TypeName() + ")"
	case EnumCase:
		return "enum(" + t.Enum + ")"
	}
	return reflect.TypeOf(v).String()
}
