// Package rules evaluates derived rule strings ("required|string|max:120")
// against raw input. Evaluator implements materia.Validator.
package rules

import (
	"context"
	"fmt"
	"math"
	"net/mail"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"

	"github.com/reoring/materia"
	"github.com/reoring/materia/cast"
	"github.com/reoring/materia/i18n"
)

// Check is one evaluated rule. present is false when the key is absent from
// the input. A nil return means the value passes.
type Check func(field string, v any, present bool, args []string) *materia.Issue

// Evaluator evaluates rule strings. Unknown rule names are ignored.
type Evaluator struct {
	// FailFast stops after the first failing field.
	FailFast bool

	mu     sync.RWMutex
	custom map[string]Check
	re     sync.Map // pattern -> *regexp.Regexp
}

// New returns an Evaluator with the built-in rules.
func New() *Evaluator { return &Evaluator{custom: map[string]Check{}} }

// Register adds or replaces a named rule.
func (e *Evaluator) Register(name string, c Check) {
	e.mu.Lock()
	e.custom[name] = c
	e.mu.Unlock()
}

var _ materia.Validator = (*Evaluator)(nil)

// Validate evaluates rules against data; issues are ordered by field name and
// then by rule position.
func (e *Evaluator) Validate(ctx context.Context, data map[string]any, rules map[string]string) materia.Issues {
	fields := make([]string, 0, len(rules))
	for f := range rules {
		fields = append(fields, f)
	}
	slices.Sort(fields)

	var out materia.Issues
	for _, f := range fields {
		v, present := data[f]
		if iss := e.field(f, v, present, Parse(rules[f])); len(iss) > 0 {
			out = append(out, iss...)
			if e.FailFast {
				return out
			}
		}
		if ctx.Err() != nil {
			break
		}
	}
	return out
}

// Rule is one parsed rule: a name and its comma separated arguments.
type Rule struct {
	Name string
	Args []string
}

// Parse splits a rule string on "|". A regex rule consumes the rest of the
// string so its pattern may contain "|".
func Parse(s string) []Rule {
	var out []Rule
	for s != "" {
		var part string
		if strings.HasPrefix(s, "regex:") || strings.HasPrefix(s, "not_regex:") {
			part, s = s, ""
		} else if i := strings.IndexByte(s, '|'); i >= 0 {
			part, s = s[:i], s[i+1:]
		} else {
			part, s = s, ""
		}
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, arg, ok := strings.Cut(part, ":")
		r := Rule{Name: strings.TrimSpace(name)}
		if ok {
			if r.Name == "regex" || r.Name == "not_regex" {
				r.Args = []string{arg}
			} else {
				for _, a := range strings.Split(arg, ",") {
					r.Args = append(r.Args, strings.TrimSpace(a))
				}
			}
		}
		out = append(out, r)
	}
	return out
}

func (e *Evaluator) field(f string, v any, present bool, rules []Rule) materia.Issues {
	has := func(name string) bool {
		return slices.IndexFunc(rules, func(r Rule) bool { return r.Name == name }) >= 0
	}
	if has("required") && isEmpty(v) {
		return materia.Issues{issue(f, materia.CodeRequired, "required", nil)}
	}
	if !present || (v == nil && has("nullable")) {
		return nil
	}
	numericCtx := has("numeric") || has("integer")
	var out materia.Issues
	for _, r := range rules {
		if it := e.eval(f, v, present, r, numericCtx); it != nil {
			out = append(out, *it)
		}
	}
	return out
}

func (e *Evaluator) eval(f string, v any, present bool, r Rule, numericCtx bool) *materia.Issue {
	e.mu.RLock()
	c, ok := e.custom[r.Name]
	e.mu.RUnlock()
	if ok {
		return c(f, v, present, r.Args)
	}
	switch r.Name {
	case "required", "nullable":
		return nil
	case "string":
		if _, ok := v.(string); !ok {
			return typeIssue(f, "string")
		}
	case "integer":
		if !isInteger(v) {
			return typeIssue(f, "integer")
		}
	case "numeric":
		if _, ok := toNumber(v); !ok {
			return typeIssue(f, "numeric")
		}
	case "boolean":
		if !isBoolean(v) {
			return typeIssue(f, "boolean")
		}
	case "array":
		if k := reflect.ValueOf(v).Kind(); k != reflect.Slice && k != reflect.Array && k != reflect.Map {
			return typeIssue(f, "array")
		}
	case "min", "max", "size":
		n, err := arg(r, 0)
		if err != nil {
			return nil
		}
		return bound(f, v, r.Name, n, numericCtx)
	case "between":
		lo, err1 := arg(r, 0)
		hi, err2 := arg(r, 1)
		if err1 != nil || err2 != nil {
			return nil
		}
		if it := bound(f, v, "min", lo, numericCtx); it != nil {
			return it
		}
		return bound(f, v, "max", hi, numericCtx)
	case "email":
		s, ok := v.(string)
		if !ok {
			return formatIssue(f, "email")
		}
		a, err := mail.ParseAddress(s)
		if err != nil || a.Address != s {
			return formatIssue(f, "email")
		}
	case "uuid":
		s, ok := v.(string)
		if !ok {
			return formatIssue(f, "uuid")
		}
		if _, err := uuid.Parse(s); err != nil {
			return formatIssue(f, "uuid")
		}
	case "in", "not_in":
		s := fmt.Sprint(v)
		found := slices.Contains(r.Args, s)
		if found != (r.Name == "in") {
			it := issue(f, materia.CodeInvalidEnum, r.Name, map[string]any{"allowed": r.Args})
			return &it
		}
	case "regex", "not_regex":
		if len(r.Args) == 0 {
			return nil
		}
		re, err := e.compile(r.Args[0])
		if err != nil {
			return nil
		}
		s, ok := v.(string)
		if !ok {
			s = fmt.Sprint(v)
		}
		if re.MatchString(s) != (r.Name == "regex") {
			it := issue(f, materia.CodePattern, r.Name, map[string]any{"pattern": r.Args[0]})
			return &it
		}
	}
	return nil
}

// compile accepts "/pattern/" or a bare pattern.
func (e *Evaluator) compile(p string) (*regexp.Regexp, error) {
	if re, ok := e.re.Load(p); ok {
		return re.(*regexp.Regexp), nil
	}
	src := p
	if len(src) >= 2 && src[0] == '/' && strings.LastIndexByte(src, '/') > 0 {
		src = src[1:strings.LastIndexByte(src, '/')]
	}
	re, err := regexp.Compile(src)
	if err != nil {
		return nil, err
	}
	e.re.Store(p, re)
	return re, nil
}

func arg(r Rule, i int) (float64, error) {
	if i >= len(r.Args) {
		return 0, fmt.Errorf("rule %s: missing argument %d", r.Name, i)
	}
	return strconv.ParseFloat(r.Args[i], 64)
}

// bound checks a min/max/size rule. Strings measure runes, lists and maps
// measure length, numbers (or numeric strings under a numeric rule) measure
// value.
func bound(f string, v any, rule string, n float64, numericCtx bool) *materia.Issue {
	size, isLen := measure(v, numericCtx)
	if math.IsNaN(size) {
		return nil
	}
	lo, hi := materia.CodeTooSmall, materia.CodeTooBig
	if isLen {
		lo, hi = materia.CodeTooShort, materia.CodeTooLong
	}
	limit := strconv.FormatFloat(n, 'f', -1, 64)
	switch {
	case (rule == "min" || rule == "size") && size < n:
		it := issue(f, lo, rule, map[string]any{"min": limit, "got": size})
		return &it
	case (rule == "max" || rule == "size") && size > n:
		it := issue(f, hi, rule, map[string]any{"max": limit, "got": size})
		return &it
	}
	return nil
}

func measure(v any, numericCtx bool) (float64, bool) {
	if s, ok := v.(string); ok {
		if numericCtx {
			if n, ok := toNumber(s); ok {
				return n, false
			}
		}
		return float64(utf8.RuneCountInString(s)), true
	}
	if n, ok := toNumber(v); ok {
		return n, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return float64(rv.Len()), true
	}
	return math.NaN(), false
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		return rv.Len() == 0
	}
	return false
}

func toNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	case fmt.Stringer:
		f, err := strconv.ParseFloat(x.String(), 64)
		return f, err == nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

func isInteger(v any) bool {
	if s, ok := v.(string); ok {
		_, err := strconv.Atoi(strings.TrimSpace(s))
		return err == nil
	}
	n, ok := toNumber(v)
	return ok && n == math.Trunc(n)
}

func isBoolean(v any) bool {
	switch x := v.(type) {
	case bool:
		return true
	case string:
		return cast.BoolWord(x)
	}
	n, ok := toNumber(v)
	return ok && (n == 0 || n == 1)
}

func issue(f, code, rule string, params map[string]any) materia.Issue {
	data := map[string]string{"field": f}
	for k, v := range params {
		data[k] = fmt.Sprint(v)
	}
	return materia.Issue{
		Path:    materia.Pointer(f),
		Code:    code,
		Message: i18n.T(code, data),
		Params:  params,
		Rule:    rule,
	}
}

func typeIssue(f, expected string) *materia.Issue {
	it := issue(f, materia.CodeInvalidType, expected, map[string]any{"expected": expected})
	return &it
}

func formatIssue(f, expected string) *materia.Issue {
	it := issue(f, materia.CodeInvalidFormat, expected, map[string]any{"expected": expected})
	return &it
}
