package queryset

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/arthur-debert/changelist/changelist/schema"
)

// Operator is the lookup operator encoded as a "__op" path suffix.
type Operator string

const (
	OpExact       Operator = "exact"
	OpIExact      Operator = "iexact"
	OpContains    Operator = "contains"
	OpIContains   Operator = "icontains"
	OpStartsWith  Operator = "startswith"
	OpIStartsWith Operator = "istartswith"
	OpEndsWith    Operator = "endswith"
	OpIEndsWith   Operator = "iendswith"
	OpGT          Operator = "gt"
	OpGTE         Operator = "gte"
	OpLT          Operator = "lt"
	OpLTE         Operator = "lte"
	OpIn          Operator = "in"
	OpIsNull      Operator = "isnull"
	OpYear        Operator = "year"
	OpMonth       Operator = "month"
	OpDay         Operator = "day"
	// OpSearch matches case-insensitive containment on this backend.
	OpSearch Operator = "search"
)

var operators = map[Operator]bool{
	OpExact: true, OpIExact: true,
	OpContains: true, OpIContains: true,
	OpStartsWith: true, OpIStartsWith: true,
	OpEndsWith: true, OpIEndsWith: true,
	OpGT: true, OpGTE: true, OpLT: true, OpLTE: true,
	OpIn: true, OpIsNull: true,
	OpYear: true, OpMonth: true, OpDay: true,
	OpSearch: true,
}

// Lookup is one filter condition: a field path, an operator, and the
// raw value. Values are coerced against field metadata when the query
// compiles.
type Lookup struct {
	Path  string
	Op    Operator
	Value any
}

// ParseLookup splits a lookup parameter such as "year__gte" or
// "author__name__icontains" into its path and operator. A parameter
// whose last segment is not a known operator is an exact match on the
// full path.
func ParseLookup(param string, value any) Lookup {
	if idx := strings.LastIndex(param, "__"); idx > 0 {
		if op := Operator(param[idx+2:]); operators[op] {
			return Lookup{Path: param[:idx], Op: op, Value: value}
		}
	}
	return Lookup{Path: param, Op: OpExact, Value: value}
}

// Param reconstructs the lookup parameter string.
func (lk Lookup) Param() string {
	if lk.Op == OpExact {
		return lk.Path
	}
	return lk.Path + "__" + string(lk.Op)
}

// LookupError wraps anything wrong with one lookup parameter: an
// unresolvable path, a bad operator/field combination, or a value that
// does not coerce to the field's type.
type LookupError struct {
	Param string
	Err   error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("invalid lookup %q: %v", e.Param, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)

// effectiveKind is the kind lookup values coerce to. A terminal
// relation segment filters on the related primary key.
func effectiveKind(ref *schema.FieldRef) schema.Kind {
	f := ref.Field
	if f.IsRelation() {
		if f.Rel.To != nil {
			return f.Rel.To.PK.Kind
		}
		return schema.Int
	}
	return f.Kind
}

// coerceValue converts a raw lookup value (usually a URL string) into
// the driver-facing value for the resolved field and operator.
func coerceValue(ref *schema.FieldRef, op Operator, raw any) (any, error) {
	switch op {
	case OpIsNull:
		return coerceIsNull(raw)
	case OpYear, OpMonth, OpDay:
		k := effectiveKind(ref)
		if k != schema.Date && k != schema.DateTime {
			return nil, fmt.Errorf("%s lookup requires a date field, %s is %s", op, ref.Path, k)
		}
		return coerceInt(raw)
	case OpIn:
		return coerceList(ref, raw)
	case OpContains, OpIContains, OpStartsWith, OpIStartsWith, OpEndsWith, OpIEndsWith, OpSearch, OpIExact:
		return fmt.Sprintf("%v", raw), nil
	default:
		return coerceScalar(effectiveKind(ref), raw)
	}
}

func coerceScalar(kind schema.Kind, raw any) (any, error) {
	switch kind {
	case schema.Int:
		return coerceInt(raw)
	case schema.Float:
		switch v := raw.(type) {
		case float64:
			return v, nil
		case float32:
			return float64(v), nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		case string:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("value %q is not a number", v)
			}
			return f, nil
		}
		return nil, fmt.Errorf("value %v is not a number", raw)
	case schema.Bool, schema.NullBool:
		return coerceBool(raw)
	case schema.Date:
		return coerceDate(raw, dateLayout, []string{dateLayout})
	case schema.DateTime:
		return coerceDate(raw, dateTimeLayout, []string{dateTimeLayout, dateLayout})
	default:
		return fmt.Sprintf("%v", raw), nil
	}
}

func coerceInt(raw any) (any, error) {
	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case uint64:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("value %q is not an integer", v)
		}
		return n, nil
	}
	return nil, fmt.Errorf("value %v is not an integer", raw)
}

func coerceBool(raw any) (any, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case int:
		return v != 0, nil
	case int64:
		return v != 0, nil
	case string:
		switch v {
		case "1", "true", "True":
			return true, nil
		case "0", "false", "False":
			return false, nil
		}
		return nil, fmt.Errorf("value %q is not a boolean", v)
	}
	return nil, fmt.Errorf("value %v is not a boolean", raw)
}

// coerceIsNull follows the admin convention: empty and false-like
// strings mean IS NOT NULL, everything else means IS NULL.
func coerceIsNull(raw any) (any, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		switch v {
		case "", "false", "False", "0":
			return false, nil
		default:
			return true, nil
		}
	case int:
		return v != 0, nil
	case int64:
		return v != 0, nil
	}
	return nil, fmt.Errorf("value %v is not a boolean", raw)
}

// coerceDate normalizes date values to the stored TEXT layout so string
// comparison in SQL matches chronological order.
func coerceDate(raw any, want string, layouts []string) (any, error) {
	switch v := raw.(type) {
	case time.Time:
		return v.Format(want), nil
	case string:
		for _, layout := range layouts {
			if _, err := time.Parse(layout, v); err == nil {
				return v, nil
			}
		}
		return nil, fmt.Errorf("value %q is not a date (want %s)", v, want)
	}
	return nil, fmt.Errorf("value %v is not a date", raw)
}

// coerceList handles __in values: slices element-wise, strings split on
// commas the way the change list splits them.
func coerceList(ref *schema.FieldRef, raw any) (any, error) {
	var elems []any
	switch v := raw.(type) {
	case []string:
		for _, s := range v {
			elems = append(elems, s)
		}
	case []any:
		elems = v
	case string:
		for _, s := range strings.Split(v, ",") {
			elems = append(elems, s)
		}
	default:
		return nil, fmt.Errorf("value %v is not a list", raw)
	}
	out := make([]any, 0, len(elems))
	for _, e := range elems {
		c, err := coerceScalar(effectiveKind(ref), e)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
