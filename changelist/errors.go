package changelist

import (
	"errors"
	"fmt"
)

// ErrDisallowedLookup reports a filter parameter the admin options do
// not permit. Unlike IncorrectLookupParameters this is not a user
// mistake worth a redirect; callers should refuse the request.
var ErrDisallowedLookup = errors.New("lookup is not allowed")

// IncorrectLookupParameters reports request parameters the change list
// could not turn into a query: unknown fields, malformed values, or an
// out-of-range page. Web handlers redirect these to the error flag.
type IncorrectLookupParameters struct {
	Err error
}

func (e *IncorrectLookupParameters) Error() string {
	if e.Err == nil {
		return "incorrect lookup parameters"
	}
	return fmt.Sprintf("incorrect lookup parameters: %v", e.Err)
}

func (e *IncorrectLookupParameters) Unwrap() error {
	return e.Err
}
