package agent

import "fmt"

// RouterError indicates the routing model produced something other than the
// two legal labels. Callers fall back to the GENERAL route; an ambiguous
// classification never executes SQL.
type RouterError struct {
	Raw string
}

func (e *RouterError) Error() string {
	return fmt.Sprintf("ambiguous route classification %q", e.Raw)
}

// ForbiddenStatementError indicates a statement the safety gate rejected
// before any database call was made.
type ForbiddenStatementError struct {
	Reason string
}

func (e *ForbiddenStatementError) Error() string {
	return "forbidden statement: " + e.Reason
}

// QueryExecutionError indicates a statement that passed validation but
// failed at the database. The driver message is carried verbatim for
// diagnosis. These are never retried: re-running a malformed query wastes a
// model round-trip.
type QueryExecutionError struct {
	Err error
}

func (e *QueryExecutionError) Error() string {
	return fmt.Sprintf("query execution failed: %v", e.Err)
}

func (e *QueryExecutionError) Unwrap() error { return e.Err }
