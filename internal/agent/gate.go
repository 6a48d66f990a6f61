package agent

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultMaxRows caps result sets when the caller doesn't override it.
	DefaultMaxRows = 100
	// DefaultCellLimit bounds individual string cells in result payloads.
	DefaultCellLimit = 2000

	defaultQueryTimeout = 15 * time.Second
)

// forbiddenKeywords are tokens that mark a statement as mutating, DDL, or
// otherwise outside the read-only contract. Scanning happens on scrubbed
// text, so keywords inside string literals or comments don't false-positive.
var forbiddenKeywords = map[string]bool{
	"INSERT": true, "UPDATE": true, "DELETE": true, "DROP": true,
	"ALTER": true, "CREATE": true, "TRUNCATE": true, "REPLACE": true,
	"MERGE": true, "GRANT": true, "REVOKE": true, "ATTACH": true,
	"DETACH": true, "PRAGMA": true, "VACUUM": true, "REINDEX": true,
	"ANALYZE": true, "INTO": true,
}

// Gate validates that a statement is a single read-only SELECT before
// executing it against the conversation store. Validation happens entirely
// in process: a rejected statement never reaches the database.
type Gate struct {
	db        *sql.DB
	cellLimit int
	timeout   time.Duration
}

// NewGate creates a Gate over db, which should be a query_only connection —
// the gate filters at the statement level and the connection mode is the
// second line of defense. cellLimit <= 0 defaults to DefaultCellLimit,
// timeout <= 0 to 15s.
func NewGate(db *sql.DB, cellLimit int, timeout time.Duration) *Gate {
	if cellLimit <= 0 {
		cellLimit = DefaultCellLimit
	}
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	return &Gate{db: db, cellLimit: cellLimit, timeout: timeout}
}

// Validate checks the statement against the read-only contract without
// touching the database. It returns a *ForbiddenStatementError describing
// the first violation found, or nil for an admissible statement.
func (g *Gate) Validate(stmt string) error {
	scrubbed := scrubSQL(stmt)

	trimmed := strings.TrimSpace(scrubbed)
	if trimmed == "" {
		return &ForbiddenStatementError{Reason: "empty statement"}
	}

	// A single trailing semicolon is tolerated; anything after it means
	// multiple statements.
	if idx := strings.Index(trimmed, ";"); idx != -1 {
		if strings.TrimSpace(trimmed[idx+1:]) != "" {
			return &ForbiddenStatementError{Reason: "multiple statements"}
		}
		trimmed = strings.TrimSpace(trimmed[:idx])
		if trimmed == "" {
			return &ForbiddenStatementError{Reason: "empty statement"}
		}
	}

	tokens := tokenizeSQL(trimmed)
	if len(tokens) == 0 {
		return &ForbiddenStatementError{Reason: "empty statement"}
	}

	switch tokens[0] {
	case "SELECT":
	case "WITH":
		// Common-table expressions are fine as long as they terminate in a
		// SELECT; the keyword scan below rejects everything else a CTE
		// could wrap.
		if !containsToken(tokens, "SELECT") {
			return &ForbiddenStatementError{Reason: "WITH clause does not terminate in SELECT"}
		}
	default:
		return &ForbiddenStatementError{Reason: fmt.Sprintf("statement must be a SELECT, got %s", tokens[0])}
	}

	for _, tok := range tokens {
		if forbiddenKeywords[tok] {
			return &ForbiddenStatementError{Reason: fmt.Sprintf("keyword %s is not allowed", tok)}
		}
		if strings.HasPrefix(strings.ToLower(tok), "sqlite_") {
			return &ForbiddenStatementError{Reason: fmt.Sprintf("system table %s is not allowed", strings.ToLower(tok))}
		}
	}

	return nil
}

// Run validates the statement, executes it with a bounded timeout, and
// returns the shaped result. maxRows <= 0 falls back to DefaultMaxRows.
// row_count reports the true matching count when a wrapped COUNT(*) query
// can provide it; otherwise it equals returned_rows.
func (g *Gate) Run(ctx context.Context, stmt string, maxRows int) (*QueryResult, error) {
	if err := g.Validate(stmt); err != nil {
		return nil, err
	}
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	rows, err := g.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, &QueryExecutionError{Err: err}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, &QueryExecutionError{Err: err}
	}

	result := &QueryResult{
		Columns: columns,
		Rows:    []map[string]any{},
	}

	truncated := false
	for rows.Next() {
		if len(result.Rows) >= maxRows {
			truncated = true
			break
		}
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &QueryExecutionError{Err: err}
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = jsonSafeCell(values[i], g.cellLimit)
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &QueryExecutionError{Err: err}
	}
	// Release the cursor before any follow-up query: the store handle is
	// capped at one connection, and the COUNT below would block behind an
	// open result set.
	if err := rows.Close(); err != nil {
		return nil, &QueryExecutionError{Err: err}
	}

	result.ReturnedRows = len(result.Rows)
	result.RowCount = result.ReturnedRows
	if truncated {
		result.RowCount = g.countRows(ctx, stmt, result.ReturnedRows)
	}

	return result, nil
}

// countRows wraps the statement in a COUNT(*) to report the true matching
// count after truncation. Falls back to the returned count when the wrapped
// query cannot run.
func (g *Gate) countRows(ctx context.Context, stmt string, fallback int) int {
	inner := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(stmt), ";"))
	var total int
	err := g.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ("+inner+")").Scan(&total)
	if err != nil {
		return fallback
	}
	return total
}

// jsonSafeCell converts a driver value into a JSON-safe scalar, truncating
// over-long strings with an explicit marker so the payload stays bounded
// regardless of query shape.
func jsonSafeCell(v any, cellLimit int) any {
	switch val := v.(type) {
	case nil:
		return nil
	case []byte:
		return truncateCell(string(val), cellLimit)
	case string:
		return truncateCell(val, cellLimit)
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	case int64, float64, bool:
		return val
	default:
		return truncateCell(fmt.Sprint(val), cellLimit)
	}
}

func truncateCell(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	if limit <= 3 {
		return s[:limit]
	}
	return s[:limit-3] + "..."
}

// scrubSQL blanks out string literals and comments so token scanning can't
// be fooled by keyword-shaped text inside them.
func scrubSQL(s string) string {
	var out strings.Builder
	out.Grow(len(s))

	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case c == '\'' || c == '"':
			quote := c
			out.WriteByte(' ')
			i++
			for i < len(runes) {
				if runes[i] == quote {
					// Doubled quote is an escaped quote inside the literal.
					if i+1 < len(runes) && runes[i+1] == quote {
						i += 2
						continue
					}
					break
				}
				i++
			}
			out.WriteByte(' ')
		case c == '-' && i+1 < len(runes) && runes[i+1] == '-':
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
			out.WriteByte(' ')
		case c == '/' && i+1 < len(runes) && runes[i+1] == '*':
			i += 2
			for i+1 < len(runes) && !(runes[i] == '*' && runes[i+1] == '/') {
				i++
			}
			i++ // skip the closing '/'
			out.WriteByte(' ')
		default:
			out.WriteRune(c)
		}
	}
	return out.String()
}

// tokenizeSQL splits scrubbed SQL into uppercased word tokens. Identifiers
// keep underscores so system-table names survive intact.
func tokenizeSQL(s string) []string {
	return strings.FieldsFunc(strings.ToUpper(s), func(r rune) bool {
		return !(r == '_' || r >= '0' && r <= '9' || r >= 'A' && r <= 'Z')
	})
}

func containsToken(tokens []string, want string) bool {
	for _, t := range tokens {
		if t == want {
			return true
		}
	}
	return false
}
