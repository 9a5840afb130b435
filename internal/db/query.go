package db

import (
	"strings"

	"github.com/randalmurphal/dossier/internal/db/driver"
)

// where accumulates AND-ed conditions and their arguments.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, args ...any) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// page appends LIMIT/OFFSET for the dialect. Limit 0 means no limit.
func (w *where) page(dialect driver.Dialect, limit, offset int) string {
	switch {
	case limit > 0 && offset > 0:
		w.args = append(w.args, limit, offset)
		return " LIMIT ? OFFSET ?"
	case limit > 0:
		w.args = append(w.args, limit)
		return " LIMIT ?"
	case offset > 0:
		w.args = append(w.args, offset)
		if dialect == driver.DialectSQLite {
			return " LIMIT -1 OFFSET ?"
		}
		return " OFFSET ?"
	}
	return ""
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// likePattern builds a case-insensitive substring pattern for use with
// ESCAPE '\'. Wildcards in s match literally.
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(s))) + "%"
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}
