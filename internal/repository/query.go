package repository

import (
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/hostel-residence/internal/policy"
)

// Page selects a window of a list result.
type Page struct {
	Page int
	Size int
}

// DefaultPageSize and MaxPageSize bound list endpoints.
const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// Normalize clamps the page to sane bounds.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

func (p Page) limitOffset() (int, int) {
	n := p.Normalize()
	return n.Size, (n.Page - 1) * n.Size
}

// where accumulates AND-ed conditions and their arguments.
type where struct {
	clauses []string
	args    []any
}

func (w *where) add(clause string, args ...any) {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
}

func (w *where) scope(p policy.Predicate) {
	if !p.IsAll() {
		w.add("("+p.Clause+")", p.Args...)
	}
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

func nullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func nullUint(n sql.NullInt64) *uint64 {
	if !n.Valid {
		return nil
	}
	v := uint64(n.Int64)
	return &v
}

func likePattern(q string) string {
	q = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(q)
	return "%" + strings.ToLower(q) + "%"
}
