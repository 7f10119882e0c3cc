package repository

import (
	"strings"

	"gorm.io/gorm"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likeOperator ILIKE on postgres, LIKE elsewhere. sqlite LIKE already
// ignores ASCII case.
func likeOperator(db *gorm.DB) string {
	if db != nil && db.Dialector != nil && strings.HasPrefix(strings.ToLower(db.Dialector.Name()), "postgres") {
		return "ILIKE"
	}
	return "LIKE"
}

// likeCondition ORs a substring match over columns; blank columns are
// skipped. It returns the condition and its args.
func likeCondition(operator, search string, columns []string) (string, []interface{}) {
	pattern := "%" + likeEscaper.Replace(search) + "%"
	parts := make([]string, 0, len(columns))
	args := make([]interface{}, 0, len(columns))
	for _, column := range columns {
		column = strings.TrimSpace(column)
		if column == "" {
			continue
		}
		parts = append(parts, column+" "+operator+` ? ESCAPE '\'`)
		args = append(args, pattern)
	}
	if len(parts) == 0 {
		return "", nil
	}
	return "(" + strings.Join(parts, " OR ") + ")", args
}

// searchScope gorm scope matching search as a literal substring in any of
// columns. A blank search leaves the query untouched.
func searchScope(search string, columns ...string) func(*gorm.DB) *gorm.DB {
	search = strings.TrimSpace(search)
	return func(tx *gorm.DB) *gorm.DB {
		if search == "" {
			return tx
		}
		condition, args := likeCondition(likeOperator(tx), search, columns)
		if condition == "" {
			return tx
		}
		return tx.Where(condition, args...)
	}
}
