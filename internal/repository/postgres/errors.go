package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL error codes the repositories translate.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgCode(err) == codeUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	return pgCode(err) == codeForeignKeyViolation
}

// sortClause maps a whitelisted sort order to an ORDER BY expression.
func sortClause(sort string) string {
	switch sort {
	case "name":
		return "name ASC, id ASC"
	case "-name":
		return "name DESC, id DESC"
	case "created_at":
		return "created_at ASC, id ASC"
	case "price":
		return "price ASC, id ASC"
	case "-price":
		return "price DESC, id DESC"
	default:
		return "created_at DESC, id DESC"
	}
}
