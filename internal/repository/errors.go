package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// PostgreSQL error codes the repositories translate.
const (
	pqForeignKeyViolation = "23503"
	pqUniqueViolation     = "23505"
)

func isPQCode(err error, code string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == code
	}
	return false
}

// LineError reports the checkout line that could not be fulfilled.
type LineError struct {
	ProductID int
	Err       error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("product %d: %v", e.ProductID, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }
