package database

import "database/sql"

// requireAffected resolves the result of an UPDATE that must match an
// existing row. The exec error wins; a zero row count becomes
// missingErr so status transitions and run completions surface a lost
// target instead of silently doing nothing.
func requireAffected(result sql.Result, err, missingErr error) error {
	if err != nil {
		return err
	}
	n, affectedErr := result.RowsAffected()
	if affectedErr != nil {
		return affectedErr
	}
	if n == 0 {
		return missingErr
	}
	return nil
}
