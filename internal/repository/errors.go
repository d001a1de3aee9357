package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// ViolationKind は制約違反の種類を表す。
type ViolationKind string

const (
	// ViolationUnique は一意制約違反（SQLSTATE 23505）。
	ViolationUnique ViolationKind = "unique"
	// ViolationForeignKey は外部キー制約違反（SQLSTATE 23503）。
	ViolationForeignKey ViolationKind = "foreign_key"
)

// PostgreSQLのSQLSTATEコード
const (
	pqCodeUniqueViolation     = "23505"
	pqCodeForeignKeyViolation = "23503"
)

// ConstraintViolationError はストアが報告した制約違反を表す。
// 重複判定の唯一の根拠として呼び出し元が解釈する。
type ConstraintViolationError struct {
	Kind       ViolationKind
	Constraint string
	Err        error
}

// Error はerrorインターフェースを実装する。
func (e *ConstraintViolationError) Error() string {
	return fmt.Sprintf("%s constraint violated: %s", e.Kind, e.Constraint)
}

// Unwrap は元のドライバエラーを返す。
func (e *ConstraintViolationError) Unwrap() error {
	return e.Err
}

// AsConstraintViolation はerrが制約違反であればその内容を返す。
func AsConstraintViolation(err error) (*ConstraintViolationError, bool) {
	var cv *ConstraintViolationError
	if errors.As(err, &cv) {
		return cv, true
	}
	return nil, false
}

// translateError はlib/pqのエラーを制約違反に変換する。
// 制約違反以外のエラーはそのまま返す。
func translateError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch pqErr.Code {
	case pqCodeUniqueViolation:
		return &ConstraintViolationError{Kind: ViolationUnique, Constraint: pqErr.Constraint, Err: err}
	case pqCodeForeignKeyViolation:
		return &ConstraintViolationError{Kind: ViolationForeignKey, Constraint: pqErr.Constraint, Err: err}
	default:
		return err
	}
}
