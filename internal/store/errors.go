package store

import "github.com/RPi-WebTools/sysmon-fetcher/internal/errors"

const (
	ErrConnection     = errors.ErrConnection
	ErrStatement      = errors.ErrStatement
	ErrClosedHandle   = errors.ErrClosedHandle
	ErrSchemaInit     = errors.ErrSchemaInit
	ErrInvalidColumns = errors.ErrorCode("store_invalid_columns")
	ErrStoreClose     = errors.ErrShutdownFailed
)

// StatementData is attached to every ErrStatement error
type StatementData struct {
	SQL string
}

func statementError(stmt string, err error) error {
	return errors.New().Wrap(ErrStatement, err).WithData(StatementData{SQL: stmt})
}

// StatementOf returns the SQL text carried by a statement error, if any
func StatementOf(err error) (string, bool) {
	var e errors.Error
	if !errors.As(err, &e) || e.Code() != ErrStatement {
		return "", false
	}
	data, ok := e.GetData().(StatementData)
	return data.SQL, ok
}
