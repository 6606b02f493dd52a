package errors_test

import (
	"fmt"
	"testing"

	"github.com/RPi-WebTools/sysmon-fetcher/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	factory := errors.New()

	err := factory.New(errors.ErrClosedHandle)
	assert.Equal(t, "Store handle is closed", err.Error())

	cause := fmt.Errorf("disk I/O error")
	wrapped := factory.Wrap(errors.ErrStatement, cause)
	assert.Equal(t, "Statement failed: disk I/O error", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)

	withData := wrapped.WithData(struct{ SQL string }{SQL: "DROP TABLE x"})
	assert.Contains(t, withData.Error(), "DROP TABLE x")
	assert.Contains(t, withData.Error(), "disk I/O error")
	assert.ErrorIs(t, withData, cause, "WithData must keep the wrapped cause")
}

func TestWithMessage(t *testing.T) {
	err := errors.New().New(errors.ErrCollector).WithMessage("memInfo collector failed")
	assert.Equal(t, "memInfo collector failed", err.Error())
	assert.Equal(t, errors.ErrCollector, err.Code())
}

func TestHasCode(t *testing.T) {
	factory := errors.New()
	inner := factory.Wrap(errors.ErrStatement, fmt.Errorf("boom"))
	outer := fmt.Errorf("writing mem: %w", inner)

	assert.True(t, errors.HasCode(outer, errors.ErrStatement))
	assert.False(t, errors.HasCode(outer, errors.ErrConnection))
	assert.False(t, errors.HasCode(nil, errors.ErrStatement))

	joined := errors.Join(fmt.Errorf("plain"), factory.New(errors.ErrCollector))
	assert.True(t, errors.HasCode(joined, errors.ErrCollector))

	code, ok := errors.CodeOf(outer)
	assert.True(t, ok)
	assert.Equal(t, errors.ErrStatement, code)
}

func TestUnknownCodeMessage(t *testing.T) {
	assert.Equal(t, "something_else", errors.GetErrorMessage("something_else"))
}
