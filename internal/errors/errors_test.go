package errors

import (
	stderrors "errors"
	"testing"

	"sprintrep/domain/core"

	"github.com/stretchr/testify/assert"
)

func TestWrapStageKeepsSentinel(t *testing.T) {
	cause := core.NewSchemaError("original", "cho")
	err := WrapStage(cause, "ingest", "original")

	assert.True(t, stderrors.Is(err, core.ErrSchema))
	assert.Equal(t, CodeSchemaError, GetCode(err))
	assert.Equal(t, "ingest", GetStage(err))
	assert.Contains(t, err.Error(), "[ingest/original]")
}

func TestWrapPreservesCodeAndStage(t *testing.T) {
	inner := WrapStage(core.NewInsufficientDataError("con", 1, 2), "describe", "replication")
	outer := Wrap(inner, "analysis aborted")

	assert.Equal(t, CodeInsufficientData, GetCode(outer))
	assert.Equal(t, "describe", GetStage(outer))
	assert.True(t, core.IsInsufficientDataError(outer))
}

func TestCodeFor(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{core.NewDegeneracyError("lower"), CodeNumericalDegeneracy},
		{core.NewInvalidInputError("alpha", "out of range"), CodeInvalidInput},
		{ConfigInvalid("ALPHA"), CodeConfigInvalid},
		{stderrors.New("boom"), CodeInternalError},
		{nil, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, CodeFor(tt.err))
	}
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, "x"))
	assert.Nil(t, Wrapf(nil, "x %d", 1))
	assert.Nil(t, WrapStage(nil, "s", "d"))
	assert.Nil(t, WithCode(CodeIOError, nil))
	assert.Equal(t, "UNKNOWN", GetCode(stderrors.New("plain")))
}
