package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpsinghcodes/pg-db-crud/pkg/domain"
	dErrors "github.com/rpsinghcodes/pg-db-crud/pkg/domain-errors"
)

func TestNewMigrationRequest(t *testing.T) {
	alpha := domain.DatabaseName("alpha")
	beta := domain.DatabaseName("beta")

	t.Run("distinct names accepted", func(t *testing.T) {
		req, err := NewMigrationRequest(alpha, beta)
		require.NoError(t, err)
		assert.Equal(t, alpha, req.Source)
		assert.Equal(t, beta, req.Target)
	})

	t.Run("same source and target rejected", func(t *testing.T) {
		_, err := NewMigrationRequest(alpha, alpha)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("zero names rejected", func(t *testing.T) {
		_, err := NewMigrationRequest("", beta)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestMigrationOutcome_Err(t *testing.T) {
	exited := func(code int) ExitInfo {
		return ExitInfo{Started: true, Code: code, Status: "exit status 1"}
	}

	t.Run("success has no error", func(t *testing.T) {
		o := Succeeded(time.Second, exited(0), exited(0))
		assert.NoError(t, o.Err())
		assert.Contains(t, o.Summary(), "succeeded")
	})

	t.Run("failure carries process error", func(t *testing.T) {
		o := Failed(StageSource, dErrors.CodeProcess, exited(1), exited(0), "pg_dump: error: connection refused")
		err := o.Err()
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeProcess))
		assert.Equal(t, "migration failed while reading the source database", dErrors.Message(err))

		var pe *ProcessError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, StageSource, pe.Stage)
		assert.Contains(t, pe.Error(), "connection refused")
	})

	t.Run("timeout message", func(t *testing.T) {
		o := Failed(StagePipe, dErrors.CodeTimeout, ExitInfo{Started: true, Code: -1, Abnormal: true, Status: "signal: killed"}, ExitInfo{}, "")
		assert.Equal(t, "migration timed out", dErrors.Message(o.Err()))
		assert.True(t, dErrors.Is(o.Err(), dErrors.CodeTimeout))
		assert.Contains(t, o.Summary(), "signal: killed")
		assert.Contains(t, o.Summary(), "not started")
	})
}
