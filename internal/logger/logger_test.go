package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_CopiesOnlyErrors(t *testing.T) {
	var core, errs bytes.Buffer

	log := New(slog.NewTextHandler(&core, &slog.HandlerOptions{Level: slog.LevelDebug}), &errs)
	log = log.With(slog.String("op", "test"))

	log.Info("started")
	log.Error("db down", slog.String("error", "refused"))

	assert.Contains(t, core.String(), "msg=started")
	assert.Contains(t, core.String(), `msg="db down"`)

	assert.NotContains(t, errs.String(), "started")
	assert.Contains(t, errs.String(), `msg="db down"`)
	assert.Contains(t, errs.String(), "op=test")
}

func TestCoreHandler_Levels(t *testing.T) {
	var buf bytes.Buffer

	prod := slog.New(coreHandler(EnvProd, &buf))
	prod.Debug("hidden")
	assert.Empty(t, buf.String())

	dev := slog.New(coreHandler(EnvDev, &buf))
	dev.Debug("shown")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}
