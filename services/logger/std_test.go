package logsvc

import (
	"bytes"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/educloud/core/session"
)

func TestStdLogger_level(t *testing.T) {
	buf := new(bytes.Buffer)
	logger := NewStdLogger(log.New(buf, "", 0), LevelInfo)

	logger.Debug("hidden")
	logger.Info("GET /students 200", map[string]interface{}{"elapsed": "12ms"})
	logger.Error("refresh failed", errors.New("boom"), &session.Claims{Email: "admin@demo.educloud.com"})

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[INFO] GET /students 200")
	assert.Contains(t, out, "elapsed:12ms")
	assert.Contains(t, out, "[ERROR] refresh failed")
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "<admin@demo.educloud.com>")
}
