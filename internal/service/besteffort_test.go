package service

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestAttemptLogsFailureOnly(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	ran := false
	attempt(logger, "create chat", func() error { ran = true; return nil })
	assert.True(t, ran)
	assert.Empty(t, buf.String())

	attempt(logger, "create chat", func() error { return errors.New("chat store down") })
	assert.Contains(t, buf.String(), `"step":"create chat"`)
	assert.Contains(t, buf.String(), "chat store down")
}
