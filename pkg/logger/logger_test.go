package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithContext_CarriesFields(t *testing.T) {
	_, err := Init(Config{Level: "debug", Format: "json", Output: "stdout"})
	require.NoError(t, err)

	var buf bytes.Buffer
	SetOutput(&buf)

	ctx := NewContext(context.Background(), logrus.Fields{"request_id": "req-1"})
	ctx = NewContext(ctx, logrus.Fields{"user_id": 42})
	WithContext(ctx).Info("wallet deposit")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, float64(42), line["user_id"])
	assert.Equal(t, "wallet deposit", line["msg"])
}

func TestInit_UnknownLevelFallsBackToInfo(t *testing.T) {
	_, err := Init(Config{Level: "chatty", Format: "console"})
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, L().GetLevel())
}
