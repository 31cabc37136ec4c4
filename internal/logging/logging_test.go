package logging

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger("warn", &buf)
	assert.Equal(t, logrus.WarnLevel, log.GetLevel())

	log.Info("hidden")
	log.Warn("shown")
	assert.Equal(t, "[WARNING] shown\n", buf.String())
}

func TestUnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger("loud", &buf)
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	assert.Contains(t, buf.String(), "Unknown log level 'loud'")

	buf.Reset()
	log.Debugf("sample %d", 1)
	assert.Empty(t, buf.String())
	log.SetLevelString("DEBUG")
	log.Debugf("sample %d", 2)
	assert.Equal(t, "[DEBUG] sample 2\n", buf.String())
}
