package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	UseJSON()
	SetOutput(&buf)
	defer func() {
		SetOutput(os.Stderr)
		logrus.SetFormatter(formatter)
	}()

	l := New("test").WithFields("backend", "slurm")
	l.Info("submitted")

	assert.Contains(t, buf.String(), `"backend":"slurm"`)
	assert.Contains(t, buf.String(), `"msg":"submitted"`)
	assert.Contains(t, buf.String(), `"ns":"test"`)
}

func TestErrorShortcut(t *testing.T) {
	var buf bytes.Buffer
	UseJSON()
	SetOutput(&buf)
	defer func() {
		SetOutput(os.Stderr)
		logrus.SetFormatter(formatter)
	}()

	New("test").Error("boom", assert.AnError)
	assert.Contains(t, buf.String(), `"error":`)
}
