package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInit_InvalidLevelFallsBackToInfo(t *testing.T) {
	Init("not-a-level", false)
	assert.Equal(t, "info", Get().GetLevel().String())
	Init("info", false)
}

func TestWithComponent_AddsField(t *testing.T) {
	l := WithComponent("pool")
	assert.NotNil(t, l)
}

func TestWithWorker_AddsField(t *testing.T) {
	l := WithWorker("0")
	assert.NotNil(t, l)
}
