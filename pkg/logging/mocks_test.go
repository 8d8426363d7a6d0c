package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMockLogger_Info_CallsMockMethod(t *testing.T) {
	mockLogger := &MockLogger{}
	mockLogger.On("Info", "test message", []interface{}{"key", "value"}).Return(nil)

	mockLogger.Info("test message", "key", "value")

	mockLogger.AssertExpectations(t)
}

func TestMockLogger_Errorf_CallsMockMethod(t *testing.T) {
	mockLogger := &MockLogger{}
	mockLogger.On("Errorf", "failed: %v", []interface{}{"boom"}).Return(nil)

	mockLogger.Errorf("failed: %v", "boom")

	mockLogger.AssertExpectations(t)
}

func TestMockLogger_SetupDefaultExpectations_AllowsAnyCall(t *testing.T) {
	mockLogger := &MockLogger{}
	mockLogger.SetupDefaultExpectations()

	assert.NotPanics(t, func() {
		mockLogger.Debug("a", "k", "v")
		mockLogger.Info("b")
		mockLogger.Warnf("c %d", 1)
		mockLogger.Errorf("d %s %s", "x", "y")
	})
}

func TestMockLogger_With_ReturnsConfiguredLogger(t *testing.T) {
	mockLogger := &MockLogger{}
	child := &MockLogger{}
	mockLogger.On("With", []interface{}{"component", "test"}).Return(child)

	got := mockLogger.With("component", "test")

	assert.Same(t, child, got)
	mockLogger.AssertExpectations(t)
}

func TestNoOpLogger_AllMethods_DoNothing(t *testing.T) {
	logger := NewNoOpLogger()

	assert.NotPanics(t, func() {
		logger.Debug("a")
		logger.Info("b", "k", "v")
		logger.Warn("c")
		logger.Error("d")
		logger.Debugf("e %d", 1)
		logger.Infof("f %d", 2)
		logger.Warnf("g %d", 3)
		logger.Errorf("h %d", 4)
	})
	assert.Same(t, logger, logger.With("k", "v"))
	assert.Same(t, logger, logger.WithTraceID("t"))
}
