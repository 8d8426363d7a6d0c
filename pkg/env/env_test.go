package env

import (
	"testing"
	"time"
)

func TestGetEnvString(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		setEnv       bool
		defaultValue string
		expected     string
	}{
		{"existing variable", "hello world", true, "default", "hello world"},
		{"empty value counts as set", "", true, "default", ""},
		{"missing variable", "", false, "default", "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_ENV_STRING"
			if tt.setEnv {
				t.Setenv(key, tt.envValue)
			}

			result := GetEnvString(key, tt.defaultValue)
			if result != tt.expected {
				t.Errorf("GetEnvString(%s, %s) = %s, want %s", key, tt.defaultValue, result, tt.expected)
			}
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		setEnv       bool
		defaultValue bool
		expected     bool
	}{
		{"true value", "true", true, false, true},
		{"false value", "false", true, true, false},
		{"numeric true", "1", true, false, true},
		{"invalid value falls back", "not-a-bool", true, true, true},
		{"missing variable", "", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_ENV_BOOL"
			if tt.setEnv {
				t.Setenv(key, tt.envValue)
			}

			result := GetEnvBool(key, tt.defaultValue)
			if result != tt.expected {
				t.Errorf("GetEnvBool(%s, %t) = %t, want %t", key, tt.defaultValue, result, tt.expected)
			}
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		setEnv       bool
		defaultValue int
		expected     int
	}{
		{"valid number", "8420", true, 0, 8420},
		{"negative number", "-5", true, 0, -5},
		{"invalid value falls back", "ten", true, 42, 42},
		{"missing variable", "", false, 42, 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_ENV_INT"
			if tt.setEnv {
				t.Setenv(key, tt.envValue)
			}

			result := GetEnvInt(key, tt.defaultValue)
			if result != tt.expected {
				t.Errorf("GetEnvInt(%s, %d) = %d, want %d", key, tt.defaultValue, result, tt.expected)
			}
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		setEnv       bool
		defaultValue time.Duration
		expected     time.Duration
	}{
		{"seconds", "30s", true, time.Minute, 30 * time.Second},
		{"compound", "1m30s", true, time.Minute, 90 * time.Second},
		{"invalid value falls back", "soon", true, time.Minute, time.Minute},
		{"missing variable", "", false, 5 * time.Second, 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_ENV_DURATION"
			if tt.setEnv {
				t.Setenv(key, tt.envValue)
			}

			result := GetEnvDuration(key, tt.defaultValue)
			if result != tt.expected {
				t.Errorf("GetEnvDuration(%s, %v) = %v, want %v", key, tt.defaultValue, result, tt.expected)
			}
		})
	}
}
