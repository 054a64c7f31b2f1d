package util

import (
	"bytes"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

// saveLoggerState saves the current logger state for restoration.
func saveLoggerState() (io.Writer, logrus.Level, logrus.Formatter) {
	return Logger.Out, Logger.Level, Logger.Formatter
}

// restoreLoggerState restores the logger to its previous state.
func restoreLoggerState(out io.Writer, level logrus.Level, formatter logrus.Formatter) {
	Logger.SetOutput(out)
	Logger.SetLevel(level)
	Logger.SetFormatter(formatter)
}

func TestSetLogLevel(t *testing.T) {
	out, level, formatter := saveLoggerState()
	defer restoreLoggerState(out, level, formatter)

	tests := []struct {
		level   string
		wantErr bool
	}{
		{"debug", false},
		{"info", false},
		{"warn", false},
		{"error", false},
		{"invalid", true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			err := SetLogLevel(tt.level)
			if (err != nil) != tt.wantErr {
				t.Errorf("SetLogLevel(%q) error = %v, wantErr %v", tt.level, err, tt.wantErr)
			}
		})
	}
}

func TestSetLogOutput(t *testing.T) {
	out, level, formatter := saveLoggerState()
	defer restoreLoggerState(out, level, formatter)

	var buf bytes.Buffer
	SetLogOutput(&buf)
	Info("test message")

	if buf.Len() == 0 {
		t.Error("expected output written to buffer")
	}
}

func TestSetJSONFormat(t *testing.T) {
	out, level, formatter := saveLoggerState()
	defer restoreLoggerState(out, level, formatter)

	var buf bytes.Buffer
	SetLogOutput(&buf)
	SetJSONFormat()
	Info("test json")

	output := buf.String()
	if len(output) == 0 || output[0] != '{' {
		t.Errorf("expected JSON output starting with '{', got: %s", output)
	}
}

func TestWithFieldAndFields(t *testing.T) {
	if WithField("key", "value") == nil {
		t.Error("WithField should return non-nil entry")
	}
	if WithFields(map[string]interface{}{"a": 1, "b": 2}) == nil {
		t.Error("WithFields should return non-nil entry")
	}
}

func TestWithTableAndNode(t *testing.T) {
	if WithTable("SensorData") == nil {
		t.Error("WithTable should return non-nil entry")
	}
	if WithNode("sensor_01") == nil {
		t.Error("WithNode should return non-nil entry")
	}
}

func TestLevelWrappers(t *testing.T) {
	out, level, formatter := saveLoggerState()
	defer restoreLoggerState(out, level, formatter)

	var buf bytes.Buffer
	SetLogOutput(&buf)
	SetLogLevel("debug")

	cases := []func(){
		func() { Debug("debug message") },
		func() { Debugf("debug %s", "fmt") },
		func() { Info("info message") },
		func() { Infof("info %s", "fmt") },
		func() { Warn("warn message") },
		func() { Warnf("warn %s", "fmt") },
		func() { Error("error message") },
		func() { Errorf("error %s", "fmt") },
	}
	for _, fn := range cases {
		buf.Reset()
		fn()
		if buf.Len() == 0 {
			t.Error("expected output to be written")
		}
	}
}

func TestSDSLogLevel(t *testing.T) {
	prev := GetSDSLogLevel()
	defer SetSDSLogLevel(prev)

	SetSDSLogLevel(LevelWarn)
	if GetSDSLogLevel() != LevelWarn {
		t.Fatalf("GetSDSLogLevel() = %v, want %v", GetSDSLogLevel(), LevelWarn)
	}

	tests := []struct {
		level SDSLogLevel
		want  bool
	}{
		{LevelError, true},
		{LevelWarn, true},
		{LevelInfo, false},
		{LevelDebug, false},
	}
	for _, tt := range tests {
		if got := SDSEnabled(tt.level); got != tt.want {
			t.Errorf("SDSEnabled(%v) at gate %v = %v, want %v", tt.level, GetSDSLogLevel(), got, tt.want)
		}
	}

	SetSDSLogLevel(LevelNone)
	if SDSEnabled(LevelError) {
		t.Error("LevelNone should disable even error-level diagnostics")
	}
}
