package main

import (
	"bytes"
	"encoding/json"
	"runtime"
	"strings"
	"testing"
)

func TestReadBuildInfo(t *testing.T) {
	t.Parallel()

	info := readBuildInfo()
	if info.Version == "" || info.Commit == "" || info.Date == "" {
		t.Errorf("empty field in %+v", info)
	}
	if len(info.Commit) > 7 && info.Commit != "unknown" {
		t.Errorf("Commit = %q, want at most 7 characters", info.Commit)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q, want %q", info.GoVersion, runtime.Version())
	}
}

func TestFirstNonEmpty(t *testing.T) {
	t.Parallel()

	if got := firstNonEmpty("", "x"); got != "x" {
		t.Errorf("firstNonEmpty(\"\", x) = %q", got)
	}
	if got := firstNonEmpty("v1", "x"); got != "v1" {
		t.Errorf("firstNonEmpty(v1, x) = %q", got)
	}
}

func TestNewVersionCmd(t *testing.T) {
	t.Parallel()

	t.Run("text", func(t *testing.T) {
		t.Parallel()

		cmd := NewVersionCmd()
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		cmd.SetArgs([]string{})
		if err := cmd.Execute(); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		for _, want := range []string{"sitecrawl version", "commit:", "built:", "go:"} {
			if !strings.Contains(buf.String(), want) {
				t.Errorf("output missing %q: %s", want, buf.String())
			}
		}
	})

	t.Run("json", func(t *testing.T) {
		t.Parallel()

		cmd := NewVersionCmd()
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		cmd.SetArgs([]string{"--json"})
		if err := cmd.Execute(); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		var info buildInfo
		if err := json.Unmarshal(buf.Bytes(), &info); err != nil {
			t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
		}
		if info.Platform != runtime.GOOS+"/"+runtime.GOARCH {
			t.Errorf("Platform = %q", info.Platform)
		}
	})
}
