package main

import (
	"bytes"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	return out.String()
}

func TestRootCmd_Help(t *testing.T) {
	for _, flag := range []string{"--help", "-h"} {
		out := run(t, flag)
		if !strings.Contains(out, "Usage:") {
			t.Fatalf("%s: missing usage:\n%s", flag, out)
		}
		if strings.Contains(out, "add(15, 27)") {
			t.Fatalf("%s: help must not run the demo:\n%s", flag, out)
		}
	}
}

func TestRootCmd_Run(t *testing.T) {
	out := run(t)
	for _, want := range []string{"add(15, 27) = 42", "get_greeting('Alice') = Hello, Alice!", "✅ All tests completed successfully!"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}
