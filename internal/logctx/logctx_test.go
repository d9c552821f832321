package logctx

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestHandler_AddsContextGroups(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, slog.LevelInfo).With(slog.String("component", "test"))

	ctx := WithSessionData(context.Background(), &SessionData{SessionID: "s1", UserID: "u1", ProtocolVersion: "2025-06-18", ClientName: "c"})
	ctx = WithRPCMessage(ctx, &RPCMessage{Method: "tools/call", ID: "7", Type: "request"})
	ctx = WithToolCallData(ctx, &ToolCallData{ToolName: "add"})
	log.InfoContext(ctx, "stdio.request.ok")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log record: %v (%s)", err, buf.String())
	}
	if rec["component"] != "test" {
		t.Fatalf("attrs from With lost: %v", rec)
	}
	sess, _ := rec["sess"].(map[string]any)
	if sess["id"] != "s1" || sess["user_id"] != "u1" {
		t.Fatalf("unexpected sess group: %v", rec["sess"])
	}
	rpc, _ := rec["rpc"].(map[string]any)
	if rpc["method"] != "tools/call" || rpc["id"] != "7" {
		t.Fatalf("unexpected rpc group: %v", rec["rpc"])
	}
	tool, _ := rec["tool"].(map[string]any)
	if tool["name"] != "add" {
		t.Fatalf("unexpected tool group: %v", rec["tool"])
	}
	if _, ok := rec["resource"]; ok {
		t.Fatalf("resource group should be absent: %v", rec)
	}
}

func TestHandler_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, slog.LevelWarn)
	log.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected info record to be filtered, got %s", buf.String())
	}
}
