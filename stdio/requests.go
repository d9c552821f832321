package stdio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ggoodman/mcp-greeter-go/internal/jsonrpc"
	"github.com/ggoodman/mcp-greeter-go/internal/logctx"
	"github.com/ggoodman/mcp-greeter-go/mcp"
	"github.com/ggoodman/mcp-greeter-go/mcpservice"
	"github.com/ggoodman/mcp-greeter-go/sessions"
)

func (h *Handler) handleInitialize(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response {
	start := time.Now()
	log := h.l.With(slog.String("method", req.Method))

	if h.currentSession() != nil {
		log.InfoContext(ctx, "stdio.handle_request.invalid", slog.String("err", "already initialized"))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidRequest, "session already initialized", nil)
	}

	var params mcp.InitializeRequest
	if err := json.Unmarshal(req.Params, &params); err != nil {
		log.InfoContext(ctx, "stdio.handle_request.invalid", slog.String("err", err.Error()), slog.Int64("dur_ms", time.Since(start).Milliseconds()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, "invalid params", nil)
	}

	userID, err := h.userProvider.CurrentUserID()
	if err != nil {
		log.ErrorContext(ctx, "stdio.initialize.user_fail", slog.String("err", err.Error()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "internal error", nil)
	}

	version, err := h.negotiateVersion(ctx, params.ProtocolVersion)
	if err != nil {
		log.ErrorContext(ctx, "stdio.initialize.version_fail", slog.String("err", err.Error()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "internal error", nil)
	}

	sess := sessions.New(sessions.Metadata{
		SessionID:          h.newSessionID(),
		UserID:             userID,
		ProtocolVersion:    version,
		ClientInfo:         params.ClientInfo,
		ClientCapabilities: params.Capabilities,
	})
	ctx = h.sessionContext(ctx, sess)

	initRes, err := h.buildInitializeResult(ctx, sess, version)
	if err != nil {
		log.ErrorContext(ctx, "stdio.initialize.fail", slog.String("err", err.Error()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "internal error", nil)
	}

	h.mu.Lock()
	if h.session != nil {
		h.mu.Unlock()
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidRequest, "session already initialized", nil)
	}
	h.session = sess
	h.mu.Unlock()

	log.InfoContext(ctx, "stdio.initialize.ok",
		slog.String("client", params.ClientInfo.Name),
		slog.String("requested_version", params.ProtocolVersion),
		slog.String("negotiated_version", version),
		slog.Int64("dur_ms", time.Since(start).Milliseconds()))

	resp, err := jsonrpc.NewResultResponse(req.ID, initRes)
	if err != nil {
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "internal error", nil)
	}
	return resp
}

// negotiateVersion echoes a supported client version; otherwise it falls back
// to the server's preferred version, then the latest known version.
func (h *Handler) negotiateVersion(ctx context.Context, clientVersion string) (string, error) {
	if mcp.IsSupportedProtocolVersion(clientVersion) {
		return clientVersion, nil
	}
	v, ok, err := h.srv.GetPreferredProtocolVersion(ctx, clientVersion)
	if err != nil {
		return "", fmt.Errorf("get preferred protocol version: %w", err)
	}
	if ok && v != "" {
		return v, nil
	}
	return mcp.LatestProtocolVersion, nil
}

func (h *Handler) buildInitializeResult(ctx context.Context, sess sessions.Session, version string) (*mcp.InitializeResult, error) {
	serverInfo, err := h.srv.GetServerInfo(ctx, sess)
	if err != nil {
		return nil, fmt.Errorf("get server info: %w", err)
	}

	initRes := &mcp.InitializeResult{
		ProtocolVersion: version,
		ServerInfo:      serverInfo,
	}

	if instr, ok, err := h.srv.GetInstructions(ctx, sess); err != nil {
		return nil, fmt.Errorf("get instructions: %w", err)
	} else if ok {
		initRes.Instructions = instr
	}

	if resCap, ok, err := h.srv.GetResourcesCapability(ctx, sess); err != nil {
		return nil, fmt.Errorf("get resources capability: %w", err)
	} else if ok && resCap != nil {
		entry := &struct {
			ListChanged bool `json:"listChanged"`
			Subscribe   bool `json:"subscribe"`
		}{}
		if lcCap, hasLC, lcErr := resCap.GetListChangedCapability(ctx, sess); lcErr != nil {
			return nil, fmt.Errorf("get resources listChanged capability: %w", lcErr)
		} else if hasLC && lcCap != nil {
			entry.ListChanged = true
		}
		initRes.Capabilities.Resources = entry
	}

	if toolsCap, ok, err := h.srv.GetToolsCapability(ctx, sess); err != nil {
		return nil, fmt.Errorf("get tools capability: %w", err)
	} else if ok && toolsCap != nil {
		entry := &struct {
			ListChanged bool `json:"listChanged"`
		}{}
		if lcCap, hasLC, lcErr := toolsCap.GetListChangedCapability(ctx, sess); lcErr != nil {
			return nil, fmt.Errorf("get tools listChanged capability: %w", lcErr)
		} else if hasLC && lcCap != nil {
			entry.ListChanged = true
		}
		initRes.Capabilities.Tools = entry
	}

	if _, ok, err := h.srv.GetLoggingCapability(ctx, sess); err != nil {
		return nil, fmt.Errorf("get logging capability: %w", err)
	} else if ok {
		initRes.Capabilities.Logging = &struct{}{}
	}

	return initRes, nil
}

func (h *Handler) handleRequest(ctx context.Context, sess sessions.Session, req *jsonrpc.Request) *jsonrpc.Response {
	switch req.Method {
	case string(mcp.ToolsListMethod):
		return h.handleToolsList(ctx, sess, req)
	case string(mcp.ToolsCallMethod):
		return h.handleToolCall(ctx, sess, req)
	case string(mcp.ResourcesListMethod):
		return h.handleResourcesList(ctx, sess, req)
	case string(mcp.ResourcesTemplatesListMethod):
		return h.handleResourcesTemplatesList(ctx, sess, req)
	case string(mcp.ResourcesReadMethod):
		return h.handleResourcesRead(ctx, sess, req)
	case string(mcp.LoggingSetLevelMethod):
		return h.handleSetLoggingLevel(ctx, sess, req)
	}

	h.l.InfoContext(ctx, "stdio.handle_request.unknown_method", slog.String("method", req.Method))
	return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeMethodNotFound, "method not found", map[string]any{"method": req.Method})
}

func cursorOf(p mcp.PaginatedRequest) *string {
	if p.Cursor == "" {
		return nil
	}
	s := p.Cursor
	return &s
}

func resultResponse(id *jsonrpc.RequestID, result any) *jsonrpc.Response {
	resp, err := jsonrpc.NewResultResponse(id, result)
	if err != nil {
		return jsonrpc.NewErrorResponse(id, jsonrpc.ErrorCodeInternalError, "internal error", nil)
	}
	return resp
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (h *Handler) handleToolsList(ctx context.Context, sess sessions.Session, req *jsonrpc.Request) *jsonrpc.Response {
	start := time.Now()
	log := h.l.With(slog.String("method", req.Method))

	var params mcp.ListToolsRequest
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			log.InfoContext(ctx, "stdio.handle_request.invalid", slog.String("err", err.Error()), slog.Int64("dur_ms", time.Since(start).Milliseconds()))
			return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, "invalid params", nil)
		}
	}

	cap, ok, err := h.srv.GetToolsCapability(ctx, sess)
	if err != nil {
		log.ErrorContext(ctx, "stdio.handle_request.fail", slog.String("err", err.Error()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "internal error", nil)
	}
	if !ok || cap == nil {
		log.InfoContext(ctx, "stdio.handle_request.unsupported", slog.Int64("dur_ms", time.Since(start).Milliseconds()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeMethodNotFound, "tools capability not supported", nil)
	}

	page, err := cap.ListTools(ctx, sess, cursorOf(params.PaginatedRequest))
	if err != nil {
		log.ErrorContext(ctx, "stdio.handle_request.fail", slog.String("err", err.Error()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "internal error", nil)
	}

	result := &mcp.ListToolsResult{Tools: page.Items}
	if page.NextCursor != nil {
		result.NextCursor = *page.NextCursor
	}

	log.InfoContext(ctx, "stdio.handle_request.ok", slog.Int64("dur_ms", time.Since(start).Milliseconds()), slog.Int("tool_count", len(page.Items)))
	return resultResponse(req.ID, result)
}

func (h *Handler) handleToolCall(ctx context.Context, sess sessions.Session, req *jsonrpc.Request) *jsonrpc.Response {
	start := time.Now()
	log := h.l.With(slog.String("method", req.Method))

	var params mcp.CallToolRequestReceived
	if err := json.Unmarshal(req.Params, &params); err != nil {
		log.InfoContext(ctx, "stdio.handle_request.invalid", slog.String("err", err.Error()), slog.Int64("dur_ms", time.Since(start).Milliseconds()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, "invalid params", nil)
	}
	if params.Name == "" {
		log.InfoContext(ctx, "stdio.handle_request.invalid", slog.String("err", "missing tool name"), slog.Int64("dur_ms", time.Since(start).Milliseconds()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, "invalid params", nil)
	}

	ctx = logctx.WithToolCallData(ctx, &logctx.ToolCallData{ToolName: params.Name})

	cap, ok, err := h.srv.GetToolsCapability(ctx, sess)
	if err != nil {
		log.ErrorContext(ctx, "stdio.handle_request.fail", slog.String("err", err.Error()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "internal error", nil)
	}
	if !ok || cap == nil {
		log.InfoContext(ctx, "stdio.handle_request.unsupported", slog.Int64("dur_ms", time.Since(start).Milliseconds()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeMethodNotFound, "tools capability not supported", nil)
	}

	if params.Meta != nil && params.Meta.ProgressToken != nil {
		token := params.Meta.ProgressToken
		ctx = mcpservice.WithProgressReporter(ctx, mcpservice.ProgressReporterFunc(func(ctx context.Context, progress, total float64) error {
			h.notify(ctx, string(mcp.ProgressNotificationMethod), mcp.ProgressNotificationParams{
				ProgressToken: token,
				Progress:      progress,
				Total:         total,
			})
			return nil
		}))
	}

	res, err := cap.CallTool(ctx, sess, &params)
	if err != nil {
		if errors.Is(err, mcpservice.ErrToolNotFound) {
			log.InfoContext(ctx, "stdio.handle_request.invalid", slog.String("err", err.Error()), slog.Int64("dur_ms", time.Since(start).Milliseconds()))
			return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, "unknown tool: "+params.Name, nil)
		}
		if isCancellation(err) {
			log.InfoContext(ctx, "stdio.handle_request.cancelled", slog.Int64("dur_ms", time.Since(start).Milliseconds()))
			return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "cancelled", nil)
		}
		log.ErrorContext(ctx, "stdio.handle_request.fail", slog.String("err", err.Error()), slog.Int64("dur_ms", time.Since(start).Milliseconds()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "internal error", nil)
	}

	log.InfoContext(ctx, "stdio.handle_request.ok", slog.Int64("dur_ms", time.Since(start).Milliseconds()), slog.Bool("is_error", res.IsError))
	return resultResponse(req.ID, res)
}

func (h *Handler) handleResourcesList(ctx context.Context, sess sessions.Session, req *jsonrpc.Request) *jsonrpc.Response {
	start := time.Now()
	log := h.l.With(slog.String("method", req.Method))

	var params mcp.ListResourcesRequest
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			log.InfoContext(ctx, "stdio.handle_request.invalid", slog.String("err", err.Error()), slog.Int64("dur_ms", time.Since(start).Milliseconds()))
			return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, "invalid params", nil)
		}
	}

	cap, ok, err := h.srv.GetResourcesCapability(ctx, sess)
	if err != nil {
		log.ErrorContext(ctx, "stdio.handle_request.fail", slog.String("err", err.Error()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "internal error", nil)
	}
	if !ok || cap == nil {
		log.InfoContext(ctx, "stdio.handle_request.unsupported", slog.Int64("dur_ms", time.Since(start).Milliseconds()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeMethodNotFound, "resources capability not supported", nil)
	}

	page, err := cap.ListResources(ctx, sess, cursorOf(params.PaginatedRequest))
	if err != nil {
		log.ErrorContext(ctx, "stdio.handle_request.fail", slog.String("err", err.Error()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "internal error", nil)
	}

	result := &mcp.ListResourcesResult{Resources: page.Items}
	if page.NextCursor != nil {
		result.NextCursor = *page.NextCursor
	}

	log.InfoContext(ctx, "stdio.handle_request.ok", slog.Int64("dur_ms", time.Since(start).Milliseconds()), slog.Int("resource_count", len(page.Items)))
	return resultResponse(req.ID, result)
}

func (h *Handler) handleResourcesTemplatesList(ctx context.Context, sess sessions.Session, req *jsonrpc.Request) *jsonrpc.Response {
	start := time.Now()
	log := h.l.With(slog.String("method", req.Method))

	var params mcp.ListResourceTemplatesRequest
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			log.InfoContext(ctx, "stdio.handle_request.invalid", slog.String("err", err.Error()), slog.Int64("dur_ms", time.Since(start).Milliseconds()))
			return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, "invalid params", nil)
		}
	}

	cap, ok, err := h.srv.GetResourcesCapability(ctx, sess)
	if err != nil {
		log.ErrorContext(ctx, "stdio.handle_request.fail", slog.String("err", err.Error()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "internal error", nil)
	}
	if !ok || cap == nil {
		log.InfoContext(ctx, "stdio.handle_request.unsupported", slog.Int64("dur_ms", time.Since(start).Milliseconds()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeMethodNotFound, "resources capability not supported", nil)
	}

	page, err := cap.ListResourceTemplates(ctx, sess, cursorOf(params.PaginatedRequest))
	if err != nil {
		log.ErrorContext(ctx, "stdio.handle_request.fail", slog.String("err", err.Error()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "internal error", nil)
	}

	result := &mcp.ListResourceTemplatesResult{ResourceTemplates: page.Items}
	if page.NextCursor != nil {
		result.NextCursor = *page.NextCursor
	}

	log.InfoContext(ctx, "stdio.handle_request.ok", slog.Int64("dur_ms", time.Since(start).Milliseconds()), slog.Int("template_count", len(page.Items)))
	return resultResponse(req.ID, result)
}

func (h *Handler) handleResourcesRead(ctx context.Context, sess sessions.Session, req *jsonrpc.Request) *jsonrpc.Response {
	start := time.Now()
	log := h.l.With(slog.String("method", req.Method))

	var params mcp.ReadResourceRequest
	if err := json.Unmarshal(req.Params, &params); err != nil || params.URI == "" {
		log.InfoContext(ctx, "stdio.handle_request.invalid", slog.String("err", "missing uri"), slog.Int64("dur_ms", time.Since(start).Milliseconds()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, "invalid params", nil)
	}

	ctx = logctx.WithResourceData(ctx, &logctx.ResourceData{URI: params.URI})

	cap, ok, err := h.srv.GetResourcesCapability(ctx, sess)
	if err != nil {
		log.ErrorContext(ctx, "stdio.handle_request.fail", slog.String("err", err.Error()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "internal error", nil)
	}
	if !ok || cap == nil {
		log.InfoContext(ctx, "stdio.handle_request.unsupported", slog.Int64("dur_ms", time.Since(start).Milliseconds()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeMethodNotFound, "resources capability not supported", nil)
	}

	contents, err := cap.ReadResource(ctx, sess, params.URI)
	if err != nil {
		if errors.Is(err, mcpservice.ErrResourceNotFound) {
			log.InfoContext(ctx, "stdio.handle_request.not_found", slog.Int64("dur_ms", time.Since(start).Milliseconds()))
			return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeResourceNotFound, "resource not found", map[string]any{"uri": params.URI})
		}
		if isCancellation(err) {
			log.InfoContext(ctx, "stdio.handle_request.cancelled", slog.Int64("dur_ms", time.Since(start).Milliseconds()))
			return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "cancelled", nil)
		}
		log.ErrorContext(ctx, "stdio.handle_request.fail", slog.String("err", err.Error()), slog.Int64("dur_ms", time.Since(start).Milliseconds()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "internal error", map[string]any{"uri": params.URI})
	}

	log.InfoContext(ctx, "stdio.handle_request.ok", slog.Int64("dur_ms", time.Since(start).Milliseconds()), slog.Int("content_count", len(contents)))
	return resultResponse(req.ID, &mcp.ReadResourceResult{Contents: contents})
}

func (h *Handler) handleSetLoggingLevel(ctx context.Context, sess sessions.Session, req *jsonrpc.Request) *jsonrpc.Response {
	start := time.Now()
	log := h.l.With(slog.String("method", req.Method))

	var params mcp.SetLevelRequest
	if err := json.Unmarshal(req.Params, &params); err != nil || !mcp.IsValidLoggingLevel(params.Level) {
		log.InfoContext(ctx, "stdio.handle_request.invalid", slog.String("level", string(params.Level)), slog.Int64("dur_ms", time.Since(start).Milliseconds()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, "invalid params", nil)
	}

	cap, ok, err := h.srv.GetLoggingCapability(ctx, sess)
	if err != nil {
		log.ErrorContext(ctx, "stdio.handle_request.fail", slog.String("err", err.Error()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "internal error", nil)
	}
	if !ok || cap == nil {
		log.InfoContext(ctx, "stdio.handle_request.unsupported", slog.Int64("dur_ms", time.Since(start).Milliseconds()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeMethodNotFound, "logging capability not supported", nil)
	}

	if err := cap.SetLevel(ctx, sess, params.Level); err != nil {
		if errors.Is(err, mcpservice.ErrInvalidLoggingLevel) {
			return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, "invalid params", nil)
		}
		log.ErrorContext(ctx, "stdio.handle_request.fail", slog.String("err", err.Error()))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "internal error", nil)
	}

	log.InfoContext(ctx, "stdio.handle_request.ok", slog.Int64("dur_ms", time.Since(start).Milliseconds()))
	return resultResponse(req.ID, mcp.EmptyResult{})
}
