package mcpclient

import (
	"context"
	"log/slog"
	"time"

	"github.com/ggoodman/mcp-greeter-go/mcp"
)

// maxPages guards list calls against servers that never stop paginating.
const maxPages = 1000

func (s *Session) call(ctx context.Context, method mcp.Method, params, result any) error {
	start := time.Now()
	resp, err := s.d.Call(ctx, string(method), params)
	if err != nil {
		s.log.DebugContext(ctx, "mcpclient.call.fail", slog.String("method", string(method)), slog.String("err", err.Error()))
		return err
	}
	if err := resp.DecodeResult(result); err != nil {
		s.log.DebugContext(ctx, "mcpclient.call.error", slog.String("method", string(method)), slog.String("err", err.Error()))
		return err
	}
	s.log.DebugContext(ctx, "mcpclient.call.ok", slog.String("method", string(method)), slog.Int64("dur_ms", time.Since(start).Milliseconds()))
	return nil
}

// listAll follows nextCursor until the server reports no further pages.
func listAll[T any](ctx context.Context, s *Session, method mcp.Method, page func(cursor string) (items []T, next string, err error)) ([]T, error) {
	var (
		all    []T
		cursor string
		seen   = map[string]bool{}
	)
	for range maxPages {
		items, next, err := page(cursor)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if next == "" || seen[next] {
			return all, nil
		}
		seen[next] = true
		cursor = next
	}
	s.log.WarnContext(ctx, "mcpclient.list.truncated", slog.String("method", string(method)))
	return all, nil
}

// ListTools returns every tool the server exposes.
func (s *Session) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	return listAll(ctx, s, mcp.ToolsListMethod, func(cursor string) ([]mcp.Tool, string, error) {
		var res mcp.ListToolsResult
		err := s.call(ctx, mcp.ToolsListMethod, &mcp.ListToolsRequest{PaginatedRequest: mcp.PaginatedRequest{Cursor: cursor}}, &res)
		return res.Tools, res.NextCursor, err
	})
}

// ListResources returns every concrete resource the server lists.
func (s *Session) ListResources(ctx context.Context) ([]mcp.Resource, error) {
	return listAll(ctx, s, mcp.ResourcesListMethod, func(cursor string) ([]mcp.Resource, string, error) {
		var res mcp.ListResourcesResult
		err := s.call(ctx, mcp.ResourcesListMethod, &mcp.ListResourcesRequest{PaginatedRequest: mcp.PaginatedRequest{Cursor: cursor}}, &res)
		return res.Resources, res.NextCursor, err
	})
}

// ListResourceTemplates returns every resource template the server lists.
func (s *Session) ListResourceTemplates(ctx context.Context) ([]mcp.ResourceTemplate, error) {
	return listAll(ctx, s, mcp.ResourcesTemplatesListMethod, func(cursor string) ([]mcp.ResourceTemplate, string, error) {
		var res mcp.ListResourceTemplatesResult
		err := s.call(ctx, mcp.ResourcesTemplatesListMethod, &mcp.ListResourceTemplatesRequest{PaginatedRequest: mcp.PaginatedRequest{Cursor: cursor}}, &res)
		return res.ResourceTemplates, res.NextCursor, err
	})
}

// CallTool invokes the named tool with args.
func (s *Session) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	var res mcp.CallToolResult
	if err := s.call(ctx, mcp.ToolsCallMethod, &mcp.CallToolRequestSent{Name: name, Arguments: args}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ReadResource reads the resource at uri.
func (s *Session) ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	var res mcp.ReadResourceResult
	if err := s.call(ctx, mcp.ResourcesReadMethod, &mcp.ReadResourceRequest{URI: uri}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Ping checks that the server is responsive.
func (s *Session) Ping(ctx context.Context) error {
	return s.call(ctx, mcp.PingMethod, nil, nil)
}

// SetLoggingLevel asks the server to change its log level.
func (s *Session) SetLoggingLevel(ctx context.Context, level mcp.LoggingLevel) error {
	return s.call(ctx, mcp.LoggingSetLevelMethod, &mcp.SetLevelRequest{Level: level}, nil)
}
