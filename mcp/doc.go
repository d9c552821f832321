// Package mcp holds the Model Context Protocol wire types shared by the stdio
// server transport, the stdio client and the capability implementations in
// mcpservice. Types are plain structs with json tags; method names are Method
// constants.
//
// Only the subset of the protocol exercised by this module is modelled:
// lifecycle (initialize, ping, cancellation), tools, resources and resource
// templates, and logging level control. Optional descriptor fields carry
// omitzero/omitempty tags so absence is represented by the zero value.
//
// Example (tool result construction):
//
//	res := &mcp.CallToolResult{
//	    Content: []mcp.ContentBlock{{Type: mcp.ContentTypeText, Text: "42"}},
//	}
package mcp
