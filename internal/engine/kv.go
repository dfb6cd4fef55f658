// ABOUTME: Key-value tool definitions backed by the SQLite store
// ABOUTME: Registered only when a storage path is configured

package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/2389/git-mcp/internal/kvstore"
)

// kvTools returns the kv tool set. Callers must check e.kv != nil first.
func (e *Engine) kvTools() []server.ServerTool {
	return []server.ServerTool{
		e.toolKVSet(),
		e.toolKVGet(),
		e.toolKVDelete(),
		e.toolKVList(),
	}
}

func (e *Engine) toolKVSet() server.ServerTool {
	tool := mcp.NewTool("kv_set",
		mcp.WithDescription("Store a value under a key. Overwrites any existing value. Values persist across sessions."),
		mcp.WithString("key", mcp.Description("Key to store under."), mcp.Required()),
		mcp.WithString("value", mcp.Description("Value to store."), mcp.Required()),
	)
	return server.ServerTool{Tool: tool, Handler: e.handleKVSet}
}

func (e *Engine) handleKVSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, ok := stringArg(req, "key")
	if !ok || key == "" {
		return resultErr(errors.New("kv_set: key is required")), nil
	}
	value, ok := stringArg(req, "value")
	if !ok {
		return resultErr(errors.New("kv_set: value is required")), nil
	}

	if err := e.kv.Set(ctx, key, value); err != nil {
		return resultErr(fmt.Errorf("kv_set: %w", err)), nil
	}
	return resultText(fmt.Sprintf("Stored %q.", key)), nil
}

func (e *Engine) toolKVGet() server.ServerTool {
	tool := mcp.NewTool("kv_get",
		mcp.WithDescription("Retrieve the value stored under a key."),
		mcp.WithString("key", mcp.Description("Key to look up."), mcp.Required()),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	return server.ServerTool{Tool: tool, Handler: e.handleKVGet}
}

func (e *Engine) handleKVGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, ok := stringArg(req, "key")
	if !ok || key == "" {
		return resultErr(errors.New("kv_get: key is required")), nil
	}

	value, err := e.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return resultErr(fmt.Errorf("kv_get: key %q not found", key)), nil
		}
		return resultErr(fmt.Errorf("kv_get: %w", err)), nil
	}
	return resultText(value), nil
}

func (e *Engine) toolKVDelete() server.ServerTool {
	tool := mcp.NewTool("kv_delete",
		mcp.WithDescription("Delete a key and its value."),
		mcp.WithString("key", mcp.Description("Key to delete."), mcp.Required()),
	)
	return server.ServerTool{Tool: tool, Handler: e.handleKVDelete}
}

func (e *Engine) handleKVDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, ok := stringArg(req, "key")
	if !ok || key == "" {
		return resultErr(errors.New("kv_delete: key is required")), nil
	}

	if err := e.kv.Delete(ctx, key); err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return resultErr(fmt.Errorf("kv_delete: key %q not found", key)), nil
		}
		return resultErr(fmt.Errorf("kv_delete: %w", err)), nil
	}
	return resultText(fmt.Sprintf("Deleted %q.", key)), nil
}

func (e *Engine) toolKVList() server.ServerTool {
	tool := mcp.NewTool("kv_list",
		mcp.WithDescription("List stored keys in sorted order, optionally filtered by prefix."),
		mcp.WithString("prefix", mcp.Description("Only list keys starting with this prefix.")),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	return server.ServerTool{Tool: tool, Handler: e.handleKVList}
}

func (e *Engine) handleKVList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prefix, _ := stringArg(req, "prefix")

	keys, err := e.kv.List(ctx, prefix)
	if err != nil {
		return resultErr(fmt.Errorf("kv_list: %w", err)), nil
	}
	if keys == nil {
		keys = []string{}
	}

	result, err := resultJSON(keys)
	if err != nil {
		return resultErr(fmt.Errorf("kv_list: serialise: %w", err)), nil
	}
	return result, nil
}
