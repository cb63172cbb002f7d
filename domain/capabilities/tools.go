package capabilities

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/uptrace/bun"
)

// Tool is the minimal contract every built-in and external tool
// implements. Args come straight from a ToolInvocationPlan entry.
type Tool interface {
	Invoke(ctx context.Context, args map[string]any) (map[string]any, error)
}

// ToolFunc adapts a plain function to Tool.
type ToolFunc func(ctx context.Context, args map[string]any) (map[string]any, error)

func (f ToolFunc) Invoke(ctx context.Context, args map[string]any) (map[string]any, error) {
	return f(ctx, args)
}

// SubAgentInvoker is the one dependency the capability executor has on
// the agent invocation layer (component D). Defining the interface here,
// rather than importing domain/agentinvoke's concrete types, keeps
// domain/capabilities a leaf package: component D depends on this
// package's types when it implements the interface, not the other way
// around.
type SubAgentInvoker interface {
	InvokeSubAgent(ctx context.Context, sessionID, step string) (map[string]any, error)
}

// NewBuiltinRegistry constructs the standard tool set, including the one
// tool (subagentcaller) backed by the agent invocation layer.
func NewBuiltinRegistry(subAgent SubAgentInvoker, db bun.IDB) map[string]Tool {
	return map[string]Tool{
		"environment_guard":     ToolFunc(environmentGuard),
		"filereader":            ToolFunc(fileReader),
		"filelister":            ToolFunc(fileLister),
		"codeviewer":            ToolFunc(codeViewer),
		"dbschemareader":        dbSchemaReader{db: db},
		"subagentcaller":        subAgentCaller{invoker: subAgent},
		"static_code_validator": ToolFunc(staticCodeValidator),
		"syntaxvalidator":       ToolFunc(syntaxValidator),
	}
}

// environmentGuard checks that the workspace directory exists and is
// writable before a step runs against it.
func environmentGuard(_ context.Context, args map[string]any) (map[string]any, error) {
	path, _ := args["workspace_path"].(string)
	if path == "" {
		return nil, fmt.Errorf("environment_guard: workspace_path is required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("environment_guard: workspace not accessible: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("environment_guard: workspace_path is not a directory")
	}
	return map[string]any{"ok": true}, nil
}

// fileReader loads every regular file directly under workspace_path. It
// is intentionally shallow — deeper reads go through codeviewer or
// filelister first.
func fileReader(_ context.Context, args map[string]any) (map[string]any, error) {
	path, _ := args["workspace_path"].(string)
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("filereader: %w", err)
	}

	files := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		b, err := os.ReadFile(filepath.Join(path, e.Name()))
		if err != nil {
			continue
		}
		files[e.Name()] = string(b)
	}
	return map[string]any{"files": files}, nil
}

// fileLister enumerates workspace contents without reading file bodies.
func fileLister(_ context.Context, args map[string]any) (map[string]any, error) {
	path, _ := args["workspace_path"].(string)
	var names []string
	err := filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == path {
			return nil
		}
		rel, relErr := filepath.Rel(path, p)
		if relErr != nil {
			rel = p
		}
		names = append(names, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("filelister: %w", err)
	}
	return map[string]any{"paths": names}, nil
}

// codeViewer reads a single named file relative to workspace_path.
func codeViewer(_ context.Context, args map[string]any) (map[string]any, error) {
	path, _ := args["workspace_path"].(string)
	file, _ := args["file"].(string)
	if file == "" {
		return map[string]any{"content": ""}, nil
	}
	b, err := os.ReadFile(filepath.Join(path, file))
	if err != nil {
		return nil, fmt.Errorf("codeviewer: %w", err)
	}
	return map[string]any{"content": string(b)}, nil
}

// dbSchemaReader lists table names visible to the operational connection,
// used so generated code can stay consistent with what actually exists.
type dbSchemaReader struct {
	db bun.IDB
}

func (r dbSchemaReader) Invoke(ctx context.Context, _ map[string]any) (map[string]any, error) {
	if r.db == nil {
		return map[string]any{"tables": []string{}}, nil
	}

	type row struct {
		TableName string `bun:"table_name"`
	}
	var rows []row
	err := r.db.NewSelect().
		ColumnExpr("table_name").
		TableExpr("information_schema.tables").
		Where("table_schema NOT IN ('pg_catalog', 'information_schema')").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("dbschemareader: %w", err)
	}

	tables := make([]string, len(rows))
	for i, r := range rows {
		tables[i] = r.TableName
	}
	return map[string]any{"tables": tables}, nil
}

// subAgentCaller is the one capability executor tool that reaches into
// component D.
type subAgentCaller struct {
	invoker SubAgentInvoker
}

func (c subAgentCaller) Invoke(ctx context.Context, args map[string]any) (map[string]any, error) {
	sessionID, _ := args["session_id"].(string)
	step, _ := args["step"].(string)
	if c.invoker == nil {
		return nil, fmt.Errorf("subagentcaller: no agent invoker configured")
	}
	return c.invoker.InvokeSubAgent(ctx, sessionID, step)
}

// staticCodeValidator applies a small set of structural rules that don't
// require parsing a specific language: no literal TODO/FIXME markers, no
// obviously unresolved merge conflict markers, non-empty content.
func staticCodeValidator(_ context.Context, args map[string]any) (map[string]any, error) {
	path, _ := args["workspace_path"].(string)
	var violations []string

	_ = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		b, readErr := os.ReadFile(p)
		if readErr != nil {
			return nil
		}
		content := string(b)
		if strings.TrimSpace(content) == "" {
			violations = append(violations, p+": empty content")
		}
		if strings.Contains(content, "TODO") || strings.Contains(content, "FIXME") {
			violations = append(violations, p+": literal TODO/FIXME marker")
		}
		if strings.Contains(content, "<<<<<<<") {
			violations = append(violations, p+": unresolved merge conflict marker")
		}
		return nil
	})

	if len(violations) > 0 {
		return map[string]any{"ok": false, "violations": violations}, fmt.Errorf("static_code_validator: %d violation(s)", len(violations))
	}
	return map[string]any{"ok": true}, nil
}

// syntaxValidator applies a brace/paren/bracket balance check. It is a
// structural heuristic, not a language parser — the generated artifacts
// span multiple target languages, so this tool checks what's common to
// all of them rather than depending on any one language's grammar.
func syntaxValidator(_ context.Context, args map[string]any) (map[string]any, error) {
	path, _ := args["workspace_path"].(string)
	var unbalanced []string

	_ = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		b, readErr := os.ReadFile(p)
		if readErr != nil {
			return nil
		}
		if !balanced(string(b)) {
			unbalanced = append(unbalanced, p)
		}
		return nil
	})

	if len(unbalanced) > 0 {
		return map[string]any{"ok": false, "files": unbalanced}, fmt.Errorf("syntaxvalidator: unbalanced delimiters in %d file(s)", len(unbalanced))
	}
	return map[string]any{"ok": true}, nil
}

func balanced(content string) bool {
	var stack []rune
	pairs := map[rune]rune{')': '(', ']': '[', '}': '{'}
	for _, r := range content {
		switch r {
		case '(', '[', '{':
			stack = append(stack, r)
		case ')', ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != pairs[r] {
				return false
			}
			stack = stack[:len(stack)-1]
		}
	}
	return len(stack) == 0
}
