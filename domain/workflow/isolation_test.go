package workflow

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// TestIsolation_RuntimePathNeverImportsLearningReadAPI is the import-graph
// test domain/learning/entity.go and domain/learning/readapi/readapi.go
// both point at: no import path starting from the workflow engine, the
// capability planner/executor, or the agent invocation layer may resolve
// into domain/learning/readapi, the one sanctioned reader of the learning
// store (§4.4, §8). The learning store's write path
// (learning.Repository.IngestFailure) is fine — only the read surface is
// forbidden from the runtime's reachable set.
func TestIsolation_RuntimePathNeverImportsLearningReadAPI(t *testing.T) {
	const modulePath = "github.com/emergent-company/codeforge"
	const forbidden = modulePath + "/domain/learning/readapi"

	root := moduleRoot(t)
	roots := []string{
		modulePath + "/domain/workflow",
		modulePath + "/domain/capabilities",
		modulePath + "/domain/agentinvoke",
	}

	visited := map[string]bool{}
	var walk func(importPath string)
	walk = func(importPath string) {
		if !strings.HasPrefix(importPath, modulePath) {
			return // third-party or stdlib: cannot lead back into this module
		}
		if visited[importPath] {
			return
		}
		visited[importPath] = true
		if importPath == forbidden {
			return // recorded; reported after the walk completes
		}

		dir := filepath.Join(root, strings.TrimPrefix(importPath, modulePath))
		for _, imp := range packageImports(t, dir) {
			walk(imp)
		}
	}

	for _, r := range roots {
		walk(r)
	}

	if visited[forbidden] {
		t.Fatalf("runtime import graph resolves into %s, violating the learning-store read isolation invariant", forbidden)
	}
}

// packageImports returns the distinct import paths named by every non-test
// .go file in dir. Missing or unreadable directories yield no imports
// rather than failing the test outright, so a package this module doesn't
// happen to have on disk (a stub, a not-yet-built component) is simply a
// dead end in the walk.
func packageImports(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	seen := map[string]bool{}
	var out []string
	fset := token.NewFileSet()
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		f, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.ImportsOnly)
		if err != nil {
			t.Fatalf("parse %s: %v", filepath.Join(dir, name), err)
		}
		for _, imp := range f.Imports {
			path := strings.Trim(imp.Path.Value, `"`)
			if !seen[path] {
				seen[path] = true
				out = append(out, path)
			}
		}
	}
	return out
}

// moduleRoot locates the repository root (the directory containing
// go.mod) from this test file's own source path, so the walk works
// regardless of the working directory `go test` is invoked from.
func moduleRoot(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed to report this file's path")
	}
	dir := filepath.Dir(file)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not locate go.mod above " + file)
		}
		dir = parent
	}
}
