package tests_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/containerd/nerdctl/mod/tigron/test"
	"github.com/containerd/nerdctl/mod/tigron/tig"
)

const failingRunLog = `Task: Run ` + "`pnpm test`" + ` and ensure lint passes.

2025-03-01T10:00:00Z $ pnpm test
2025-03-01T10:00:20Z exit code 1
Retrying with fix
2025-03-01T10:01:00Z $ pnpm test
2025-03-01T10:01:30Z exit code 0
`

const cleanRunLog = `[
  {"role": "user", "content": "Update README.md with the new flag."},
  {"kind": "edit", "path": "README.md", "timestamp": "2025-03-02T09:00:00Z"},
  {"kind": "tool_use", "command": "pnpm build", "timestamp": "2025-03-02T09:00:05Z"},
  {"kind": "tool_result", "exit_code": 0, "timestamp": "2025-03-02T09:00:40Z"}
]
`

const ruleDocument = `rules:
  - pattern: "exit code 1"
    label: test-failure
    hint: Inspect the failing test output before retrying.
  - pattern: "out of memory"
    flags: i
    label: oom
    hint: Reduce parallelism.
  - pattern: "Retrying"
    label: retried
    hint: Look for flaky steps.
`

// fixtures holds paths to the log and rule files shared by the CLI tests.
type fixtures struct {
	dir        string
	failingLog string
	cleanLog   string
	rules      string
	badRules   string
}

func writeFixtures(t *testing.T) fixtures {
	t.Helper()

	dir := t.TempDir()
	logs := filepath.Join(dir, "logs")

	if err := os.MkdirAll(logs, 0o755); err != nil {
		t.Fatal(err)
	}

	fix := fixtures{
		dir:        logs,
		failingLog: filepath.Join(logs, "failing.log"),
		cleanLog:   filepath.Join(logs, "clean.json"),
		rules:      filepath.Join(dir, "rules.yaml"),
		badRules:   filepath.Join(dir, "bad.yaml"),
	}

	for path, content := range map[string]string{
		fix.failingLog: failingRunLog,
		fix.cleanLog:   cleanRunLog,
		fix.rules:      ruleDocument,
		fix.badRules:   "rules: [unclosed",
	} {
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	return fix
}

// expectContains returns a comparator verifying the output contains every substring.
func expectContains(substrs ...string) test.Comparator {
	return func(stdout string, testing tig.T) {
		testing.Helper()

		for _, substr := range substrs {
			if !strings.Contains(stdout, substr) {
				testing.Log(fmt.Sprintf("expected substring %q not found in output:\n%s", substr, stdout))
				testing.Fail()
			}
		}
	}
}

// expectNotContains returns a comparator verifying the output does not contain a substring.
func expectNotContains(substr string) test.Comparator {
	return func(stdout string, testing tig.T) {
		testing.Helper()

		if strings.Contains(stdout, substr) {
			testing.Log(fmt.Sprintf("unexpected substring %q found in output:\n%s", substr, stdout))
			testing.Fail()
		}
	}
}
