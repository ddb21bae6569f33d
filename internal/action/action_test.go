package action

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"syslua/internal/hashutil"
	"syslua/internal/syserr"
)

func TestRunExecCapturesStdout(t *testing.T) {
	a := Exec("/bin/echo", []string{"hello"}, nil, "")
	res, err := RunExec(context.Background(), "deadbeefdeadbeefdead", 0, a, ExecOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Stdout != "hello\n" {
		t.Fatalf("got stdout %q", res.Stdout)
	}
}

func TestRunExecNonZeroExit(t *testing.T) {
	a := Exec("/bin/sh", []string{"-c", "exit 3"}, nil, "")
	_, err := RunExec(context.Background(), "deadbeefdeadbeefdead", 1, a, ExecOptions{})
	if err == nil {
		t.Fatal("expected error")
	}
	af, ok := err.(*syserr.ActionFailed)
	if !ok {
		t.Fatalf("expected *syserr.ActionFailed, got %T", err)
	}
	if af.ExitCode_ != 3 {
		t.Fatalf("expected exit code 3, got %d", af.ExitCode_)
	}
}

func TestRunExecHermeticEnvOnlyWhitelisted(t *testing.T) {
	t.Setenv("SYSLUA_TEST_SECRET", "leaked")
	a := Exec("/usr/bin/env", nil, map[string]string{"FOO": "bar"}, "")
	res, err := RunExec(context.Background(), "deadbeefdeadbeefdead", 0, a, ExecOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if containsSubstring(res.Stdout, "SYSLUA_TEST_SECRET") {
		t.Fatalf("expected hermetic env to exclude ambient vars, got %q", res.Stdout)
	}
	if !containsSubstring(res.Stdout, "FOO=bar") {
		t.Fatalf("expected declared env to pass through, got %q", res.Stdout)
	}
}

func TestRunFetchURLVerifiesHash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("artifact-bytes"))
	}))
	defer srv.Close()

	expected := hashutil.Hex256([]byte("artifact-bytes"))
	dir := t.TempDir()

	a := FetchURL(srv.URL, expected)
	res, err := RunFetchURL(context.Background(), dir, a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Path == "" {
		t.Fatal("expected non-empty path")
	}
}

func TestRunFetchURLHashMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("artifact-bytes"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	a := FetchURL(srv.URL, "0000000000000000000000000000000000000000000000000000000000000000")
	_, err := RunFetchURL(context.Background(), dir, a)
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := err.(*syserr.HashMismatch); !ok {
		t.Fatalf("expected *syserr.HashMismatch, got %T", err)
	}
}

func containsSubstring(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
