package action

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"syslua/internal/hashutil"
	"syslua/internal/syserr"
)

// FetchResult carries the local path of a downloaded, verified artifact —
// recorded as the Nth action result per spec.md §4.4.
type FetchResult struct {
	Path string
}

// RunFetchURL downloads a's URL into a temp file under dir, verifies its
// sha256 against a.SHA256 (no check is made when a.SHA256 is empty),
// renames it to a content-hash-named file under dir, and returns that
// file's path. Mirrors the download-to-temp, verify, then use pattern in
// self_go_bootstrap.go.
func RunFetchURL(ctx context.Context, dir string, a Action) (FetchResult, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return FetchResult{}, err
	}
	tmp, err := os.CreateTemp(dir, "fetch-*")
	if err != nil {
		return FetchResult{}, err
	}
	tmpPath := tmp.Name()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.URL, nil)
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return FetchResult{}, &syserr.FetchError{Name: a.URL, Cause: err}
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return FetchResult{}, &syserr.FetchError{Name: a.URL, Cause: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return FetchResult{}, &syserr.FetchError{Name: a.URL, Cause: &httpStatusError{resp.StatusCode}}
	}

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return FetchResult{}, &syserr.FetchError{Name: a.URL, Cause: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return FetchResult{}, err
	}

	raw, err := os.ReadFile(tmpPath)
	if err != nil {
		_ = os.Remove(tmpPath)
		return FetchResult{}, err
	}
	actual := hashutil.Hex256(raw)
	if a.SHA256 != "" && actual != a.SHA256 {
		_ = os.Remove(tmpPath)
		return FetchResult{}, &syserr.HashMismatch{Name: a.URL, Expected: a.SHA256, Actual: actual}
	}

	finalPath := filepath.Join(dir, hashutil.OfBytes(raw).String())
	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return FetchResult{}, err
	}
	return FetchResult{Path: finalPath}, nil
}

type httpStatusError struct{ code int }

func (e *httpStatusError) Error() string {
	return "unexpected HTTP status " + http.StatusText(e.code)
}
