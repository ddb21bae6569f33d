package inputsresolver

import "testing"

func TestParseURISchemes(t *testing.T) {
	cases := []struct {
		uri      string
		wantType string
		wantURL  string
		wantRev  string
	}{
		{"github:acme/widgets", "github", "https://github.com/acme/widgets.git", ""},
		{"github:acme/widgets#v2", "github", "https://github.com/acme/widgets.git", "v2"},
		{"gitlab:acme/widgets#main", "gitlab", "https://gitlab.com/acme/widgets.git", "main"},
		{"git:https://example.com/repo.git#deadbeef", "git", "https://example.com/repo.git", "deadbeef"},
	}
	for _, c := range cases {
		got, err := ParseURI(c.uri)
		if err != nil {
			t.Fatalf("ParseURI(%q): %v", c.uri, err)
		}
		if got.Type != c.wantType || got.URL != c.wantURL || got.Rev != c.wantRev {
			t.Fatalf("ParseURI(%q) = %+v, want type=%s url=%s rev=%s", c.uri, got, c.wantType, c.wantURL, c.wantRev)
		}
	}
}

func TestParseURIPath(t *testing.T) {
	got, err := ParseURI("path:../vendor/foo")
	if err != nil {
		t.Fatalf("ParseURI: %v", err)
	}
	if got.Type != "path" || got.Path != "../vendor/foo" {
		t.Fatalf("unexpected parse: %+v", got)
	}
}

func TestParseURIRejectsUnknownScheme(t *testing.T) {
	if _, err := ParseURI("http://example.com/x"); err == nil {
		t.Fatal("expected an error for an unrecognized scheme")
	}
}

func TestParseURIRejectsEmptyBody(t *testing.T) {
	for _, uri := range []string{"github:", "gitlab:", "git:", "path:"} {
		if _, err := ParseURI(uri); err == nil {
			t.Fatalf("expected an error for %q", uri)
		}
	}
}
