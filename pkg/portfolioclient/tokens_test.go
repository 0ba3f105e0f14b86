package portfolioclient

import (
	"encoding/json"
	"testing"

	"github.com/spf13/afero"
)

func TestTokenStores(t *testing.T) {
	stores := map[string]func() TokenStore{
		"memory": func() TokenStore { return NewMemoryTokenStore() },
		"file":   func() TokenStore { return NewFileTokenStore(afero.NewMemMapFs(), "/home/ada/.portfolioctl/session.json") },
	}
	for name, build := range stores {
		t.Run(name, func(t *testing.T) {
			store := build()

			if credentials, err := store.Load(); err != nil || credentials != (Credentials{}) {
				t.Fatalf("expected empty store, got %+v %v", credentials, err)
			}
			var user User
			if found, err := store.LoadUser(&user); err != nil || found {
				t.Fatalf("expected no user, got %v %v", found, err)
			}

			if err := store.SaveSession(Credentials{Access: "a1", Refresh: "r1"}, User{ID: 4, Username: "ada"}); err != nil {
				t.Fatalf("save session: %v", err)
			}
			if err := store.SaveAccess("a2"); err != nil {
				t.Fatalf("save access: %v", err)
			}
			if credentials, _ := store.Load(); credentials.Access != "a2" || credentials.Refresh != "r1" {
				t.Fatalf("access update must keep refresh, got %+v", credentials)
			}
			if err := store.SaveRefresh("r2"); err != nil {
				t.Fatalf("save refresh: %v", err)
			}
			if err := store.SaveUser(User{ID: 4, Username: "countess"}); err != nil {
				t.Fatalf("save user: %v", err)
			}
			if credentials, _ := store.Load(); credentials.Access != "a2" || credentials.Refresh != "r2" {
				t.Fatalf("unexpected credentials %+v", credentials)
			}
			if found, err := store.LoadUser(&user); err != nil || !found || user.Username != "countess" {
				t.Fatalf("unexpected user %+v %v %v", user, found, err)
			}

			if err := store.Clear(); err != nil {
				t.Fatalf("clear: %v", err)
			}
			if err := store.Clear(); err != nil {
				t.Fatalf("second clear: %v", err)
			}
			if credentials, _ := store.Load(); credentials != (Credentials{}) {
				t.Fatalf("expected cleared credentials, got %+v", credentials)
			}
		})
	}
}

func TestFileTokenStoreLayout(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "/home/ada/.portfolioctl/session.json"
	store := NewFileTokenStore(fs, path)
	if err := store.SaveSession(Credentials{Access: "a1", Refresh: "r1"}, User{ID: 4, Username: "ada"}); err != nil {
		t.Fatalf("save session: %v", err)
	}

	info, err := fs.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if mode := info.Mode().Perm(); mode != sessionFileMode {
		t.Fatalf("expected mode %o, got %o", sessionFileMode, mode)
	}
	content, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(content, &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, key := range []string{"access", "refresh", "user"} {
		if _, ok := raw[key]; !ok {
			t.Fatalf("expected key %q in %s", key, content)
		}
	}
	if exists, _ := afero.Exists(fs, path+".tmp"); exists {
		t.Fatalf("temporary file must be renamed away")
	}

	reopened := NewFileTokenStore(fs, path)
	if credentials, _ := reopened.Load(); credentials.Access != "a1" || credentials.Refresh != "r1" {
		t.Fatalf("session must survive a restart, got %+v", credentials)
	}

	if err := afero.WriteFile(fs, path, []byte("{not json"), sessionFileMode); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := reopened.Load(); err == nil {
		t.Fatalf("expected decode error for a corrupt session file")
	}
}
