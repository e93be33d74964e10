package env

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.starlark.net/starlark"
)

func TestStandardCarriesUniverseAndHostCapabilities(t *testing.T) {
	std := Standard()
	for name := range starlark.Universe {
		if _, ok := std[name]; !ok {
			t.Errorf("Standard() missing universe name %q", name)
		}
	}
	for _, name := range append([]string{"assert", "struct", "math", "json", "time"}, DenyList...) {
		if _, ok := std[name]; !ok {
			t.Errorf("Standard() missing %q", name)
		}
	}
}

func TestRestrictedDisarmsDenyList(t *testing.T) {
	r := Restricted()
	path := filepath.Join(t.TempDir(), "secret.txt")
	if err := os.WriteFile(path, []byte("secret"), 0o644); err != nil {
		t.Fatal(err)
	}
	for _, name := range DenyList {
		fn, ok := r[name]
		if !ok {
			t.Errorf("Restricted() should keep %q bound so references resolve", name)
			continue
		}
		var nameErr *NameError
		err := call(t, fn, starlark.String(path))
		if !errors.As(err, &nameErr) || nameErr.Name != name {
			t.Errorf("%s(...) = %v, want a NameError", name, err)
			continue
		}
		if want := "name '" + name + "' is not defined"; err.Error() != want {
			t.Errorf("%s(...) error = %q, want %q", name, err.Error(), want)
		}
	}
	for _, name := range []string{"print", "len", "assert", "math"} {
		if _, ok := r[name]; !ok {
			t.Errorf("Restricted() lost ordinary capability %q", name)
		}
	}
}

func TestRestrictedMarksMain(t *testing.T) {
	if got := Restricted()["__name__"]; got != starlark.String(MainName) {
		t.Errorf("__name__ = %v", got)
	}
	if _, ok := Standard()["__name__"]; ok {
		t.Error("Standard() should not carry the entry-point marker")
	}
}

func TestRestrictedIsFresh(t *testing.T) {
	a, b := Restricted(), Restricted()
	a["x"] = starlark.MakeInt(1)
	if _, ok := b["x"]; ok {
		t.Error("Restricted() instances share state")
	}
}

func TestLoaderResolvesNamespaceModules(t *testing.T) {
	load := Loader(Restricted())
	members, err := load(nil, "math")
	if err != nil {
		t.Fatalf("load math: %v", err)
	}
	if _, ok := members["sqrt"]; !ok {
		t.Error("math module has no sqrt")
	}
	if _, err := load(nil, "json.star"); err != nil {
		t.Errorf("load json.star: %v", err)
	}
	if _, err := load(nil, "os"); err == nil {
		t.Error("expected os to be unavailable")
	}
	if _, err := load(nil, "len"); err == nil {
		t.Error("builtins are not modules")
	}
}

func call(t *testing.T, fn starlark.Value, args ...starlark.Value) error {
	t.Helper()
	thread := &starlark.Thread{Name: "test"}
	_, err := starlark.Call(thread, fn, starlark.Tuple(args), nil)
	return err
}

func TestAssertModule(t *testing.T) {
	m := Assert.Members
	one, two := starlark.MakeInt(1), starlark.MakeInt(2)

	if err := call(t, m["true"], starlark.True); err != nil {
		t.Errorf("assert.true(True): %v", err)
	}
	if err := call(t, m["eq"], one, one); err != nil {
		t.Errorf("assert.eq(1, 1): %v", err)
	}
	if err := call(t, m["ne"], one, two); err != nil {
		t.Errorf("assert.ne(1, 2): %v", err)
	}

	var ae *AssertionError
	err := call(t, m["eq"], one, two, starlark.String("should be equal"))
	if !errors.As(err, &ae) || ae.Msg != "should be equal" {
		t.Errorf("assert.eq(1, 2, msg) = %v", err)
	}
	err = call(t, m["true"], starlark.False)
	if !errors.As(err, &ae) || ae.Msg != "" {
		t.Errorf("assert.true(False) = %v", err)
	}
}

func TestAssertFails(t *testing.T) {
	fails := Assert.Members["fails"]
	failing := starlark.NewBuiltin("boom", func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
		return nil, errors.New("boom happened")
	})
	ok := starlark.NewBuiltin("ok", func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
		return starlark.None, nil
	})

	if err := call(t, fails, failing, starlark.String("boom")); err != nil {
		t.Errorf("assert.fails(boom, 'boom'): %v", err)
	}
	var ae *AssertionError
	if err := call(t, fails, ok); !errors.As(err, &ae) {
		t.Errorf("assert.fails(ok) = %v", err)
	}
	if err := call(t, fails, failing, starlark.String("other")); !errors.As(err, &ae) || ae.Msg == "" {
		t.Errorf("assert.fails(boom, 'other') = %v", err)
	}
}

func TestStandardHostCapabilities(t *testing.T) {
	std := Standard()

	var exitReq *ExitRequest
	if err := call(t, std["exit"], starlark.MakeInt(3)); !errors.As(err, &exitReq) || exitReq.Code != 3 {
		t.Errorf("exit(3) = %v", err)
	}
	if err := call(t, std["quit"]); !errors.As(err, &exitReq) || exitReq.Code != 0 {
		t.Errorf("quit() = %v", err)
	}

	path := filepath.Join(t.TempDir(), "data.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	thread := &starlark.Thread{Name: "test"}
	v, err := starlark.Call(thread, std["open"], starlark.Tuple{starlark.String(path)}, nil)
	if err != nil || v != starlark.String("hello") {
		t.Errorf("open(%q) = %v, %v", path, v, err)
	}

	v, err = starlark.Call(thread, std["help"], nil, nil)
	if err != nil || v.(starlark.String) == "" {
		t.Errorf("help() = %v, %v", v, err)
	}
}
