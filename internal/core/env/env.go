// Package env builds the namespace that a submission and its tests share.
package env

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"go.starlark.net/lib/json"
	"go.starlark.net/lib/math"
	"go.starlark.net/lib/time"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// MainName marks the namespace as the top-level entry point.
const MainName = "__main__"

// DenyList names the capabilities removed from the restricted namespace:
// raw file opening, both termination spellings and interactive help.
var DenyList = []string{"open", "quit", "exit", "help"}

// ExitRequest is returned by exit() and quit().
type ExitRequest struct {
	Code int
}

func (e *ExitRequest) Error() string {
	return fmt.Sprintf("exit requested with code %d", e.Code)
}

// Standard returns the complete ambient capability set: the Starlark
// universe plus the host capabilities.
func Standard() starlark.StringDict {
	d := make(starlark.StringDict, len(starlark.Universe)+10)
	for name, v := range starlark.Universe {
		d[name] = v
	}
	d["assert"] = Assert
	d["struct"] = starlark.NewBuiltin("struct", starlarkstruct.Make)
	d["math"] = math.Module
	d["json"] = json.Module
	d["time"] = time.Module
	d["open"] = starlark.NewBuiltin("open", openFile)
	d["exit"] = starlark.NewBuiltin("exit", exit)
	d["quit"] = starlark.NewBuiltin("quit", exit)
	d["help"] = starlark.NewBuiltin("help", help)
	return d
}

// NameError is returned when code calls a name on the deny-list.
type NameError struct {
	Name string
}

func (e *NameError) Error() string {
	return fmt.Sprintf("name '%s' is not defined", e.Name)
}

// Restricted returns a fresh Standard set whose DenyList entries are
// replaced by builtins that fail with a NameError when called. The names
// stay bound so that code mentioning them still resolves; only reaching
// the call fails.
func Restricted() starlark.StringDict {
	d := Standard()
	for _, name := range DenyList {
		d[name] = denied(name)
	}
	d["__name__"] = starlark.String(MainName)
	return d
}

// Loader resolves load statements against the modules present in globals.
// Only struct-valued modules are loadable, so removing a module from the
// namespace also makes it unloadable.
func Loader(globals starlark.StringDict) func(*starlark.Thread, string) (starlark.StringDict, error) {
	return func(_ *starlark.Thread, module string) (starlark.StringDict, error) {
		name := strings.TrimSuffix(module, ".star")
		if m, ok := globals[name].(*starlarkstruct.Module); ok {
			return m.Members, nil
		}
		return nil, fmt.Errorf("module %q is not available", module)
	}
}

func denied(name string) *starlark.Builtin {
	return starlark.NewBuiltin(name, func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
		return nil, &NameError{Name: name}
	})
}

func openFile(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var path string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return starlark.String(data), nil
}

func exit(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	code := 0
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "code?", &code); err != nil {
		return nil, err
	}
	return nil, &ExitRequest{Code: code}
}

func help(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var x starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "x?", &x); err != nil {
		return nil, err
	}
	var names []string
	if x == nil {
		for name := range starlark.Universe {
			names = append(names, name)
		}
	} else if h, ok := x.(starlark.HasAttrs); ok {
		names = h.AttrNames()
	}
	sort.Strings(names)
	return starlark.String(strings.Join(names, "\n")), nil
}
