package env

import (
	"fmt"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// AssertionError is the failure raised by the assert module. Msg is empty
// when the caller supplied no message.
type AssertionError struct {
	Msg string
}

func (e *AssertionError) Error() string {
	if e.Msg == "" {
		return "assertion failed"
	}
	return e.Msg
}

// Assert is the module test snippets use to state expectations.
var Assert = &starlarkstruct.Module{
	Name: "assert",
	Members: starlark.StringDict{
		"true":  starlark.NewBuiltin("assert.true", assertTrue),
		"eq":    starlark.NewBuiltin("assert.eq", assertEq),
		"ne":    starlark.NewBuiltin("assert.ne", assertNe),
		"fails": starlark.NewBuiltin("assert.fails", assertFails),
	},
}

func assertTrue(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var cond starlark.Value
	var msg string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "cond", &cond, "msg?", &msg); err != nil {
		return nil, err
	}
	if !cond.Truth() {
		return nil, &AssertionError{Msg: msg}
	}
	return starlark.None, nil
}

func assertEq(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	return compare(b, args, kwargs, true)
}

func assertNe(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	return compare(b, args, kwargs, false)
}

func compare(b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple, wantEqual bool) (starlark.Value, error) {
	var x, y starlark.Value
	var msg string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "x", &x, "y", &y, "msg?", &msg); err != nil {
		return nil, err
	}
	eq, err := starlark.Equal(x, y)
	if err != nil {
		return nil, err
	}
	if eq != wantEqual {
		return nil, &AssertionError{Msg: msg}
	}
	return starlark.None, nil
}

// assertFails calls fn and expects it to fail, optionally with an error
// message containing substr.
func assertFails(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var fn starlark.Callable
	var substr, msg string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "fn", &fn, "substr?", &substr, "msg?", &msg); err != nil {
		return nil, err
	}
	_, err := starlark.Call(thread, fn, nil, nil)
	if err == nil {
		return nil, &AssertionError{Msg: msg}
	}
	if substr != "" && !strings.Contains(err.Error(), substr) {
		if msg == "" {
			msg = fmt.Sprintf("error %q does not contain %q", err.Error(), substr)
		}
		return nil, &AssertionError{Msg: msg}
	}
	return starlark.None, nil
}
