// Package policy statically inspects a submission before anything runs.
//
// The analyzer is a cooperative filter, not an isolation boundary: it only
// sees load statements and calls whose callee is a bare name. Aliasing,
// attribute access and values reached through other modules are not
// detected. Real isolation has to come from the process host.
package policy

import (
	"fmt"
	"strings"

	"go.starlark.net/syntax"
)

// FileOptions is the Starlark dialect accepted for submissions and tests.
var FileOptions = &syntax.FileOptions{
	Set:               true,
	While:             true,
	TopLevelControl:   true,
	GlobalReassign:    true,
	LoadBindsGlobally: true,
	Recursion:         true,
}

// Verdict is produced once per submission, before execution.
type Verdict struct {
	Approved bool
	Reason   string
}

func (v Verdict) Rejected() bool { return !v.Approved }

func approved() Verdict { return Verdict{Approved: true} }

func rejected(format string, args ...any) Verdict {
	return Verdict{Reason: fmt.Sprintf(format, args...)}
}

// Policy holds the deny-lists consulted during the walk.
type Policy struct {
	ForbiddenModules []string
	ForbiddenCalls   []string
}

// DefaultPolicy returns the fixed deny-lists used by the grader.
func DefaultPolicy() *Policy {
	return &Policy{
		ForbiddenModules: []string{"os", "sys", "subprocess", "shutil", "socket", "importlib"},
		ForbiddenCalls:   []string{"open"},
	}
}

// Analyze checks src with the default policy.
func Analyze(filename, src string) Verdict {
	return DefaultPolicy().Analyze(filename, src)
}

// Analyze parses src and walks it in textual order. The first violation
// wins; parse errors and walker panics are reported as rejections.
func (p *Policy) Analyze(filename, src string) (verdict Verdict) {
	defer func() {
		if r := recover(); r != nil {
			verdict = rejected("AST Error: %s", describePanic(r))
		}
	}()

	f, err := FileOptions.Parse(filename, src, 0)
	if err != nil {
		return rejected("Syntax Error: %v", err)
	}

	v := &visitor{policy: p}
	syntax.Walk(f, v.visit)
	if v.violation != nil {
		return *v.violation
	}
	return approved()
}

type visitor struct {
	policy    *Policy
	violation *Verdict
}

func (v *visitor) visit(n syntax.Node) bool {
	if v.violation != nil {
		return false
	}
	switch n := n.(type) {
	case *syntax.LoadStmt:
		v.checkModule(n.ModuleName())
	case *syntax.CallExpr:
		if id, ok := n.Fn.(*syntax.Ident); ok {
			v.checkCall(id.Name)
		}
	case *syntax.WhileStmt:
		// syntax.Walk has no case for while loops.
		syntax.Walk(n.Cond, v.visit)
		for _, stmt := range n.Body {
			if v.violation != nil {
				break
			}
			syntax.Walk(stmt, v.visit)
		}
		return false
	}
	return v.violation == nil
}

// describePanic renders a walker panic. syntax.Walk panics with the node
// it cannot descend into.
func describePanic(r any) string {
	if n, ok := r.(syntax.Node); ok {
		start, _ := n.Span()
		return fmt.Sprintf("unsupported syntax node %s at %s", strings.TrimPrefix(fmt.Sprintf("%T", n), "*syntax."), start)
	}
	return fmt.Sprint(r)
}

func (v *visitor) checkModule(name string) {
	base := BaseModule(name)
	if base == "" {
		return
	}
	for _, forbidden := range v.policy.ForbiddenModules {
		if base == forbidden {
			verdict := rejected("import of module '%s' is forbidden by the security policy", base)
			v.violation = &verdict
			return
		}
	}
}

func (v *visitor) checkCall(name string) {
	for _, forbidden := range v.policy.ForbiddenCalls {
		if name == forbidden {
			verdict := rejected("call to %s() is forbidden by the security policy", name)
			v.violation = &verdict
			return
		}
	}
}

// BaseModule returns the top-level component of a module reference:
// "os.path" and "os/path.star" both yield "os". Label prefixes such as
// "@repo//" or a leading "//" are skipped first.
func BaseModule(name string) string {
	if i := strings.Index(name, "//"); i >= 0 {
		name = name[i+2:]
	}
	name = strings.TrimLeft(name, "@/")
	if i := strings.IndexAny(name, "./:"); i >= 0 {
		name = name[:i]
	}
	return name
}
