// Package trace plans the debug log lines a generated adapter emits around a
// handler call.
package trace

import (
	"fmt"

	"github.com/mark3labs/autoroute/internal/catalog"
	"github.com/mark3labs/autoroute/internal/contract"
	"github.com/mark3labs/autoroute/internal/extract"
)

// Value is one "* <Label>: <value>" line. Expr is the Go expression printed
// with %+v.
type Value struct {
	Label string
	Expr  string
}

// Exit is the trace of one response variant.
type Exit struct {
	Status   catalog.Status
	TypeName string
	Message  string
	// Response prints the variant body after the message.
	Response bool
}

// Plan is the complete trace of a handler.
type Plan struct {
	Handler string
	Entry   string
	Values  []Value
	Exits   []Exit
}

func EntryMessage(handler string) string {
	return fmt.Sprintf("'%s' triggered", handler)
}

func ExitMessage(handler string, st catalog.Status) string {
	return fmt.Sprintf("'%s' finished -> %s", handler, st)
}

// Build plans the trace of a handler. Sites are traced in parameter order
// when their effective trace flag is set.
func Build(fn *extract.Func, c *contract.Contract) *Plan {
	p := &Plan{Handler: c.Handler, Entry: EntryMessage(c.Handler)}
	for _, s := range fn.Sites {
		if !s.Trace {
			continue
		}
		p.Values = append(p.Values, Value{Label: s.Label(), Expr: s.Local + s.Access})
	}
	for _, v := range c.Variants {
		p.Exits = append(p.Exits, Exit{
			Status:   v.Status,
			TypeName: v.TypeName,
			Message:  ExitMessage(c.Handler, v.Status),
			Response: v.Trace,
		})
	}
	return p
}

// Lines renders the entry trace and the exit trace of status with
// placeholder values, as printed by --verbose.
func (p *Plan) Lines(status int) []string {
	out := []string{p.Entry}
	for _, v := range p.Values {
		out = append(out, fmt.Sprintf("* %s: <%s>", v.Label, v.Expr))
	}
	for _, e := range p.Exits {
		if e.Status.Code != status {
			continue
		}
		out = append(out, e.Message)
		if e.Response {
			out = append(out, "* Response: <body>")
		}
	}
	return out
}
