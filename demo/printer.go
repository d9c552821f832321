package demo

import (
	"fmt"
	"io"
	"strings"
)

// printer writes demo output and remembers the first write error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, a ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, a...)
}

func (p *printer) println(a ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintln(p.w, a...)
}

// heading prints a blank line, title and an underline of the given width.
func (p *printer) heading(title string, width int) {
	p.printf("\n%s\n%s\n", title, strings.Repeat("-", width))
}
