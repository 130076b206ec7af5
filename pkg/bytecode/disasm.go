package bytecode

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Part classifies a fragment of a listing for highlighting.
type Part uint8

const (
	PartKeyword Part = iota
	PartName
	PartOffset
	PartOpcode
	PartOperand
)

// Highlight decorates a listing fragment, e.g. with terminal colors. A nil
// Highlight leaves text unchanged.
type Highlight func(part Part, text string) string

// Disassemble writes code and every code object reachable from its constants
// as an assembler listing. Nested code comes first so the entry is the last
// block, which is the block the assembler treats as the entry point.
func Disassemble(w io.Writer, code *Code, hl Highlight) error {
	if hl == nil {
		hl = func(_ Part, text string) string { return text }
	}

	var order []*Code
	if err := code.Walk(func(c *Code) error {
		order = append(order, c)
		return nil
	}); err != nil {
		return err
	}

	for i := len(order) - 1; i >= 0; i-- {
		if err := disassembleOne(w, order[i], hl); err != nil {
			return err
		}
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
	}
	return nil
}

func disassembleOne(w io.Writer, c *Code, hl Highlight) error {
	name := c.Name
	if !isPlainName(name) {
		name = strconv.Quote(name)
	}
	if _, err := fmt.Fprintf(w, "%s %s(%s)\n", hl(PartKeyword, "code"), hl(PartName, name), signature(c)); err != nil {
		return err
	}

	for _, in := range c.Instructions {
		line := fmt.Sprintf("  %s %s", hl(PartOffset, fmt.Sprintf("%6d", in.Offset)), hl(PartOpcode, in.Op.String()))
		if in.Arg.Kind != ArgNone {
			pad := 24 - len(in.Op.String())
			if pad < 1 {
				pad = 1
			}
			line += strings.Repeat(" ", pad) + hl(PartOperand, in.Arg.String())
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintln(w, hl(PartKeyword, "end"))
	return err
}

func signature(c *Code) string {
	if c.ParamCount() > len(c.VarNames) {
		return "?"
	}
	quote := func(s string) string {
		if isPlainName(s) {
			return s
		}
		return strconv.Quote(s)
	}

	var params []string
	for _, p := range c.PositionalNames() {
		params = append(params, quote(p))
	}
	if name, ok := c.VarArgsName(); ok {
		params = append(params, "*"+quote(name))
	} else if c.KwOnlyArgCount > 0 {
		params = append(params, "*")
	}
	for _, p := range c.KwOnlyNames() {
		params = append(params, quote(p))
	}
	if name, ok := c.VarKeywordsName(); ok {
		params = append(params, "**"+quote(name))
	}
	return strings.Join(params, ", ")
}
