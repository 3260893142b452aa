package saurus

import (
	"fmt"
	"strings"

	"github.com/saurus-lang/saurus/ascii"
)

var opcodeNames = map[Opcode]string{
	OpNil:       "nil",
	OpPush:      "push",
	OpPop:       "pop",
	OpAdd:       "add",
	OpSub:       "sub",
	OpMul:       "mul",
	OpDiv:       "div",
	OpMod:       "mod",
	OpPow:       "pow",
	OpUnm:       "unm",
	OpEq:        "eq",
	OpLess:      "less",
	OpLequal:    "lequal",
	OpNot:       "not",
	OpAnd:       "and",
	OpOr:        "or",
	OpTest:      "test",
	OpFor:       "for",
	OpJmp:       "jmp",
	OpReturn:    "return",
	OpTCall:     "tcall",
	OpCall:      "call",
	OpLambda:    "lambda",
	OpGetGlobal: "getglobal",
	OpSetGlobal: "setglobal",
	OpShift:     "shift",
	OpLoad:      "load",
	OpLup:       "lup",
	OpLcl:       "lcl",
}

func opcodeName(op Opcode) string {
	if n, ok := opcodeNames[op]; ok {
		return n
	}
	return "?"
}

// Disassemble renders proto and every prototype nested in it as
// indented, line-numbered assembly text, in the spirit of the
// reference PrettyString disassembler.
func Disassemble(proto *Prototype) string {
	var b strings.Builder
	disassemble(&b, proto, 0)
	return b.String()
}

func disassemble(b *strings.Builder, proto *Prototype, depth int) {
	indent := strings.Repeat("  ", depth)
	name := proto.Name
	if name == "" {
		name = "<anonymous>"
	}
	fmt.Fprintf(b, "%s%s\n", indent, ascii.Color(ascii.DefaultTheme.Label, "%s", name))

	for i, ins := range proto.Instructions {
		op := ascii.Color(ascii.DefaultTheme.Operator, "%-10s", opcodeName(ins.Op))
		operand := operandString(proto, ins)
		fmt.Fprintf(b, "%s  %4d  %s%s\n", indent, i, op, operand)
	}

	for _, nested := range proto.Nested {
		disassemble(b, nested, depth+1)
	}
}

func operandString(proto *Prototype, ins Instruction) string {
	switch ins.Op {
	case OpPush, OpGetGlobal, OpSetGlobal:
		if int(ins.A) < len(proto.Constants) {
			return ascii.Color(ascii.DefaultTheme.Literal, "%s", proto.Constants[ins.A].String())
		}
	case OpLambda:
		if int(ins.A) < len(proto.Nested) {
			return ascii.Color(ascii.DefaultTheme.Comment, "proto#%d arity=%d", ins.A, ins.B)
		}
	case OpJmp, OpTest, OpFor:
		return ascii.Color(ascii.DefaultTheme.Span, "->%d", ins.B)
	case OpAnd, OpOr:
		return ascii.Color(ascii.DefaultTheme.Span, "%+d", ins.B)
	case OpLoad, OpLup, OpShift:
		return ascii.Color(ascii.DefaultTheme.Operand, "%d", ins.A)
	case OpCall, OpTCall:
		return ascii.Color(ascii.DefaultTheme.Operand, "argc=%d", ins.A)
	case OpPop:
		return ascii.Color(ascii.DefaultTheme.Operand, "n=%d", ins.A)
	case OpLcl:
		return ascii.Color(ascii.DefaultTheme.Operand, "%d", ins.B)
	}
	return ""
}
