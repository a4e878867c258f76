package eval

import (
	"fmt"
	"strings"
)

// Disassemble lists the steps of a program, main first.
func Disassemble(p *Program, name string) string {
	var sb strings.Builder
	disassembleCode(&sb, name, p.Main)
	for i, sub := range p.Subexpressions {
		disassembleCode(&sb, fmt.Sprintf("%s/sub%d", name, i), sub)
	}
	if p.SlotCount > 0 {
		sb.WriteString(fmt.Sprintf("slots: %d\n", p.SlotCount))
	}
	return sb.String()
}

func disassembleCode(sb *strings.Builder, name string, code []Step) {
	sb.WriteString(fmt.Sprintf("== %s ==\n", name))
	for pc, step := range code {
		sb.WriteString(fmt.Sprintf("%04d %s", pc, step))
		if target, ok := jumpTarget(pc, step); ok {
			sb.WriteString(fmt.Sprintf(" -> %04d", target))
		}
		sb.WriteByte('\n')
	}
}

// jumpTarget reports where the principal jump of a step lands.
func jumpTarget(pc int, step Step) (int, bool) {
	var offset int
	switch s := step.(type) {
	case *JumpStep:
		offset = s.Offset
	case *BoolCheckJumpStep:
		offset = s.Offset
	case *TernaryJumpStep:
		offset = s.ElseOffset
	case *ComprehensionInitStep:
		offset = s.ResultOffset
	case *ComprehensionCondStep:
		offset = s.ResultOffset
	case *ComprehensionNextStep:
		offset = s.CondOffset
	case *CheckLazyInitStep:
		offset = 1
	default:
		return 0, false
	}
	return pc + 1 + offset, true
}
