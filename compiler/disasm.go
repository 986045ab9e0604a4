package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Disassembler
// ---------------------------------------------------------------------------

// Instruction is one decoded opcode with its operand words.
type Instruction struct {
	IP       uint32
	Op       Opcode
	Operands []uint32
}

// Decode splits a code stream into instructions.
func Decode(code []uint32) ([]Instruction, error) {
	var out []Instruction
	var ip uint32
	for int(ip) < len(code) {
		op := Opcode(code[ip])
		info, ok := opcodeTable[op]
		if !ok {
			return out, fmt.Errorf("ip %d: unknown opcode 0x%02X", ip, code[ip])
		}
		n := uint32(info.Operands)
		if op == OpFuncDecl && int(ip+6) < len(code) {
			n += code[ip+6]
		}
		if int(ip+1+n) > len(code) {
			return out, fmt.Errorf("ip %d: %s truncated", ip, info.Name)
		}
		out = append(out, Instruction{IP: ip, Op: op, Operands: code[ip+1 : ip+1+n]})
		ip += 1 + n
	}
	return out, nil
}

// Disassemble renders a unit as one instruction per line.
func Disassemble(u *Unit) string {
	var b strings.Builder
	insts, err := Decode(u.Code)
	for _, in := range insts {
		fmt.Fprintf(&b, "%04d  %-22s", in.IP, in.Op)
		for i, w := range in.Operands {
			b.WriteByte(' ')
			b.WriteString(u.operandString(in.Op, i, w))
		}
		b.WriteByte('\n')
	}
	if err != nil {
		fmt.Fprintf(&b, "error: %v\n", err)
	}
	return b.String()
}

func (u *Unit) str(idx uint32) string {
	if idx == NoIdent {
		return "-"
	}
	if int(idx) >= len(u.Strings) {
		return fmt.Sprintf("<bad string %d>", idx)
	}
	return strconv.Quote(u.Strings[idx])
}

func (u *Unit) operandString(op Opcode, i int, w uint32) string {
	switch op {
	case OpLoadImmedStr, OpLoadImmedIdent, OpSetCurVar, OpSetCurVarCreate, OpSetCurField:
		return u.str(w)
	case OpLoadImmedFlt:
		if int(w) < len(u.Floats) {
			return FormatFloat(u.Floats[w])
		}
		return fmt.Sprintf("<bad float %d>", w)
	case OpLoadImmedUInt:
		return strconv.FormatInt(int64(int32(w)), 10)
	case OpAdvanceStrAppendChar:
		return strconv.QuoteRune(rune(w))
	case OpCallFunc:
		switch i {
		case 0, 1:
			return u.str(w)
		default:
			return [...]string{"call", "method", "parent"}[w%3]
		}
	case OpCreateObject:
		if i == 0 {
			return u.str(w)
		}
	case OpFuncDecl:
		switch {
		case i <= 2 || i >= 6:
			return u.str(w)
		case i == 3:
			return fmt.Sprintf("line=%d body=%d", w>>1, w&1)
		}
	}
	return strconv.FormatUint(uint64(w), 10)
}
