// Package asm implements the textual assembler spec.md §6 treats as an
// external collaborator: a two-pass parser (label collection, then decode)
// that turns MIPS-like mnemonic source into the []*isa.Instruction records
// internal/engine consumes.
package asm

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/maemo32/tomasim/internal/errs"
	"github.com/maemo32/tomasim/internal/isa"
)

var mnemonics = map[string]isa.Op{
	"ADDI":  isa.ADDI,
	"SUBI":  isa.SUBI,
	"ADD.S": isa.ADD_S,
	"ADD.D": isa.ADD_D,
	"SUB.S": isa.SUB_S,
	"SUB.D": isa.SUB_D,
	"MUL.S": isa.MUL_S,
	"MUL.D": isa.MUL_D,
	"DIV.S": isa.DIV_S,
	"DIV.D": isa.DIV_D,
	"LW":    isa.LW,
	"LD":    isa.LD,
	"L.S":   isa.L_S,
	"L.D":   isa.L_D,
	"SW":    isa.SW,
	"SD":    isa.SD,
	"S.S":   isa.S_S,
	"S.D":   isa.S_D,
	"BEQ":   isa.BEQ,
	"BNE":   isa.BNE,
}

// stripComment removes a trailing "#" or "//" comment from a source line.
func stripComment(line string) string {
	if i := strings.Index(line, "#"); i >= 0 {
		line = line[:i]
	}
	if i := strings.Index(line, "//"); i >= 0 {
		line = line[:i]
	}
	return line
}

// rawLine is one non-blank, comment-stripped source line, with any leading
// label already split off.
type rawLine struct {
	lineNo int
	label  string // "" if none
	text   string // remaining mnemonic+operands, possibly empty (label-only line)
}

func splitLines(src string) []rawLine {
	var out []rawLine
	sc := bufio.NewScanner(strings.NewReader(src))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(stripComment(sc.Text()))
		if line == "" {
			continue
		}
		label := ""
		if i := strings.Index(line, ":"); i >= 0 {
			label = strings.TrimSpace(line[:i])
			line = strings.TrimSpace(line[i+1:])
		}
		if label == "" && line == "" {
			continue
		}
		out = append(out, rawLine{lineNo: lineNo, label: label, text: line})
	}
	return out
}

// Assemble runs the two-pass assembly of src: pass one collects label ->
// instruction-index bindings (a label-only line binds to the next
// instruction-bearing line); pass two decodes every instruction-bearing
// line, resolving branch targets to absolute instruction indices. Any
// unknown mnemonic, malformed operand list, out-of-range register, or
// reference to an undefined label fails with BadProgram.
func Assemble(src string) ([]*isa.Instruction, error) {
	lines := splitLines(src)

	labels := make(map[string]int)
	instrIdx := 0
	for _, l := range lines {
		if l.label != "" {
			if _, dup := labels[l.label]; dup {
				return nil, errs.BadProgramf("asm.Assemble", "line %d: duplicate label %q", l.lineNo, l.label)
			}
			labels[l.label] = instrIdx
		}
		if l.text != "" {
			instrIdx++
		}
	}

	var program []*isa.Instruction
	for _, l := range lines {
		if l.text == "" {
			continue
		}
		inst, err := decodeLine(l.lineNo, l.text, labels)
		if err != nil {
			return nil, err
		}
		program = append(program, inst)
	}
	return program, nil
}

func decodeLine(lineNo int, text string, labels map[string]int) (*isa.Instruction, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil, errs.BadProgramf("asm.Assemble", "line %d: empty instruction", lineNo)
	}
	mnem := strings.ToUpper(fields[0])
	op, ok := mnemonics[mnem]
	if !ok {
		return nil, errs.BadProgramf("asm.Assemble", "line %d: unknown mnemonic %q", lineNo, fields[0])
	}
	operandStr := strings.Join(fields[1:], " ")
	operands := splitOperands(operandStr)

	switch isa.ClassOf(op) {
	case isa.ClassIntALU:
		if isa.IsBranch(op) {
			return decodeBranch(lineNo, op, operands, labels)
		}
		return decodeIntImm(lineNo, op, operands)
	case isa.ClassFPAdd, isa.ClassFPMul:
		return decodeFPReg(lineNo, op, operands)
	case isa.ClassLoad:
		return decodeLoad(lineNo, op, operands)
	case isa.ClassStore:
		return decodeStore(lineNo, op, operands)
	default:
		return nil, errs.BadProgramf("asm.Assemble", "line %d: unhandled opcode class for %q", lineNo, mnem)
	}
}

func splitOperands(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseReg(lineNo int, tok, want string) (int, error) {
	prefix := tok[:1]
	if len(tok) < 2 || !strings.EqualFold(prefix, want) {
		return 0, errs.BadProgramf("asm.Assemble", "line %d: expected %s-register, got %q", lineNo, want, tok)
	}
	n, err := strconv.Atoi(tok[1:])
	if err != nil || n < 0 || n >= 32 {
		return 0, errs.BadProgramf("asm.Assemble", "line %d: bad register index %q", lineNo, tok)
	}
	return n, nil
}

func decodeIntImm(lineNo int, op isa.Op, operands []string) (*isa.Instruction, error) {
	if len(operands) != 3 {
		return nil, errs.BadProgramf("asm.Assemble", "line %d: %s wants Rd, Rs, imm", lineNo, op)
	}
	dest, err := parseReg(lineNo, operands[0], "R")
	if err != nil {
		return nil, err
	}
	src1, err := parseReg(lineNo, operands[1], "R")
	if err != nil {
		return nil, err
	}
	imm, err := strconv.ParseInt(operands[2], 10, 64)
	if err != nil {
		return nil, errs.BadProgramf("asm.Assemble", "line %d: bad immediate %q", lineNo, operands[2])
	}
	return isa.New(op, dest, src1, 0, imm, false), nil
}

func decodeFPReg(lineNo int, op isa.Op, operands []string) (*isa.Instruction, error) {
	if len(operands) != 3 {
		return nil, errs.BadProgramf("asm.Assemble", "line %d: %s wants Fd, Fs, Ft", lineNo, op)
	}
	dest, err := parseReg(lineNo, operands[0], "F")
	if err != nil {
		return nil, err
	}
	src1, err := parseReg(lineNo, operands[1], "F")
	if err != nil {
		return nil, err
	}
	src2, err := parseReg(lineNo, operands[2], "F")
	if err != nil {
		return nil, err
	}
	return isa.New(op, dest, src1, src2, 0, false), nil
}

func decodeBranch(lineNo int, op isa.Op, operands []string, labels map[string]int) (*isa.Instruction, error) {
	if len(operands) != 3 {
		return nil, errs.BadProgramf("asm.Assemble", "line %d: %s wants Rs, Rt, label", lineNo, op)
	}
	src1, err := parseReg(lineNo, operands[0], "R")
	if err != nil {
		return nil, err
	}
	src2, err := parseReg(lineNo, operands[1], "R")
	if err != nil {
		return nil, err
	}
	target, ok := labels[operands[2]]
	if !ok {
		return nil, errs.BadProgramf("asm.Assemble", "line %d: undefined label %q", lineNo, operands[2])
	}
	return isa.New(op, 0, src1, src2, int64(target), false), nil
}

// memOperand parses "Rd|Fd, offset(Rs)" into its destination/value register,
// whether it is FP, the byte offset, and the base register.
func memOperand(lineNo int, operands []string) (reg int, isFP bool, offset int64, base int, err error) {
	if len(operands) != 2 {
		err = errs.BadProgramf("asm.Assemble", "line %d: wants Rd|Fd, offset(Rs)", lineNo)
		return
	}
	regTok := operands[0]
	switch strings.ToUpper(regTok[:1]) {
	case "R":
		isFP = false
	case "F":
		isFP = true
	default:
		err = errs.BadProgramf("asm.Assemble", "line %d: bad register operand %q", lineNo, regTok)
		return
	}
	reg, err = parseReg(lineNo, regTok, regTok[:1])
	if err != nil {
		return
	}

	memTok := operands[1]
	open := strings.Index(memTok, "(")
	shut := strings.Index(memTok, ")")
	if open < 0 || shut < open {
		err = errs.BadProgramf("asm.Assemble", "line %d: bad memory operand %q", lineNo, memTok)
		return
	}
	offset, perr := strconv.ParseInt(strings.TrimSpace(memTok[:open]), 10, 64)
	if perr != nil {
		err = errs.BadProgramf("asm.Assemble", "line %d: bad offset %q", lineNo, memTok[:open])
		return
	}
	base, err = parseReg(lineNo, strings.TrimSpace(memTok[open+1:shut]), "R")
	return reg, isFP, offset, base, err
}

func decodeLoad(lineNo int, op isa.Op, operands []string) (*isa.Instruction, error) {
	dest, isFP, offset, base, err := memOperand(lineNo, operands)
	if err != nil {
		return nil, err
	}
	return isa.New(op, dest, base, 0, offset, isFP), nil
}

func decodeStore(lineNo int, op isa.Op, operands []string) (*isa.Instruction, error) {
	valueReg, isFP, offset, base, err := memOperand(lineNo, operands)
	if err != nil {
		return nil, err
	}
	return isa.New(op, 0, base, valueReg, offset, isFP), nil
}
