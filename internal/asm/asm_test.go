package asm

import (
	"testing"

	"github.com/maemo32/tomasim/internal/isa"
)

func TestAssembleIntegerChain(t *testing.T) {
	prog, err := Assemble("ADDI R1, R0, 24\nSUBI R1, R1, 8\n")
	if err != nil {
		t.Fatal(err)
	}
	if len(prog) != 2 {
		t.Fatalf("len(prog) = %d, want 2", len(prog))
	}
	if prog[0].Op != isa.ADDI || prog[0].Dest != 1 || prog[0].Src1 != 0 || prog[0].Imm != 24 {
		t.Errorf("prog[0] = %+v, want ADDI R1,R0,24", prog[0])
	}
	if prog[1].Op != isa.SUBI || prog[1].Dest != 1 || prog[1].Src1 != 1 || prog[1].Imm != 8 {
		t.Errorf("prog[1] = %+v, want SUBI R1,R1,8", prog[1])
	}
}

func TestAssembleLoopWithLabel(t *testing.T) {
	src := `
LOOP: SUBI R1, R1, 8 # decrement
BNE R1, R0, LOOP // branch back
`
	prog, err := Assemble(src)
	if err != nil {
		t.Fatal(err)
	}
	if len(prog) != 2 {
		t.Fatalf("len(prog) = %d, want 2", len(prog))
	}
	if prog[1].Op != isa.BNE || prog[1].Imm != 0 {
		t.Errorf("branch target = %d, want 0 (the LOOP label)", prog[1].Imm)
	}
}

func TestAssembleLoadStore(t *testing.T) {
	prog, err := Assemble("SD F0, 0(R0)\nLD F1, 0(R0)\n")
	if err != nil {
		t.Fatal(err)
	}
	if prog[0].Op != isa.SD || !prog[0].MemFP || prog[0].Src2 != 0 || prog[0].Src1 != 0 {
		t.Errorf("prog[0] = %+v, want SD F0,0(R0)", prog[0])
	}
	if prog[1].Op != isa.LD || !prog[1].MemFP || prog[1].Dest != 1 || prog[1].Src1 != 0 {
		t.Errorf("prog[1] = %+v, want LD F1,0(R0)", prog[1])
	}
}

func TestUnknownMnemonicFails(t *testing.T) {
	if _, err := Assemble("FOO R1, R0, 1\n"); err == nil {
		t.Fatal("expected error for unknown mnemonic")
	}
}

func TestUndefinedLabelFails(t *testing.T) {
	if _, err := Assemble("BEQ R0, R0, NOWHERE\n"); err == nil {
		t.Fatal("expected error for undefined label")
	}
}

func TestDuplicateLabelFails(t *testing.T) {
	src := "A: ADDI R1,R0,1\nA: ADDI R2,R0,2\n"
	if _, err := Assemble(src); err == nil {
		t.Fatal("expected error for duplicate label")
	}
}
