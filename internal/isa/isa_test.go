package isa

import "testing"

func TestClassOfCoversEveryOpcode(t *testing.T) {
	cases := []struct {
		op   Op
		want Class
	}{
		{ADDI, ClassIntALU}, {SUBI, ClassIntALU}, {BEQ, ClassIntALU}, {BNE, ClassIntALU},
		{ADD_S, ClassFPAdd}, {ADD_D, ClassFPAdd}, {SUB_S, ClassFPAdd}, {SUB_D, ClassFPAdd},
		{MUL_S, ClassFPMul}, {MUL_D, ClassFPMul}, {DIV_S, ClassFPMul}, {DIV_D, ClassFPMul},
		{LW, ClassLoad}, {LD, ClassLoad}, {L_S, ClassLoad}, {L_D, ClassLoad},
		{SW, ClassStore}, {SD, ClassStore}, {S_S, ClassStore}, {S_D, ClassStore},
	}
	for _, c := range cases {
		if got := ClassOf(c.op); got != c.want {
			t.Errorf("ClassOf(%s) = %v, want %v", c.op, got, c.want)
		}
	}
}

func TestIsDoubleDistinguishesWordFromDouble(t *testing.T) {
	if IsDouble(LW) || IsDouble(L_S) || IsDouble(SW) || IsDouble(S_S) {
		t.Error("word-sized opcodes must not report IsDouble")
	}
	if !IsDouble(LD) || !IsDouble(L_D) || !IsDouble(SD) || !IsDouble(S_D) {
		t.Error("double-sized opcodes must report IsDouble")
	}
}

func TestIsDivOnlyDivideOps(t *testing.T) {
	if !IsDiv(DIV_S) || !IsDiv(DIV_D) {
		t.Error("DIV_S/DIV_D must report IsDiv")
	}
	if IsDiv(MUL_S) || IsDiv(ADD_S) {
		t.Error("non-divide opcodes must not report IsDiv")
	}
}

func TestNewStampsAllUnset(t *testing.T) {
	s := NewStamps()
	if s.Issue != Unset || s.ExecStart != Unset || s.ExecEnd != Unset || s.WriteBack != Unset {
		t.Errorf("NewStamps() = %+v, want all fields Unset", s)
	}
}

func TestStringRendersMnemonic(t *testing.T) {
	if got := ADD_S.String(); got != "ADD.S" {
		t.Errorf("ADD_S.String() = %q, want %q", got, "ADD.S")
	}
}
