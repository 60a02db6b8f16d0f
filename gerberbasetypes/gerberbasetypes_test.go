package gerberbasetypes

import "testing"

func TestUnits_ToMM(t *testing.T) {
	if UnitsInch.ToMM() != InchesToMM {
		t.Fatal("inch scale must be", InchesToMM)
	}
	if UnitsMM.ToMM() != 1.0 {
		t.Fatal("mm scale must be 1.0")
	}
	var undeclared Units
	if undeclared.String() != "unknown units" {
		t.Error("unexpected name of undeclared units:", undeclared.String())
	}
}

func TestParseUnits(t *testing.T) {
	var td = []struct {
		input  string
		answer Units
		ok     bool
	}{
		{"mm", UnitsMM, true},
		{"MM", UnitsMM, true},
		{"inch", UnitsInch, true},
		{"in", UnitsInch, true},
		{"furlong", 0, false},
	}
	for _, d := range td {
		u, ok := ParseUnits(d.input)
		if ok != d.ok || u != d.answer {
			t.Error("ParseUnits(" + d.input + ") returned " + u.String())
		}
	}
}

func TestGerberApType_IsSupported(t *testing.T) {
	for _, at := range []GerberApType{AptypeCircle, AptypeRectangle, AptypeObround, AptypePoly} {
		if !at.IsSupported() {
			t.Error(at.String(), "must be supported")
		}
	}
	for _, at := range []GerberApType{AptypeMacro, AptypeBlock, GerberApType(0)} {
		if at.IsSupported() {
			t.Error(at.String(), "must not be supported")
		}
	}
}
