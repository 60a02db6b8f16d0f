package diag

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"testing"
)

func TestMain(m *testing.M) {
	flag.Set("stderrthreshold", "ERROR")
	flag.Set("logtostderr", "true")
	flag.Parse()
	os.Exit(m.Run())
}

func TestClassify(t *testing.T) {
	var td = []struct {
		input  error
		answer Kind
	}{
		{nil, KindUnknown},
		{errors.New("plain"), KindUnknown},
		{NewError(KindFormat, 3, "no FS"), KindFormat},
		{fmt.Errorf("import: %w", NewError(KindSizeLimit, 0, "too big")), KindSizeLimit},
		{fmt.Errorf("wrapped: %w", ErrArcConsistency), KindArcConsistency},
		{context.Canceled, KindCanceled},
	}
	for _, d := range td {
		if res := Classify(d.input); res != d.answer {
			t.Error(d.input, "->", res, "expected", d.answer)
		}
	}
}

func TestError(t *testing.T) {
	err := NewError(KindFormat, 12, "coordinate before %s", "FS")
	if !errors.Is(err, ErrFormat) {
		t.Fatal("error must match its sentinel")
	}
	if errors.Is(err, ErrSizeLimit) {
		t.Fatal("error must not match another sentinel")
	}
	if err.Error() != "FormatError at line 12: coordinate before FS" {
		t.Fatal("bad message:", err.Error())
	}
	if !KindFormat.Fatal() || !KindSizeLimit.Fatal() || KindUndefinedAperture.Fatal() {
		t.Fatal("bad fatal classification")
	}
}

func TestLog(t *testing.T) {
	log := NewLog()
	log.Add(KindUndefinedAperture, 5, "D%d is not defined", 11)
	log.Add(KindSyntax, 6, "unknown command")
	log.Add(KindUndefinedAperture, 9, "D%d is not defined", 11)
	if log.Len() != 3 || log.Count(KindUndefinedAperture) != 2 || log.Count(KindArcConsistency) != 0 {
		t.Fatal("bad counters")
	}
	w := log.Warnings()
	if w[0].Line != 5 || w[1].Kind != KindSyntax || w[2].Message != "D11 is not defined" {
		t.Fatalf("bad warnings %v", w)
	}
	w[0].Line = 100
	if log.Warnings()[0].Line != 5 {
		t.Fatal("Warnings must return a copy")
	}
	t.Log(w[1].String())
}
