package frontend

import (
	"testing"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/cindexd/cindex/internal/indexfile"
)

func TestLanguageForPath(t *testing.T) {
	cases := map[string]indexfile.Language{
		"foo.c":   indexfile.LangC,
		"foo.cpp": indexfile.LangCpp,
		"foo.hpp": indexfile.LangCpp,
		"foo.h":   indexfile.LangCpp,
		"foo.m":   indexfile.LangObjC,
		"foo.mm":  indexfile.LangObjC,
		"foo.txt": indexfile.LangUnknown,
	}
	for path, want := range cases {
		if got := LanguageForPath(path); got != want {
			t.Errorf("LanguageForPath(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestParseCpp(t *testing.T) {
	fe := NewTreeSitterFrontend()
	source := []byte(`#include "foo.h"

class Widget {
 public:
  Widget();
  int Value();

 private:
  int value_;
};
`)
	tu, err := fe.Parse("widget.cpp", nil, source)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	defer tu.Close()

	if tu.Language != indexfile.LangCpp {
		t.Errorf("Language = %v, want LangCpp", tu.Language)
	}
	if len(tu.Includes) != 1 || tu.Includes[0].ResolvedPath != "foo.h" {
		t.Errorf("Includes = %v, want one entry for foo.h", tu.Includes)
	}

	var classCount int
	Walk(tu.Tree.RootNode(), func(n *tree_sitter.Node) bool {
		if n.Kind() == "class_specifier" {
			classCount++
		}
		return true
	})
	if classCount != 1 {
		t.Errorf("expected 1 class_specifier, got %d", classCount)
	}
}

func TestParseSyntaxError(t *testing.T) {
	fe := NewTreeSitterFrontend()
	tu, err := fe.Parse("bad.c", nil, []byte("int main( {"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	defer tu.Close()
	if len(tu.Diagnostics) == 0 {
		t.Error("expected at least one diagnostic for malformed source")
	}
}
