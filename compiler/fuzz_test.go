package compiler

import (
	"testing"

	"github.com/chazu/prima/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// FuzzLexer: ensure the lexer never panics or stalls on arbitrary input.
// ---------------------------------------------------------------------------

func FuzzLexer(f *testing.F) {
	seeds := []string{
		`invoke capability=8 security=7`,
		"invoke\ncomplete\n",
		"# comment only",
		"verify security=10 # trailing",
		`=`, `==`, `a=`, `=5`, `99999999999999999999999`,
		"\t\r\n", ``, `   `,
		`!@$%^&*()`, "\x00", "invoke\x00complete",
		`café`, `naïve=3`,
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, data string) {
		l := NewLexer(data)
		for i := 0; i < len(data)+2; i++ {
			if tok := l.NextToken(); tok.Type == TokenEOF {
				return
			}
		}
		t.Fatalf("lexer did not reach EOF on %q", data)
	})
}

// ---------------------------------------------------------------------------
// FuzzAssemble: assembly either fails with an *AssemblyError or produces
// bytecode that decodes back to the same operation count.
// ---------------------------------------------------------------------------

func FuzzAssemble(f *testing.F) {
	seeds := []string{
		"invoke capability=8 security=7\ncomplete\n",
		redemption,
		"frobnicate\n",
		"invoke wisdom=3\n",
		"invoke capability\n",
		"invoke capability=\n",
		"\n\n# nothing\n",
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, data string) {
		out, err := Assemble(data)
		if err != nil {
			if out != nil {
				t.Fatalf("Assemble returned bytes and an error for %q", data)
			}
			return
		}
		p, err := bytecode.Decode(out)
		if err != nil {
			t.Fatalf("Decode(Assemble(%q)): %v", data, err)
		}
		if len(p.Ops) == 0 || len(p.Edges) != len(p.Ops)-1 {
			t.Fatalf("%d ops, %d edges for %q", len(p.Ops), len(p.Edges), data)
		}
	})
}
