package decl

import (
	"go/scanner"
	"go/token"
	"sort"
	"strings"

	"github.com/mark3labs/autoroute/internal/diag"
)

// Fragment is one directive line with the position of its first character.
type Fragment struct {
	Text string
	Pos  token.Position
}

// Source is directive text joined from fragments. Offsets into Text map
// back to positions in the original file.
type Source struct {
	Text   string
	starts []int
	frags  []Fragment
}

// NewSource joins fragments with newlines.
func NewSource(frags ...Fragment) *Source {
	var b strings.Builder
	s := &Source{frags: frags}
	for i, f := range frags {
		if i > 0 {
			b.WriteByte('\n')
		}
		s.starts = append(s.starts, b.Len())
		b.WriteString(f.Text)
	}
	s.Text = b.String()
	return s
}

// SourceString wraps plain text anchored at pos.
func SourceString(text string, pos token.Position) *Source {
	return NewSource(Fragment{Text: text, Pos: pos})
}

// Pos maps an offset in Text to a file position.
func (s *Source) Pos(off int) token.Position {
	if len(s.frags) == 0 {
		return token.Position{}
	}
	i := sort.SearchInts(s.starts, off+1) - 1
	if i < 0 {
		i = 0
	}
	base := s.frags[i].Pos
	base.Offset += off - s.starts[i]
	base.Column += off - s.starts[i]
	return base
}

type tok struct {
	tok token.Token
	lit string
	off int
}

func (t tok) String() string {
	if t.lit != "" {
		return t.lit
	}
	return t.tok.String()
}

// lex splits the text into Go tokens, dropping automatic semicolons.
func (s *Source) lex() ([]tok, error) {
	fset := token.NewFileSet()
	file := fset.AddFile("", -1, len(s.Text))
	var sc scanner.Scanner
	var first *diag.Error
	sc.Init(file, []byte(s.Text), func(pos token.Position, msg string) {
		if first == nil {
			first = diag.Errorf(s.Pos(pos.Offset), diag.Grammar, "%s", msg)
		}
	}, 0)
	var toks []tok
	for {
		pos, t, lit := sc.Scan()
		if first != nil {
			return nil, first
		}
		off := file.Offset(pos)
		if t == token.SEMICOLON && lit == "\n" {
			continue
		}
		if t == token.EOF {
			toks = append(toks, tok{tok: token.EOF, off: len(s.Text)})
			return toks, nil
		}
		toks = append(toks, tok{tok: t, lit: lit, off: off})
	}
}
