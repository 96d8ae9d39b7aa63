package ir

import "github.com/segmentio/ksuid"

// Comment attaches a free-text annotation to a specific instruction
// index, used by the builder and mutators to record why a fragment was
// introduced without affecting semantics.
type Comment struct {
	Index int
	Text  string
}

// Program wraps a validated Code with the identity and ancestry the
// rest of the fuzzer tracks it by: a stable id for corpus bookkeeping
// and crash reports, an optional parent (the program it was derived
// from by mutation or splicing), and the names of the code generators
// that contributed instructions to it.
type Program struct {
	id           ksuid.KSUID
	code         Code
	parent       *Program
	comments     []Comment
	contributors map[string]bool
}

// NewProgram validates code and wraps it with a freshly minted id. The
// returned error is a *ValidationError from Code.StaticValidate.
func NewProgram(code Code, parent *Program) (*Program, error) {
	if err := code.StaticValidate(); err != nil {
		return nil, err
	}
	return &Program{
		id:           ksuid.New(),
		code:         code,
		parent:       parent,
		contributors: map[string]bool{},
	}, nil
}

func (p *Program) ID() ksuid.KSUID { return p.id }
func (p *Program) Code() Code      { return p.code }
func (p *Program) Parent() *Program { return p.parent }
func (p *Program) Size() int       { return len(p.code) }

func (p *Program) Comments() []Comment { return p.comments }

func (p *Program) AddComment(index int, text string) {
	p.comments = append(p.comments, Comment{Index: index, Text: text})
}

func (p *Program) AddContributor(generatorName string) {
	p.contributors[generatorName] = true
}

func (p *Program) Contributors() []string {
	names := make([]string, 0, len(p.contributors))
	for name := range p.contributors {
		names = append(names, name)
	}
	return names
}

// Ancestors walks the parent chain from the immediate parent to the
// original root program.
func (p *Program) Ancestors() []*Program {
	var chain []*Program
	for cur := p.parent; cur != nil; cur = cur.parent {
		chain = append(chain, cur)
	}
	return chain
}

// IsRoot reports whether this program has no recorded parent, i.e. it
// was seeded rather than derived by mutation or splicing.
func (p *Program) IsRoot() bool { return p.parent == nil }
