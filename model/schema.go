package model

import (
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

// modelSchema constrains a declaration document before it is decoded.
// Definitions are closed, so unknown keys are rejected.
const modelSchema = `
#Ident: =~"^[A-Za-z_][A-Za-z0-9_]*$"

#Var: {
	name: #Ident
	type: string & !=""
}

#Method: {
	name:      #Ident
	returns?:  string & !=""
	param?: [...#Var]
	abstract?: bool
	final?:    bool
	exposure?: "public" | "parcel" | "private"
}

#Class: {
	name:        =~"^[A-Z][A-Za-z0-9_]*(::[A-Z][A-Za-z0-9_]*)*$"
	nickname?:   =~"^[A-Za-z][A-Za-z0-9_]*$"
	parent?:     string
	attributes?: [...#Ident]
	inert?:      bool
	final?:      bool
	member?: [...#Var]
	method?: [...#Method]
}

#Model: {
	parcel: {
		name:    =~"^[A-Z][A-Za-z0-9_]*$"
		prefix?: =~"^[A-Za-z][A-Za-z0-9]*_$"
	}
	path?:     string & !=""
	included?: bool
	class?: [...#Class]
}
`

// A cue.Context is not safe for concurrent use.
type schema struct {
	mu    sync.Mutex
	once  sync.Once
	ctx   *cue.Context
	model cue.Value
	err   error
}

var compiled schema

func (s *schema) load() {
	s.ctx = cuecontext.New()
	v := s.ctx.CompileString(modelSchema, cue.Filename("model.cue"))
	if err := v.Err(); err != nil {
		s.err = fmt.Errorf("compiling model schema: %w", err)
		return
	}
	s.model = v.LookupPath(cue.ParsePath("#Model"))
	if err := s.model.Err(); err != nil {
		s.err = fmt.Errorf("looking up #Model: %w", err)
	}
}

// validateDocument checks a generically decoded document against #Model.
func validateDocument(doc map[string]any) error {
	compiled.once.Do(compiled.load)
	if compiled.err != nil {
		return compiled.err
	}
	compiled.mu.Lock()
	defer compiled.mu.Unlock()
	v := compiled.ctx.Encode(doc)
	if err := v.Err(); err != nil {
		return err
	}
	unified := compiled.model.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%s", cueerrors.Details(err, nil))
	}
	return nil
}
