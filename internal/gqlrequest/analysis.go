package gqlrequest

import (
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
	"github.com/graphql-go/graphql/language/source"
)

// BatchedField is the field resolved through the per-request batch loader.
const BatchedField = "player_gameweek_data"

// Analysis is what the server learns about a GraphQL request before
// executing it: the selected operation, its shape and a stable hash.
type Analysis struct {
	Envelope               Envelope
	RequestedOperationName string

	Operation *ast.OperationDefinition

	OperationName string
	OperationType string

	// RootFields lists the top-level fields selected, in document order.
	RootFields     []string
	FieldCount     int
	SelectionDepth int
	VariableCount  int
	// BatchedFields counts selections of BatchedField, including those
	// reached through fragments.
	BatchedFields int

	OperationHash string

	DecodeError    error
	ParseError     error
	SelectionError error
}

// AnalyzeRequest decodes and analyzes a GraphQL request payload.
func AnalyzeRequest(r *http.Request) *Analysis {
	envelope, err := DecodeEnvelope(r)
	analysis := AnalyzeEnvelope(envelope)
	analysis.DecodeError = err
	return analysis
}

// AnalyzeEnvelope parses env and measures the operation it selects. Parse and
// selection failures are recorded, not returned; the executor reports them
// to the client.
func AnalyzeEnvelope(env Envelope) *Analysis {
	analysis := &Analysis{
		Envelope:               env,
		RequestedOperationName: env.OperationName,
	}
	if strings.TrimSpace(env.Query) == "" {
		return analysis
	}

	doc, err := parser.Parse(parser.ParseParams{
		Source: source.NewSource(&source.Source{Body: []byte(env.Query), Name: "graphql"}),
	})
	if err != nil {
		analysis.ParseError = err
		return analysis
	}

	op, fragments, err := pickOperation(doc, env.OperationName)
	if err != nil {
		analysis.SelectionError = err
		return analysis
	}

	analysis.Operation = op
	analysis.OperationName = operationName(op)
	analysis.OperationType = string(op.Operation)
	analysis.VariableCount = len(op.VariableDefinitions)

	w := &walker{fragments: fragments, expanded: map[string]bool{}}
	for _, sel := range op.SelectionSet.Selections {
		if f, ok := sel.(*ast.Field); ok && f.Name != nil {
			analysis.RootFields = append(analysis.RootFields, f.Name.Value)
		}
	}
	analysis.SelectionDepth = w.walk(op.SelectionSet, 1)
	analysis.FieldCount = w.fields
	analysis.BatchedFields = w.batched
	analysis.OperationHash = hashOperation(op, w.spreadFragments())

	return analysis
}

// pickOperation returns the operation to execute and the document's
// fragments by name.
func pickOperation(doc *ast.Document, name string) (*ast.OperationDefinition, map[string]*ast.FragmentDefinition, error) {
	var ops []*ast.OperationDefinition
	fragments := map[string]*ast.FragmentDefinition{}
	for _, def := range doc.Definitions {
		switch d := def.(type) {
		case *ast.OperationDefinition:
			ops = append(ops, d)
		case *ast.FragmentDefinition:
			if d.Name != nil && d.Name.Value != "" {
				fragments[d.Name.Value] = d
			}
		}
	}

	switch {
	case name != "":
		for _, op := range ops {
			if op.Name != nil && op.Name.Value == name {
				return op, fragments, nil
			}
		}
		return nil, nil, errors.Newf("unknown operation named %q", name)
	case len(ops) == 1:
		return ops[0], fragments, nil
	case len(ops) == 0:
		return nil, nil, errors.New("request does not include an operation")
	default:
		return nil, nil, errors.New("operationName is required when request has multiple operations")
	}
}

// walker measures a selection set. Each fragment is expanded at most once
// per operation, which also makes cyclic spreads terminate.
type walker struct {
	fragments map[string]*ast.FragmentDefinition
	expanded  map[string]bool
	order     []string

	fields  int
	batched int
}

// walk returns the deepest field level reached below set, where set's own
// fields are at depth.
func (w *walker) walk(set *ast.SelectionSet, depth int) int {
	if set == nil {
		return depth - 1
	}
	deepest := depth
	for _, sel := range set.Selections {
		var reached int
		switch s := sel.(type) {
		case *ast.Field:
			w.fields++
			if s.Name != nil && s.Name.Value == BatchedField {
				w.batched++
			}
			if s.SelectionSet == nil {
				continue
			}
			reached = w.walk(s.SelectionSet, depth+1)
		case *ast.InlineFragment:
			reached = w.walk(s.SelectionSet, depth)
		case *ast.FragmentSpread:
			if s.Name == nil || w.expanded[s.Name.Value] {
				continue
			}
			name := s.Name.Value
			w.expanded[name] = true
			frag, ok := w.fragments[name]
			if !ok {
				continue
			}
			w.order = append(w.order, name)
			reached = w.walk(frag.SelectionSet, depth)
		}
		deepest = max(deepest, reached)
	}
	return deepest
}

func (w *walker) spreadFragments() []*ast.FragmentDefinition {
	out := make([]*ast.FragmentDefinition, 0, len(w.order))
	for _, name := range w.order {
		out = append(out, w.fragments[name])
	}
	return out
}
