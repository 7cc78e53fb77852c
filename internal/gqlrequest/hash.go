package gqlrequest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"

	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/printer"
)

const anonymousOperationName = "<anonymous>"

func operationName(op *ast.OperationDefinition) string {
	if op.Name == nil || op.Name.Value == "" {
		return anonymousOperationName
	}
	return op.Name.Value
}

// hashOperation identifies an operation independently of formatting,
// comments and unrelated definitions in the same document. Fragments are
// printed in name order.
func hashOperation(op *ast.OperationDefinition, fragments []*ast.FragmentDefinition) string {
	sorted := slices.Clone(fragments)
	slices.SortFunc(sorted, func(a, b *ast.FragmentDefinition) int {
		return strings.Compare(a.Name.Value, b.Name.Value)
	})

	defs := make([]ast.Node, 0, len(sorted)+1)
	defs = append(defs, op)
	for _, f := range sorted {
		defs = append(defs, f)
	}
	printed, _ := printer.Print(ast.NewDocument(&ast.Document{Definitions: defs})).(string)

	return digest(operationName(op), printed)
}

// digest hashes length-prefixed parts so ("ab","c") and ("a","bc") differ.
func digest(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		fmt.Fprintf(h, "%d:%s;", len(p), p)
	}
	return hex.EncodeToString(h.Sum(nil))
}
