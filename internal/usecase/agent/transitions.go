package agent

import (
	"fmt"
	"slices"

	"github.com/futig/workspace-agent/internal/entity"
)

// Transitions lists the legal successors of every non-terminal node.
var Transitions = map[Node][]Node{
	NodePlanner:        {NodeRetrieve, NodeSimpleAnswer, NodeAnalyzeData},
	NodeRetrieve:       {NodeExtract, NodeGenerateAnswer, NodeTerminal},
	NodeExtract:        {NodeDraft, NodeTerminal},
	NodeDraft:          {NodeFinalize, NodeTerminal},
	NodeAnalyzeData:    {NodeTerminal},
	NodeSimpleAnswer:   {NodeTerminal},
	NodeGenerateAnswer: {NodeTerminal},
	NodeFinalize:       {NodeTerminal},
}

// ValidateTransitions checks that every non-terminal node has an entry and
// that only known nodes appear in the table.
func ValidateTransitions(table map[Node][]Node) error {
	for n := range knownNodes {
		if n == NodeTerminal {
			continue
		}
		if _, ok := table[n]; !ok {
			return fmt.Errorf("%w: no successors for %s", entity.ErrInvalidTransition, n)
		}
	}

	for from, successors := range table {
		if !from.Valid() || from == NodeTerminal {
			return fmt.Errorf("%w: %s", entity.ErrUnknownNode, from)
		}
		if len(successors) == 0 {
			return fmt.Errorf("%w: empty successors for %s", entity.ErrInvalidTransition, from)
		}
		for _, to := range successors {
			if !to.Valid() {
				return fmt.Errorf("%w: %s -> %s", entity.ErrUnknownNode, from, to)
			}
		}
	}

	return nil
}

func allowed(table map[Node][]Node, from, to Node) bool {
	return slices.Contains(table[from], to)
}
