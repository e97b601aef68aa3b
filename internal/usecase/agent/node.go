package agent

// Node identifies one step of a run.
type Node string

const (
	NodePlanner        Node = "planner"
	NodeSimpleAnswer   Node = "simpleAnswer"
	NodeAnalyzeData    Node = "analyzeData"
	NodeRetrieve       Node = "retrieve"
	NodeExtract        Node = "extract"
	NodeDraft          Node = "draft"
	NodeGenerateAnswer Node = "generateAnswer"
	NodeFinalize       Node = "finalize"
	NodeTerminal       Node = "terminal"
)

var knownNodes = map[Node]struct{}{
	NodePlanner:        {},
	NodeSimpleAnswer:   {},
	NodeAnalyzeData:    {},
	NodeRetrieve:       {},
	NodeExtract:        {},
	NodeDraft:          {},
	NodeGenerateAnswer: {},
	NodeFinalize:       {},
	NodeTerminal:       {},
}

func (n Node) Valid() bool {
	_, ok := knownNodes[n]
	return ok
}

func (n Node) String() string {
	return string(n)
}
