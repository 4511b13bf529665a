package entities

// LearningPathEntry is one position in a derived learning path.
type LearningPathEntry struct {
	TermID       string   `json:"term_id"`
	Order        int      `json:"order"`
	Dependencies []string `json:"dependencies"`
	IsLearned    bool     `json:"is_learned"`
}

// DiagramNode is a term rendered in a diagram.
type DiagramNode struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Status    TermStatus `json:"status"`
	Essential bool       `json:"essential"`
}

// DiagramEdge is a relationship rendered in a diagram.
type DiagramEdge struct {
	ID          string       `json:"id"`
	Source      string       `json:"source"`
	Target      string       `json:"target"`
	Type        RelationType `json:"type"`
	Description string       `json:"description,omitempty"`
}

// Diagram is a flat node/edge view of a set of terms.
type Diagram struct {
	Nodes []DiagramNode `json:"nodes"`
	Edges []DiagramEdge `json:"edges"`
}
