package session

// navNode is one arena entry of the navigation tree. Nodes are only
// ever appended; backtracking moves the current pointer, it never
// deletes, so every explored branch stays reachable.
type navNode struct {
	id       int
	label    string
	depth    int
	parentID int // -1 for the root
	round    int

	// frozen is the session state captured when this node became
	// current. Backtracking restores it verbatim.
	frozen sessionState
}

// navTree is an append-only arena of nodes indexed by id.
type navTree struct {
	nodes   []*navNode
	current int
}

// newNavTree creates a tree with its root node holding the initial state.
func newNavTree(label string, state sessionState) *navTree {
	root := &navNode{
		id:       0,
		label:    label,
		depth:    0,
		parentID: -1,
		round:    state.round,
		frozen:   state.clone(),
	}
	return &navTree{nodes: []*navNode{root}, current: 0}
}

// append adds a child of the current node, moves the pointer to it, and
// returns its id.
func (t *navTree) append(label string, state sessionState) int {
	parent := t.nodes[t.current]
	node := &navNode{
		id:       len(t.nodes),
		label:    label,
		depth:    parent.depth + 1,
		parentID: parent.id,
		round:    state.round,
		frozen:   state.clone(),
	}
	t.nodes = append(t.nodes, node)
	t.current = node.id
	return node.id
}

// node returns the node with the given id, or nil.
func (t *navTree) node(id int) *navNode {
	if id < 0 || id >= len(t.nodes) {
		return nil
	}
	return t.nodes[id]
}

// moveTo repoints current at id. The caller validates the id.
func (t *navTree) moveTo(id int) {
	t.current = id
}

// updateCurrent refreshes the frozen state of the current node, used by
// transitions that change status without descending.
func (t *navTree) updateCurrent(state sessionState) {
	t.nodes[t.current].frozen = state.clone()
}

// onPath returns the set of node ids on the root-to-current path,
// recomputed by walking parent links.
func (t *navTree) onPath() map[int]bool {
	path := make(map[int]bool)
	for id := t.current; id >= 0; {
		path[id] = true
		id = t.nodes[id].parentID
	}
	return path
}

// view renders the tree for a snapshot.
func (t *navTree) view() []NavNodeView {
	path := t.onPath()
	views := make([]NavNodeView, len(t.nodes))
	for i, n := range t.nodes {
		var parent *int
		if n.parentID >= 0 {
			p := n.parentID
			parent = &p
		}
		views[i] = NavNodeView{
			NodeID:       n.id,
			Label:        n.label,
			Depth:        n.depth,
			ParentNodeID: parent,
			Round:        n.round,
			IsOnPath:     path[n.id],
		}
	}
	return views
}
