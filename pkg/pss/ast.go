package pss

import (
	"fmt"
	"strings"
)

// NodeID addresses a node in its Document. The zero NodeID is no node.
type NodeID int32

// Node is one production of a parsed script. Nodes never point at each
// other directly: children, owners and cached values all go through
// NodeIDs into the Document.
type Node struct {
	id    NodeID
	rule  Rule
	args  []NodeID
	using NodeID

	// span of the production, end is exclusive
	start position
	end   position

	// literal payloads
	text string
	num  float64

	slot *VariableSlot
	def  *StatementDefinition

	calculated bool
	value      Value
}

func (n *Node) ID() NodeID {
	return n.id
}

func (n *Node) Rule() Rule {
	return n.rule
}

func (n *Node) Args() []NodeID {
	return n.args
}

func (n *Node) String() string {
	switch n.rule {
	case RuleNumber:
		return nToS(n.num)
	case RuleString:
		return fmt.Sprintf("%q", n.text)
	case RuleVariable, RuleDeclaration, RuleStatementHeader:
		return fmt.Sprintf("%s(%s) #%d", n.rule, n.text, n.id)
	}

	args := make([]string, len(n.args))
	for i, a := range n.args {
		args[i] = fmt.Sprintf("#%d", a)
	}
	if n.using != 0 {
		args = append(args, fmt.Sprintf("USING #%d", n.using))
	}
	name := n.rule.String()
	if n.rule == RuleCall {
		name = n.text
	}
	return fmt.Sprintf("%s(%s) #%d", name, strings.Join(args, ", "), n.id)
}

// Document is the arena holding every node of a session.
type Document struct {
	nodes []*Node
	// owners[id] is the node id is an argument of
	owners []NodeID
}

func newDocument() *Document {
	return &Document{
		nodes:  []*Node{nil},
		owners: []NodeID{0},
	}
}

func (d *Document) add(n *Node) NodeID {
	n.id = NodeID(len(d.nodes))
	d.nodes = append(d.nodes, n)
	d.owners = append(d.owners, 0)

	for _, a := range n.args {
		d.owners[a] = n.id
	}
	if n.using != 0 {
		d.owners[n.using] = n.id
	}
	return n.id
}

// Node returns the node with the given id, or nil.
func (d *Document) Node(id NodeID) *Node {
	if id <= 0 || int(id) >= len(d.nodes) {
		return nil
	}
	return d.nodes[id]
}

// Owner returns the node id is an argument of, or 0 for roots.
func (d *Document) Owner(id NodeID) NodeID {
	if id <= 0 || int(id) >= len(d.owners) {
		return 0
	}
	return d.owners[id]
}

func (d *Document) Len() int {
	return len(d.nodes) - 1
}

// Release hands every node to free, children before their owners, then
// empties the document.
func (d *Document) Release(free func(*Node)) {
	for _, n := range d.nodes[1:] {
		free(n)
	}
	d.nodes = d.nodes[:1]
	d.owners = d.owners[:1]
}
