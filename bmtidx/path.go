package bmtidx

import "fmt"

// Direction records which child of its parent a node is.
type Direction uint8

const (
	// Left is the even-indexed child.
	Left Direction = iota

	// Right is the odd-indexed child.
	Right
)

func (d Direction) String() string {
	switch d {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("Direction(%d)", uint8(d))
	}
}

// DirectionOf reports whether i is the left or right child of its parent.
// The root has no parent, so DirectionOf returns [ErrNoParent] for index 1.
func DirectionOf(i uint64) (Direction, error) {
	switch i {
	case 0:
		return 0, ErrInvalidIndex
	case RootIndex:
		return 0, ErrNoParent
	}
	return Direction(i & 1), nil
}

// Step is a single element of the path from a node to the root.
type Step struct {
	// The node visited at this step, and its sibling.
	Node, Sibling uint64

	// Which child of the parent Node is.
	// When Dir is Left, the parent is combine(Node, Sibling);
	// when Dir is Right, the parent is combine(Sibling, Node).
	Dir Direction
}

// Parent returns the index of the parent of the step's node.
func (s Step) Parent() uint64 {
	return s.Node >> 1
}

// PathToRoot returns the steps from i up to, but excluding, the root.
// The returned slice has one step per level,
// so its length is the depth of i.
func PathToRoot(i uint64) ([]Step, error) {
	d, err := DepthOf(i)
	if err != nil {
		return nil, err
	}
	return AppendPathToRoot(make([]Step, 0, d), i)
}

// AppendPathToRoot appends the path from i to the root onto dst,
// in the same order as [PathToRoot].
// If dst has enough capacity, no allocation occurs.
func AppendPathToRoot(dst []Step, i uint64) ([]Step, error) {
	if i == 0 {
		return dst, ErrInvalidIndex
	}
	for ; i > RootIndex; i >>= 1 {
		dst = append(dst, Step{
			Node:    i,
			Sibling: i ^ 1,
			Dir:     Direction(i & 1),
		})
	}
	return dst, nil
}
