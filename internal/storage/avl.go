package storage

// scoreMember is the ordered-index key: scores first, members break ties,
// so equal-score members come back in lexicographic order.
type scoreMember struct {
	score  float64
	member string
}

func (a scoreMember) less(b scoreMember) bool {
	if a.score != b.score {
		return a.score < b.score
	}
	return a.member < b.member
}

// avlNode carries height for balancing and the subtree element count so rank
// and rank-range queries run in O(log n) instead of an inorder scan.
type avlNode struct {
	key    scoreMember
	height int
	count  int
	left   *avlNode
	right  *avlNode
}

// avlTree is a size-augmented AVL tree over unique scoreMember keys.
// It is not safe for concurrent use; SortedSet provides the locking.
type avlTree struct {
	root *avlNode
}

func nodeHeight(n *avlNode) int {
	if n == nil {
		return 0
	}
	return n.height
}

func nodeCount(n *avlNode) int {
	if n == nil {
		return 0
	}
	return n.count
}

func update(n *avlNode) {
	n.height = 1 + max(nodeHeight(n.left), nodeHeight(n.right))
	n.count = 1 + nodeCount(n.left) + nodeCount(n.right)
}

func rotateRight(y *avlNode) *avlNode {
	x := y.left
	y.left = x.right
	x.right = y
	update(y)
	update(x)
	return x
}

func rotateLeft(x *avlNode) *avlNode {
	y := x.right
	x.right = y.left
	y.left = x
	update(x)
	update(y)
	return y
}

func balanceFactor(n *avlNode) int {
	return nodeHeight(n.left) - nodeHeight(n.right)
}

func rebalance(n *avlNode) *avlNode {
	update(n)
	bf := balanceFactor(n)

	if bf > 1 {
		if balanceFactor(n.left) < 0 {
			n.left = rotateLeft(n.left)
		}
		return rotateRight(n)
	}

	if bf < -1 {
		if balanceFactor(n.right) > 0 {
			n.right = rotateRight(n.right)
		}
		return rotateLeft(n)
	}

	return n
}

// insert adds key to the tree; inserting an existing key is a no-op
func (t *avlTree) insert(key scoreMember) {
	t.root = insertNode(t.root, key)
}

func insertNode(n *avlNode, key scoreMember) *avlNode {
	if n == nil {
		return &avlNode{key: key, height: 1, count: 1}
	}

	switch {
	case key.less(n.key):
		n.left = insertNode(n.left, key)
	case n.key.less(key):
		n.right = insertNode(n.right, key)
	default:
		return n
	}

	return rebalance(n)
}

// remove deletes key from the tree. Returns whether the key was present.
func (t *avlTree) remove(key scoreMember) bool {
	root, removed := removeNode(t.root, key)
	t.root = root
	return removed
}

func removeNode(n *avlNode, key scoreMember) (*avlNode, bool) {
	if n == nil {
		return nil, false
	}

	var removed bool
	switch {
	case key.less(n.key):
		n.left, removed = removeNode(n.left, key)
	case n.key.less(key):
		n.right, removed = removeNode(n.right, key)
	default:
		removed = true
		if n.left == nil {
			return n.right, true
		}
		if n.right == nil {
			return n.left, true
		}
		// replace with the inorder successor and delete it from the right subtree
		succ := n.right
		for succ.left != nil {
			succ = succ.left
		}
		n.key = succ.key
		n.right, _ = removeNode(n.right, succ.key)
	}

	if !removed {
		return n, false
	}
	return rebalance(n), true
}

func (t *avlTree) size() int {
	return nodeCount(t.root)
}

// rank returns the number of keys strictly smaller than key, valid only when
// key is present. The walk uses subtree counts, so it is O(log n).
func (t *avlTree) rank(key scoreMember) (int, bool) {
	r := 0
	for n := t.root; n != nil; {
		switch {
		case key.less(n.key):
			n = n.left
		case n.key.less(key):
			r += nodeCount(n.left) + 1
			n = n.right
		default:
			return r + nodeCount(n.left), true
		}
	}
	return 0, false
}

// rankRange appends the keys at ranks [start, stop] inclusive, 0-based.
// Bounds outside the tree are clipped by the recursion.
func (t *avlTree) rankRange(start, stop int) []scoreMember {
	var out []scoreMember
	collectRankRange(t.root, start, stop, &out)
	return out
}

func collectRankRange(n *avlNode, start, stop int, out *[]scoreMember) {
	if n == nil || stop < 0 || start >= nodeCount(n) {
		return
	}

	lc := nodeCount(n.left)
	if start < lc {
		collectRankRange(n.left, start, min(stop, lc-1), out)
	}
	if start <= lc && lc <= stop {
		*out = append(*out, n.key)
	}
	if stop > lc {
		collectRankRange(n.right, max(0, start-lc-1), stop-lc-1, out)
	}
}

// scoreRange appends every key with minScore ≤ score ≤ maxScore in order
func (t *avlTree) scoreRange(minScore, maxScore float64) []scoreMember {
	var out []scoreMember
	collectScoreRange(t.root, minScore, maxScore, &out)
	return out
}

func collectScoreRange(n *avlNode, minScore, maxScore float64, out *[]scoreMember) {
	if n == nil {
		return
	}

	// equal-score keys may sit on either side, so bounds are inclusive here
	if n.key.score >= minScore {
		collectScoreRange(n.left, minScore, maxScore, out)
	}
	if n.key.score >= minScore && n.key.score <= maxScore {
		*out = append(*out, n.key)
	}
	if n.key.score <= maxScore {
		collectScoreRange(n.right, minScore, maxScore, out)
	}
}

// walk visits every key in ascending order
func (t *avlTree) walk(fn func(scoreMember)) {
	walkNode(t.root, fn)
}

func walkNode(n *avlNode, fn func(scoreMember)) {
	if n == nil {
		return
	}
	walkNode(n.left, fn)
	fn(n.key)
	walkNode(n.right, fn)
}

func (t *avlTree) clear() {
	t.root = nil
}
