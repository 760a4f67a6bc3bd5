package structures

import "strings"

type node[T any] struct {
	value       T
	left, right *node[T]
}

// Tree is an unbalanced binary search tree ordered by a compare function.
// Values comparing equal to an existing node go to its right subtree, so
// duplicates are kept in insertion order.
type Tree[T any] struct {
	root    *node[T]
	size    int
	compare func(a, b T) int
}

// NewTree creates an empty tree ordered by compare.
func NewTree[T any](compare func(a, b T) int) *Tree[T] {
	return &Tree[T]{compare: compare}
}

// Insert adds v to the tree.
func (t *Tree[T]) Insert(v T) {
	t.size++
	n := &node[T]{value: v}
	if t.root == nil {
		t.root = n
		return
	}

	cur := t.root
	for {
		if t.compare(v, cur.value) < 0 {
			if cur.left == nil {
				cur.left = n
				return
			}
			cur = cur.left
		} else {
			if cur.right == nil {
				cur.right = n
				return
			}
			cur = cur.right
		}
	}
}

// Contains reports whether a value comparing equal to v is in the tree.
func (t *Tree[T]) Contains(v T) bool {
	cur := t.root
	for cur != nil {
		switch c := t.compare(v, cur.value); {
		case c == 0:
			return true
		case c < 0:
			cur = cur.left
		default:
			cur = cur.right
		}
	}
	return false
}

func (t *Tree[T]) Len() int { return t.size }

// PreOrder returns the values root, left subtree, right subtree.
func (t *Tree[T]) PreOrder() []T {
	out := make([]T, 0, t.size)
	if t.root == nil {
		return out
	}

	var pending Stack[*node[T]]
	pending.Push(t.root)
	for !pending.IsEmpty() {
		n, _ := pending.Pop()
		out = append(out, n.value)
		if n.right != nil {
			pending.Push(n.right)
		}
		if n.left != nil {
			pending.Push(n.left)
		}
	}
	return out
}

// InOrder returns the values in ascending order.
func (t *Tree[T]) InOrder() []T {
	out := make([]T, 0, t.size)
	var pending Stack[*node[T]]
	cur := t.root
	for cur != nil || !pending.IsEmpty() {
		for cur != nil {
			pending.Push(cur)
			cur = cur.left
		}
		n, _ := pending.Pop()
		out = append(out, n.value)
		cur = n.right
	}
	return out
}

// Render draws the tree as an indented hierarchy, one value per line,
// left child before right child:
//
//	Deuda Total
//	└── Mantenimiento de Valor
//	    ├── Interés
//	    └── Sanción
func (t *Tree[T]) Render(label func(T) string) string {
	if t.root == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(label(t.root.value))
	b.WriteByte('\n')
	renderChildren(&b, t.root, "", label)
	return b.String()
}

func renderChildren[T any](b *strings.Builder, n *node[T], prefix string, label func(T) string) {
	children := make([]*node[T], 0, 2)
	if n.left != nil {
		children = append(children, n.left)
	}
	if n.right != nil {
		children = append(children, n.right)
	}

	for i, c := range children {
		connector, next := "├── ", "│   "
		if i == len(children)-1 {
			connector, next = "└── ", "    "
		}
		b.WriteString(prefix + connector + label(c.value))
		b.WriteByte('\n')
		renderChildren(b, c, prefix+next, label)
	}
}
