package rtti

import (
	"fmt"
	"iter"
	"log/slog"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/oliverbestmann/strata/internal/set"
)

// HierarchyId identifies a type within a Hierarchy. The value is the start of
// the types preorder interval.
type HierarchyId[Tag any, I Unsigned] struct {
	value I
}

func (id HierarchyId[Tag, I]) Value() I {
	return id.value
}

func (id HierarchyId[Tag, I]) String() string {
	return strconv.FormatUint(uint64(id.value), 10)
}

func (id HierarchyId[Tag, I]) LogValue() slog.Value {
	return slog.Uint64Value(uint64(id.value))
}

type hierarchyNode struct {
	ty       reflect.Type
	parent   *hierarchyNode
	children []*hierarchyNode

	// preorder interval [min, max), assigned by Build
	min, max uint64
}

// Hierarchy encodes a tree of go types. After Build, every type is assigned
// an interval [min, max) that contains the intervals of all its descendants.
// Testing if a type is a descendant of another is a range check.
//
// Types are declared during bootstrap using DeclareRoot and DeclareChild,
// then Build freezes the tree. Queries before Build panic.
type Hierarchy[Tag any, I Unsigned] struct {
	start I

	mu    sync.Mutex
	built atomic.Bool
	root  *hierarchyNode
	nodes map[UniqueId]*hierarchyNode

	// indexed by id value - start, valid after Build
	preorder []*hierarchyNode
	maxes    []I
}

func NewHierarchy[Tag any, I Unsigned](start I) *Hierarchy[Tag, I] {
	return &Hierarchy[Tag, I]{
		start: start,
		nodes: map[UniqueId]*hierarchyNode{},
	}
}

func (h *Hierarchy[Tag, I]) nodeOf(ty reflect.Type) *hierarchyNode {
	key := UniqueIdFor(ty)

	node, ok := h.nodes[key]
	if !ok {
		node = &hierarchyNode{ty: ty}
		h.nodes[key] = node
	}

	return node
}

func (h *Hierarchy[Tag, I]) checkOpen(ty reflect.Type) {
	if h.built.Load() {
		panic(fmt.Errorf("%w: %s declared after the hierarchy was built", ErrRegisterAfterFreeze, ty))
	}
}

// DeclareRoot declares the root of the hierarchy. There can only be one.
func (h *Hierarchy[Tag, I]) DeclareRoot(ty reflect.Type) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.checkOpen(ty)

	if h.root != nil {
		panic(fmt.Errorf("%w: root already declared as %s, can not redeclare as %s",
			ErrAlreadyDeclared, h.root.ty, ty))
	}

	node := h.nodeOf(ty)
	if node.parent != nil {
		panic(fmt.Errorf("%w: %s is already a child of %s", ErrAlreadyDeclared, ty, node.parent.ty))
	}

	h.root = node
}

// DeclareChild declares child as a direct descendant of parent. Siblings keep
// the order of their declaration. The parent does not need to be declared yet.
func (h *Hierarchy[Tag, I]) DeclareChild(child, parent reflect.Type) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.checkOpen(child)

	if child == parent {
		panic(fmt.Errorf("%w: %s can not be its own parent", ErrAlreadyDeclared, child))
	}

	childNode := h.nodeOf(child)
	if childNode.parent != nil {
		panic(fmt.Errorf("%w: %s is already a child of %s", ErrAlreadyDeclared, child, childNode.parent.ty))
	}

	if childNode == h.root {
		panic(fmt.Errorf("%w: %s is the root", ErrAlreadyDeclared, child))
	}

	parentNode := h.nodeOf(parent)
	childNode.parent = parentNode
	parentNode.children = append(parentNode.children, childNode)
}

// Build assigns the preorder intervals. It must be called exactly once, after
// all types are declared.
func (h *Hierarchy[Tag, I]) Build() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.built.Load() {
		panic(ErrDoubleBuild)
	}

	if h.root == nil {
		panic(fmt.Errorf("%w: no root declared", ErrUseBeforeReady))
	}

	var reached set.Set[*hierarchyNode]

	counter := uint64(h.start)

	var visit func(node *hierarchyNode)
	visit = func(node *hierarchyNode) {
		node.min = uint64(nextValue[I](counter, "hierarchy id of "+node.ty.String()))
		counter += 1

		reached.Insert(node)
		h.preorder = append(h.preorder, node)

		for _, child := range node.children {
			visit(child)
		}

		node.max = counter
	}

	visit(h.root)

	if reached.Len() != len(h.nodes) {
		var orphans []string
		for _, node := range h.nodes {
			if !reached.Has(node) {
				orphans = append(orphans, node.ty.String())
			}
		}

		slices.Sort(orphans)

		panic(fmt.Errorf("%w: %s", ErrOrphanType, strings.Join(orphans, ", ")))
	}

	h.maxes = make([]I, len(h.preorder))
	for idx, node := range h.preorder {
		h.maxes[idx] = I(node.max)
	}

	h.built.Store(true)

	slog.Debug(
		"Hierarchy built",
		slog.String("root", h.root.ty.String()),
		slog.Int("types", len(h.preorder)),
		slog.Uint64("maxId", h.root.max),
	)
}

func (h *Hierarchy[Tag, I]) Built() bool {
	return h.built.Load()
}

func (h *Hierarchy[Tag, I]) ready() {
	if !h.built.Load() {
		panic(fmt.Errorf("%w: hierarchy queried before Build", ErrUseBeforeReady))
	}
}

func (h *Hierarchy[Tag, I]) index(id HierarchyId[Tag, I]) int {
	idx := int(id.value) - int(h.start)
	if id.value < h.start || idx >= len(h.preorder) {
		panic(fmt.Errorf("%w: hierarchy id %d out of range", ErrUnknownType, id.value))
	}

	return idx
}

// Lookup returns the id of a declared type.
func (h *Hierarchy[Tag, I]) Lookup(ty reflect.Type) (HierarchyId[Tag, I], bool) {
	h.ready()

	node, ok := h.nodes[UniqueIdFor(ty)]
	if !ok {
		return HierarchyId[Tag, I]{}, false
	}

	return HierarchyId[Tag, I]{value: I(node.min)}, true
}

// IdOf returns the id of a declared type and panics if it is unknown.
func (h *Hierarchy[Tag, I]) IdOf(ty reflect.Type) HierarchyId[Tag, I] {
	id, ok := h.Lookup(ty)
	if !ok {
		panic(fmt.Errorf("%w: %s is not part of the hierarchy", ErrUnknownType, ty))
	}

	return id
}

// IsAncestorOf returns true if test identifies candidate or one of its descendants.
func (h *Hierarchy[Tag, I]) IsAncestorOf(candidate, test HierarchyId[Tag, I]) bool {
	h.ready()

	return test.value >= candidate.value && test.value < h.maxes[h.index(candidate)]
}

// Interval returns the preorder interval [min, max) of the type identified by id.
func (h *Hierarchy[Tag, I]) Interval(id HierarchyId[Tag, I]) (lo, hi I) {
	h.ready()
	return id.value, h.maxes[h.index(id)]
}

// TypeOf returns the type identified by id.
func (h *Hierarchy[Tag, I]) TypeOf(id HierarchyId[Tag, I]) reflect.Type {
	h.ready()
	return h.preorder[h.index(id)].ty
}

// Parent returns the direct parent of the type identified by id.
// The root has no parent.
func (h *Hierarchy[Tag, I]) Parent(id HierarchyId[Tag, I]) (HierarchyId[Tag, I], bool) {
	h.ready()

	parent := h.preorder[h.index(id)].parent
	if parent == nil {
		return HierarchyId[Tag, I]{}, false
	}

	return HierarchyId[Tag, I]{value: I(parent.min)}, true
}

// MaxId returns one past the highest id in the hierarchy.
func (h *Hierarchy[Tag, I]) MaxId() HierarchyId[Tag, I] {
	h.ready()
	return HierarchyId[Tag, I]{value: I(h.root.max)}
}

// Count returns the number of types in the hierarchy.
func (h *Hierarchy[Tag, I]) Count() int {
	h.ready()
	return len(h.preorder)
}

// Walk iterates all types in preorder.
func (h *Hierarchy[Tag, I]) Walk() iter.Seq2[HierarchyId[Tag, I], reflect.Type] {
	h.ready()

	return func(yield func(HierarchyId[Tag, I], reflect.Type) bool) {
		for _, node := range h.preorder {
			if !yield(HierarchyId[Tag, I]{value: I(node.min)}, node.ty) {
				return
			}
		}
	}
}

func DeclareRoot[Root any, Tag any, I Unsigned](h *Hierarchy[Tag, I]) {
	h.DeclareRoot(reflect.TypeFor[Root]())
}

func DeclareChild[Child, Parent any, Tag any, I Unsigned](h *Hierarchy[Tag, I]) {
	h.DeclareChild(reflect.TypeFor[Child](), reflect.TypeFor[Parent]())
}

func HierarchyIdOf[T any, Tag any, I Unsigned](h *Hierarchy[Tag, I]) HierarchyId[Tag, I] {
	return h.IdOf(reflect.TypeFor[T]())
}

// IsA returns true if id identifies T or one of its descendants.
func IsA[T any, Tag any, I Unsigned](h *Hierarchy[Tag, I], id HierarchyId[Tag, I]) bool {
	return h.IsAncestorOf(HierarchyIdOf[T](h), id)
}
