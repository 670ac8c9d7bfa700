package layout

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/oliverbestmann/strata/rtti"
)

// OffsetTable maps (entity id, component id) pairs to offsets. It is a dense
// row major table, one row per entity id. Cells of components that an entity
// does not contain hold the invalid sentinel.
//
// Rows are written once while an entity type is bound. The table does not
// synchronize writes to the same row, this is the job of the binder.
type OffsetTable struct {
	invalid Offset

	once   sync.Once
	ready  atomic.Bool
	rows   int
	stride int
	cells  []Offset
}

// NewOffsetTable creates a table storing offsets of the given bit width.
// The largest value of that width is reserved as the invalid sentinel.
func NewOffsetTable(bits int) *OffsetTable {
	return &OffsetTable{invalid: invalidOffsetFor(bits)}
}

func invalidOffsetFor(bits int) Offset {
	switch bits {
	case 8, 16, 32:
		return Offset(uint64(1)<<bits - 1)
	default:
		panic(fmt.Sprintf("layout: offset width must be 8, 16 or 32 bits, got %d", bits))
	}
}

// Invalid returns the sentinel stored for absent components.
func (t *OffsetTable) Invalid() Offset {
	return t.invalid
}

// Finalize allocates the table. Only the first call has an effect,
// it returns true if this call did the allocation.
func (t *OffsetTable) Finalize(maxEntityId, maxComponentId int) bool {
	var allocated bool

	t.once.Do(func() {
		t.rows = maxEntityId
		t.stride = maxComponentId

		t.cells = make([]Offset, maxEntityId*maxComponentId)
		for idx := range t.cells {
			t.cells[idx] = t.invalid
		}

		t.ready.Store(true)
		allocated = true

		slog.Debug(
			"Offset table allocated",
			slog.Int("entities", maxEntityId),
			slog.Int("components", maxComponentId),
			slog.Int("cells", len(t.cells)),
		)
	})

	return allocated
}

func (t *OffsetTable) Finalized() bool {
	return t.ready.Load()
}

func (t *OffsetTable) checkRow(entity int) {
	if !t.ready.Load() {
		panic(fmt.Errorf("%w: offset table used before Finalize", rtti.ErrUseBeforeReady))
	}

	if entity < 0 || entity >= t.rows {
		panic(fmt.Errorf("%w: entity %d outside of table with %d rows",
			rtti.ErrUnknownType, entity, t.rows))
	}
}

func (t *OffsetTable) index(entity, component int) int {
	t.checkRow(entity)

	if component < 0 || component >= t.stride {
		panic(fmt.Errorf("%w: component %d outside of table with %d columns",
			rtti.ErrUnknownType, component, t.stride))
	}

	return entity*t.stride + component
}

// Record stores the offset of a component within an entity. Writing the same
// value twice is allowed, overwriting a cell with a different value is not.
func (t *OffsetTable) Record(entity, component int, offset uintptr) {
	if offset >= uintptr(t.invalid) {
		panic(fmt.Errorf("%w: offset %d does not fit below the sentinel %d",
			rtti.ErrIdentifierOverflow, offset, t.invalid))
	}

	cell := &t.cells[t.index(entity, component)]
	if *cell != t.invalid && *cell != Offset(offset) {
		panic(fmt.Sprintf("layout: cell (%d, %d) already holds offset %d, can not store %d",
			entity, component, *cell, offset))
	}

	*cell = Offset(offset)
}

// Lookup returns the stored offset or the invalid sentinel.
func (t *OffsetTable) Lookup(entity, component int) Offset {
	return t.cells[t.index(entity, component)]
}

func (t *OffsetTable) Has(entity, component int) bool {
	return t.Lookup(entity, component) != t.invalid
}

// Row returns a copy of the offsets recorded for an entity.
func (t *OffsetTable) Row(entity int) []Offset {
	t.checkRow(entity)

	start := entity * t.stride
	return slices.Clone(t.cells[start : start+t.stride])
}
