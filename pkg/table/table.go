package table

import (
	"fmt"
	"time"
)

// Type is the semantic type tag of a column.
type Type uint8

const (
	Numeric Type = iota + 1
	String
	Time
	Boolean
)

func (t Type) String() string {
	switch t {
	case Numeric:
		return "numeric"
	case String:
		return "string"
	case Time:
		return "time"
	case Boolean:
		return "boolean"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// Structural column keys carry table metadata rather than metric values.
const (
	KeyStart  = "_start"
	KeyStop   = "_stop"
	KeyTime   = "_time"
	KeyValue  = "_value"
	KeyTable  = "table"
	KeyResult = "result"
)

// Column is one typed, named sequence of values.
type Column struct {
	// Name is the display name. It usually equals the key but may differ.
	Name string
	Type Type

	floats []float64
	strs   []string
	times  []time.Time
	bools  []bool
}

// NewNumeric returns a Numeric column backed by data.
func NewNumeric(name string, data []float64) *Column {
	return &Column{Name: name, Type: Numeric, floats: data}
}

// NewString returns a String column backed by data.
func NewString(name string, data []string) *Column {
	return &Column{Name: name, Type: String, strs: data}
}

// NewTime returns a Time column backed by data.
func NewTime(name string, data []time.Time) *Column {
	return &Column{Name: name, Type: Time, times: data}
}

// NewBoolean returns a Boolean column backed by data.
func NewBoolean(name string, data []bool) *Column {
	return &Column{Name: name, Type: Boolean, bools: data}
}

// Len returns the number of values in the column.
func (c *Column) Len() int {
	switch c.Type {
	case Numeric:
		return len(c.floats)
	case String:
		return len(c.strs)
	case Time:
		return len(c.times)
	case Boolean:
		return len(c.bools)
	default:
		return 0
	}
}

// Floats returns the data of a Numeric column, or nil for any other type.
func (c *Column) Floats() []float64 { return c.floats }

// Strings returns the data of a String column, or nil for any other type.
func (c *Column) Strings() []string { return c.strs }

// Times returns the data of a Time column, or nil for any other type.
func (c *Column) Times() []time.Time { return c.times }

// Bools returns the data of a Boolean column, or nil for any other type.
func (c *Column) Bools() []bool { return c.bools }

// Table is a columnar result set with a row count shared by all columns.
type Table struct {
	length int
	keys   []string
	cols   map[string]*Column
}

// New returns an empty Table whose columns must each hold length values.
func New(length int) *Table {
	return &Table{length: length, cols: make(map[string]*Column)}
}

// Add appends col under key. It fails if key is taken or the column length
// differs from the table length.
func (t *Table) Add(key string, col *Column) error {
	if _, dup := t.cols[key]; dup {
		return fmt.Errorf("table: duplicate column key %q", key)
	}
	if n := col.Len(); n != t.length {
		return fmt.Errorf("table: column %q has %d values, want %d", key, n, t.length)
	}
	t.keys = append(t.keys, key)
	t.cols[key] = col
	return nil
}

// MustAdd is like Add but panics on error. Intended for builders whose
// lengths are correct by construction and for tests.
func (t *Table) MustAdd(key string, col *Column) *Table {
	if err := t.Add(key, col); err != nil {
		panic(err)
	}
	return t
}

// Len returns the row count.
func (t *Table) Len() int { return t.length }

// Keys returns the column keys in insertion order. The caller must not
// modify the returned slice.
func (t *Table) Keys() []string { return t.keys }

// Column returns the column stored under key.
func (t *Table) Column(key string) (*Column, bool) {
	c, ok := t.cols[key]
	return c, ok
}
