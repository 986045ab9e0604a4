package compiler

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Literal pools
// ---------------------------------------------------------------------------

// StringTable is the append-only string pool of one compile unit.
// Identical strings share one index; indices are never reused.
type StringTable struct {
	byValue map[string]uint32
	values  []string
}

// NewStringTable creates an empty string pool.
func NewStringTable() *StringTable {
	return &StringTable{byValue: make(map[string]uint32)}
}

// Add returns the index of s, appending it if it is new.
func (st *StringTable) Add(s string) uint32 {
	if idx, ok := st.byValue[s]; ok {
		return idx
	}
	idx := uint32(len(st.values))
	st.byValue[s] = idx
	st.values = append(st.values, s)
	return idx
}

// AddInt adds the decimal spelling of v.
func (st *StringTable) AddInt(v int64) uint32 {
	return st.Add(strconv.FormatInt(v, 10))
}

// AddFloat adds the console spelling of v.
func (st *StringTable) AddFloat(v float64) uint32 {
	return st.Add(FormatFloat(v))
}

// Get returns the string at idx.
func (st *StringTable) Get(idx uint32) string {
	return st.values[idx]
}

// Len returns the number of pooled strings.
func (st *StringTable) Len() int {
	return len(st.values)
}

// Strings returns a copy of the pool in index order.
func (st *StringTable) Strings() []string {
	out := make([]string, len(st.values))
	copy(out, st.values)
	return out
}

// FloatTable is the append-only float pool of one compile unit.
type FloatTable struct {
	byBits map[uint64]uint32
	values []float64
}

// NewFloatTable creates an empty float pool.
func NewFloatTable() *FloatTable {
	return &FloatTable{byBits: make(map[uint64]uint32)}
}

// Add returns the index of f, appending it if it is new. Floats are
// deduplicated by bit pattern so 0 and -0 stay distinct.
func (ft *FloatTable) Add(f float64) uint32 {
	bits := math.Float64bits(f)
	if idx, ok := ft.byBits[bits]; ok {
		return idx
	}
	idx := uint32(len(ft.values))
	ft.byBits[bits] = idx
	ft.values = append(ft.values, f)
	return idx
}

// Get returns the float at idx.
func (ft *FloatTable) Get(idx uint32) float64 {
	return ft.values[idx]
}

// Len returns the number of pooled floats.
func (ft *FloatTable) Len() int {
	return len(ft.values)
}

// Floats returns a copy of the pool in index order.
func (ft *FloatTable) Floats() []float64 {
	out := make([]float64, len(ft.values))
	copy(out, ft.values)
	return out
}

// FormatFloat renders f the way the console prints numbers: shortest
// round-trip form with at most six significant digits, never locale dependent.
func FormatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', 6, 64)
}

// StringToNumber converts console text to a number the way C's atof does:
// the longest numeric prefix is used and anything unparsable reads as zero.
// "true" and "false" are accepted as 1 and 0.
func StringToNumber(s string) float64 {
	s = strings.TrimLeft(s, " \t\r\n")
	if strings.EqualFold(s, "true") {
		return 1
	}
	if strings.EqualFold(s, "false") {
		return 0
	}
	end := numericPrefix(s)
	if end == 0 {
		return 0
	}
	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0
	}
	return f
}

func numericPrefix(s string) int {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		j := i + 1
		frac := 0
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
			frac++
		}
		if digits+frac > 0 {
			i = j
			digits += frac
		}
	}
	if digits == 0 {
		return 0
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		k := j
		for k < len(s) && s[k] >= '0' && s[k] <= '9' {
			k++
		}
		if k > j {
			i = k
		}
	}
	return i
}
