// Package resource defines the accounting units used for hardware admission
// control.  Units are plain non-negative quantities; all arithmetic saturates
// so that usage can never go negative or exceed a cap through stale updates.
package resource

// Units represents a CPU/RAM quantity pair.  The zero value means "nothing".
type Units struct {
	CPU uint64 `json:"cpu" yaml:"cpu"`
	RAM uint64 `json:"ram" yaml:"ram"`
}

// New returns units with the given CPU and RAM quantities.
func New(cpu, ram uint64) Units {
	return Units{CPU: cpu, RAM: ram}
}

// Add returns u + other, saturating at the maximum representable value.
func (u Units) Add(other Units) Units {
	return Units{
		CPU: satAdd(u.CPU, other.CPU),
		RAM: satAdd(u.RAM, other.RAM),
	}
}

// Sub returns u - other, saturating at zero per dimension.
func (u Units) Sub(other Units) Units {
	return Units{
		CPU: satSub(u.CPU, other.CPU),
		RAM: satSub(u.RAM, other.RAM),
	}
}

// Min returns the per-dimension minimum of u and other.
func (u Units) Min(other Units) Units {
	return Units{
		CPU: min(u.CPU, other.CPU),
		RAM: min(u.RAM, other.RAM),
	}
}

// Cap clamps u to the supplied limit per dimension.
func (u Units) Cap(limit Units) Units {
	return u.Min(limit)
}

// Fits reports whether u fits entirely within other.
func (u Units) Fits(other Units) bool {
	return u.CPU <= other.CPU && u.RAM <= other.RAM
}

// IsZero reports whether both dimensions are zero.
func (u Units) IsZero() bool {
	return u.CPU == 0 && u.RAM == 0
}

// Equals reports per-dimension equality.
func (u Units) Equals(other Units) bool {
	return u.CPU == other.CPU && u.RAM == other.RAM
}

func satAdd(a, b uint64) uint64 {
	sum := a + b
	if sum < a {
		return ^uint64(0)
	}
	return sum
}

func satSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

func min(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
