// Package runinfo carries process-wide metadata about the run being
// analysed: run and subrun numbers, start and stop times, which detector
// subsystems took part, and the list of cycles excluded from analysis.
//
// The package keeps a single shared Info, installed with Init and read
// with Get. Get never returns nil; before Init it hands back a default
// instance so callers can read settings without guarding.
package runinfo

import (
	"fmt"
	"io"
	"math/bits"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultArrayPosition is the nominal HPGe array position in millimetres.
const DefaultArrayPosition = 110.0

// Subsystem identifies a detector subsystem present in a run. Values are
// bit flags so a run's full complement packs into a single integer column.
type Subsystem uint32

const (
	HPGe        Subsystem = 1 << iota // germanium array
	SiLi                              // Si(Li) conversion-electron spectrometer
	BGO                               // Compton-suppression shields
	Plastic                           // plastic scintillator ancillaries
	RF                                // accelerator RF timing
	ZeroDegree                        // zero-degree scintillator
	NeutronWall                       // neutron detector wall
)

var subsystemNames = []struct {
	flag Subsystem
	name string
}{
	{HPGe, "hpge"},
	{SiLi, "sili"},
	{BGO, "bgo"},
	{Plastic, "plastic"},
	{RF, "rf"},
	{ZeroDegree, "zds"},
	{NeutronWall, "neutron"},
}

// String renders a set of subsystems as a "+"-joined list of short names,
// or "none" for the empty set. Unnamed bits render as hex.
func (s Subsystem) String() string {
	if s == 0 {
		return "none"
	}
	var parts []string
	rest := s
	for _, e := range subsystemNames {
		if rest&e.flag != 0 {
			parts = append(parts, e.name)
			rest &^= e.flag
		}
	}
	if rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(rest)))
	}
	return strings.Join(parts, "+")
}

// ParseSubsystem maps a short subsystem name, as stored in the channel
// table, to its flag.
func ParseSubsystem(name string) (Subsystem, error) {
	for _, e := range subsystemNames {
		if strings.EqualFold(name, e.name) {
			return e.flag, nil
		}
	}
	return 0, fmt.Errorf("unknown subsystem %q", name)
}

// Info describes one run, or one subrun file, of detector data.
//
// Info is a plain value with no internal locking. The package-level
// accessors only guard installation of the shared instance.
type Info struct {
	Run    int
	SubRun int

	Title   string
	Comment string

	Start  time.Time
	Stop   time.Time
	Length time.Duration

	// Systems records which detector subsystems took part in the run.
	Systems Subsystem

	// ArrayPos is the HPGe array position in millimetres.
	ArrayPos float64

	badCycles []int
}

// New returns run metadata for the given run and subrun. Runs recorded as
// a single file conventionally use subrun -1.
func New(run, subrun int) *Info {
	return &Info{
		Run:      run,
		SubRun:   subrun,
		ArrayPos: DefaultArrayPosition,
	}
}

// Clone returns a deep copy, so stores and mergers can work on a snapshot
// without aliasing the shared instance.
func (ri *Info) Clone() *Info {
	out := *ri
	out.badCycles = append([]int(nil), ri.badCycles...)
	return &out
}

// UpdateLength recomputes Length from the recorded start and stop times.
func (ri *Info) UpdateLength() {
	ri.Length = ri.Stop.Sub(ri.Start)
}

// SetPresent marks the given subsystems as present in the run.
func (ri *Info) SetPresent(sys Subsystem) { ri.Systems |= sys }

// ClearPresent removes the given subsystems from the run.
func (ri *Info) ClearPresent(sys Subsystem) { ri.Systems &^= sys }

// Has reports whether every subsystem in sys took part in the run.
func (ri *Info) Has(sys Subsystem) bool { return ri.Systems&sys == sys }

// NumSystems counts the subsystems present in the run.
func (ri *Info) NumSystems() int { return bits.OnesCount32(uint32(ri.Systems)) }

// AddBadCycle marks a tape cycle as unusable. The list stays sorted and
// free of duplicates.
func (ri *Info) AddBadCycle(cycle int) {
	i := sort.SearchInts(ri.badCycles, cycle)
	if i < len(ri.badCycles) && ri.badCycles[i] == cycle {
		return
	}
	ri.badCycles = append(ri.badCycles, 0)
	copy(ri.badCycles[i+1:], ri.badCycles[i:])
	ri.badCycles[i] = cycle
}

// RemoveBadCycle clears a cycle from the bad list. Unknown cycles are a
// no-op.
func (ri *Info) RemoveBadCycle(cycle int) {
	i := sort.SearchInts(ri.badCycles, cycle)
	if i >= len(ri.badCycles) || ri.badCycles[i] != cycle {
		return
	}
	ri.badCycles = append(ri.badCycles[:i], ri.badCycles[i+1:]...)
}

// IsBadCycle reports whether a cycle has been marked bad.
func (ri *Info) IsBadCycle(cycle int) bool {
	i := sort.SearchInts(ri.badCycles, cycle)
	return i < len(ri.badCycles) && ri.badCycles[i] == cycle
}

// BadCycles returns a copy of the bad-cycle list in ascending order.
func (ri *Info) BadCycles() []int {
	return append([]int(nil), ri.badCycles...)
}

// PrintBadCycles writes the bad-cycle list in a human-readable line.
func (ri *Info) PrintBadCycles(w io.Writer) {
	if len(ri.badCycles) == 0 {
		fmt.Fprintln(w, "no bad cycles")
		return
	}
	fmt.Fprint(w, "bad cycles:")
	for _, c := range ri.badCycles {
		fmt.Fprintf(w, " %d", c)
	}
	fmt.Fprintln(w)
}

// Merge folds metadata from another, typically subsequent, subrun file
// into ri. Run lengths accumulate whenever both are known. When the run
// numbers differ the combined metadata no longer describes a single run,
// so the run number, subrun number and start/stop times are cleared. When
// other is the next subrun of the same run the stop time extends and the
// subrun advances; any other combination keeps the run number but clears
// the subrun and times. Subsystem flags and bad-cycle lists are unioned
// in all cases.
func (ri *Info) Merge(other *Info) {
	if other == nil {
		return
	}
	if other.Length > 0 {
		if ri.Length > 0 {
			ri.Length += other.Length
		} else {
			ri.Length = other.Length
		}
	}
	if other.Run != ri.Run {
		ri.Run = 0
		ri.SubRun = -1
		ri.Start = time.Time{}
		ri.Stop = time.Time{}
	} else if other.SubRun == ri.SubRun+1 {
		ri.Stop = other.Stop
		ri.SubRun = other.SubRun
	} else {
		ri.SubRun = -1
		ri.Start = time.Time{}
		ri.Stop = time.Time{}
	}
	ri.Systems |= other.Systems
	for _, c := range other.badCycles {
		ri.AddBadCycle(c)
	}
}

var (
	mu      sync.Mutex
	current *Info
)

// Init installs info as the process-wide run metadata. Passing nil resets
// the package to its uninitialised state.
func Init(info *Info) {
	mu.Lock()
	defer mu.Unlock()
	current = info
}

// Get returns the process-wide run metadata, creating a default instance
// on first use. The result is never nil.
func Get() *Info {
	mu.Lock()
	defer mu.Unlock()
	if current == nil {
		current = New(0, -1)
	}
	return current
}

// Reset discards the process-wide instance. The next Get creates a fresh
// default.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	current = nil
}
