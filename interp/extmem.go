package interp

import (
	"sync"

	"github.com/sarchlab/akita/v4/mem/idealmemcontroller"
	"github.com/sarchlab/akita/v4/mem/mem"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/akita/v4/sim/directconnection"
)

// HostMemory is the read/write surface a `@external` memory cell needs from
// whatever backs it. ExternalMemory is the only production implementation;
// the interface exists so cmd/calyx's data-file loader/dumper can exercise
// that logic against a fake (cmd/calyx's MockHostMemory) instead of
// standing up a real akita engine and controller.
//
//go:generate mockgen -write_package_comment=false -package=main -destination=../cmd/calyx/mock_hostmemory_test.go github.com/calyx-lang/calyxgo/interp HostMemory
type HostMemory interface {
	Read(addr uint64, byteSize uint64) uint64
	Write(addr uint64, val uint64, byteSize uint64)
}

// ExternalMemory backs one `@external`-annotated memory cell (comb_mem_dN /
// seq_mem_dN). Read and Write operate on an in-process byte slice; next to
// it, ExternalMemory builds the same idealmemcontroller+directconnection topology
// config.go's DeviceBuilder assembles for a CGRA tile's DRAM, generalized
// from one tile per memory to one controller per Calyx memory cell.
//
// The settle/commit cycle loop reads and writes ExternalMemory synchronously
// (Calyx's comb_mem_dN is a same-cycle combinational read); the akita engine
// and connection exist alongside, but Read and Write never send requests
// through the controller's port, and the controller's own storage is
// separate from the slice they use.
type ExternalMemory struct {
	Engine     sim.Engine
	Controller *idealmemcontroller.Comp
	Conn       *directconnection.Comp

	mu      sync.Mutex
	backing []byte
}

// NewExternalMemory allocates an idealmemcontroller of byteSize bytes and a
// direct connection with the controller's "Top" port plugged in, plus a
// byteSize-byte backing slice for Read/Write; the host side of the
// connection is plugged in separately by PlugInHost.
func NewExternalMemory(engine sim.Engine, freq sim.Freq, name string, byteSize uint64, latency int) *ExternalMemory {
	controller := idealmemcontroller.MakeBuilder().
		WithEngine(engine).
		WithNewStorage(byteSize).
		WithLatency(latency).
		Build(name)

	conn := directconnection.MakeBuilder().
		WithEngine(engine).
		WithFreq(freq).
		Build(name + "Conn")
	conn.PlugIn(controller.GetPortByName("Top"))

	return &ExternalMemory{
		Engine:     engine,
		Controller: controller,
		Conn:       conn,
		backing:    make([]byte, byteSize),
	}
}

// PlugInHost connects hostPort (the cell's boundary port in the owning
// simulation, e.g. a tile's Router port) to this memory's controller.
func (m *ExternalMemory) PlugInHost(hostPort sim.Port) {
	m.Conn.PlugIn(hostPort)
}

// Read returns the little-endian value of byteSize bytes starting at addr.
func (m *ExternalMemory) Read(addr uint64, byteSize uint64) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var v uint64
	for i := uint64(0); i < byteSize; i++ {
		if addr+i >= uint64(len(m.backing)) {
			break
		}
		v |= uint64(m.backing[addr+i]) << (8 * i)
	}
	return v
}

// Write stores the low byteSize bytes of val, little-endian, at addr.
func (m *ExternalMemory) Write(addr uint64, val uint64, byteSize uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := uint64(0); i < byteSize; i++ {
		if addr+i >= uint64(len(m.backing)) {
			break
		}
		m.backing[addr+i] = byte(val >> (8 * i))
	}
}

// DefaultMemorySize is a 64 KiB allocation size for callers of
// NewExternalMemory; nothing in this package applies it automatically.
const DefaultMemorySize = mem.GB / 16384
