package raytrace

import (
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// MemoryReport describes the device buffers allocated by one GPU render.
type MemoryReport struct {
	// Buffers maps buffer label to its size in bytes.
	Buffers map[string]uint64

	// PeakBytes is the largest sum of concurrently live buffer sizes. All
	// buffers of a pass are live together, so it counts the map-read
	// staging copy as well: uniforms + arrays + 2*W*H*16, not only the
	// W*H*16 output.
	PeakBytes uint64
}

// TotalBytes returns the sum of all buffer sizes.
func (r MemoryReport) TotalBytes() uint64 {
	var total uint64
	for _, n := range r.Buffers {
		total += n
	}
	return total
}

// String returns a human-readable report with buffers in name order.
func (r MemoryReport) String() string {
	p := message.NewPrinter(language.English)

	names := make([]string, 0, len(r.Buffers))
	for name := range r.Buffers {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString(p.Sprintf("Memory[peak %d bytes", r.PeakBytes))
	for _, name := range names {
		sb.WriteString(p.Sprintf(", %s=%d", name, r.Buffers[name]))
	}
	sb.WriteString("]")
	return sb.String()
}
