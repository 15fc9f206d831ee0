// Package workload reads, writes and generates packet-trace files.
//
// A trace file starts with a header line "<packetCount>, <maxRank>",
// followed by exactly packetCount lines "<id> <rank>". Ids are written with
// six decimals and strictly increase; ranks are integers in [1, maxRank].
package workload

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pifo-sim/pifo-sim/sim"
)

// maxPreallocPackets caps the slice capacity reserved from a header count.
const maxPreallocPackets = 1 << 16

// ErrMalformedTrace is returned for any trace file that does not follow the format.
var ErrMalformedTrace = sim.ErrMalformedTrace

// Trace is a parsed packet-trace file.
type Trace struct {
	MaxRank int
	Packets []sim.Packet
}

// Ranks returns the rank of every packet, in file order.
func (t *Trace) Ranks() []int {
	out := make([]int, len(t.Packets))
	for i, p := range t.Packets {
		out[i] = p.Rank
	}
	return out
}

// LoadTrace reads a packet-trace file from disk.
func LoadTrace(path string) (*Trace, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening trace file: %w", err)
	}
	defer func() { _ = file.Close() }()

	t, err := ReadTrace(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// ReadTrace parses a packet trace. Any deviation from the format yields
// ErrMalformedTrace and no partial trace.
func ReadTrace(r io.Reader) (*Trace, error) {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading trace header: %w", err)
		}
		return nil, fmt.Errorf("%w: empty trace", ErrMalformedTrace)
	}
	count, maxRank, err := parseHeader(scanner.Text())
	if err != nil {
		return nil, err
	}

	// The header is untrusted; grow past the hint only as lines arrive.
	t := &Trace{MaxRank: maxRank, Packets: make([]sim.Packet, 0, min(count, maxPreallocPackets))}
	line := 1
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if len(t.Packets) == count {
			return nil, fmt.Errorf("%w: line %d: more than %d packets", ErrMalformedTrace, line, count)
		}
		p, err := parsePacket(text, maxRank)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedTrace, line, err)
		}
		if n := len(t.Packets); n > 0 && p.ID <= t.Packets[n-1].ID {
			return nil, fmt.Errorf("%w: line %d: id %f not greater than previous id %f", ErrMalformedTrace, line, p.ID, t.Packets[n-1].ID)
		}
		t.Packets = append(t.Packets, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading trace: %w", err)
	}
	if len(t.Packets) != count {
		return nil, fmt.Errorf("%w: header declares %d packets, found %d", ErrMalformedTrace, count, len(t.Packets))
	}
	return t, nil
}

func parseHeader(text string) (count, maxRank int, err error) {
	parts := strings.Split(text, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: header %q: want \"<packetCount>, <maxRank>\"", ErrMalformedTrace, text)
	}
	count, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || count < 1 {
		return 0, 0, fmt.Errorf("%w: header %q: packet count must be a positive integer", ErrMalformedTrace, text)
	}
	maxRank, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || maxRank < 1 {
		return 0, 0, fmt.Errorf("%w: header %q: max rank must be a positive integer", ErrMalformedTrace, text)
	}
	return count, maxRank, nil
}

func parsePacket(text string, maxRank int) (sim.Packet, error) {
	fields := strings.Fields(text)
	if len(fields) != 2 {
		return sim.Packet{}, fmt.Errorf("want \"<id> <rank>\", got %q", text)
	}
	id, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || math.IsNaN(id) || math.IsInf(id, 0) {
		return sim.Packet{}, fmt.Errorf("bad id %q", fields[0])
	}
	rank, err := strconv.Atoi(fields[1])
	if err != nil {
		return sim.Packet{}, fmt.Errorf("bad rank %q", fields[1])
	}
	if rank < 1 || rank > maxRank {
		return sim.Packet{}, fmt.Errorf("rank %d outside [1, %d]", rank, maxRank)
	}
	return sim.Packet{Rank: rank, ID: id}, nil
}

// WriteTrace writes t in packet-trace format.
func WriteTrace(w io.Writer, t *Trace) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "%d, %d\n", len(t.Packets), t.MaxRank); err != nil {
		return fmt.Errorf("writing trace header: %w", err)
	}
	for i, p := range t.Packets {
		if _, err := fmt.Fprintf(bw, "%.6f %d\n", p.ID, p.Rank); err != nil {
			return fmt.Errorf("writing packet %d: %w", i, err)
		}
	}
	return bw.Flush()
}

// SaveTrace writes t to path, creating or truncating the file.
func SaveTrace(path string, t *Trace) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating trace file: %w", err)
	}
	if err := WriteTrace(file, t); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
