// Package trace reads a whitespace-delimited instruction trace and produces
// core.Instruction values with monotonically assigned tags. This is an
// external collaborator to the pipeline core: trace-file parsing itself
// carries no pipeline semantics.
package trace

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/archlab/procsim/internal/core"
)

// Reader pulls instructions one at a time from an underlying io.Reader.
// Malformed lines are silently skipped; reaching end of input (or an I/O
// error, which is treated the same as end of input) makes Next return
// ok=false forever after.
type Reader struct {
	scanner *bufio.Scanner
	nextTag int
}

// NewReader wraps r for trace reading.
func NewReader(r io.Reader) *Reader {
	return &Reader{scanner: bufio.NewScanner(r)}
}

// Next returns the next well-formed instruction from the trace, assigning
// it the next sequential tag. It returns ok=false once the trace is
// exhausted or an I/O error occurs.
func (tr *Reader) Next() (*core.Instruction, bool) {
	for tr.scanner.Scan() {
		inst, ok := parseLine(tr.scanner.Text())
		if !ok {
			continue // malformed line: skipped per contract
		}
		inst.Tag = tr.nextTag
		tr.nextTag++
		return inst, true
	}
	return nil, false
}

// parseLine parses one trace line into an Instruction. 5-token lines are
// non-branches; 7-token lines are branches (token 6 is an opaque hex value,
// retained unused; token 7 is the 0/1 taken outcome). Any other token count,
// or any field that fails to parse, is treated as malformed.
func parseLine(line string) (*core.Instruction, bool) {
	fields := strings.Fields(line)
	if len(fields) != 5 && len(fields) != 7 {
		return nil, false
	}

	pc, err := parseHex(fields[0])
	if err != nil {
		return nil, false
	}
	fu, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, false
	}
	dest, err := strconv.Atoi(fields[2])
	if err != nil {
		return nil, false
	}
	src1, err := strconv.Atoi(fields[3])
	if err != nil {
		return nil, false
	}
	src2, err := strconv.Atoi(fields[4])
	if err != nil {
		return nil, false
	}

	inst := &core.Instruction{
		PC:      pc,
		FUClass: core.FUClass(fu),
		DestReg: dest,
		Src1Reg: src1,
		Src2Reg: src2,
		Src1Tag: core.SentinelTag,
		Src2Tag: core.SentinelTag,
	}

	if len(fields) == 7 {
		// fields[5] is an opaque hex token, parsed but never used semantically.
		if _, err := parseHex(fields[5]); err != nil {
			return nil, false
		}
		taken, err := strconv.Atoi(fields[6])
		if err != nil || (taken != 0 && taken != 1) {
			return nil, false
		}
		inst.IsBranch = true
		inst.Taken = taken == 1
	}

	return inst, true
}

// parseHex parses a hex token, accepting an optional "0x"/"0X" prefix.
func parseHex(tok string) (uint64, error) {
	tok = strings.TrimPrefix(strings.TrimPrefix(tok, "0x"), "0X")
	return strconv.ParseUint(tok, 16, 64)
}
