package wire

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/thermview/thermcore/internal/constants"
)

// configFieldWidths is the width in bytes of each of the Config Record's
// twenty fields, in transmission order (§6). Twelve 32-bit fields and
// eight 16-bit fields sum to the record's fixed 64 bytes.
var configFieldWidths = [20]int{
	4, 4, 2, 2, 4, 4, 4, 4, 4, 2,
	2, 2, 2, 2, 2, 4, 4, 4, 4, 4,
}

// defaultConfigHex holds the twenty default field values, in transmission
// order, exactly as given in §6 — each string is a field's numeric value
// (matching the original config.py's ctypes assignments), not its wire
// bytes. Marshal emits each value little-endian, so e.g. "a5d5a5a5" here
// becomes wire bytes a5 a5 d5 a5 — the frame start sentinel.
var defaultConfigHex = []string{
	"a5a5a5a5", "a5d5a5a5", "0002", "0000", "00000000",
	"01200000", "01200180", "00190180", "00000000", "0795",
	"0000", "058f", "08a2", "0b6d", "0b85",
	"00000000", "00400998", "00000000", "00000000", "0fff0000",
}

// ConfigRecord is the fixed-layout 64-byte outgoing configuration (C8):
// twenty mixed-width fields, initialized once to their sensor-module
// defaults and never mutated during a session.
type ConfigRecord struct {
	Fields [20]uint32
}

// DefaultConfigRecord returns the sensor module's default configuration,
// matching §6's field values exactly.
func DefaultConfigRecord() ConfigRecord {
	var rec ConfigRecord
	for i, h := range defaultConfigHex {
		v, err := strconv.ParseUint(h, 16, 32)
		if err != nil {
			panic(fmt.Sprintf("wire: invalid default config field %d: %v", i, err))
		}
		rec.Fields[i] = uint32(v)
	}
	return rec
}

// Marshal encodes the record into its wire bytes, one field at a time in
// transmission order, matching the teacher's per-field manual marshal
// style rather than a reflective encoder.
func (r ConfigRecord) Marshal() []byte {
	buf := make([]byte, constants.ConfigRecordLength)
	offset := 0
	for i, width := range configFieldWidths {
		switch width {
		case 2:
			binary.LittleEndian.PutUint16(buf[offset:offset+2], uint16(r.Fields[i]))
		case 4:
			binary.LittleEndian.PutUint32(buf[offset:offset+4], r.Fields[i])
		}
		offset += width
	}
	return buf
}

// UnmarshalConfigRecord decodes a 64-byte wire buffer into a ConfigRecord.
func UnmarshalConfigRecord(data []byte) (ConfigRecord, error) {
	if len(data) != constants.ConfigRecordLength {
		return ConfigRecord{}, fmt.Errorf("wire: bad config record length: got %d, want %d", len(data), constants.ConfigRecordLength)
	}
	var rec ConfigRecord
	offset := 0
	for i, width := range configFieldWidths {
		switch width {
		case 2:
			rec.Fields[i] = uint32(binary.LittleEndian.Uint16(data[offset : offset+2]))
		case 4:
			rec.Fields[i] = binary.LittleEndian.Uint32(data[offset : offset+4])
		}
		offset += width
	}
	return rec, nil
}
