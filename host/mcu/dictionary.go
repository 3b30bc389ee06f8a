package mcu

import (
	"bytes"
	"compress/zlib"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Dictionary is the command set an MCU reports through identify.
// Commands and responses are keyed by their full format string, for example
// "spi_send oid=%c data=%*s".
type Dictionary struct {
	Version       string                    `json:"version"`
	BuildVersions string                    `json:"build_versions"`
	Config        map[string]any            `json:"config"`
	Commands      map[string]int            `json:"commands"`
	Responses     map[string]int            `json:"responses"`
	Enumerations  map[string]map[string]any `json:"enumerations,omitempty"`

	commandIDs  map[string]uint32
	responseIDs map[string]uint32
}

// ParseDictionary decodes raw identify data, inflating it first when it is
// zlib compressed.
func ParseDictionary(raw []byte) (*Dictionary, error) {
	data := raw
	if isZlib(raw) {
		r, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("inflate dictionary: %w", err)
		}
		defer r.Close()
		if data, err = io.ReadAll(r); err != nil {
			return nil, fmt.Errorf("inflate dictionary: %w", err)
		}
	}
	d := &Dictionary{}
	if err := json.Unmarshal(data, d); err != nil {
		return nil, fmt.Errorf("unmarshal dictionary: %w", err)
	}
	d.commandIDs = indexByName(d.Commands)
	d.responseIDs = indexByName(d.Responses)
	return d, nil
}

// isZlib checks the two byte zlib header: deflate method and a valid check sum.
func isZlib(b []byte) bool {
	return len(b) >= 2 && b[0]&0x0F == 8 && (uint16(b[0])<<8|uint16(b[1]))%31 == 0
}

func indexByName(formats map[string]int) map[string]uint32 {
	out := make(map[string]uint32, len(formats))
	for format, id := range formats {
		name, _, _ := strings.Cut(format, " ")
		out[name] = uint32(id)
	}
	return out
}

// CommandID returns the id of the command whose format starts with name.
func (d *Dictionary) CommandID(name string) (uint32, bool) {
	id, ok := d.commandIDs[name]
	return id, ok
}

// ResponseID returns the id of the response whose format starts with name.
// Some firmware registers a few responses as commands, so those are
// searched second.
func (d *Dictionary) ResponseID(name string) (uint32, bool) {
	if id, ok := d.responseIDs[name]; ok {
		return id, true
	}
	id, ok := d.commandIDs[name]
	return id, ok
}

// HasCommands reports whether every name is a known command.
func (d *Dictionary) HasCommands(names ...string) error {
	var missing []string
	for _, n := range names {
		if _, ok := d.commandIDs[n]; !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, strings.Join(missing, ", "))
	}
	return nil
}

// CommandNames lists command names in sorted order.
func (d *Dictionary) CommandNames() []string {
	names := make([]string, 0, len(d.commandIDs))
	for n := range d.commandIDs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ConfigString returns a config constant as text.
func (d *Dictionary) ConfigString(key string) (string, bool) {
	v, ok := d.Config[key]
	if !ok {
		return "", false
	}
	return fmt.Sprint(v), true
}
