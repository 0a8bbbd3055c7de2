// Copyright (C) 2024 The Lattice Authors.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package table

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"

	"github.com/dchest/siphash"
	"github.com/klauspost/compress/s2"
	"sigs.k8s.io/yaml"
)

// binaryMagic tags the start of every binary column/run-list snapshot,
// so a mismatched reader fails fast instead of decoding garbage.
const binaryMagic uint32 = 0x4c415454 // "LATT"

// siphashKey0/1 key the checksum that guards a binary snapshot against
// storage-layer corruption. The key is fixed rather than per-Universe:
// this checksum detects accidental corruption, it is not a MAC, so there
// is nothing to keep secret.
const (
	siphashKey0 uint64 = 0x6c61747469636562
	siphashKey1 uint64 = 0x636f6c756d6e2173
)

func writeFramed(payload []byte, rawLen int) []byte {
	sum := siphash.Hash(siphashKey0, siphashKey1, payload)
	var out bytes.Buffer
	binary.Write(&out, binary.LittleEndian, binaryMagic)
	binary.Write(&out, binary.LittleEndian, uint64(rawLen))
	binary.Write(&out, binary.LittleEndian, uint64(len(payload)))
	binary.Write(&out, binary.LittleEndian, sum)
	out.Write(payload)
	return out.Bytes()
}

// readFramed validates and strips the magic/length/checksum header,
// returning the compressed payload it wrapped.
func readFramed(buf []byte) (payload []byte, rawLen int, err error) {
	r := bytes.NewReader(buf)
	var magic uint32
	var rawLenU, compLen, sum uint64
	if err = binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, 0, err
	}
	if magic != binaryMagic {
		return nil, 0, fmt.Errorf("table: bad snapshot magic %x", magic)
	}
	if err = binary.Read(r, binary.LittleEndian, &rawLenU); err != nil {
		return nil, 0, err
	}
	if err = binary.Read(r, binary.LittleEndian, &compLen); err != nil {
		return nil, 0, err
	}
	if err = binary.Read(r, binary.LittleEndian, &sum); err != nil {
		return nil, 0, err
	}
	payload = make([]byte, compLen)
	if _, err = io.ReadFull(r, payload); err != nil {
		return nil, 0, err
	}
	if got := siphash.Hash(siphashKey0, siphashKey1, payload); got != sum {
		return nil, 0, fmt.Errorf("table: snapshot checksum mismatch: got %x want %x", got, sum)
	}
	return payload, int(rawLenU), nil
}

// EncodeBinary serializes the column's current data as a
// magic/length/checksum header followed by an s2-compressed gob stream.
func (c *Column[M, T]) EncodeBinary() ([]byte, error) {
	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(c.data); err != nil {
		return nil, fmt.Errorf("table: encode column: %w", err)
	}
	compressed := s2.Encode(nil, raw.Bytes())
	return writeFramed(compressed, raw.Len()), nil
}

// DecodeBinary replaces the column's data with the contents of buf, as
// produced by EncodeBinary. tracked is preserved; callers must re-run any
// tracker/index registration themselves, since trackers are Universe
// state, not column state.
func (c *Column[M, T]) DecodeBinary(buf []byte) error {
	payload, _, err := readFramed(buf)
	if err != nil {
		return err
	}
	raw, err := s2.Decode(nil, payload)
	if err != nil {
		return fmt.Errorf("table: decompress column: %w", err)
	}
	var data []T
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&data); err != nil {
		return fmt.Errorf("table: decode column: %w", err)
	}
	c.data = data
	return nil
}

// EncodeText renders the column's data as YAML, for diffable snapshots
// and human inspection (as opposed to EncodeBinary's compact form).
func (c *Column[M, T]) EncodeText() ([]byte, error) {
	out, err := yaml.Marshal(c.data)
	if err != nil {
		return nil, fmt.Errorf("table: encode column text: %w", err)
	}
	return out, nil
}

// DecodeText replaces the column's data from a YAML document produced by
// EncodeText.
func (c *Column[M, T]) DecodeText(doc []byte) error {
	var data []T
	if err := yaml.Unmarshal(doc, &data); err != nil {
		return fmt.Errorf("table: decode column text: %w", err)
	}
	c.data = data
	return nil
}

// runlistWire is the YAML/JSON-visible shape of a RunList's pairs, since
// the lowercase `pair` fields are otherwise unexported.
type runlistWire struct {
	A []uint64 `json:"a"`
	B []uint64 `json:"b"`
}

// EncodeBinary serializes the run list as its canonical (a,b) pairs,
// fixed-width, s2-compressed and checksummed like Column.EncodeBinary.
// Callers that want a canonical byte-for-byte output should Sort first.
func (r *RunList[M]) EncodeBinary() ([]byte, error) {
	raw := make([]byte, 8+len(r.pairs)*16)
	binary.LittleEndian.PutUint64(raw, uint64(len(r.pairs)))
	for i, p := range r.pairs {
		off := 8 + i*16
		binary.LittleEndian.PutUint64(raw[off:], p.a)
		binary.LittleEndian.PutUint64(raw[off+8:], p.b)
	}
	compressed := s2.Encode(nil, raw)
	return writeFramed(compressed, len(raw)), nil
}

// DecodeBinary replaces the run list's contents from the output of
// EncodeBinary.
func (r *RunList[M]) DecodeBinary(buf []byte) error {
	payload, _, err := readFramed(buf)
	if err != nil {
		return err
	}
	raw, err := s2.Decode(nil, payload)
	if err != nil {
		return fmt.Errorf("table: decompress run list: %w", err)
	}
	if len(raw) < 8 {
		return fmt.Errorf("table: truncated run list payload")
	}
	count := binary.LittleEndian.Uint64(raw)
	pairs := make([]pair, 0, count)
	n := 0
	for i := uint64(0); i < count; i++ {
		off := 8 + int(i)*16
		if off+16 > len(raw) {
			return fmt.Errorf("table: truncated run list pair %d", i)
		}
		p := pair{binary.LittleEndian.Uint64(raw[off:]), binary.LittleEndian.Uint64(raw[off+8:])}
		pairs = append(pairs, p)
		switch {
		case p.a < p.b:
			n += int(p.b-p.a) + 1
		case p.a == p.b:
			n++
		default:
			n += 2
		}
	}
	r.pairs = pairs
	r.n = n
	return nil
}

// EncodeText renders the run list's canonical pairs as YAML.
func (r *RunList[M]) EncodeText() ([]byte, error) {
	var w runlistWire
	for _, p := range r.pairs {
		w.A = append(w.A, p.a)
		w.B = append(w.B, p.b)
	}
	out, err := yaml.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("table: encode run list text: %w", err)
	}
	return out, nil
}

// DecodeText replaces the run list's contents from a YAML document
// produced by EncodeText.
func (r *RunList[M]) DecodeText(doc []byte) error {
	var w runlistWire
	if err := yaml.Unmarshal(doc, &w); err != nil {
		return fmt.Errorf("table: decode run list text: %w", err)
	}
	if len(w.A) != len(w.B) {
		return fmt.Errorf("table: run list text has mismatched a/b lengths")
	}
	r.pairs = r.pairs[:0]
	r.n = 0
	for i := range w.A {
		p := pair{w.A[i], w.B[i]}
		r.pairs = append(r.pairs, p)
		switch {
		case p.a < p.b:
			r.n += int(p.b-p.a) + 1
		case p.a == p.b:
			r.n++
		default:
			r.n += 2
		}
	}
	return nil
}
