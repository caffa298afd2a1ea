package flat

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"math"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// On-disk layout, little endian:
//
//	magic "DQVX" | version u16 | dim u32 | count u32
//	count x ( position u32 | textLen u32 | text | dim x float32 )
//	crc32 (IEEE) of everything above
var magic = [4]byte{'D', 'Q', 'V', 'X'}

const (
	formatVersion uint16 = 1
	headerSize           = 4 + 2 + 4 + 4
	trailerSize          = 4
)

func encode(w io.Writer, h *handle) error {
	sum := crc32.NewIEEE()
	out := io.MultiWriter(w, sum)

	header := make([]byte, headerSize)
	copy(header, magic[:])
	binary.LittleEndian.PutUint16(header[4:], formatVersion)
	binary.LittleEndian.PutUint32(header[6:], uint32(h.dim))
	binary.LittleEndian.PutUint32(header[10:], uint32(len(h.texts)))
	if _, err := out.Write(header); err != nil {
		return err
	}

	vec := make([]byte, 4*h.dim)
	var meta [8]byte
	for i, text := range h.texts {
		binary.LittleEndian.PutUint32(meta[0:], uint32(h.positions[i]))
		binary.LittleEndian.PutUint32(meta[4:], uint32(len(text)))
		if _, err := out.Write(meta[:]); err != nil {
			return err
		}
		if _, err := io.WriteString(out, text); err != nil {
			return err
		}
		for j, f := range h.vectors[i] {
			binary.LittleEndian.PutUint32(vec[j*4:], math.Float32bits(f))
		}
		if _, err := out.Write(vec); err != nil {
			return err
		}
	}

	var trailer [trailerSize]byte
	binary.LittleEndian.PutUint32(trailer[:], sum.Sum32())
	_, err := w.Write(trailer[:])
	return err
}

func decode(data []byte) (*handle, error) {
	if len(data) < headerSize+trailerSize {
		return nil, corrupt("truncated header")
	}

	body := data[:len(data)-trailerSize]
	want := binary.LittleEndian.Uint32(data[len(data)-trailerSize:])
	if crc32.ChecksumIEEE(body) != want {
		return nil, corrupt("checksum mismatch")
	}

	if [4]byte(body[0:4]) != magic {
		return nil, corrupt("bad magic")
	}
	if v := binary.LittleEndian.Uint16(body[4:]); v != formatVersion {
		return nil, corrupt(fmt.Sprintf("unsupported version %d", v))
	}
	dim := int(binary.LittleEndian.Uint32(body[6:]))
	count := int(binary.LittleEndian.Uint32(body[10:]))
	if dim == 0 || count == 0 {
		return nil, corrupt("empty index")
	}

	h := &handle{
		dim:       dim,
		positions: make([]int, 0, min(count, 1<<16)),
		texts:     make([]string, 0, min(count, 1<<16)),
		vectors:   make([][]float32, 0, min(count, 1<<16)),
	}

	off := headerSize
	vecBytes := 4 * dim
	for i := 0; i < count; i++ {
		if len(body)-off < 8 {
			return nil, corrupt(fmt.Sprintf("entry %d truncated", i))
		}
		pos := int(binary.LittleEndian.Uint32(body[off:]))
		textLen := int(binary.LittleEndian.Uint32(body[off+4:]))
		off += 8
		if textLen < 0 || len(body)-off < textLen+vecBytes {
			return nil, corrupt(fmt.Sprintf("entry %d truncated", i))
		}
		text := string(body[off : off+textLen])
		off += textLen

		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(body[off+j*4:]))
		}
		off += vecBytes

		h.positions = append(h.positions, pos)
		h.texts = append(h.texts, text)
		h.vectors = append(h.vectors, vec)
	}

	if off != len(body) {
		return nil, corrupt("trailing bytes after entries")
	}
	return h, nil
}

func corrupt(reason string) error {
	return fmt.Errorf("%w: %s", domain.ErrCorrupt, reason)
}
