package cache

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"
)

// File layout, little-endian throughout:
//
//	magic "MLCS" | version u16 | partition count u16
//	per partition:
//	  name length u16 | name bytes | level count u32
//	  per level: value count u32 | compressed length u32 |
//	             xxhash64 of raw bytes u64 | zstd payload
//
// Raw bytes are the level's float64 values as IEEE-754 bit patterns. The
// checksum is over the uncompressed bytes, so corruption is caught after
// decompression regardless of codec framing.

var fileMagic = [4]byte{'M', 'L', 'C', 'S'}

const fileVersion uint16 = 1

// The zstd library is designed for encoder/decoder reuse; both are safe for
// concurrent EncodeAll/DecodeAll use, so package-level singletons suffice.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		// Never happens with valid options.
		panic(fmt.Sprintf("cache: creating zstd encoder: %v", err))
	}
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		panic(fmt.Sprintf("cache: creating zstd decoder: %v", err))
	}
}

func encodeFile(path string, partitions map[string][][]float64) error {
	names := make([]string, 0, len(partitions))
	for name := range partitions {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	buf.Write(fileMagic[:])
	writeU16(&buf, fileVersion)
	writeU16(&buf, uint16(len(names)))

	for _, name := range names {
		writeU16(&buf, uint16(len(name)))
		buf.WriteString(name)
		levels := partitions[name]
		writeU32(&buf, uint32(len(levels)))
		for _, values := range levels {
			raw := floatBytes(values)
			compressed := zstdEncoder.EncodeAll(raw, nil)
			writeU32(&buf, uint32(len(values)))
			writeU32(&buf, uint32(len(compressed)))
			writeU64(&buf, xxhash.Sum64(raw))
			buf.Write(compressed)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing cache file %s: %w", path, err)
	}
	return nil
}

func decodeFile(path string) (map[string][][]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading cache file %s: %w", path, err)
	}
	r := bytes.NewReader(data)

	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil || magic != fileMagic {
		return nil, fmt.Errorf("%w: bad magic in %s", ErrCorrupt, path)
	}
	version, err := readU16(r)
	if err != nil || version != fileVersion {
		return nil, fmt.Errorf("%w: unsupported version in %s", ErrCorrupt, path)
	}
	partitionCount, err := readU16(r)
	if err != nil {
		return nil, fmt.Errorf("%w: truncated header in %s", ErrCorrupt, path)
	}

	partitions := make(map[string][][]float64, partitionCount)
	for p := 0; p < int(partitionCount); p++ {
		nameLen, err := readU16(r)
		if err != nil {
			return nil, fmt.Errorf("%w: truncated partition header in %s", ErrCorrupt, path)
		}
		name := make([]byte, nameLen)
		if _, err := io.ReadFull(r, name); err != nil {
			return nil, fmt.Errorf("%w: truncated partition name in %s", ErrCorrupt, path)
		}
		levelCount, err := readU32(r)
		if err != nil {
			return nil, fmt.Errorf("%w: truncated level count in %s", ErrCorrupt, path)
		}

		levels := make([][]float64, levelCount)
		for l := 0; l < int(levelCount); l++ {
			valueCount, err1 := readU32(r)
			compressedLen, err2 := readU32(r)
			checksum, err3 := readU64(r)
			if err1 != nil || err2 != nil || err3 != nil {
				return nil, fmt.Errorf("%w: truncated level header in %s", ErrCorrupt, path)
			}
			compressed := make([]byte, compressedLen)
			if _, err := io.ReadFull(r, compressed); err != nil {
				return nil, fmt.Errorf("%w: truncated payload in %s", ErrCorrupt, path)
			}
			raw, err := zstdDecoder.DecodeAll(compressed, nil)
			if err != nil {
				return nil, fmt.Errorf("%w: %s level %d: %v", ErrCorrupt, string(name), l, err)
			}
			if len(raw) != int(valueCount)*8 || xxhash.Sum64(raw) != checksum {
				return nil, fmt.Errorf("%w: checksum mismatch in %s level %d of %s", ErrCorrupt, string(name), l, path)
			}
			levels[l] = bytesToFloats(raw)
		}
		partitions[string(name)] = levels
	}
	return partitions, nil
}

func floatBytes(values []float64) []byte {
	raw := make([]byte, len(values)*8)
	for i, v := range values {
		binary.LittleEndian.PutUint64(raw[i*8:], math.Float64bits(v))
	}
	return raw
}

func bytesToFloats(raw []byte) []float64 {
	values := make([]float64, len(raw)/8)
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:]))
	}
	return values
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func readU16(r *bytes.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

func readU32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func readU64(r *bytes.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}
