package framefile

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"

	"github.com/agleyzer/fakeframes/pkg/series"
)

const (
	frameVersion = 1

	compressionNone uint8 = 0
	compressionGzip uint8 = 1

	// maxDeflateRatio bounds how far a deflate stream can expand.
	maxDeflateRatio = 1032
)

var (
	frameMagic   = [5]byte{'I', 'G', 'W', 'D', 0}
	frameTrailer = [4]byte{'E', 'O', 'F', 0}
)

// fileHeader is the fixed-size block at the start of a frame file.
type fileHeader struct {
	Magic    [5]byte
	Version  uint8
	RunID    [16]byte
	GPSStart float64
	Duration float64
	Channels uint32
}

// vectorHeader precedes every channel payload.
type vectorHeader struct {
	DType        uint8
	Compression  uint8
	Start        float64
	DeltaT       float64
	Samples      uint64
	PayloadBytes uint64
}

// FrameHeader describes a frame file.
type FrameHeader struct {
	Version  int
	RunID    uuid.UUID
	GPSStart float64
	Duration float64
	Channels int
}

// Frame is the .gwf codec. Every channel is stored as a gzip-compressed
// little-endian vector of its native sample type with a CRC-32 of the raw
// bytes.
type Frame struct {
	RunID uuid.UUID
}

var _ Codec = (*Frame)(nil)

// Write implements Codec.
func (c *Frame) Write(path string, names []string, list []series.TimeSeries) (err error) {
	if err := checkArgs(names, list); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer removeOnError(path, &err)
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	w := bufio.NewWriter(f)
	start, end := math.Inf(1), math.Inf(-1)
	for _, ts := range list {
		start = math.Min(start, ts.StartTime())
		end = math.Max(end, ts.EndTime())
	}
	hdr := fileHeader{
		Magic:    frameMagic,
		Version:  frameVersion,
		RunID:    c.RunID,
		GPSStart: start,
		Duration: end - start,
		Channels: uint32(len(list)),
	}
	if err := binary.Write(w, binary.LittleEndian, hdr); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}

	for i, ts := range list {
		if err := writeVector(w, names[i], ts); err != nil {
			return fmt.Errorf("write channel %q: %w", names[i], err)
		}
	}
	if err := binary.Write(w, binary.LittleEndian, frameTrailer); err != nil {
		return fmt.Errorf("write frame trailer: %w", err)
	}
	return w.Flush()
}

func writeVector(w io.Writer, name string, ts series.TimeSeries) error {
	raw, err := encodeSamples(ts)
	if err != nil {
		return err
	}

	var payload bytes.Buffer
	zw := gzip.NewWriter(&payload)
	if _, err := zw.Write(raw); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}

	if len(name) > math.MaxUint16 {
		return fmt.Errorf("channel name too long")
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(len(name))); err != nil {
		return err
	}
	if _, err := io.WriteString(w, name); err != nil {
		return err
	}
	vh := vectorHeader{
		DType:        uint8(ts.DType()),
		Compression:  compressionGzip,
		Start:        ts.StartTime(),
		DeltaT:       ts.DeltaT(),
		Samples:      uint64(ts.Len()),
		PayloadBytes: uint64(payload.Len()),
	}
	if err := binary.Write(w, binary.LittleEndian, vh); err != nil {
		return err
	}
	if _, err := w.Write(payload.Bytes()); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, crc32.ChecksumIEEE(raw))
}

// encodeSamples returns the little-endian bytes of the native samples.
func encodeSamples(ts series.TimeSeries) ([]byte, error) {
	var buf bytes.Buffer
	var data any
	switch s := ts.(type) {
	case *series.Series[float64]:
		data = s.Data
	case *series.Series[float32]:
		data = s.Data
	case *series.Series[uint32]:
		data = s.Data
	case *series.Series[int32]:
		data = s.Data
	default:
		return nil, fmt.Errorf("unsupported series type %T", ts)
	}
	if err := binary.Write(&buf, binary.LittleEndian, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Read implements Codec.
func (c *Frame) Read(path string, names ...string) (*series.Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	r := bufio.NewReader(f)
	hdr, err := readFileHeader(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	set := series.NewSet()
	for i := 0; i < int(hdr.Channels); i++ {
		name, ts, err := readVector(r, info.Size())
		if err != nil {
			return nil, fmt.Errorf("%s: channel %d: %w", path, i, err)
		}
		if err := set.Add(name, ts); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	var trailer [4]byte
	if err := binary.Read(r, binary.LittleEndian, &trailer); err != nil || trailer != frameTrailer {
		return nil, fmt.Errorf("%w: %s: missing trailer", ErrCorrupt, path)
	}
	return selectChannels(path, set, names)
}

// ReadFrameHeader returns the header of the frame file at path.
func ReadFrameHeader(path string) (FrameHeader, error) {
	f, err := os.Open(path)
	if err != nil {
		return FrameHeader{}, err
	}
	defer f.Close()

	hdr, err := readFileHeader(bufio.NewReader(f))
	if err != nil {
		return FrameHeader{}, fmt.Errorf("%s: %w", path, err)
	}
	return FrameHeader{
		Version:  int(hdr.Version),
		RunID:    uuid.UUID(hdr.RunID),
		GPSStart: hdr.GPSStart,
		Duration: hdr.Duration,
		Channels: int(hdr.Channels),
	}, nil
}

func readFileHeader(r io.Reader) (fileHeader, error) {
	var hdr fileHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return hdr, fmt.Errorf("%w: read header: %w", ErrCorrupt, err)
	}
	if hdr.Magic != frameMagic {
		return hdr, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	if hdr.Version != frameVersion {
		return hdr, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, hdr.Version)
	}
	return hdr, nil
}

// readVector decodes one channel. Header sizes are checked against fileSize
// before anything is allocated.
func readVector(r io.Reader, fileSize int64) (string, series.TimeSeries, error) {
	var nameLen uint16
	if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	name := make([]byte, nameLen)
	if _, err := io.ReadFull(r, name); err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	var vh vectorHeader
	if err := binary.Read(r, binary.LittleEndian, &vh); err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	rawBytes, err := checkSizes(vh, fileSize)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %q: %w", ErrCorrupt, name, err)
	}
	payload := make([]byte, vh.PayloadBytes)
	if _, err := io.ReadFull(r, payload); err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	var sum uint32
	if err := binary.Read(r, binary.LittleEndian, &sum); err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	raw := payload
	switch vh.Compression {
	case compressionNone:
	case compressionGzip:
		zr, err := gzip.NewReader(bytes.NewReader(payload))
		if err != nil {
			return "", nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		if raw, err = io.ReadAll(io.LimitReader(zr, int64(rawBytes)+1)); err != nil {
			return "", nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
	default:
		return "", nil, fmt.Errorf("%w: unknown compression %d", ErrCorrupt, vh.Compression)
	}
	if uint64(len(raw)) != rawBytes {
		return "", nil, fmt.Errorf("%w: %q holds %d bytes, want %d", ErrCorrupt, name, len(raw), rawBytes)
	}
	if crc32.ChecksumIEEE(raw) != sum {
		return "", nil, fmt.Errorf("%w: checksum mismatch for %q", ErrCorrupt, name)
	}

	ts, err := decodeSamples(series.DType(vh.DType), raw, int(vh.Samples), vh.Start, vh.DeltaT)
	if err != nil {
		return "", nil, err
	}
	return string(name), ts, nil
}

// checkSizes returns the decoded payload size implied by vh.
func checkSizes(vh vectorHeader, fileSize int64) (uint64, error) {
	if fileSize < 0 || vh.PayloadBytes > uint64(fileSize) {
		return 0, fmt.Errorf("payload of %d bytes exceeds file size %d", vh.PayloadBytes, fileSize)
	}
	width := uint64(series.DType(vh.DType).Size())
	if width == 0 {
		return 0, fmt.Errorf("unknown sample type %d", vh.DType)
	}
	if vh.Samples > math.MaxInt32/width {
		return 0, fmt.Errorf("%d samples is too many", vh.Samples)
	}
	rawBytes := vh.Samples * width
	switch vh.Compression {
	case compressionNone:
		if rawBytes != vh.PayloadBytes {
			return 0, fmt.Errorf("%d samples do not fill %d bytes", vh.Samples, vh.PayloadBytes)
		}
	case compressionGzip:
		if rawBytes > vh.PayloadBytes*maxDeflateRatio {
			return 0, fmt.Errorf("%d samples cannot come from %d compressed bytes", vh.Samples, vh.PayloadBytes)
		}
	}
	return rawBytes, nil
}

func decodeSamples(dt series.DType, raw []byte, n int, start, step float64) (series.TimeSeries, error) {
	r := bytes.NewReader(raw)
	switch dt {
	case series.Float64:
		return decodeAs[float64](r, n, start, step)
	case series.Float32:
		return decodeAs[float32](r, n, start, step)
	case series.Uint32:
		return decodeAs[uint32](r, n, start, step)
	case series.Int32:
		return decodeAs[int32](r, n, start, step)
	default:
		return nil, fmt.Errorf("%w: unknown sample type %d", ErrCorrupt, dt)
	}
}

func decodeAs[T series.Sample](r io.Reader, n int, start, step float64) (series.TimeSeries, error) {
	s, err := series.New[T](n, start, step)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if err := binary.Read(r, binary.LittleEndian, s.Data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return s, nil
}
