// Package ggufmeta opens a GGUF model file and reads only its metadata
// key-value section, projecting the closed tokenizer key set into a
// vocab.MetadataRecord. It never reads TensorInfo or tensor bytes.
package ggufmeta

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
	"golang.org/x/exp/mmap"

	"github.com/gguftok/gguftok/errs"
)

const (
	magic               = "GGUF"
	minSupportedVersion = 2
	maxStringLen        = 1 << 20 // 1 MiB sanity bound for a single GGUF string
	maxCount            = 1 << 24 // sanity bound on any length-prefixed count before allocation
)

// File holds the parsed metadata key-value section of a GGUF file.
type File struct {
	Version   uint32
	KeyValues []KeyValue

	kvByKey map[string]*KeyValue
}

// KeyValue is one metadata entry.
type KeyValue struct {
	Key string
	Value
}

// Open reads the GGUF header and metadata KV section from path. It tries a
// shared flock on the sidecar file path+".lock" and, if that lock is free,
// holds it for the duration of the read; if another process holds it, the
// read goes ahead without the lock. The lock is advisory and excludes only
// writers that take the same lock.
func Open(path string) (*File, error) {
	lock := flock.New(path + ".lock")
	locked, err := lock.TryRLock()
	if err != nil {
		return nil, errors.Wrapf(err, "ggufmeta: locking %q", path)
	}
	if locked {
		defer lock.Unlock()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "ggufmeta: open %q", path)
	}
	defer f.Close()

	file, err := parse(&countingReader{r: f})
	if err != nil {
		return nil, errors.Wrapf(err, "ggufmeta: parse %q", path)
	}
	return file, nil
}

// OpenMapped is like Open but keeps the file memory-mapped for the lifetime
// of the returned closer, for callers that want to avoid a second read
// later (e.g. re-deriving MetadataRecord without reopening the file).
func OpenMapped(path string) (*File, io.Closer, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "ggufmeta: mmap open %q", path)
	}
	file, err := parse(io.NewSectionReader(r, 0, int64(r.Len())))
	if err != nil {
		r.Close()
		return nil, nil, errors.Wrapf(err, "ggufmeta: parse %q", path)
	}
	return file, r, nil
}

func parse(r io.Reader) (*File, error) {
	cr := &countingReader{r: r}

	var mg [4]byte
	if err := binary.Read(cr, binary.LittleEndian, &mg); err != nil {
		return nil, errors.Wrap(err, "read magic")
	}
	if string(mg[:]) != magic {
		return nil, errs.InvalidMetadataf("bad magic %q", mg[:])
	}

	file := &File{}
	if err := binary.Read(cr, binary.LittleEndian, &file.Version); err != nil {
		return nil, errors.Wrap(err, "read version")
	}
	if file.Version < minSupportedVersion {
		return nil, errs.InvalidMetadataf("version %d below minimum %d", file.Version, minSupportedVersion)
	}

	var tensorCount, kvCount uint64
	if err := binary.Read(cr, binary.LittleEndian, &tensorCount); err != nil {
		return nil, errors.Wrap(err, "read tensor count")
	}
	if err := binary.Read(cr, binary.LittleEndian, &kvCount); err != nil {
		return nil, errors.Wrap(err, "read kv count")
	}
	if kvCount > maxCount {
		return nil, errs.InvalidMetadataf("kv count %d exceeds %d entry limit", kvCount, maxCount)
	}

	file.KeyValues = make([]KeyValue, 0, kvCount)
	for i := uint64(0); i < kvCount; i++ {
		kv, err := readKeyValue(cr)
		if err != nil {
			return nil, errors.Wrapf(err, "read kv pair %d/%d", len(file.KeyValues), kvCount)
		}
		file.KeyValues = append(file.KeyValues, kv)
	}
	// tensorCount, and everything after the KV section (TensorInfo entries,
	// alignment, tensor data), is deliberately never read: this reader's
	// domain ends at the metadata section.
	_ = tensorCount

	file.kvByKey = make(map[string]*KeyValue, len(file.KeyValues))
	for i := range file.KeyValues {
		file.kvByKey[file.KeyValues[i].Key] = &file.KeyValues[i]
	}
	return file, nil
}

// Get looks up a metadata key-value pair by key.
func (f *File) Get(key string) (Value, bool) {
	kv, ok := f.kvByKey[key]
	if !ok {
		return Value{}, false
	}
	return kv.Value, true
}

type countingReader struct {
	r io.Reader
	n int64
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	cr.n += int64(n)
	return n, err
}

func readString(r io.Reader) (string, error) {
	var length uint64
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return "", errors.Wrap(err, "read string length")
	}
	if length > maxStringLen {
		return "", errors.Errorf("string length %d exceeds %d byte limit", length, maxStringLen)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", errors.Wrap(err, "read string data")
	}
	return string(buf), nil
}

func readKeyValue(r io.Reader) (KeyValue, error) {
	key, err := readString(r)
	if err != nil {
		return KeyValue{}, errors.Wrap(err, "read key")
	}
	var typeTag uint32
	if err := binary.Read(r, binary.LittleEndian, &typeTag); err != nil {
		return KeyValue{}, errors.Wrapf(err, "read value type for %q", key)
	}
	val, err := readValue(r, valueType(typeTag))
	if err != nil {
		return KeyValue{}, errors.Wrapf(err, "read value for %q (type %d)", key, typeTag)
	}
	return KeyValue{Key: key, Value: val}, nil
}

func readValue(r io.Reader, vt valueType) (Value, error) {
	switch vt {
	case typeUint8:
		var v uint8
		err := binary.Read(r, binary.LittleEndian, &v)
		return Value{data: v}, err
	case typeInt8:
		var v int8
		err := binary.Read(r, binary.LittleEndian, &v)
		return Value{data: v}, err
	case typeUint16:
		var v uint16
		err := binary.Read(r, binary.LittleEndian, &v)
		return Value{data: v}, err
	case typeInt16:
		var v int16
		err := binary.Read(r, binary.LittleEndian, &v)
		return Value{data: v}, err
	case typeUint32:
		var v uint32
		err := binary.Read(r, binary.LittleEndian, &v)
		return Value{data: v}, err
	case typeInt32:
		var v int32
		err := binary.Read(r, binary.LittleEndian, &v)
		return Value{data: v}, err
	case typeFloat32:
		var v float32
		err := binary.Read(r, binary.LittleEndian, &v)
		return Value{data: v}, err
	case typeBool:
		var v uint8
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return Value{}, err
		}
		return Value{data: v != 0}, nil
	case typeString:
		s, err := readString(r)
		return Value{data: s}, err
	case typeUint64:
		var v uint64
		err := binary.Read(r, binary.LittleEndian, &v)
		return Value{data: v}, err
	case typeInt64:
		var v int64
		err := binary.Read(r, binary.LittleEndian, &v)
		return Value{data: v}, err
	case typeFloat64:
		var v float64
		err := binary.Read(r, binary.LittleEndian, &v)
		return Value{data: v}, err
	case typeArray:
		return readArray(r)
	default:
		return Value{}, errs.InvalidMetadataf("unknown value type %d", vt)
	}
}

func readArray(r io.Reader) (Value, error) {
	var elemType uint32
	if err := binary.Read(r, binary.LittleEndian, &elemType); err != nil {
		return Value{}, errors.Wrap(err, "read array element type")
	}
	var count uint64
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return Value{}, errors.Wrap(err, "read array count")
	}
	if count > maxCount {
		return Value{}, errs.InvalidMetadataf("array count %d exceeds %d entry limit", count, maxCount)
	}

	switch valueType(elemType) {
	case typeUint8:
		return readArrayOf[uint8](r, count)
	case typeInt8:
		return readArrayOf[int8](r, count)
	case typeUint16:
		return readArrayOf[uint16](r, count)
	case typeInt16:
		return readArrayOf[int16](r, count)
	case typeUint32:
		return readArrayOf[uint32](r, count)
	case typeInt32:
		return readArrayOf[int32](r, count)
	case typeFloat32:
		return readArrayOf[float32](r, count)
	case typeUint64:
		return readArrayOf[uint64](r, count)
	case typeInt64:
		return readArrayOf[int64](r, count)
	case typeFloat64:
		return readArrayOf[float64](r, count)
	case typeBool:
		return readBoolArray(r, count)
	case typeString:
		return readStringArray(r, count)
	default:
		return Value{}, errs.InvalidMetadataf("unsupported array element type %d", elemType)
	}
}

func readArrayOf[T any](r io.Reader, count uint64) (Value, error) {
	vals := make([]T, count)
	for i := range vals {
		if err := binary.Read(r, binary.LittleEndian, &vals[i]); err != nil {
			return Value{}, errors.Wrapf(err, "read array element %d", i)
		}
	}
	return Value{data: vals}, nil
}

func readBoolArray(r io.Reader, count uint64) (Value, error) {
	vals := make([]bool, count)
	for i := range vals {
		var b uint8
		if err := binary.Read(r, binary.LittleEndian, &b); err != nil {
			return Value{}, errors.Wrapf(err, "read bool array element %d", i)
		}
		vals[i] = b != 0
	}
	return Value{data: vals}, nil
}

func readStringArray(r io.Reader, count uint64) (Value, error) {
	vals := make([]string, count)
	for i := range vals {
		s, err := readString(r)
		if err != nil {
			return Value{}, errors.Wrapf(err, "read string array element %d", i)
		}
		vals[i] = s
	}
	return Value{data: vals}, nil
}
