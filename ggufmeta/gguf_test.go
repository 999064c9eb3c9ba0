package ggufmeta

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gguftok/gguftok/vocab"
)

// builder constructs a minimal valid GGUF binary for testing, covering only
// the header and metadata KV section this reader consumes.
type builder struct {
	buf []byte
}

func (b *builder) writeUint32(v uint32) { b.buf = binary.LittleEndian.AppendUint32(b.buf, v) }
func (b *builder) writeUint64(v uint64) { b.buf = binary.LittleEndian.AppendUint64(b.buf, v) }
func (b *builder) writeInt32(v int32)   { b.writeUint32(uint32(v)) }
func (b *builder) writeUint8(v uint8)   { b.buf = append(b.buf, v) }
func (b *builder) writeFloat32(v float32) {
	b.writeUint32(math.Float32bits(v))
}

func (b *builder) writeString(s string) {
	b.writeUint64(uint64(len(s)))
	b.buf = append(b.buf, s...)
}

func (b *builder) writeKVString(key, value string) {
	b.writeString(key)
	b.writeUint32(uint32(typeString))
	b.writeString(value)
}

func (b *builder) writeKVInt32(key string, value int32) {
	b.writeString(key)
	b.writeUint32(uint32(typeInt32))
	b.writeInt32(value)
}

func (b *builder) writeKVBool(key string, value bool) {
	b.writeString(key)
	b.writeUint32(uint32(typeBool))
	if value {
		b.writeUint8(1)
	} else {
		b.writeUint8(0)
	}
}

func (b *builder) writeKVStringArray(key string, values []string) {
	b.writeString(key)
	b.writeUint32(uint32(typeArray))
	b.writeUint32(uint32(typeString))
	b.writeUint64(uint64(len(values)))
	for _, v := range values {
		b.writeString(v)
	}
}

func (b *builder) writeKVInt32Array(key string, values []int32) {
	b.writeString(key)
	b.writeUint32(uint32(typeArray))
	b.writeUint32(uint32(typeInt32))
	b.writeUint64(uint64(len(values)))
	for _, v := range values {
		b.writeInt32(v)
	}
}

func (b *builder) writeKVFloat32Array(key string, values []float32) {
	b.writeString(key)
	b.writeUint32(uint32(typeArray))
	b.writeUint32(uint32(typeFloat32))
	b.writeUint64(uint64(len(values)))
	for _, v := range values {
		b.writeFloat32(v)
	}
}

func buildMinimalGGUF(t *testing.T, version uint32, kvCount int, writeKVs func(*builder)) string {
	t.Helper()

	b := &builder{}
	b.buf = append(b.buf, magic...)
	b.writeUint32(version)
	b.writeUint64(0) // tensor count: this reader never looks past the KV section
	b.writeUint64(uint64(kvCount))
	if writeKVs != nil {
		writeKVs(b)
	}

	path := filepath.Join(t.TempDir(), "test.gguf")
	require.NoError(t, os.WriteFile(path, b.buf, 0o644))
	return path
}

func TestOpenValidFile(t *testing.T) {
	path := buildMinimalGGUF(t, 3, 1, func(b *builder) {
		b.writeKVString(keyArchitecture, "llama")
	})

	f, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), f.Version)
	assert.Len(t, f.KeyValues, 1)

	v, ok := f.Get(keyArchitecture)
	require.True(t, ok)
	assert.Equal(t, "llama", v.String())
}

func TestOpenInvalidMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.gguf")
	require.NoError(t, os.WriteFile(path, []byte("BADx"), 0o644))

	_, err := Open(path)
	assert.ErrorContains(t, err, "bad magic")
}

func TestOpenUnsupportedVersion(t *testing.T) {
	path := buildMinimalGGUF(t, 1, 0, nil)
	_, err := Open(path)
	assert.ErrorContains(t, err, "below minimum")
}

func TestMetadataRecordBuildsVocabulary(t *testing.T) {
	path := buildMinimalGGUF(t, 3, 6, func(b *builder) {
		b.writeKVString(keyModel, "llama")
		b.writeKVStringArray(keyTokens, []string{"<unk>", "<s>", "</s>", "▁hi"})
		b.writeKVFloat32Array(keyScores, []float32{0, 0, 0, -1.2})
		b.writeKVInt32Array(keyTokenTypes, []int32{2, 3, 3, 1})
		b.writeKVInt32(keyBOSID, 1)
		b.writeKVBool(keyAddBOS, true)
	})

	f, err := Open(path)
	require.NoError(t, err)
	rec, err := f.MetadataRecord()
	require.NoError(t, err)

	assert.Equal(t, "llama", rec.Model)
	assert.Equal(t, []string{"<unk>", "<s>", "</s>", "▁hi"}, rec.Tokens)
	assert.Equal(t, []float32{0, 0, 0, -1.2}, rec.Scores)
	require.True(t, rec.HasBOSID)
	assert.EqualValues(t, 1, rec.BOSID)
	assert.True(t, rec.HasAddBOS)
	assert.True(t, rec.AddBOS)

	v, err := vocab.New(rec)
	require.NoError(t, err)
	assert.Equal(t, 4, v.Size())
}

func TestOpenRejectsExcessiveKVCount(t *testing.T) {
	// kvCount is declared far beyond maxCount; no actual KV bytes follow, so
	// this must fail on the bound check before any allocation or read.
	b := &builder{}
	b.buf = append(b.buf, magic...)
	b.writeUint32(3)
	b.writeUint64(0)
	b.writeUint64(1 << 40)

	path := filepath.Join(t.TempDir(), "huge-kvcount.gguf")
	require.NoError(t, os.WriteFile(path, b.buf, 0o644))

	_, err := Open(path)
	assert.ErrorContains(t, err, "exceeds")
	assert.ErrorContains(t, err, "limit")
}

func TestOpenRejectsExcessiveArrayCount(t *testing.T) {
	path := buildMinimalGGUF(t, 3, 1, func(b *builder) {
		b.writeString(keyTokens)
		b.writeUint32(uint32(typeArray))
		b.writeUint32(uint32(typeString))
		b.writeUint64(1 << 40) // array count declared far beyond maxCount
	})

	_, err := Open(path)
	assert.ErrorContains(t, err, "exceeds")
	assert.ErrorContains(t, err, "limit")
}

func TestLoadEndToEnd(t *testing.T) {
	path := buildMinimalGGUF(t, 3, 2, func(b *builder) {
		b.writeKVString(keyModel, "llama")
		b.writeKVStringArray(keyTokens, []string{"<unk>", "a", "b"})
	})

	v, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, v.Size())
}
