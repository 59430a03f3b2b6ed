package radio

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertU8(t *testing.T) {
	raw := []byte{0, 127, 128, 255}
	I := make([]float32, 2)
	Q := make([]float32, 2)
	ConvertU8(raw, I, Q)
	assert.InDelta(t, -0.995, float64(I[0]), 1e-6)
	assert.InDelta(t, float64(127)/128-0.995, float64(Q[0]), 1e-6)
	assert.InDelta(t, float64(128)/128-0.995, float64(I[1]), 1e-6)
	assert.InDelta(t, float64(255)/128-0.995, float64(Q[1]), 1e-6)
}

func TestConvertU8IgnoresTrailingByte(t *testing.T) {
	raw := []byte{128, 128, 200}
	I := make([]float32, 1)
	Q := make([]float32, 1)
	ConvertU8(raw, I, Q)
	assert.InDelta(t, float64(128)/128-0.995, float64(I[0]), 1e-6)
}

func TestWriteFloatsRoundTrip(t *testing.T) {
	I := []float32{-0.995, 0, 0.25, 1.0039}
	Q := []float32{0.5, -0.5, 0.0859375, -0.25}
	var buf bytes.Buffer
	require.NoError(t, NewIQWriter(&buf).WriteFloats(I, Q))
	require.Equal(t, 2*len(I), buf.Len())

	gotI := make([]float32, len(I))
	gotQ := make([]float32, len(Q))
	ConvertU8(buf.Bytes(), gotI, gotQ)
	for i := range I {
		assert.InDelta(t, float64(I[i]), float64(gotI[i]), 1.0/128)
		assert.InDelta(t, float64(Q[i]), float64(gotQ[i]), 1.0/128)
	}
}

func TestWrite64ClampsRange(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewIQWriter(&buf).Write64([]complex64{complex(-2, 2)}))
	assert.Equal(t, []byte{0, 255}, buf.Bytes())
}

func TestBatchStreamBytes(t *testing.T) {
	raw := make([]byte, 64)
	for i := range raw {
		raw[i] = byte(i)
	}
	var blocks [][]byte
	for b := range NewIQReader(bytes.NewReader(raw)).BatchStreamBytes(context.Background(), 8, 0) {
		blocks = append(blocks, b)
	}
	// 64 bytes is 32 pairs: four full blocks of eight pairs.
	require.Len(t, blocks, 4)
	for i, b := range blocks {
		require.Len(t, b, 16)
		assert.Equal(t, byte(16*i), b[0])
	}
}

func TestBatchStreamBytesLimit(t *testing.T) {
	raw := make([]byte, 64)
	n := 0
	for range NewIQReader(bytes.NewReader(raw)).BatchStreamBytes(context.Background(), 4, 2) {
		n++
	}
	assert.Equal(t, 2, n)
}

func TestBatch64Conversion(t *testing.T) {
	raw := []byte{128, 128, 255, 0}
	samps := <-NewIQReader(bytes.NewReader(raw)).Batch64(2, 1)
	require.Len(t, samps, 2)
	assert.InDelta(t, float64(128)/128-0.995, float64(real(samps[0])), 1e-6)
	assert.InDelta(t, float64(255)/128-0.995, float64(real(samps[1])), 1e-6)
	assert.InDelta(t, -0.995, float64(imag(samps[1])), 1e-6)
}

func TestBatchStreamBytesDropsShortTail(t *testing.T) {
	// 3 pairs cannot fill a 4-pair block; the stream ends without it.
	raw := make([]byte, 6)
	n := 0
	for range NewIQReader(bytes.NewReader(raw)).BatchStreamBytes(context.Background(), 4, 0) {
		n++
	}
	assert.Equal(t, 0, n)
}
