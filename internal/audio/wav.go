package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// wavHeaderSize is the size of a canonical 16-bit PCM RIFF header.
const wavHeaderSize = 44

// EncodeWAV writes pcm as a mono 16-bit PCM WAV stream.
func EncodeWAV(w io.Writer, pcm []float32, rate int) error {
	dataLen := uint32(len(pcm) * 2)
	header := make([]byte, wavHeaderSize)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], 36+dataLen)
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], 1) // mono
	binary.LittleEndian.PutUint32(header[24:28], uint32(rate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(rate*2))
	binary.LittleEndian.PutUint16(header[32:34], 2)
	binary.LittleEndian.PutUint16(header[34:36], 16)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], dataLen)

	body := make([]byte, dataLen)
	for i, s := range pcm {
		v := int16(math.Round(float64(s) * math.MaxInt16))
		binary.LittleEndian.PutUint16(body[i*2:], uint16(v))
	}

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("write wav header: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("write wav data: %w", err)
	}
	return nil
}
