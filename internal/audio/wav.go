package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// WAVHeader represents the canonical 44-byte header of a PCM WAV file.
type WAVHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // File size - 8 bytes
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32 // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16 // NumChannels * BitsPerSample / 8
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // Number of bytes in the data
}

// EncodeWAV encodes mono PCM-16 samples into WAV format.
func EncodeWAV(samples []int16, sampleRate int) ([]byte, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: cannot encode empty audio samples", ErrInvalidInput)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalidInput, sampleRate)
	}

	numChannels := uint16(1)
	bitsPerSample := uint16(16)
	dataSize := uint32(len(samples) * 2)

	header := WAVHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   numChannels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * uint32(numChannels) * uint32(bitsPerSample) / 8,
		BlockAlign:    numChannels * bitsPerSample / 8,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	buf := bytes.NewBuffer(make([]byte, 0, 44+len(samples)*2))
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeWAV decodes 16-bit PCM WAV data into interleaved samples. Mono and
// stereo files are accepted; the caller downmixes via FromPCM16.
func DecodeWAV(data []byte) (samples []int16, sampleRate, channels int, err error) {
	if len(data) < 44 {
		return nil, 0, 0, fmt.Errorf("%w: WAV data too short: need at least 44 bytes, got %d", ErrInvalidInput, len(data))
	}

	buf := bytes.NewReader(data)
	var header WAVHeader
	if err := binary.Read(buf, binary.LittleEndian, &header); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to read WAV header: %w", err)
	}

	if string(header.ChunkID[:]) != "RIFF" {
		return nil, 0, 0, fmt.Errorf("%w: missing RIFF header", ErrInvalidInput)
	}
	if string(header.Format[:]) != "WAVE" {
		return nil, 0, 0, fmt.Errorf("%w: missing WAVE format", ErrInvalidInput)
	}
	if string(header.Subchunk1ID[:]) != "fmt " {
		return nil, 0, 0, fmt.Errorf("%w: missing fmt chunk", ErrInvalidInput)
	}
	if string(header.Subchunk2ID[:]) != "data" {
		return nil, 0, 0, fmt.Errorf("%w: missing data chunk", ErrInvalidInput)
	}
	if header.AudioFormat != 1 {
		return nil, 0, 0, fmt.Errorf("%w: unsupported audio format %d (only PCM)", ErrInvalidInput, header.AudioFormat)
	}
	if header.BitsPerSample != 16 {
		return nil, 0, 0, fmt.Errorf("%w: unsupported bit depth %d (only 16-bit)", ErrInvalidInput, header.BitsPerSample)
	}
	if header.NumChannels != 1 && header.NumChannels != 2 {
		return nil, 0, 0, fmt.Errorf("%w: unsupported channel count %d", ErrInvalidInput, header.NumChannels)
	}

	numSamples := int(header.Subchunk2Size) / 2
	if numSamples <= 0 {
		return nil, 0, 0, fmt.Errorf("%w: no audio data found", ErrInvalidInput)
	}

	samples = make([]int16, numSamples)
	if err := binary.Read(buf, binary.LittleEndian, samples); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to read audio samples: %w", err)
	}
	return samples, int(header.SampleRate), int(header.NumChannels), nil
}

// DecodeWAVBuffer decodes WAV bytes straight into a normalized mono Buffer.
func DecodeWAVBuffer(data []byte) (*Buffer, error) {
	samples, rate, channels, err := DecodeWAV(data)
	if err != nil {
		return nil, err
	}
	return FromPCM16(samples, rate, channels)
}
