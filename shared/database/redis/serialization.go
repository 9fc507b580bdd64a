package redis

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// Leading byte of every cached payload
const (
	payloadPlain      byte = 0
	payloadCompressed byte = 1
)

// SerializeObject serializes an object using the specified format
func SerializeObject(obj interface{}, format string) ([]byte, error) {
	switch format {
	case "json":
		return json.Marshal(obj)
	default:
		return msgpack.Marshal(obj)
	}
}

// DeserializeObject deserializes data into an object using the specified format
func DeserializeObject(data []byte, obj interface{}, format string) error {
	switch format {
	case "json":
		return json.Unmarshal(data, obj)
	default:
		return msgpack.Unmarshal(data, obj)
	}
}

// EncodeValue serializes obj and compresses it when it crosses the threshold
func EncodeValue(obj interface{}, format string, compression CompressionConfig) ([]byte, error) {
	data, err := SerializeObject(obj, format)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize value: %w", err)
	}

	if !compression.Enabled || len(data) < compression.Threshold {
		return append([]byte{payloadPlain}, data...), nil
	}

	compressed, err := CompressData(data, compression)
	if err != nil {
		return nil, err
	}
	return append([]byte{payloadCompressed}, compressed...), nil
}

// DecodeValue reverses EncodeValue
func DecodeValue(payload []byte, obj interface{}, format string, compression CompressionConfig) error {
	if len(payload) == 0 {
		return fmt.Errorf("empty cache payload")
	}

	data := payload[1:]
	switch payload[0] {
	case payloadPlain:
	case payloadCompressed:
		decompressed, err := DecompressData(data, compression)
		if err != nil {
			return err
		}
		data = decompressed
	default:
		return fmt.Errorf("unknown cache payload marker %d", payload[0])
	}

	return DeserializeObject(data, obj, format)
}

// CompressData compresses data using the specified algorithm
func CompressData(data []byte, config CompressionConfig) ([]byte, error) {
	switch config.Algorithm {
	case "gzip":
		return compressGzip(data, config.Level)
	default:
		return compressLZ4(data)
	}
}

// DecompressData decompresses data using the specified algorithm
func DecompressData(data []byte, config CompressionConfig) ([]byte, error) {
	switch config.Algorithm {
	case "gzip":
		return decompressGzip(data)
	default:
		return decompressLZ4(data)
	}
}

func compressGzip(data []byte, level int) ([]byte, error) {
	if level == 0 {
		level = gzip.DefaultCompression
	}

	var buf bytes.Buffer
	writer, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip writer: %w", err)
	}

	if _, err := writer.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write compressed data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close gzip writer: %w", err)
	}

	return buf.Bytes(), nil
}

func decompressGzip(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer reader.Close()

	decompressed, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read decompressed data: %w", err)
	}
	return decompressed, nil
}

func compressLZ4(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := lz4.NewWriter(&buf)

	if _, err := writer.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write LZ4 compressed data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close LZ4 writer: %w", err)
	}

	return buf.Bytes(), nil
}

func decompressLZ4(data []byte) ([]byte, error) {
	decompressed, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to read LZ4 decompressed data: %w", err)
	}
	return decompressed, nil
}
