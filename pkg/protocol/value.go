package protocol

import (
	"errors"
	"io"
)

// valueType tags a value in the compact binary encoding.
type valueType uint8

const (
	valueNull   valueType = 0x00
	valueBool   valueType = 0x01
	valueInt    valueType = 0x02
	valueUint   valueType = 0x03
	valueFloat  valueType = 0x04
	valueString valueType = 0x05
	valueArray  valueType = 0x06
	valueObject valueType = 0x07
)

// MaxValueDepth is the maximum nesting depth for payload values.
// Prevents stack overflow from maliciously deeply nested payloads.
const MaxValueDepth = 64

// ErrMaxDepthExceeded is returned when a decoded payload nests deeper
// than MaxValueDepth.
var ErrMaxDepthExceeded = errors.New("protocol: maximum nesting depth exceeded")

// encodeValue appends a tagged value to the encoder. Unknown Go types
// encode as null.
func encodeValue(enc *Encoder, v any) {
	switch val := v.(type) {
	case nil:
		enc.WriteByte(byte(valueNull))
	case bool:
		enc.WriteByte(byte(valueBool))
		enc.WriteBool(val)
	case int:
		enc.WriteByte(byte(valueInt))
		enc.WriteSvarint(int64(val))
	case int64:
		enc.WriteByte(byte(valueInt))
		enc.WriteSvarint(val)
	case uint8:
		enc.WriteByte(byte(valueUint))
		enc.WriteUvarint(uint64(val))
	case uint64:
		enc.WriteByte(byte(valueUint))
		enc.WriteUvarint(val)
	case float64:
		enc.WriteByte(byte(valueFloat))
		enc.WriteFloat64(val)
	case string:
		enc.WriteByte(byte(valueString))
		enc.WriteString(val)
	case []any:
		enc.WriteByte(byte(valueArray))
		enc.WriteUvarint(uint64(len(val)))
		for _, item := range val {
			encodeValue(enc, item)
		}
	case []string:
		enc.WriteByte(byte(valueArray))
		enc.WriteUvarint(uint64(len(val)))
		for _, item := range val {
			enc.WriteByte(byte(valueString))
			enc.WriteString(item)
		}
	case []map[string]any:
		enc.WriteByte(byte(valueArray))
		enc.WriteUvarint(uint64(len(val)))
		for _, item := range val {
			encodeValue(enc, item)
		}
	case map[string]any:
		enc.WriteByte(byte(valueObject))
		enc.WriteUvarint(uint64(len(val)))
		for k, item := range val {
			enc.WriteString(k)
			encodeValue(enc, item)
		}
	default:
		enc.WriteByte(byte(valueNull))
	}
}

// decodeValue reads a tagged value from the decoder.
func decodeValue(d *Decoder) (any, error) {
	return decodeValueDepth(d, 0)
}

func decodeValueDepth(d *Decoder, depth int) (any, error) {
	if depth > MaxValueDepth {
		return nil, ErrMaxDepthExceeded
	}

	tag, err := d.ReadByte()
	if err != nil {
		return nil, err
	}

	switch valueType(tag) {
	case valueNull:
		return nil, nil

	case valueBool:
		return d.ReadBool()

	case valueInt:
		return d.ReadSvarint()

	case valueUint:
		return d.ReadUvarint()

	case valueFloat:
		return d.ReadFloat64()

	case valueString:
		return d.ReadString()

	case valueArray:
		count, err := d.ReadCollectionCount()
		if err != nil {
			return nil, err
		}
		arr := make([]any, count)
		for i := 0; i < count; i++ {
			val, err := decodeValueDepth(d, depth+1)
			if err != nil {
				return nil, err
			}
			arr[i] = val
		}
		return arr, nil

	case valueObject:
		count, err := d.ReadCollectionCount()
		if err != nil {
			return nil, err
		}
		obj := make(map[string]any, count)
		for i := 0; i < count; i++ {
			key, err := d.ReadString()
			if err != nil {
				return nil, err
			}
			val, err := decodeValueDepth(d, depth+1)
			if err != nil {
				return nil, err
			}
			obj[key] = val
		}
		return obj, nil

	default:
		return nil, io.ErrUnexpectedEOF
	}
}
