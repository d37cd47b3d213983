package c2

import (
	"encoding/json"
	"fmt"
	"mime"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Encoding selects the wire format of C2 messages.
type Encoding string

const (
	// EncodingJSON encodes messages as JSON (default).
	EncodingJSON Encoding = "json"
	// EncodingMsgpack encodes messages as MessagePack.
	EncodingMsgpack Encoding = "msgpack"
)

// Content types sent and accepted for each encoding.
const (
	ContentTypeJSON    = "application/json"
	ContentTypeMsgpack = "application/msgpack"
)

// ParseEncoding parses an encoding name. Empty means JSON.
func ParseEncoding(s string) (Encoding, error) {
	switch Encoding(strings.ToLower(strings.TrimSpace(s))) {
	case "", EncodingJSON:
		return EncodingJSON, nil
	case EncodingMsgpack:
		return EncodingMsgpack, nil
	default:
		return "", fmt.Errorf("unknown encoding %q (valid: json, msgpack)", s)
	}
}

// codec marshals C2 messages in one wire format.
type codec interface {
	ContentType() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

type jsonCodec struct{}

func (jsonCodec) ContentType() string                { return ContentTypeJSON }
func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

type msgpackCodec struct{}

func (msgpackCodec) ContentType() string                { return ContentTypeMsgpack }
func (msgpackCodec) Marshal(v any) ([]byte, error)      { return msgpack.Marshal(v) }
func (msgpackCodec) Unmarshal(data []byte, v any) error { return msgpack.Unmarshal(data, v) }

func codecFor(e Encoding) codec {
	if e == EncodingMsgpack {
		return msgpackCodec{}
	}
	return jsonCodec{}
}

// codecForContentType picks the codec matching a response Content-Type,
// falling back to def when the header is missing or unrecognized.
func codecForContentType(header string, def codec) codec {
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil {
		return def
	}
	switch mediaType {
	case ContentTypeJSON:
		return jsonCodec{}
	case ContentTypeMsgpack, "application/x-msgpack":
		return msgpackCodec{}
	default:
		return def
	}
}
