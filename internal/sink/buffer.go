package sink

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"strings"
	"unicode/utf8"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/net/html/charset"
	"gopkg.in/yaml.v3"

	"github.com/vertextoedge/wget-fetch/internal/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// BufferSink accumulates the body in memory and decodes it on Finalize
type BufferSink struct {
	kind domain.SinkKind
	buf  bytes.Buffer
}

// NewBuffer creates an in-memory sink of the given kind
func NewBuffer(kind domain.SinkKind) *BufferSink {
	return &BufferSink{kind: kind}
}

// Open is a no-op; buffers never resume across runs
func (s *BufferSink) Open() (int64, error) {
	return 0, nil
}

// Begin drops the buffered bytes beyond offset
func (s *BufferSink) Begin(offset int64) error {
	if offset > int64(s.buf.Len()) {
		return fmt.Errorf("%w: offset %d beyond %d buffered bytes", domain.ErrInvalidInput, offset, s.buf.Len())
	}
	s.buf.Truncate(int(offset))
	return nil
}

// Consume appends one chunk
func (s *BufferSink) Consume(chunk []byte) error {
	s.buf.Write(chunk)
	return nil
}

// Offset returns the buffered length
func (s *BufferSink) Offset() int64 {
	return int64(s.buf.Len())
}

// Contents returns a reader over the buffered bytes
func (s *BufferSink) Contents() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.buf.Bytes())), nil
}

// Finalize decodes the buffer according to the sink kind
func (s *BufferSink) Finalize(meta Meta) (domain.Payload, error) {
	raw := s.buf.Bytes()
	contentType := meta.Header.Get("Content-Type")

	switch s.kind {
	case domain.SinkText:
		text, err := DecodeText(raw, contentType)
		return domain.Payload{Text: text}, err
	case domain.SinkDecodedText:
		text, err := DetectText(raw, contentType)
		return domain.Payload{Text: text}, err
	case domain.SinkStructured:
		data, err := DecodeStructured(raw, contentType)
		return domain.Payload{Data: data}, err
	default:
		return domain.Payload{Bytes: raw}, nil
	}
}

// Abort drops the buffer
func (s *BufferSink) Abort() error {
	s.buf.Reset()
	return nil
}

// DecodeText decodes raw using the charset declared in contentType.
// Without a declaration the body is taken as UTF-8 with invalid sequences
// replaced.
func DecodeText(raw []byte, contentType string) (string, error) {
	name := ""
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		name = params["charset"]
	}
	if name == "" || strings.EqualFold(name, "utf-8") || strings.EqualFold(name, "utf8") {
		return toValidUTF8(raw), nil
	}

	enc, _ := charset.Lookup(name)
	if enc == nil {
		return "", fmt.Errorf("%w: unsupported charset %q", domain.ErrDecode, name)
	}
	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", domain.ErrDecode, name, err)
	}
	return string(decoded), nil
}

// DetectText decodes raw using a charset sniffed from the content, its byte
// order mark and the declared content type
func DetectText(raw []byte, contentType string) (string, error) {
	enc, name, _ := charset.DetermineEncoding(raw, contentType)
	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", domain.ErrDecode, name, err)
	}
	return toValidUTF8(decoded), nil
}

// DecodeStructured parses raw as YAML for yaml content types and as JSON
// otherwise
func DecodeStructured(raw []byte, contentType string) (any, error) {
	var data any
	if isYAML(contentType) {
		if err := yaml.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("%w: yaml: %w", domain.ErrDecode, err)
		}
		return data, nil
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("%w: json: empty body", domain.ErrDecode)
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: json: %w", domain.ErrDecode, err)
	}
	return data, nil
}

func isYAML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	switch mediaType {
	case "application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml":
		return true
	}
	return false
}

func toValidUTF8(b []byte) string {
	// Strip a UTF-8 byte order mark
	b = bytes.TrimPrefix(b, []byte("\xef\xbb\xbf"))
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), "\uFFFD")
}
