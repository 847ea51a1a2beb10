// Package codec packs a leaderboard into a URL-safe share token and back.
//
// A token is "<version>~<data>", where data is the LZMA-compressed JSON
// envelope {"payload": ...}, base64 encoded with '+', '/' and '=' replaced by
// '-', '_' and "%3d".
package codec

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"uocsclub.net/aocstats/internal/types"
	"uocsclub.net/aocstats/internal/validate"
)

const (
	Version   = 1
	separator = "~"
)

var (
	ErrUnsupportedVersion = errors.New("unsupported share token version")
	ErrMalformedToken     = errors.New("malformed share token")
	ErrCorruptStream      = errors.New("share token data is corrupt")
	ErrInvalidPayload     = errors.New("share token holds an invalid leaderboard")
)

var (
	escaper   = strings.NewReplacer("+", "-", "/", "_", "=", "%3d")
	unescaper = strings.NewReplacer("-", "+", "_", "/", "%3d", "=", "%3D", "=")
)

// Compressor is the byte-level compression behind the token.
type Compressor interface {
	Compress(text string) ([]byte, error)
	Decompress(data []byte) (string, error)
}

type envelope struct {
	Version *int            `json:"version,omitempty"` // tokens without a version prefix only
	Payload *types.AOCEvent `json:"payload"`
}

type Codec struct {
	compressor Compressor
}

func New(c Compressor) *Codec {
	return &Codec{compressor: c}
}

var defaultCodec = New(LZMA{})

func Encode(event *types.AOCEvent) (string, error) {
	return defaultCodec.Encode(event)
}

func Decode(token string) (*types.AOCEvent, error) {
	return defaultCodec.Decode(token)
}

func (c *Codec) Encode(event *types.AOCEvent) (string, error) {
	if event == nil {
		return "", errors.New("nothing to encode")
	}

	pack, err := json.Marshal(envelope{Payload: event})
	if err != nil {
		return "", fmt.Errorf("failed to serialize leaderboard: %w", err)
	}

	compressed, err := c.compressor.Compress(string(pack))
	if err != nil {
		return "", fmt.Errorf("failed to compress leaderboard: %w", err)
	}

	code := escaper.Replace(base64.StdEncoding.EncodeToString(compressed))
	return strconv.Itoa(Version) + separator + code, nil
}

// Decode reverses Encode. Tokens without a version prefix are read as the
// older format, which carries the version inside the envelope.
func (c *Codec) Decode(token string) (*types.AOCEvent, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMalformedToken
	}

	version, code, prefixed := strings.Cut(token, separator)
	if !prefixed {
		code = token
	} else if version != strconv.Itoa(Version) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedVersion, version)
	}

	compressed, err := base64.StdEncoding.DecodeString(unescaper.Replace(code))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	pack, err := c.compressor.Decompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptStream, err)
	}
	if !gjson.Valid(pack) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrCorruptStream)
	}

	if !prefixed {
		if v := gjson.Get(pack, "version"); v.Type != gjson.Number || v.Int() != Version {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedVersion, v.Raw)
		}
	}

	payload := gjson.Get(pack, "payload")
	if err := validate.Result(payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	data := envelope{}
	if err := json.Unmarshal([]byte(pack), &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	return data.Payload, nil
}
