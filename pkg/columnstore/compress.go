package columnstore

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zstd"
)

// compressThreshold is the smallest Data-column payload size, in bytes,
// worth paying zstd's framing overhead for. An in-memory store has no disk
// to save, but large values (blobs, serialized documents) still dominate
// process RSS, and Percolator's Data column is append-only — nothing here
// ever gets rewritten, so compress-once-at-prewrite is free relative to the
// read path.
const compressThreshold = 256

const (
	flagPlain      byte = 0
	flagCompressed byte = 1
)

var (
	encoderOnce sync.Once
	encoder     *zstd.Encoder
	decoderOnce sync.Once
	decoder     *zstd.Decoder
)

func zstdEncoder() *zstd.Encoder {
	encoderOnce.Do(func() {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			panic(errors.Wrap(err, "columnstore: building zstd encoder"))
		}
		encoder = enc
	})
	return encoder
}

func zstdDecoder() *zstd.Decoder {
	decoderOnce.Do(func() {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			panic(errors.Wrap(err, "columnstore: building zstd decoder"))
		}
		decoder = dec
	})
	return decoder
}

// encodePayload compresses v when it's large enough to be worth it,
// prefixing a one-byte flag so decodePayload knows whether to inflate.
func encodePayload(v []byte) []byte {
	if len(v) < compressThreshold {
		out := make([]byte, 1+len(v))
		out[0] = flagPlain
		copy(out[1:], v)
		return out
	}
	compressed := zstdEncoder().EncodeAll(v, make([]byte, 0, len(v)/2+1))
	out := make([]byte, 1+len(compressed))
	out[0] = flagCompressed
	copy(out[1:], compressed)
	return out
}

// decodePayload reverses encodePayload.
func decodePayload(raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	flag, body := raw[0], raw[1:]
	switch flag {
	case flagPlain:
		return body, nil
	case flagCompressed:
		out, err := zstdDecoder().DecodeAll(body, nil)
		if err != nil {
			return nil, errors.Wrap(err, "columnstore: decompressing data cell")
		}
		return out, nil
	default:
		return nil, errors.Newf("columnstore: unknown payload flag %d", flag)
	}
}
