package navdata

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// EncodeMsgpack encodes a set with msgpack.
func EncodeMsgpack(set *Set) ([]byte, error) {
	data, err := msgpack.Marshal(set)
	if err != nil {
		return nil, fmt.Errorf("encoding navdata: %w", err)
	}
	return data, nil
}

// DecodeMsgpack decodes a set encoded by EncodeMsgpack.
func DecodeMsgpack(data []byte) (*Set, error) {
	set := &Set{}
	if err := msgpack.Unmarshal(data, set); err != nil {
		return nil, fmt.Errorf("decoding navdata: %w", err)
	}
	return set, nil
}
