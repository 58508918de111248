package core

import (
	"errors"
	"fmt"

	"github.com/tsawler/pagesect/internal/filters"
)

// ErrEncrypted is returned when a stream uses the Crypt filter.
var ErrEncrypted = errors.New("encrypted stream")

// Decode applies the stream's /Filter chain to its data. /DecodeParms may be
// a single dictionary or an array parallel to /Filter. Image codecs such as
// DCTDecode end the chain and return the still-encoded image.
func (s *Stream) Decode() ([]byte, error) {
	names, params, err := s.filterChain()
	if err != nil {
		return nil, err
	}

	data := s.Data
	for i, name := range names {
		if name == "Crypt" {
			return nil, ErrEncrypted
		}
		data, err = filters.Decode(name, data, dictToParams(params[i]))
		if err != nil {
			return nil, fmt.Errorf("filter %d (%s): %w", i, name, err)
		}
		if filters.Passthrough(name) {
			break
		}
	}
	return data, nil
}

// Filters returns the names in the stream's /Filter entry.
func (s *Stream) Filters() []string {
	names, _, _ := s.filterChain()
	return names
}

func (s *Stream) filterChain() ([]string, []Dict, error) {
	var names []string
	switch f := s.Dict.Get("Filter").(type) {
	case nil:
		return nil, nil, nil
	case Name:
		names = []string{string(f)}
	case Array:
		for i, v := range f {
			n, ok := v.(Name)
			if !ok {
				return nil, nil, fmt.Errorf("filter %d is %s, not a name", i, v.Type())
			}
			names = append(names, string(n))
		}
	default:
		return nil, nil, fmt.Errorf("invalid /Filter of type %s", f.Type())
	}

	params := make([]Dict, len(names))
	switch p := s.Dict.Get("DecodeParms").(type) {
	case Dict:
		params[0] = p
	case Array:
		for i := 0; i < len(p) && i < len(params); i++ {
			params[i], _ = p[i].(Dict)
		}
	}
	return names, params, nil
}

// dictToParams converts decode parameters to Go values for the filters
// package.
func dictToParams(dict Dict) filters.Params {
	if dict == nil {
		return nil
	}
	params := make(filters.Params, len(dict))
	for k, v := range dict {
		switch obj := v.(type) {
		case Int:
			params[k] = int(obj)
		case Real:
			params[k] = float64(obj)
		case Bool:
			params[k] = bool(obj)
		case String:
			params[k] = string(obj)
		case Name:
			params[k] = string(obj)
		}
	}
	return params
}
