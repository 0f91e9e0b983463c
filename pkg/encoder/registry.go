package encoder

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/thediveo/enumflag/v2"
)

type Backend enumflag.Flag

const (
	LibWebP Backend = iota
	CWebP
)

var BackendValue = map[Backend][]string{
	LibWebP: {"libwebp"},
	CWebP:   {"cwebp"},
}

var BackendHelp = enumflag.Help[Backend]{
	LibWebP: "In-process libwebp encoder",
	CWebP:   "External cwebp binary",
}

var DefaultBackend = LibWebP

func (b Backend) String() string {
	if names, ok := BackendValue[b]; ok {
		return names[0]
	}
	return fmt.Sprintf("backend(%d)", b)
}

var encoders = map[Backend]Encoder{
	LibWebP: &LibWebPEncoder{},
	CWebP:   &CWebPEncoder{},
}

// Get returns the encoder for a backend, probing its availability.
// If the backend is unknown or unavailable, an error is returned.
var Get = getEncoder

func getEncoder(backend Backend) (Encoder, error) {
	enc, ok := encoders[backend]
	if !ok {
		return nil, fmt.Errorf("unknown encoder backend %q, available options are %s",
			backend, strings.Join(ListAll(), ", "))
	}
	if !enc.Available() {
		return nil, fmt.Errorf("encoder backend %q is not available on this host", backend)
	}
	return enc, nil
}

// ListAll returns the names of every registered backend.
func ListAll() []string {
	return lo.Map(lo.Keys(BackendValue), func(b Backend, _ int) string {
		return b.String()
	})
}

// FindBackend resolves a backend by name, falling back to the default.
func FindBackend(name string) Backend {
	for backend, names := range BackendValue {
		for _, candidate := range names {
			if candidate == name {
				return backend
			}
		}
	}
	return DefaultBackend
}
