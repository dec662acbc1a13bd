package jsonhttp

import (
	"fmt"
	"reflect"
	"unsafe"

	jsoniter "github.com/json-iterator/go"
	"github.com/modern-go/reflect2"

	"github.com/arnodel/jsonhttp/encoding/json"
	"github.com/arnodel/jsonhttp/value"
)

// A conversion holds the custom mappings registered for one Go type.  The
// functions work on unsafe pointers to a value of that type so they can be
// plugged directly into json-iterator.
type conversion struct {
	encode func(ptr unsafe.Pointer, stream *jsoniter.Stream)
	decode func(ptr unsafe.Pointer, iter *jsoniter.Iterator)

	// fromJSON stores the conversion of v into target, which is a *T.  It is
	// used directly when a T is read at the top level, so errors keep their
	// identity.
	fromJSON func(v value.Value, target any) error
}

// The registry maps Go types to custom conversions.  It is only modified while
// a Config is being built.
type registry struct {
	conversions map[reflect.Type]*conversion
}

func newRegistry() *registry {
	r := &registry{conversions: make(map[reflect.Type]*conversion)}
	// Fields of type value.Value are parsed and rendered as is.
	setFromJSON(r, func(v value.Value) (value.Value, error) { return v, nil })
	setToJSON(r, func(v value.Value) (value.Value, error) { return v, nil })
	return r
}

func (r *registry) get(t reflect.Type) *conversion {
	conv := r.conversions[t]
	if conv == nil {
		conv = &conversion{}
		r.conversions[t] = conv
	}
	return conv
}

func (r *registry) hasToJSON(t reflect.Type) bool {
	conv := r.conversions[t]
	return conv != nil && conv.encode != nil
}

func (r *registry) fromJSON(t reflect.Type) func(value.Value, any) error {
	if conv := r.conversions[t]; conv != nil {
		return conv.fromJSON
	}
	return nil
}

func setToJSON[T any](r *registry, toJSON func(T) (value.Value, error)) {
	r.get(reflect.TypeOf((*T)(nil)).Elem()).encode = func(ptr unsafe.Pointer, stream *jsoniter.Stream) {
		v, err := toJSON(*(*T)(ptr))
		if err != nil {
			if stream.Error == nil {
				stream.Error = fmt.Errorf("converting %s to JSON: %w", reflect.TypeOf((*T)(nil)).Elem(), err)
			}
			return
		}
		stream.SetBuffer(value.AppendJSON(stream.Buffer(), v))
	}
}

func setFromJSON[T any](r *registry, fromJSON func(value.Value) (T, error)) {
	conv := r.get(reflect.TypeOf((*T)(nil)).Elem())
	conv.decode = func(ptr unsafe.Pointer, iter *jsoniter.Iterator) {
		raw := iter.SkipAndReturnBytes()
		if iter.Error != nil {
			return
		}
		v, err := json.Parse(raw)
		if err != nil {
			iter.ReportError("parse", err.Error())
			return
		}
		x, err := fromJSON(v)
		if err != nil {
			iter.ReportError("convert "+reflect.TypeOf((*T)(nil)).Elem().String(), err.Error())
			return
		}
		*(*T)(ptr) = x
	}
	conv.fromJSON = func(v value.Value, target any) error {
		x, err := fromJSON(v)
		if err != nil {
			return fmt.Errorf("converting JSON to %s: %w", reflect.TypeOf((*T)(nil)).Elem(), err)
		}
		*target.(*T) = x
		return nil
	}
}

// registryExtension makes json-iterator use the registered conversions
// wherever the corresponding types occur, including nested positions.
type registryExtension struct {
	jsoniter.DummyExtension
	registry *registry
}

var _ jsoniter.Extension = (*registryExtension)(nil)

func (e *registryExtension) CreateEncoder(typ reflect2.Type) jsoniter.ValEncoder {
	if conv := e.registry.conversions[typ.Type1()]; conv != nil && conv.encode != nil {
		return encoderFunc(conv.encode)
	}
	return nil
}

func (e *registryExtension) CreateDecoder(typ reflect2.Type) jsoniter.ValDecoder {
	if conv := e.registry.conversions[typ.Type1()]; conv != nil && conv.decode != nil {
		return decoderFunc(conv.decode)
	}
	return nil
}

type encoderFunc func(ptr unsafe.Pointer, stream *jsoniter.Stream)

func (f encoderFunc) Encode(ptr unsafe.Pointer, stream *jsoniter.Stream) {
	f(ptr, stream)
}

// IsEmpty is false so that custom fields are always rendered, even with
// omitempty.
func (f encoderFunc) IsEmpty(ptr unsafe.Pointer) bool {
	return false
}

type decoderFunc func(ptr unsafe.Pointer, iter *jsoniter.Iterator)

func (f decoderFunc) Decode(ptr unsafe.Pointer, iter *jsoniter.Iterator) {
	f(ptr, iter)
}
