package value

import (
	"fmt"
)

// An Encoder outputs JSON values in a human-friendly layout using the given
// Printer instance for formatting.
type Encoder struct {
	Printer
	*Colorizer
}

// Encode writes v followed by the end of value marker of the Printer.
//
// And error can be returned if the Printer could not perform some writing
// operation.  A typical example is if it attempt to write to a closed pipe.
func (e *Encoder) Encode(v Value) (err error) {
	defer CatchPrinterError(&err)
	e.writeValue(v)
	e.Printer.Reset()
	return nil
}

func (e *Encoder) writeValue(v Value) {
	switch x := v.(type) {
	case *Object:
		e.writeObject(x)
	case *Array:
		e.writeArray(x)
	case nil:
		e.Colorizer.PrintScalar(e.Printer, Null{})
	default:
		if !v.Kind().IsScalar() {
			panic(fmt.Sprintf("invalid value: %#v", v))
		}
		e.Colorizer.PrintScalar(e.Printer, v)
	}
}

func (e *Encoder) writeObject(obj *Object) {
	e.PrintBytes(openObjectBytes)
	for i, key := range obj.keys {
		if i > 0 {
			e.PrintBytes(itemSeparatorBytes)
			e.NewLine()
		} else {
			e.Indent()
		}
		e.Colorizer.PrintKey(e.Printer, key)
		e.PrintBytes(keyValueSeparatorBytes)
		e.writeValue(obj.fields[key])
	}
	if obj.Len() > 0 {
		e.Dedent()
	}
	e.PrintBytes(closeObjectBytes)
}

func (e *Encoder) writeArray(arr *Array) {
	e.PrintBytes(openArrayBytes)
	for i, item := range arr.Items {
		if i > 0 {
			e.PrintBytes(itemSeparatorBytes)
			e.NewLine()
		} else {
			e.Indent()
		}
		e.writeValue(item)
	}
	if arr.Len() > 0 {
		e.Dedent()
	}
	e.PrintBytes(closeArrayBytes)
}

var (
	openObjectBytes        = []byte("{")
	closeObjectBytes       = []byte("}")
	openArrayBytes         = []byte("[")
	closeArrayBytes        = []byte("]")
	itemSeparatorBytes     = []byte(",")
	keyValueSeparatorBytes = []byte(": ")
)
