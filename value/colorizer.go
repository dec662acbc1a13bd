package value

// A Colorizer surrounds scalars and object keys with terminal colour codes.
// A nil *Colorizer prints without colours.
type Colorizer struct {
	KeyColorCode     []byte
	ScalarColorCodes [4][]byte // indexed by Kind
	ResetCode        []byte
}

func (c *Colorizer) ScalarColorCode(v Value) []byte {
	return c.ScalarColorCodes[v.Kind()]
}

func (c *Colorizer) PrintScalar(p Printer, v Value) {
	if c != nil {
		p.PrintBytes(c.ScalarColorCode(v))
	}
	p.PrintBytes(AppendJSON(nil, v))
	if c != nil {
		p.PrintBytes(c.ResetCode)
	}
}

func (c *Colorizer) PrintKey(p Printer, key string) {
	if c != nil {
		p.PrintBytes(c.KeyColorCode)
	}
	p.PrintBytes(appendString(nil, key))
	if c != nil {
		p.PrintBytes(c.ResetCode)
	}
}
