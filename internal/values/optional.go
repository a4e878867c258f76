package values

// Optional holds either a value or nothing.
type Optional struct {
	v Value
}

var optionalNone = &Optional{}

func OptionalNone() *Optional { return optionalNone }

func OptionalOf(v Value) *Optional { return &Optional{v: v} }

func (o *Optional) Kind() Kind     { return OptionalKind }
func (o *Optional) HasValue() bool { return o.v != nil }
func (o *Optional) Value() Value   { return o.v }
func (o *Optional) Inspect() string {
	if o.v == nil {
		return "optional.none()"
	}
	return "optional.of(" + o.v.Inspect() + ")"
}

// Enum is a protobuf enum constant. It compares and hashes as its number.
type Enum struct {
	TypeName string
	Number   int32
}

func (e Enum) Kind() Kind      { return EnumKind }
func (e Enum) Inspect() string { return Int(e.Number).Inspect() }
