package values

// Kind tags a runtime value.
type Kind int

const (
	NullKind Kind = iota
	BoolKind
	IntKind
	UintKind
	DoubleKind
	StringKind
	BytesKind
	DurationKind
	TimestampKind
	ListKind
	MapKind
	MessageKind
	EnumKind
	OptionalKind
	TypeKind
	ErrorKind
	UnknownKind

	// AnyKind is never carried by a value. Function overloads use it to
	// accept an argument of any kind.
	AnyKind
)

var kindNames = map[Kind]string{
	NullKind:      "null_type",
	BoolKind:      "bool",
	IntKind:       "int",
	UintKind:      "uint",
	DoubleKind:    "double",
	StringKind:    "string",
	BytesKind:     "bytes",
	DurationKind:  "google.protobuf.Duration",
	TimestampKind: "google.protobuf.Timestamp",
	ListKind:      "list",
	MapKind:       "map",
	MessageKind:   "message",
	EnumKind:      "enum",
	OptionalKind:  "optional_type",
	TypeKind:      "type",
	ErrorKind:     "error",
	UnknownKind:   "unknown",
	AnyKind:       "dyn",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "UNKNOWN_KIND"
}

// KindByName maps a type name as written in expressions ("int", "list", ...)
// back to its kind. Kinds no expression can spell as a type, such as error
// and unknown, are not found, so those names stay free for variables.
func KindByName(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name && nameable(k) {
			return k, true
		}
	}
	switch name {
	case "duration":
		return DurationKind, true
	case "timestamp":
		return TimestampKind, true
	}
	return 0, false
}

func nameable(k Kind) bool {
	switch k {
	case MessageKind, EnumKind, AnyKind, ErrorKind, UnknownKind:
		return false
	}
	return true
}
