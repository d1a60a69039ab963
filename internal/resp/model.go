package resp

const (
	TypeSimpleString = '+'
	TypeError        = '-'
	TypeInteger      = ':'
	TypeBulkString   = '$'
	TypeArray        = '*'
)

// Value is a single RESP value. Type selects which of the other fields are meaningful
type Value struct {
	String  []byte // SimpleString, Error, BulkString
	Array   []Value
	Integer int64 // Integer
	Type    byte
	IsNull  bool // For nil BulkString and nil Array
}

// Text returns the payload of a non-null simple or bulk string
func (v Value) Text() (string, bool) {
	switch v.Type {
	case TypeSimpleString, TypeBulkString:
		if v.IsNull {
			return "", false
		}
		return string(v.String), true
	}
	return "", false
}

// Equal reports whether v and other are structurally equal.
// Null and empty are different values; a nil and an empty slice are not
func (v Value) Equal(other Value) bool {
	if v.Type != other.Type || v.IsNull != other.IsNull {
		return false
	}

	switch v.Type {
	case TypeInteger:
		return v.Integer == other.Integer
	case TypeSimpleString, TypeError, TypeBulkString:
		return string(v.String) == string(other.String)
	case TypeArray:
		if len(v.Array) != len(other.Array) {
			return false
		}
		for i := range v.Array {
			if !v.Array[i].Equal(other.Array[i]) {
				return false
			}
		}
		return true
	}

	return false
}
