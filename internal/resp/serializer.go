package resp

// MakeCommand builds the array a client sends to issue a command: the name
// as a bulk string followed by the arguments
func MakeCommand(name string, args ...Value) Value {
	elements := make([]Value, 1+len(args))

	elements[0] = MakeBulkString(name)

	copy(elements[1:], args)

	return MakeArray(elements)
}

