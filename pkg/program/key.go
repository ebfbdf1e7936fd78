package program

import (
	"encoding/binary"
)

// Key is the canonical identity of a literal: relation name and argument values in a
// length-prefixed binary encoding. Keys are equal iff relation and arguments are equal
// (symbolic constants compare by name).
type Key string

// KeyOf encodes a relation name and its arguments.
func KeyOf(name string, args []Arg) Key {
	buf := make([]byte, 0, 16+len(name)+len(args)*10)
	buf = appendString(buf, name)
	buf = binary.AppendUvarint(buf, uint64(len(args)))
	for _, a := range args {
		buf = append(buf, byte(a.kind))
		switch a.kind {
		case KindConstant:
			buf = append(buf, byte(a.typ))
			if a.typ == TypeNumber {
				buf = binary.BigEndian.AppendUint64(buf, uint64(a.num))
			} else {
				buf = appendString(buf, a.str)
			}
		case KindSymbolic, KindVariable:
			buf = appendString(buf, a.name)
		}
	}
	return Key(buf)
}

// Relation returns the relation name encoded at the front of the key.
func (k Key) Relation() string {
	n, w := binary.Uvarint([]byte(k))
	if w <= 0 || int(n) > len(k)-w {
		return ""
	}
	return string(k[w : w+int(n)])
}

func appendString(buf []byte, s string) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(s)))
	return append(buf, s...)
}

// RelationPrefix is the common prefix of the keys of every literal of relation name.
func RelationPrefix(name string) Key { return Key(appendString(nil, name)) }
