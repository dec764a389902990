// this code is from https://github.com/brunocalza/go-bustub
// there is license and copyright notice in licenses/go-bustub dir

package types

import (
	"encoding/binary"
)

type UInt16 uint16
type UInt32 uint32
type Int16 int16
type Int32 int32

// all page fields are little endian

// Serialize casts it to []byte
func (v UInt16) Serialize() []byte {
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, uint16(v))
	return buf
}

func NewUInt16FromBytes(data []byte) UInt16 {
	return UInt16(binary.LittleEndian.Uint16(data))
}

// Serialize casts it to []byte
func (v Int16) Serialize() []byte {
	return UInt16(uint16(v)).Serialize()
}

func NewInt16FromBytes(data []byte) Int16 {
	return Int16(int16(binary.LittleEndian.Uint16(data)))
}

// Serialize casts it to []byte
func (v UInt32) Serialize() []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(v))
	return buf
}

func NewUInt32FromBytes(data []byte) UInt32 {
	return UInt32(binary.LittleEndian.Uint32(data))
}

// Serialize casts it to []byte
func (v Int32) Serialize() []byte {
	return UInt32(uint32(v)).Serialize()
}

func NewInt32FromBytes(data []byte) Int32 {
	return Int32(int32(binary.LittleEndian.Uint32(data)))
}
