package axi

import "fmt"

// Direction tells reads from writes.
type Direction uint8

// Transfer directions.
const (
	DirRead Direction = iota
	DirWrite
)

func (d Direction) String() string {
	if d == DirWrite {
		return "write"
	}
	return "read"
}

// ResponseError reports a non-OKAY response received on the R or B channel.
type ResponseError struct {
	Dir  Direction
	ID   uint16
	Addr uint64
	Resp uint8
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("axi %s response %s for id %d at 0x%x",
		e.Dir, RespName(e.Resp), e.ID, e.Addr)
}

// RespName returns the mnemonic of a response code.
func RespName(resp uint8) string {
	switch resp {
	case RespOkay:
		return "OKAY"
	case RespExOkay:
		return "EXOKAY"
	case RespSlvErr:
		return "SLVERR"
	case RespDecErr:
		return "DECERR"
	}
	return fmt.Sprintf("resp(%d)", resp)
}

// IsError reports whether a response code signals a failed transfer.
func IsError(resp uint8) bool {
	return resp == RespSlvErr || resp == RespDecErr
}
