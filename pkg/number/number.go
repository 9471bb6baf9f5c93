package number

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// 주문/결제/환불/배송 번호 생성기
//
// 48bit 밀리초 타임스탬프 + 80bit 난수를 Crockford Base32로 인코딩한
// 26자리 문자열을 사용한다. I/L/O/U를 제외한 문자셋이라 전화 상담 등
// 사람이 읽어주는 상황에서도 혼동이 적다.

// Charset is the Crockford Base32 alphabet used by generated numbers
const Charset = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// Length is the fixed length of every generated number
const Length = 26

// New generates a new 26-character number.
// Numbers sort by creation time thanks to the timestamp prefix, but strict
// monotonicity within a single millisecond is not guaranteed.
func New() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

// IsValid reports whether s looks like a generated number
func IsValid(s string) bool {
	if len(s) != Length {
		return false
	}
	_, err := ulid.ParseStrict(s)
	return err == nil
}
