package kernel

// Memset fills dst with value. The implementation is based on bytes.Repeat:
// instead of a byte-at-a-time loop it makes log2(len(dst)) copy calls, which
// is the trick the original raw-pointer version of this helper used; here it
// works against a plain slice since this kernel's "physical memory" is a Go
// byte slice owned by the machine package rather than a raw address.
func Memset(dst []byte, value byte) {
	if len(dst) == 0 {
		return
	}

	dst[0] = value
	for filled := 1; filled < len(dst); filled *= 2 {
		copy(dst[filled:], dst[:filled])
	}
}

// Memcopy copies min(len(src), len(dst)) bytes from src to dst.
func Memcopy(dst, src []byte) int {
	return copy(dst, src)
}
