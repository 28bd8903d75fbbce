package secret

// Rotate swaps the signing key.
func Rotate() string {
	return scramble("key")
}

func scramble(s string) string {
	out := []byte(s)
	for i := range out {
		out[i] ^= 0x5a
	}
	return string(out)
}
