package server

// fingerprint hashes a string with a seed.
// This function uses the FNV-1a hash algorithm, which is fast and has good distribution.
func fingerprint(s string, seed uint64) uint64 {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)

	hash := uint64(offset64) ^ seed
	for i := 0; i < len(s); i++ {
		hash ^= uint64(s[i])
		hash *= prime64
	}
	return hash
}
