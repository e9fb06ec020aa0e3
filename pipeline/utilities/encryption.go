package utilities

// Rolling key used to obfuscate shader source stored inside asset
// containers. Symmetric: encrypting twice restores the input.
var cipherKey = [...]byte{0x25, 0x3f, 0x6a, 0x88, 0x85, 0xa3, 0x08, 0xd3, 0x13, 0x19, 0x8a, 0x2e}

// EncryptBytes obfuscates the buffer in place.
func EncryptBytes(data []byte) {
	for i := range data {
		data[i] ^= cipherKey[i%len(cipherKey)] ^ byte(i*7)
	}
}

// DecryptBytes restores a buffer obfuscated with EncryptBytes.
func DecryptBytes(data []byte) {
	EncryptBytes(data)
}
