package ubx

// Checksum computes the UBX 8-bit Fletcher checksum over data (class, id,
// length and payload; never the sync bytes).
func Checksum(data []byte) (a, b byte) {
	for _, x := range data {
		a += x
		b += a
	}
	return a, b
}

// FrameChecksum computes the checksum of a frame that begins with the sync
// bytes and carries payloadLen payload bytes.
func FrameChecksum(frame []byte, payloadLen int) (a, b byte) {
	end := HeaderLen + payloadLen
	if end > len(frame) {
		end = len(frame)
	}
	if end <= 2 {
		return 0, 0
	}
	return Checksum(frame[2:end])
}
