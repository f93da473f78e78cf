package nmea

import "fmt"

// Checksum returns the XOR of every byte in body (the text between '$' and '*').
func Checksum(body []byte) byte {
	var ck byte
	for _, b := range body {
		ck ^= b
	}
	return ck
}

// Format builds a complete sentence from body: "$<body>*HH\r\n".
func Format(body string) string {
	return fmt.Sprintf("$%s*%02X\r\n", body, Checksum([]byte(body)))
}
