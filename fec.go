// Copyright 2016 by Thorsten von Eicken, see LICENSE file

package raven

// FECCodec is the forward error correction codec applied to FSK payloads. The
// radio drivers do not implement any coding themselves: the codec is supplied
// by the client and the drivers only size buffers with EncodedSize and run
// payloads through Encode/Decode at the FIFO boundary.
//
// Encode writes the coded form of src into dst, which must be at least
// EncodedSize(len(src)) bytes, and returns the number of bytes written.
// Decode is the inverse: it consumes EncodedSize(len(dst)) bytes from src and
// recovers len(dst) plaintext bytes into dst, returning the number recovered.
type FECCodec interface {
	EncodedSize(n int) int
	Encode(src, dst []byte) int
	Decode(src, dst []byte) int
}
