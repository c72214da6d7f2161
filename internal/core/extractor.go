package core

// TextExtractor converts the raw bytes of an uploaded document into a linear
// text stream. Extraction never fails: undecodable input degrades to an empty
// string, which the caller treats as "no text content extracted".
type TextExtractor interface {
	Extract(contentType, filename string, data []byte) string
}

// Encoding is a reversible token encoding. Decode(Encode(s)) must reproduce
// the exact token subsequence boundaries the chunker relies on.
type Encoding interface {
	Encode(text string) []int
	Decode(tokens []int) string
}
