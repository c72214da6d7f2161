package chunker

import (
	"log"

	"github.com/pkoukk/tiktoken-go"

	"github.com/docharbor/docharbor/internal/core"
)

const fallbackEncoding = "cl100k_base"

type tiktokenEncoding struct {
	tk *tiktoken.Tiktoken
}

func (e tiktokenEncoding) Encode(text string) []int {
	return e.tk.Encode(text, nil, nil)
}

func (e tiktokenEncoding) Decode(tokens []int) string {
	return e.tk.Decode(tokens)
}

// EncodingForModel returns the BPE encoding associated with the given
// embedding model, falling back to cl100k_base when the model is unknown.
func EncodingForModel(model string) (core.Encoding, error) {
	tk, err := tiktoken.EncodingForModel(model)
	if err != nil {
		log.Printf("no tokenizer registered for model %q, falling back to %s", model, fallbackEncoding)
		tk, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, err
		}
	}
	return tiktokenEncoding{tk: tk}, nil
}
