package agent

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// estimateTokens reports a cheap per-step token estimate for the running
// tokensUsed counter the state projection exposes. The reference
// implementation reads real usage off every completion; the structured
// streaming path here never receives a usage block mid-stream, so this
// estimates from the encoded text instead, falling back to a character
// heuristic if the encoder cannot be built (e.g. no offline BPE ranks
// available).
func estimateTokens(s string) int {
	enc := sharedEncoding()
	if enc == nil {
		return len(s) / 4
	}
	return len(enc.Encode(s, nil, nil))
}

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

func sharedEncoding() *tiktoken.Tiktoken {
	encOnce.Do(func() {
		e, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			enc = e
		}
	})
	return enc
}
