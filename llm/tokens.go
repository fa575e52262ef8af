package llm

import (
	"fmt"
	"strings"
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// Per-message framing overhead used by OpenAI chat formats.
const (
	tokensPerMessage = 3
	tokensPerReply   = 3
)

var (
	codecMu    sync.RWMutex
	codecCache = make(map[string]tokenizer.Codec)
)

// codecFor returns the tokenizer for model, falling back to cl100k_base for models
// tiktoken does not know (including non-OpenAI models).
func codecFor(model string) (tokenizer.Codec, error) {
	key := strings.ToLower(model)
	codecMu.RLock()
	if c, ok := codecCache[key]; ok {
		codecMu.RUnlock()
		return c, nil
	}
	codecMu.RUnlock()

	codec, err := tokenizer.ForModel(tokenizer.Model(key))
	if err != nil {
		codec, err = tokenizer.Get(tokenizer.Cl100kBase)
		if err != nil {
			return nil, fmt.Errorf("llm: load tokenizer: %w", err)
		}
	}
	codecMu.Lock()
	codecCache[key] = codec
	codecMu.Unlock()
	return codec, nil
}

// CountTokens returns the number of tokens text encodes to for model.
func CountTokens(model, text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	codec, err := codecFor(model)
	if err != nil {
		return 0, err
	}
	ids, _, err := codec.Encode(text)
	if err != nil {
		return 0, fmt.Errorf("llm: encode: %w", err)
	}
	return len(ids), nil
}

// CountMessageTokens estimates the prompt size of msgs, including chat framing overhead.
func CountMessageTokens(model string, msgs []Message) (int, error) {
	total := tokensPerReply
	for _, m := range msgs {
		n, err := CountTokens(model, m.Content)
		if err != nil {
			return 0, err
		}
		total += n + tokensPerMessage
		if m.Name != "" {
			total++
		}
	}
	return total, nil
}
