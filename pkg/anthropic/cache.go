package anthropic

// CachedSystem returns a system prompt marked as a prompt-cache breakpoint.
// The guidance and pricing prompts are fixed, so every call after the first
// reads them from cache.
func CachedSystem(text string) []SystemBlock {
	return []SystemBlock{{Text: text, CacheControl: &CacheControl{TTL: "5m"}}}
}
