package discovery

// charsPerToken is the character-to-token approximation ratio. Token counts
// produced here are estimates, not tokenizer-exact counts; every budget
// decision in the engine (analyzer, optimizer, chunker) uses this same
// function so rankings stay comparable.
const charsPerToken = 4

// EstimateTokens approximates the token cost of a string
func EstimateTokens(content string) int {
	return estimateBytes(int64(len(content)))
}

// EstimateFileTokens approximates the token cost of a file from its byte size
func EstimateFileTokens(sizeBytes int64) int {
	return estimateBytes(sizeBytes)
}

func estimateBytes(n int64) int {
	if n <= 0 {
		return 0
	}
	return int((n + charsPerToken - 1) / charsPerToken)
}
