package models

const (
	ContextSeparator = "\n---\n"
	DefaultTopK      = 3
)

var (
	// PromptTemplate takes the retrieved context and the question.
	PromptTemplate = `You are a document-based assistant.
Answer ONLY using the context below.

Context:
%s

Question:
%s
`
)
