package models

const (
	// MetadataSource is the metadata key holding a chunk's source filename
	MetadataSource   = "source"
	ContextSeparator = "\n\n"
	NotFoundAnswer   = "I couldn't find that information in the document."
)

var (
	AnswerPromptTemplate = `You are a smart Document Assistant. Your job is to answer the user's question based only on the provided context.

---
Context:
%s

User Question:
%s
---

Instructions:
1. If the answer is in the context, provide it clearly.
2. If the context does not contain the answer, say "` + NotFoundAnswer + `"
3. Do not make up information.
`
)
