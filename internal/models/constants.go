package models

const (
	ContextSeparator = "\n---\n"

	// NoMaterialAnswer is returned verbatim when a subject has no indexed
	// chunks. It is a successful response, not an error.
	NoMaterialAnswer = "No material is available for this subject yet. Ask your instructor to upload course material first."

	SystemPrompt = "You are a course assistant for university students. Answer using only the provided excerpts from the course material. If the excerpts do not contain the answer, say so."
)

var AnswerPromptTemplate = `Excerpts from the course material:
%s

Question: %s

Answer the question using the excerpts above.`
