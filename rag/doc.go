// Package rag provides a small retrieval augmented generation pipeline:
// an embedder, an embedded vector store and a retrieve-then-generate loop
// that grounds model answers in indexed documents. The pipeline can be
// exposed to agents as a regular tool via RetrievalTool.
package rag
