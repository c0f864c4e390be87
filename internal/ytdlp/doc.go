package ytdlp

// Package ytdlp invokes the external retrieval binary: metadata fetch via
// JSON dump, stream downloads with line-buffered progress, and the artifact
// probing needed because the tool does not reliably report its final output
// name.
