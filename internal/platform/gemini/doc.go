// Package gemini implements generation.Generator on top of Google's Gemini
// API.
//
// Prompts are rendered from templates embedded in the binary. When a prompt
// directory is configured, templates found there replace the embedded ones
// and are reloaded whenever the files change. Every call waits on a shared
// rate limiter and is retried with exponential backoff on transient failures.
// Model output is parsed with the jsonextract package, so prose or markdown
// around the JSON payload is tolerated.
package gemini
