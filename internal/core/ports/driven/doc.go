// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Interfaces
//
//   - EmbeddingService: Turns text into vectors (Ollama, OpenAI)
//   - LLMService: Streams generated tokens for a prompt (Ollama, OpenAI)
//   - VectorIndex: Builds, persists and loads per-document indexes
//   - TextSplitter: Splits document text into overlapping chunks
//   - Normaliser / NormaliserRegistry: Extracts text from uploaded files
//   - DocumentStore / ChatStore: Metadata persistence (SQLite)
//   - TaskQueue: Runs ingestion off the request path
//   - ConfigStore: Application configuration (TOML)
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
