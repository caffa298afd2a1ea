// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The document flow is Upload (DocumentService) → IngestTask on the queue →
// Ingest (IngestionService). Chat messages go through the RAGOrchestrator,
// whose AnswerStream hands a completed answer to the ConversationRecorder.
package services
