package generation

// Event names written on the stream.
const (
	EventStatus         = "status"
	EventEnhancedPrompt = "enhanced_prompt"
	EventChunk          = "chunk"
	EventDone           = "done"
	EventError          = "error"
)

const (
	msgEnhancing = "Analyzing and enhancing your prompt..."
	msgBuilding  = "Building your website..."
	msgSaving    = "Saving your website..."
	msgDone      = "Website generated successfully!"
)

// StatusData is the payload of a status event.
type StatusData struct {
	Message string `json:"message"`
	Step    int    `json:"step"`
}

type EnhancedPromptData struct {
	Prompt string `json:"prompt"`
}

type ChunkData struct {
	Content string `json:"content"`
}

type DoneData struct {
	ProjectID string `json:"projectId"`
	Message   string `json:"message"`
}

type ErrorData struct {
	Message string `json:"message"`
}

// Emitter writes one named event to the client. Implementations flush
// immediately; an error means the client can no longer be reached.
type Emitter interface {
	Emit(event string, data any) error
}
