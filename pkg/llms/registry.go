package llms

import (
	"fmt"

	"github.com/clausereview/engine/pkg/config"
	"github.com/clausereview/engine/pkg/registry"
)

// ClientRegistry is a named collection of Client instances, one per
// configured LLM provider (e.g. a fast "standard" model and a more
// capable "deep" model for the orchestrator and the ReAct loop).
type ClientRegistry struct {
	*registry.BaseRegistry[Client]
}

func NewClientRegistry() *ClientRegistry {
	return &ClientRegistry{
		BaseRegistry: registry.NewBaseRegistry[Client](),
	}
}

func (r *ClientRegistry) RegisterClient(name string, client Client) error {
	if name == "" {
		return fmt.Errorf("LLM client name cannot be empty")
	}
	if client == nil {
		return fmt.Errorf("LLM client cannot be nil")
	}
	return r.Register(name, client)
}

// CreateClientFromConfig builds and registers a Client for one of the
// supported provider types: openai, anthropic, gemini, gemini-native, ollama.
func (r *ClientRegistry) CreateClientFromConfig(name string, cfg *config.LLMProviderConfig) (Client, error) {
	if name == "" {
		return nil, fmt.Errorf("LLM client name cannot be empty")
	}
	if cfg == nil {
		return nil, fmt.Errorf("LLM config cannot be nil")
	}

	var client Client
	var err error

	switch cfg.Type {
	case "openai":
		client, err = NewOpenAIClientFromConfig(cfg)
	case "anthropic":
		client, err = NewAnthropicClientFromConfig(cfg)
	case "gemini":
		client, err = NewGeminiClientFromConfig(cfg)
	case "gemini-native":
		client, err = NewGeminiNativeClientFromConfig(cfg)
	case "ollama":
		client, err = NewOllamaClientFromConfig(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM type: %s (supported: openai, anthropic, gemini, gemini-native, ollama)", cfg.Type)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client %q: %w", name, err)
	}

	if err := r.RegisterClient(name, client); err != nil {
		return nil, fmt.Errorf("failed to register LLM client %q: %w", name, err)
	}

	return client, nil
}

func (r *ClientRegistry) GetClient(name string) (Client, error) {
	client, exists := r.Get(name)
	if !exists {
		return nil, fmt.Errorf("LLM client %q not found", name)
	}
	return client, nil
}

func (r *ClientRegistry) ListClients() []string {
	names := make([]string, 0)
	for _, client := range r.List() {
		names = append(names, client.ModelName())
	}
	return names
}
