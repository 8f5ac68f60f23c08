package a2a

// AgentCard is the capability descriptor served at the well-known location.
type AgentCard struct {
	Name               string            `json:"name"`
	Description        string            `json:"description"`
	URL                string            `json:"url"`
	Version            string            `json:"version"`
	DefaultInputModes  []string          `json:"defaultInputModes"`
	DefaultOutputModes []string          `json:"defaultOutputModes"`
	Capabilities       AgentCapabilities `json:"capabilities"`
	Skills             []AgentSkill      `json:"skills"`
}

// AgentCapabilities advertises optional protocol features.
type AgentCapabilities struct {
	Streaming bool `json:"streaming"`
}

// AgentSkill describes one operation the agent supports.
type AgentSkill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Examples    []string `json:"examples"`
}

// NewAgentCard builds the card for the NFCorpus retrieval skill.
func NewAgentCard(name, description, url, version string) AgentCard {
	return AgentCard{
		Name:               name,
		Description:        description,
		URL:                url,
		Version:            version,
		DefaultInputModes:  []string{"text", "data"},
		DefaultOutputModes: []string{"data"},
		Capabilities:       AgentCapabilities{Streaming: false},
		Skills: []AgentSkill{{
			ID:          "nfcorpus-retrieval",
			Name:        "NFCorpus Document Retrieval",
			Description: "Retrieves relevant biomedical documents from NFCorpus dataset using LLM-powered search",
			Tags:        []string{"retrieval", "biomedical", "nfcorpus", "llm"},
			Examples: []string{
				`{"query": "What are the effects of calcium on bone health?", "top_k": 5}`,
				`{"query": "diabetes treatment options", "top_k": 10}`,
			},
		}},
	}
}
