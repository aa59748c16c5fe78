package core

// LLMConfig is the optional per-persona model binding declared next to the
// persona. Empty fields fall back to caller supplied defaults.
type LLMConfig struct {
	Provider      string         `json:"provider,omitempty"`
	Model         string         `json:"model,omitempty"`
	APIKey        string         `json:"-"`
	APIKeyEnv     string         `json:"api_key_env,omitempty"`
	Display       string         `json:"display,omitempty"`
	ClientOptions map[string]any `json:"client_options,omitempty"`
}

// Persona is the immutable descriptive profile for one conversational
// participant. Key is the declared lookup key and doubles as speaker id.
type Persona struct {
	Key       string
	Name      string
	Role      string
	Worldview *Mapping
	Style     *Mapping
	Examples  []any
	LLM       LLMConfig
}

// TemplateContext exposes the persona to prompt templates.
func (p Persona) TemplateContext() map[string]any {
	worldview, style := p.Worldview, p.Style
	if worldview == nil {
		worldview = NewMapping()
	}
	if style == nil {
		style = NewMapping()
	}
	examples := p.Examples
	if examples == nil {
		examples = []any{}
	}
	return map[string]any{
		"key":       p.Key,
		"name":      p.Name,
		"role":      p.Role,
		"worldview": worldview,
		"style":     style,
		"examples":  examples,
	}
}

// Voice returns style.voice when declared as a non-empty string.
func (p Persona) Voice() string {
	return p.Style.GetString("voice")
}

// PromptSet groups the three templates rendered for every agent invocation.
// One instance is shared by all agents of a run.
type PromptSet struct {
	System    string
	Developer string
	User      string
}
