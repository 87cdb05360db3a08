package templates

import (
	"chatterapi/internal/samplers"
)

var streamTrue = Field{Path: "stream", Value: true}

func openAISamplers() []SamplerField {
	return []SamplerField{
		{samplers.Temperature, "temperature"},
		{samplers.GenerateAmount, "max_tokens"},
		{samplers.TopP, "top_p"},
		{samplers.FrequencyPenalty, "frequency_penalty"},
		{samplers.PresencePenalty, "presence_penalty"},
		{samplers.Seed, "seed"},
	}
}

func chatRequest(parse string) Request {
	return Request{
		AuthHeader:           "Authorization",
		AuthPrefix:           "Bearer ",
		ResponseParsePattern: parse,
		CompletionType:       CompletionChat,
		MessagesKey:          "messages",
		ContentKey:           "content",
		UserRole:             "user",
		AssistantRole:        "assistant",
		SystemRole:           "system",
		ModelKey:             "model",
		UseStop:              true,
		StopKey:              "stop",
		RemoveSeedIfNegative: true,
		Fields:               []Field{streamTrue},
	}
}

func textRequest(parse string) Request {
	return Request{
		AuthHeader:           "Authorization",
		AuthPrefix:           "Bearer ",
		ResponseParsePattern: parse,
		CompletionType:       CompletionText,
		PromptKey:            "prompt",
		ModelKey:             "model",
		UseStop:              true,
		StopKey:              "stop",
		RemoveSeedIfNegative: true,
		Fields:               []Field{streamTrue},
	}
}

func openAI() Template {
	req := chatRequest("choices.0.delta.content")
	req.Required = []string{RequireEndpoint, RequireKey, RequireModel}
	return Template{
		Version: Version,
		Name:    "OpenAI",
		DefaultValues: Values{
			Endpoint:      "https://api.openai.com/v1/chat/completions",
			ModelEndpoint: "https://api.openai.com/v1/models",
		},
		Features:      Features{UseKey: true, UseModel: true},
		UI:            UI{SelectableModel: true},
		Request:       req,
		Payload:       Payload{Type: PayloadJSON},
		Model:         ModelParsing{ModelListParser: "data", NameParser: "id"},
		SamplerFields: openAISamplers(),
	}
}

func claude() Template {
	req := chatRequest("delta.text")
	req.AuthHeader = "x-api-key"
	req.AuthPrefix = ""
	req.Headers = map[string]string{"anthropic-version": "2023-06-01"}
	req.SystemRole = ""
	req.SystemKey = "system"
	req.StopKey = "stop_sequences"
	req.RemoveSeedIfNegative = false
	req.Required = []string{RequireEndpoint, RequireKey, RequireModel}
	return Template{
		Version: Version,
		Name:    "Claude",
		DefaultValues: Values{
			Endpoint:      "https://api.anthropic.com/v1/messages",
			ModelEndpoint: "https://api.anthropic.com/v1/models",
			FirstMessage:  "Hi!",
		},
		Features: Features{UseKey: true, UseModel: true, UseFirstMessage: true, UsePrefill: true},
		UI:       UI{SelectableModel: true},
		Request:  req,
		Payload:  Payload{Type: PayloadJSON},
		Model:    ModelParsing{ModelListParser: "data", NameParser: "id"},
		SamplerFields: []SamplerField{
			{samplers.Temperature, "temperature"},
			{samplers.GenerateAmount, "max_tokens"},
			{samplers.TopP, "top_p"},
			{samplers.TopK, "top_k"},
		},
	}
}

func openRouter() Template {
	req := chatRequest("choices.0.delta.content")
	req.Required = []string{RequireEndpoint, RequireKey, RequireModel}
	return Template{
		Version: Version,
		Name:    "OpenRouter",
		DefaultValues: Values{
			Endpoint:      "https://openrouter.ai/api/v1/chat/completions",
			ModelEndpoint: "https://openrouter.ai/api/v1/models",
		},
		Features: Features{UseKey: true, UseModel: true},
		UI:       UI{SelectableModel: true},
		Request:  req,
		Payload:  Payload{Type: PayloadJSON},
		Model:    ModelParsing{ModelListParser: "data", NameParser: "id", ContextSizeParser: "context_length"},
		SamplerFields: []SamplerField{
			{samplers.Temperature, "temperature"},
			{samplers.GenerateAmount, "max_tokens"},
			{samplers.TopP, "top_p"},
			{samplers.TopK, "top_k"},
			{samplers.MinP, "min_p"},
			{samplers.RepetitionPenalty, "repetition_penalty"},
			{samplers.FrequencyPenalty, "frequency_penalty"},
			{samplers.PresencePenalty, "presence_penalty"},
			{samplers.Seed, "seed"},
		},
	}
}

func mancer() Template {
	req := textRequest("choices.0.text")
	req.AuthHeader = "X-API-KEY"
	req.AuthPrefix = ""
	req.Required = []string{RequireEndpoint, RequireKey, RequireModel}
	return Template{
		Version: Version,
		Name:    "Mancer",
		DefaultValues: Values{
			Endpoint:      "https://neuro.mancer.tech/oai/v1/completions",
			ModelEndpoint: "https://neuro.mancer.tech/oai/v1/models",
		},
		Features: Features{UseKey: true, UseModel: true},
		UI:       UI{SelectableModel: true},
		Request:  req,
		Payload:  Payload{Type: PayloadJSON},
		Model:    ModelParsing{ModelListParser: "data", NameParser: "id"},
		SamplerFields: []SamplerField{
			{samplers.Temperature, "temperature"},
			{samplers.GenerateAmount, "max_tokens"},
			{samplers.TopP, "top_p"},
			{samplers.TopK, "top_k"},
			{samplers.MinP, "min_p"},
			{samplers.RepetitionPenalty, "repetition_penalty"},
			{samplers.FrequencyPenalty, "frequency_penalty"},
			{samplers.PresencePenalty, "presence_penalty"},
		},
	}
}

func koboldCpp() Template {
	req := textRequest("token")
	req.AuthHeader = ""
	req.AuthPrefix = ""
	req.ModelKey = ""
	req.StopKey = "stop_sequence"
	req.Fields = nil
	req.Required = []string{RequireEndpoint}
	return Template{
		Version: Version,
		Name:    "KoboldCpp",
		DefaultValues: Values{
			Endpoint:      "http://127.0.0.1:5001/api/extra/generate/stream",
			ModelEndpoint: "http://127.0.0.1:5001/api/v1/model",
		},
		UI:      UI{EditableCompletionPath: true, EditableModelPath: true},
		Request: req,
		Payload: Payload{Type: PayloadJSON},
		Model:   ModelParsing{ModelListParser: "", NameParser: "result"},
		SamplerFields: []SamplerField{
			{samplers.Temperature, "temperature"},
			{samplers.GenerateAmount, "max_length"},
			{samplers.MaxLength, "max_context_length"},
			{samplers.TopP, "top_p"},
			{samplers.TopK, "top_k"},
			{samplers.MinP, "min_p"},
			{samplers.Typical, "typical"},
			{samplers.RepetitionPenalty, "rep_pen"},
			{samplers.RepetitionRange, "rep_pen_range"},
			{samplers.MirostatMode, "mirostat"},
			{samplers.MirostatTau, "mirostat_tau"},
			{samplers.MirostatEta, "mirostat_eta"},
			{samplers.Seed, "sampler_seed"},
		},
	}
}

func textGenWebUI() Template {
	req := textRequest("choices.0.text")
	req.AuthHeader = ""
	req.AuthPrefix = ""
	req.ModelKey = ""
	req.Required = []string{RequireEndpoint}
	return Template{
		Version: Version,
		Name:    "Text Generation WebUI",
		DefaultValues: Values{
			Endpoint:      "http://127.0.0.1:5000/v1/completions",
			ModelEndpoint: "http://127.0.0.1:5000/v1/internal/model/list",
		},
		UI:      UI{EditableCompletionPath: true, EditableModelPath: true},
		Request: req,
		Payload: Payload{Type: PayloadJSON},
		Model:   ModelParsing{ModelListParser: "model_names", NameParser: ""},
		SamplerFields: []SamplerField{
			{samplers.Temperature, "temperature"},
			{samplers.GenerateAmount, "max_tokens"},
			{samplers.MaxLength, "truncation_length"},
			{samplers.TopP, "top_p"},
			{samplers.TopK, "top_k"},
			{samplers.MinP, "min_p"},
			{samplers.Typical, "typical_p"},
			{samplers.RepetitionPenalty, "repetition_penalty"},
			{samplers.RepetitionRange, "repetition_penalty_range"},
			{samplers.FrequencyPenalty, "frequency_penalty"},
			{samplers.PresencePenalty, "presence_penalty"},
			{samplers.Seed, "seed"},
			{samplers.MirostatMode, "mirostat_mode"},
			{samplers.MirostatTau, "mirostat_tau"},
			{samplers.MirostatEta, "mirostat_eta"},
			{samplers.BanEOSToken, "ban_eos_token"},
		},
	}
}

func ollama() Template {
	req := textRequest("response")
	req.AuthHeader = ""
	req.AuthPrefix = ""
	req.StreamFormat = StreamNDJSON
	req.SamplerPath = "options"
	req.StopKey = "options.stop"
	req.Fields = []Field{streamTrue, {Path: "raw", Value: true}}
	req.Required = []string{RequireEndpoint, RequireModel}
	return Template{
		Version: Version,
		Name:    "Ollama",
		DefaultValues: Values{
			Endpoint:      "http://127.0.0.1:11434/api/generate",
			ModelEndpoint: "http://127.0.0.1:11434/api/tags",
		},
		Features: Features{UseModel: true},
		UI:       UI{EditableCompletionPath: true, EditableModelPath: true, SelectableModel: true},
		Request:  req,
		Payload:  Payload{Type: PayloadJSON},
		Model:    ModelParsing{ModelListParser: "models", NameParser: "name"},
		SamplerFields: []SamplerField{
			{samplers.Temperature, "temperature"},
			{samplers.GenerateAmount, "num_predict"},
			{samplers.MaxLength, "num_ctx"},
			{samplers.TopP, "top_p"},
			{samplers.TopK, "top_k"},
			{samplers.MinP, "min_p"},
			{samplers.Typical, "typical_p"},
			{samplers.RepetitionPenalty, "repeat_penalty"},
			{samplers.RepetitionRange, "repeat_last_n"},
			{samplers.Seed, "seed"},
			{samplers.MirostatMode, "mirostat"},
			{samplers.MirostatTau, "mirostat_tau"},
			{samplers.MirostatEta, "mirostat_eta"},
		},
	}
}

func llamaCpp() Template {
	req := textRequest("content")
	req.AuthHeader = ""
	req.AuthPrefix = ""
	req.ModelKey = ""
	req.Required = []string{RequireEndpoint}
	return Template{
		Version: Version,
		Name:    "llama.cpp",
		DefaultValues: Values{
			Endpoint:      "http://127.0.0.1:8080/completion",
			ModelEndpoint: "http://127.0.0.1:8080/v1/models",
		},
		UI:      UI{EditableCompletionPath: true, EditableModelPath: true},
		Request: req,
		Payload: Payload{Type: PayloadJSON},
		Model:   ModelParsing{ModelListParser: "data", NameParser: "id"},
		SamplerFields: []SamplerField{
			{samplers.Temperature, "temperature"},
			{samplers.GenerateAmount, "n_predict"},
			{samplers.TopP, "top_p"},
			{samplers.TopK, "top_k"},
			{samplers.MinP, "min_p"},
			{samplers.Typical, "typical_p"},
			{samplers.RepetitionPenalty, "repeat_penalty"},
			{samplers.RepetitionRange, "repeat_last_n"},
			{samplers.Seed, "seed"},
			{samplers.MirostatMode, "mirostat"},
			{samplers.MirostatTau, "mirostat_tau"},
			{samplers.MirostatEta, "mirostat_eta"},
		},
	}
}

func chatCompletions() Template {
	req := chatRequest("choices.0.delta.content")
	req.Required = []string{RequireEndpoint}
	return Template{
		Version: Version,
		Name:    "Chat Completions",
		DefaultValues: Values{
			Endpoint:      "http://127.0.0.1:5000/v1/chat/completions",
			ModelEndpoint: "http://127.0.0.1:5000/v1/models",
		},
		Features:      Features{UseKey: true, UseModel: true},
		UI:            UI{EditableCompletionPath: true, EditableModelPath: true, SelectableModel: true},
		Request:       req,
		Payload:       Payload{Type: PayloadJSON},
		Model:         ModelParsing{ModelListParser: "data", NameParser: "id"},
		SamplerFields: openAISamplers(),
	}
}

func textCompletions() Template {
	req := textRequest("choices.0.text")
	req.Required = []string{RequireEndpoint}
	return Template{
		Version: Version,
		Name:    "Text Completions",
		DefaultValues: Values{
			Endpoint:      "http://127.0.0.1:5000/v1/completions",
			ModelEndpoint: "http://127.0.0.1:5000/v1/models",
		},
		Features:      Features{UseKey: true, UseModel: true},
		UI:            UI{EditableCompletionPath: true, EditableModelPath: true, SelectableModel: true},
		Request:       req,
		Payload:       Payload{Type: PayloadJSON},
		Model:         ModelParsing{ModelListParser: "data", NameParser: "id"},
		SamplerFields: append(openAISamplers(), SamplerField{samplers.MinP, "min_p"}),
	}
}

// Builtin returns fresh copies of the bundled templates
func Builtin() []Template {
	return []Template{
		openAI(),
		claude(),
		openRouter(),
		mancer(),
		koboldCpp(),
		textGenWebUI(),
		ollama(),
		llamaCpp(),
		chatCompletions(),
		textCompletions(),
	}
}
