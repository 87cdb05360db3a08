package models

// Connection is a user created instantiation of a template
type Connection struct {
	ConfigName    string   `json:"configName"` // template name
	FriendlyName  string   `json:"friendlyName"`
	Active        bool     `json:"active"`
	Endpoint      string   `json:"endpoint"`
	ModelEndpoint string   `json:"modelEndpoint"`
	Key           string   `json:"key"`
	Model         string   `json:"model"`            // selected model
	Models        []string `json:"models,omitempty"` // selection for multi-model templates
	Prefill       string   `json:"prefill"`
	FirstMessage  string   `json:"firstMessage"`
}

// File is the persisted connection list
type File struct {
	Version     int          `json:"version"`
	ActiveIndex int          `json:"activeIndex"`
	Values      []Connection `json:"values"`
}
