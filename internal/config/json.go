package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// parseJSON reads one EngineConfig layer from a JSON file. Durations use
// Go's string syntax ("30s", "1m"); see [Duration].
func parseJSON(jsonFilePath string) (*EngineConfig, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg jsonConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	return jsonCfg.toEngineConfig(), nil
}

// jsonConfig mirrors EngineConfig with the Duration wrapper on every
// duration field so "30s"-style values decode.
type jsonConfig struct {
	Request struct {
		Timeout Duration `json:"timeout,omitempty"`
	} `json:"request,omitempty"`

	Retry struct {
		PreconditionCycles int      `json:"precondition_cycles,omitempty"`
		TransientAttempts  int      `json:"transient_attempts,omitempty"`
		TransientWait      Duration `json:"transient_wait,omitempty"`
	} `json:"retry,omitempty"`

	Fetch struct {
		Limit int `json:"limit,omitempty"`
	} `json:"fetch,omitempty"`
}

func (j *jsonConfig) toEngineConfig() *EngineConfig {
	return &EngineConfig{
		Request: Request{Timeout: j.Request.Timeout.Std()},
		Retry: Retry{
			PreconditionCycles: j.Retry.PreconditionCycles,
			TransientAttempts:  j.Retry.TransientAttempts,
			TransientWait:      j.Retry.TransientWait.Std(),
		},
		Fetch: Fetch{Limit: j.Fetch.Limit},
	}
}
