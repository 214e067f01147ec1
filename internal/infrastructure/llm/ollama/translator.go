package ollama

import (
	"context"
	"encoding/json"
	"fmt"
)

type Translator struct {
	client *Client
}

func NewTranslator(client *Client) *Translator {
	return &Translator{client: client}
}

func (t *Translator) Translate(ctx context.Context, texts []string, language string) ([]string, error) {
	if len(texts) == 0 {
		return []string{}, nil
	}

	respText, err := t.client.generateJSON(ctx, "translate", t.client.textModel, buildTranslationPrompt(texts, language))
	if err != nil {
		return nil, err
	}

	var result struct {
		Translations []string `json:"translations"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(respText)), &result); err != nil {
		return nil, fmt.Errorf("parse translation json: %w", err)
	}
	if len(result.Translations) != len(texts) {
		return nil, fmt.Errorf("translation count mismatch: got %d, want %d", len(result.Translations), len(texts))
	}
	return result.Translations, nil
}
