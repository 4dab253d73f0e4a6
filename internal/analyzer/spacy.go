package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Spacy is a client for the spaCy sidecar's POST /process endpoint.
type Spacy struct {
	baseURL     string
	internalKey string
	client      *http.Client
}

func NewSpacy(baseURL, internalKey string, timeout time.Duration) *Spacy {
	return &Spacy{
		baseURL:     baseURL,
		internalKey: internalKey,
		client:      &http.Client{Timeout: timeout},
	}
}

func (s *Spacy) Name() string { return "spacy" }

type processRequest struct {
	Text       string `json:"text"`
	WantTokens bool   `json:"wantTokens"`
	WantSents  bool   `json:"wantSents"`
	WantDeps   bool   `json:"wantDeps"`
}

type processResponse struct {
	Tokens []Token    `json:"tokens"`
	Sents  []Sentence `json:"sents"`
}

// Analyze calls the sidecar. Errors are returned as-is; the Fallback wrapper
// decides what to do with them.
func (s *Spacy) Analyze(ctx context.Context, text string) (*Analysis, error) {
	body, err := json.Marshal(processRequest{Text: text, WantTokens: true, WantSents: true})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/process", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.internalKey != "" {
		req.Header.Set("x-internal-key", s.internalKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("spacy call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("spacy error %d: %s", resp.StatusCode, string(respBody))
	}

	var pr processResponse
	if err := json.Unmarshal(respBody, &pr); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return &Analysis{Tokens: pr.Tokens, Sentences: pr.Sents}, nil
}
