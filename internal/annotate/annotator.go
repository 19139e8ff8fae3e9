// Package annotate implements the linguistic splitter (component C), the
// optional semantic splitter (component D), and the token-timestamp aligner
// (component E). The external NLP annotator producing POS tags, dependency
// labels, and sentence boundaries (spec.md §2, §6.3) is reached over HTTP;
// its JSON-POST client shape is adapted from the teacher gateway's generic
// client idiom in internal/pipeline/classify.go and noise.go (small POST,
// decode one JSON struct back), since the teacher has no linguistic
// annotator of its own — this pipeline's annotator contract and the
// splitting algorithms built on it are ported from
// original_source/backend/nlp.py.
package annotate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dechogo/hearing-gateway/internal/apperrors"
)

// Token is one annotated token: POS/dependency tags follow the spaCy
// vocabulary the original annotator used (VERB, AUX, PRON, NOUN, PROPN;
// nsubj, nsubjpass, det, pron, ROOT).
type Token struct {
	Text      string `json:"text"`
	POS       string `json:"pos"`
	Dep       string `json:"dep"`
	Head      int    `json:"head"` // index of the syntactic head token
	IsPunct   bool   `json:"is_punct"`
	IsSentEnd bool   `json:"is_sent_end"`
}

// SentenceSpan is a [Start,End) token-index range for one sentence.
type SentenceSpan struct {
	Start int `json:"start_token"`
	End   int `json:"end_token"`
}

// Doc is one annotated text: its tokens and sentence boundaries.
type Doc struct {
	Text      string         `json:"text"`
	Language  string         `json:"language"`
	Tokens    []Token        `json:"tokens"`
	Sentences []SentenceSpan `json:"sentences"`
}

// Annotator is implemented by the HTTP client; tests substitute a fake.
type Annotator interface {
	Annotate(ctx context.Context, text, language string) (*Doc, error)
}

// Client calls an external NLP annotator HTTP endpoint.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient creates an annotator client pointed at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		url:        baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type annotateRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// Annotate posts text for POS/dependency/sentence-boundary tagging.
func (c *Client) Annotate(ctx context.Context, text, language string) (*Doc, error) {
	body, err := json.Marshal(annotateRequest{Text: text, Language: language})
	if err != nil {
		return nil, fmt.Errorf("marshal annotate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/annotate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create annotate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &apperrors.NLPError{Msg: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &apperrors.NLPError{Msg: fmt.Sprintf("annotator status %d", resp.StatusCode)}
	}

	var doc Doc
	if err = json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, &apperrors.NLPError{Msg: "decode annotate response: " + err.Error()}
	}
	return &doc, nil
}

// Joiner returns the language-appropriate token/piece joiner: "" for
// scripts without inter-word spacing (Chinese), " " otherwise.
func Joiner(language string) string {
	if language == "zh" {
		return ""
	}
	return " "
}
