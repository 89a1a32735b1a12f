// Package scribe turns free-form notes into ledger actions with a Gemini
// model. The model's output is treated as untrusted input: it is cleaned,
// decoded into a closed set of action types, and applied as one atomic batch
// or not at all.
package scribe

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/chronicle-app/chronicle/internal/domain"
)

// DefaultModelName is the Gemini model used for interpretation.
const DefaultModelName = "gemini-2.0-flash"

// Client wraps the GenAI API for action extraction.
type Client struct {
	genai *genai.Client
	model string
}

// NewClient builds a scribe client. An empty model selects DefaultModelName;
// credentials come from the environment the genai SDK reads.
func NewClient(ctx context.Context, model string) (*Client, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if model == "" {
		model = DefaultModelName
	}
	return &Client{genai: gc, model: model}, nil
}

// Context is the ledger state the model needs to produce well-formed actions.
type Context struct {
	Categories     []domain.Category
	Accounts       []domain.Account
	DefaultAccount string
	Now            time.Time
}

// Interpret sends the note to the model and decodes the resulting actions.
func (c *Client) Interpret(ctx context.Context, note string, lc Context) ([]Action, error) {
	if lc.Now.IsZero() {
		lc.Now = time.Now()
	}
	prompt := buildPrompt(lc.Categories, lc.Accounts, lc.DefaultAccount, lc.Now)

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: prompt},
				{Text: note},
			},
		},
	}
	resp, err := c.genai.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	raw := resp.Text()
	if raw == "" {
		return nil, fmt.Errorf("empty response from model")
	}

	actions, err := DecodeActions(cleanResponse(raw))
	if err != nil {
		return nil, fmt.Errorf("interpret note: %w\nraw response: %s", err, raw)
	}
	return actions, nil
}
