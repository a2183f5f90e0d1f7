// Package remote reads terms from another termcheck server over HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofrs/uuid"

	"termcheck/pkg/models"
	"termcheck/pkg/storage"
)

const DefaultTimeout = 10 * time.Second

type Config struct {
	URL     string        `toml:"url"`
	Timeout time.Duration `toml:"timeout"`
}

// ErrUnexpectedStatus is returned when the remote service answers with a
// status the client does not handle.
type ErrUnexpectedStatus struct {
	Method string
	URL    string
	Status int
}

func (e *ErrUnexpectedStatus) Error() string {
	return fmt.Sprintf("%s %s returned status %d", e.Method, e.URL, e.Status)
}

type Client struct {
	baseURL string
	client  *http.Client
}

func New(conf Config) (*Client, error) {
	if conf.URL == "" {
		return nil, fmt.Errorf("%w: remote url", storage.ErrConfParamMissing)
	}
	if conf.Timeout <= 0 {
		conf.Timeout = DefaultTimeout
	}

	return &Client{
		baseURL: strings.TrimRight(conf.URL, "/"),
		client:  &http.Client{Timeout: conf.Timeout},
	}, nil
}

func (c *Client) Terms(ctx context.Context, language string) ([]models.Term, error) {
	var terms []models.Term
	err := c.do(ctx, http.MethodGet, "/terms?language="+url.QueryEscape(language), nil, &terms)
	if err != nil {
		return nil, err
	}
	if terms == nil {
		terms = []models.Term{}
	}
	return terms, nil
}

func (c *Client) Term(ctx context.Context, id uuid.UUID) (models.Term, error) {
	var t models.Term
	if err := c.do(ctx, http.MethodGet, "/terms/"+id.String(), nil, &t); err != nil {
		return models.Term{}, err
	}
	return t, nil
}

func (c *Client) Alternatives(ctx context.Context, id uuid.UUID) ([]models.Term, error) {
	alts := []models.Term{}
	if err := c.do(ctx, http.MethodGet, "/terms/"+id.String()+"/alternatives", nil, &alts); err != nil {
		return nil, err
	}
	return alts, nil
}

func (c *Client) AddTerms(ctx context.Context, terms []models.Term) error {
	b, err := json.Marshal(terms)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/terms", b, nil)
}

// do sends the request and decodes a 200 response into out. A 404 maps to
// storage.ErrTermNotFound.
func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	target := c.baseURL + path

	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, r)
	if err != nil {
		return fmt.Errorf("error creating request %s %s: %w", method, target, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrDBNotResponding, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return storage.ErrTermNotFound
	default:
		return &ErrUnexpectedStatus{Method: method, URL: target, Status: resp.StatusCode}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("error decoding response from %s: %w", target, err)
	}

	return nil
}
