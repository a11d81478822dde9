package beer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrBadStatus   = errors.New("beer api bad status")
	ErrUnavailable = errors.New("beer api unavailable")
)

// Client talks to the REST surface of a running beer service.
type Client struct {
	BaseURL string
	Client  *http.Client
}

func NewClient(baseURL string) *Client {
	if u, err := url.Parse(baseURL); err == nil && u.Scheme != "" && u.Host != "" {
		baseURL = strings.TrimRight(baseURL, "/")
	}
	return &Client{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 3 * time.Second},
	}
}

func (c *Client) List(ctx context.Context) ([]Beer, error) {
	var out []Beer
	if err := c.do(ctx, http.MethodGet, PathList, nil, nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Get(ctx context.Context, id uuid.UUID) (Beer, error) {
	var b Beer
	if err := c.do(ctx, http.MethodGet, "/"+id.String(), nil, nil, http.StatusOK, &b); err != nil {
		return Beer{}, err
	}
	return b, nil
}

// Create returns the id taken from the Location header of the reply.
func (c *Client) Create(ctx context.Context, in Beer) (uuid.UUID, error) {
	var loc string
	err := c.do(ctx, http.MethodPost, PathCreate, nil, in, http.StatusCreated, func(resp *http.Response) error {
		loc = resp.Header.Get("Location")
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	id, err := uuid.Parse(path.Base(loc))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad location %q", ErrBadStatus, loc)
	}
	return id, nil
}

func (c *Client) Update(ctx context.Context, id uuid.UUID, in Beer) error {
	return c.do(ctx, http.MethodPut, PathUpdate, idQuery(id), in, http.StatusNoContent, nil)
}

func (c *Client) Patch(ctx context.Context, id uuid.UUID, p Patch) error {
	return c.do(ctx, http.MethodPatch, PathPatch, idQuery(id), p, http.StatusNoContent, nil)
}

func (c *Client) Delete(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, PathDelete, idQuery(id), nil, http.StatusNoContent, nil)
}

func idQuery(id uuid.UUID) url.Values {
	return url.Values{beerIDParam: []string{id.String()}}
}

// do sends one request. out is either nil, a func(*http.Response) error, or a
// pointer the JSON body is decoded into.
func (c *Client) do(ctx context.Context, method, p string, q url.Values, body any, want int, out any) error {
	u := c.BaseURL + BasePath + p
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case want:
	case http.StatusNotFound:
		return ErrNotFound
	default:
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: status=%d", ErrBadStatus, resp.StatusCode)
	}

	switch o := out.(type) {
	case nil:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	case func(*http.Response) error:
		return o(resp)
	default:
		return json.NewDecoder(resp.Body).Decode(out)
	}
}
