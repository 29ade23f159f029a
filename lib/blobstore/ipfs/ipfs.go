// Copyright 2026 The LedgerFS Authors
// SPDX-License-Identifier: Apache-2.0

package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ledgerfs/ledgerfs/lib/blobstore"
)

// DefaultTimeout bounds individual API calls when Options.Timeout is
// zero. Cat of a chunk that lives on a remote node can legitimately
// take a while; anything past this is treated as unavailable.
const DefaultTimeout = 30 * time.Second

// Options configures a Kubo-backed blob store.
type Options struct {
	// APIURL is the Kubo RPC endpoint, e.g. "http://127.0.0.1:5001".
	APIURL string

	// Timeout bounds each API call. Zero means DefaultTimeout.
	Timeout time.Duration
}

var _ blobstore.Store = (*Store)(nil)

// Store speaks the Kubo HTTP RPC API. All endpoints are POST; Kubo
// rejects GET requests since 0.5.
type Store struct {
	apiURL string
	client *http.Client
}

// New returns a store talking to the daemon at options.APIURL. It
// does not probe the daemon; call Version to check liveness.
func New(options Options) (*Store, error) {
	if options.APIURL == "" {
		return nil, fmt.Errorf("ipfs store: API URL is required")
	}
	parsed, err := url.Parse(options.APIURL)
	if err != nil {
		return nil, fmt.Errorf("ipfs store: parsing API URL %q: %w", options.APIURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("ipfs store: API URL %q must be http or https", options.APIURL)
	}

	timeout := options.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Store{
		apiURL: strings.TrimRight(options.APIURL, "/"),
		client: &http.Client{Timeout: timeout},
	}, nil
}

// Put implements blobstore.Store. The chunk is added with pin=true so
// the daemon's garbage collector keeps it; the returned address is
// the CID Kubo assigned.
func (s *Store) Put(ctx context.Context, data []byte) (string, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", "chunk")
	if err != nil {
		return "", fmt.Errorf("ipfs add: building multipart form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("ipfs add: writing chunk to form: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("ipfs add: finalizing form: %w", err)
	}

	query := url.Values{"pin": {"true"}}
	response, err := s.apiPost(ctx, "/api/v0/add", query, &body, form.FormDataContentType())
	if err != nil {
		return "", fmt.Errorf("ipfs add: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ipfs add: %s: %s", response.Status, apiMessage(response.Body))
	}

	var result struct {
		Hash string `json:"Hash"`
	}
	if err := json.NewDecoder(response.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("ipfs add: decoding response: %w", err)
	}
	if result.Hash == "" {
		return "", fmt.Errorf("ipfs add: response carried no hash")
	}
	return result.Hash, nil
}

// Get implements blobstore.Store. Resolution is online: a chunk held
// by another node is fetched over the network within the call
// timeout.
func (s *Store) Get(ctx context.Context, address string) ([]byte, error) {
	query := url.Values{"arg": {address}}
	response, err := s.apiPost(ctx, "/api/v0/cat", query, nil, "")
	if err != nil {
		return nil, fmt.Errorf("ipfs cat %s: %w", address, err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		message := apiMessage(response.Body)
		if isNotFoundMessage(message) {
			return nil, fmt.Errorf("ipfs cat %s: %s: %w", address, message, blobstore.ErrNotFound)
		}
		return nil, fmt.Errorf("ipfs cat %s: %s: %s", address, response.Status, message)
	}

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("ipfs cat %s: reading body: %w", address, err)
	}
	return data, nil
}

// Has implements blobstore.Store. The stat runs with offline=true so
// a missing block answers immediately instead of searching the DHT.
func (s *Store) Has(ctx context.Context, address string) (bool, error) {
	query := url.Values{"arg": {address}, "offline": {"true"}}
	response, err := s.apiPost(ctx, "/api/v0/block/stat", query, nil, "")
	if err != nil {
		return false, fmt.Errorf("ipfs block stat %s: %w", address, err)
	}
	defer response.Body.Close()

	if response.StatusCode == http.StatusOK {
		return true, nil
	}
	message := apiMessage(response.Body)
	if isNotFoundMessage(message) {
		return false, nil
	}
	return false, fmt.Errorf("ipfs block stat %s: %s: %s", address, response.Status, message)
}

// Version returns the daemon's version string. Callers use it as a
// liveness probe before mounting or serving.
func (s *Store) Version(ctx context.Context) (string, error) {
	response, err := s.apiPost(ctx, "/api/v0/version", nil, nil, "")
	if err != nil {
		return "", fmt.Errorf("ipfs version: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ipfs version: %s: %s", response.Status, apiMessage(response.Body))
	}

	var result struct {
		Version string `json:"Version"`
	}
	if err := json.NewDecoder(response.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("ipfs version: decoding response: %w", err)
	}
	return result.Version, nil
}

func (s *Store) String() string {
	return "ipfs(" + s.apiURL + ")"
}

func (s *Store) apiPost(ctx context.Context, path string, query url.Values, body io.Reader, contentType string) (*http.Response, error) {
	endpoint := s.apiURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if contentType != "" {
		request.Header.Set("Content-Type", contentType)
	}
	return s.client.Do(request)
}

// apiMessage extracts the Message field from a Kubo error body
// ({"Message": ..., "Code": 0, "Type": "error"}), falling back to the
// raw body when it is not the standard shape.
func apiMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 8192))
	if err != nil {
		return fmt.Sprintf("unreadable error body: %v", err)
	}
	var apiErr struct {
		Message string `json:"Message"`
	}
	if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Message != "" {
		return apiErr.Message
	}
	return strings.TrimSpace(string(raw))
}

// isNotFoundMessage recognizes the wording Kubo uses for a block it
// does not have. The phrasing has shifted across releases
// ("merkledag: not found", "ipld: could not find node", "block was
// not found locally (offline)"), so match loosely.
func isNotFoundMessage(message string) bool {
	lower := strings.ToLower(message)
	return strings.Contains(lower, "not found") || strings.Contains(lower, "could not find")
}
