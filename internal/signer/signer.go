// Package signer builds authenticated query URLs for the characters endpoint.
//
// Every request carries apikey, ts and hash parameters where
// hash = md5(ts + privateKey + publicKey) rendered as lowercase hex.
package signer

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// CharactersPath is the endpoint segment appended to the base URL
const CharactersPath = "characters"

// ConfigurationError reports a base URL that cannot be used to build requests
type ConfigurationError struct {
	BaseURL string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid base URL %q: %v", e.BaseURL, e.Err)
	}
	return fmt.Sprintf("invalid base URL %q: must be absolute", e.BaseURL)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Query holds the optional filter and paging parameters.
// Limit and Offset of zero or less are omitted.
type Query struct {
	Limit      int
	Offset     int
	Name       string
	HasName    bool
	PrefixMode bool
}

// ByName returns an exact-name query
func ByName(name string) Query {
	return Query{Name: name, HasName: true}
}

// ByPrefix returns a name-prefix query
func ByPrefix(prefix string) Query {
	return Query{Name: prefix, HasName: true, PrefixMode: true}
}

// Page returns a paged listing query
func Page(limit, offset int) Query {
	return Query{Limit: limit, Offset: offset}
}

// Signer signs character queries with a public/private key pair
type Signer struct {
	BaseURL    string
	PublicKey  string
	PrivateKey string

	// Now is the clock used for the ts parameter; time.Now when nil
	Now func() time.Time
}

// New creates a signer for the given endpoint and keys
func New(baseURL, publicKey, privateKey string) *Signer {
	return &Signer{
		BaseURL:    baseURL,
		PublicKey:  publicKey,
		PrivateKey: privateKey,
	}
}

// Build returns the signed characters URL for q using the current time
func (s *Signer) Build(q Query) (*url.URL, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return s.BuildAt(now().Unix(), q)
}

// BuildAt returns the signed characters URL for q with an explicit timestamp
func (s *Signer) BuildAt(ts int64, q Query) (*url.URL, error) {
	base, err := parseBase(s.BaseURL)
	if err != nil {
		return nil, err
	}

	tsStr := strconv.FormatInt(ts, 10)
	params := url.Values{}
	params.Set("apikey", s.PublicKey)
	params.Set("ts", tsStr)
	params.Set("hash", Signature(tsStr, s.PrivateKey, s.PublicKey))
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		params.Set("offset", strconv.Itoa(q.Offset))
	}
	if q.HasName {
		if q.PrefixMode {
			params.Set("nameStartsWith", q.Name)
		} else {
			params.Set("name", q.Name)
		}
	}

	u := base.JoinPath(CharactersPath)
	u.RawQuery = params.Encode()
	return u, nil
}

// Request builds a GET request for the signed URL bound to ctx
func (s *Signer) Request(ctx context.Context, q Query) (*http.Request, error) {
	u, err := s.Build(q)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func parseBase(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, &ConfigurationError{BaseURL: raw, Err: err}
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, &ConfigurationError{BaseURL: raw}
	}
	return u, nil
}

// Signature computes the request hash for a timestamp and key pair.
// The concatenation order ts, privateKey, publicKey is fixed by the server.
func Signature(ts, privateKey, publicKey string) string {
	return Digest(ts + privateKey + publicKey)
}

// Digest returns the lowercase hex md5 of s
func Digest(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// DigestOf is Digest for an optional value; nil hashes as the empty string
func DigestOf(s *string) string {
	if s == nil {
		return Digest("")
	}
	return Digest(*s)
}
