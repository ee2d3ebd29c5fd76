// Copyright 2022 The OpenSSL Project Authors. All rights reserved.
// Use of this source code is governed by an Apache-2.0 license
// that can be found in the LICENSE file.

// Package github provides library functions for interacting with the
// GitHub REST API, as far as the ossl commands need it.
package github

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/mspncp/tools/collect"
	"github.com/mspncp/tools/runutil"
)

// pageSize is the page size requested from list endpoints. Listings
// stop at the first page shorter than this.
const pageSize = 100

// snippetLimit caps how much of an error response body is kept for
// error reporting.
const snippetLimit = 512

// GitHub records the API endpoint of a GitHub instance.
type GitHub struct {
	host *url.URL
	s    runutil.Sequence
}

// New is the GitHub factory.
func New(s runutil.Sequence, host *url.URL) *GitHub {
	return &GitHub{
		host: host,
		s:    s,
	}
}

// The following types reflect the schema GitHub uses to represent
// pull requests. For more details, see:
// https://docs.github.com/en/rest/pulls/pulls
type User struct {
	Login string `json:"login"`
}
type Branch struct {
	Label string `json:"label"`
	Ref   string `json:"ref"`
	SHA   string `json:"sha"`
}
type PullRequest struct {
	Number    int    `json:"number"`
	Title     string `json:"title"`
	State     string `json:"state"`
	Draft     bool   `json:"draft"`
	User      User   `json:"user"`
	Head      Branch `json:"head"`
	Base      Branch `json:"base"`
	HTMLURL   string `json:"html_url"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// HTTPError describes an API request the server answered with a
// non-success status.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
	// Body holds the beginning of the response body, which for the
	// GitHub API carries the human-readable failure message.
	Body string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%v %v: %v", e.Method, e.URL, e.Status)
	}
	return fmt.Sprintf("%v %v: %v: %v", e.Method, e.URL, e.Status, e.Body)
}

// ListPullRequests returns the pull requests of the given repository
// in the given state ("open", "closed" or "all"), page by page until
// the first short page.
func (g *GitHub) ListPullRequests(owner, repo, state string) ([]PullRequest, error) {
	var result []PullRequest
	for page := 1; ; page++ {
		u := *g.host
		u.Path = fmt.Sprintf("/repos/%v/%v/pulls", owner, repo)
		v := url.Values{}
		v.Set("state", state)
		v.Set("per_page", strconv.Itoa(pageSize))
		v.Set("page", strconv.Itoa(page))
		u.RawQuery = v.Encode()
		var pulls []PullRequest
		if err := g.get(u.String(), &pulls); err != nil {
			return nil, err
		}
		result = append(result, pulls...)
		if len(pulls) < pageSize {
			return result, nil
		}
	}
}

// GetPullRequest returns the pull request with the given number.
func (g *GitHub) GetPullRequest(owner, repo string, number int) (*PullRequest, error) {
	u := *g.host
	u.Path = fmt.Sprintf("/repos/%v/%v/pulls/%d", owner, repo, number)
	var pull PullRequest
	if err := g.get(u.String(), &pull); err != nil {
		return nil, err
	}
	return &pull, nil
}

// get performs an authenticated GET request against the API and
// decodes the JSON response into data. Requests go out anonymously
// when no credentials for the host can be found.
func (g *GitHub) get(url string, data interface{}) (e error) {
	cred, err := hostCredentials(g.s, g.host)
	if err != nil {
		return err
	}
	method := "GET"
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		return fmt.Errorf("NewRequest(%q, %q) failed: %v", method, url, err)
	}
	req.Header.Add("Accept", "application/vnd.github.v3+json")
	if cred != nil {
		req.SetBasicAuth(cred.username, cred.password)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("Do(%v) failed: %v", req, err)
	}
	defer collect.Error(func() error { return res.Body.Close() }, &e)
	if res.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, snippetLimit))
		return &HTTPError{
			Method:     method,
			URL:        url,
			StatusCode: res.StatusCode,
			Status:     res.Status,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}
	if err := json.NewDecoder(res.Body).Decode(data); err != nil {
		return fmt.Errorf("Decode() failed: %v", err)
	}
	return nil
}
