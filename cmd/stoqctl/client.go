package main

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// client is a thin HTTP/JSON client over one node's admin API: every
// subcommand builds one, issues a single call, and prints the result.
type client struct {
	addr string
	http *http.Client
}

func newClient(addr string, insecureSkipVerify bool) *client {
	return &client{
		addr: addr,
		http: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: insecureSkipVerify},
			},
		},
	}
}

func (c *client) get(path string, out any) error {
	resp, err := c.http.Get(fmt.Sprintf("https://%s%s", c.addr, path))
	if err != nil {
		return err
	}
	return decodeResponse(resp, out)
}

func (c *client) post(path string, body any, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}
	resp, err := c.http.Post(fmt.Sprintf("https://%s%s", c.addr, path), "application/json", &buf)
	if err != nil {
		return err
	}
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			if leader := resp.Header.Get("X-Stoq-Leader"); leader != "" {
				return fmt.Errorf("%s (leader: %s)", apiErr.Error, leader)
			}
			return fmt.Errorf("%s", apiErr.Error)
		}
		return fmt.Errorf("request failed: status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}
