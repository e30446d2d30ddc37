package tracker

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// defaultAttachmentType is assumed when a response declares no content type.
const defaultAttachmentType = "image/png"

// htmlSniffLen is how many leading body bytes are checked for an HTML document.
const htmlSniffLen = 100

// maxAttachmentSize bounds a single attachment download.
const maxAttachmentSize = 20 << 20

// ErrHTMLAttachment is returned when an attachment URL answers with an HTML
// page, typically a login redirect after the session expired.
var ErrHTMLAttachment = errors.New("attachment returned HTML instead of binary content")

// ResolveAttachments fetches every URL concurrently and returns the ones that
// resolved to embeddable content. It waits for all fetches to settle; a slow
// or failing URL never cancels the others, and failures are only logged.
func (c *Client) ResolveAttachments(ctx context.Context, urls []string) AttachmentMap {
	result := make(AttachmentMap, len(urls))
	var mu sync.Mutex
	var g errgroup.Group

	seen := make(map[string]bool, len(urls))
	for _, ref := range urls {
		if ref == "" || seen[ref] {
			continue
		}
		seen[ref] = true
		g.Go(func() error {
			dataURI, err := c.ResolveAttachment(ctx, ref)
			if err != nil {
				c.logger.Warn("attachment unresolved", "url", ref, "err", err)
				return nil
			}
			mu.Lock()
			result[ref] = dataURI
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return result
}

// ResolveAttachment fetches one attachment and encodes it as a data URI.
// The session cookie is sent only to the tracker's own front or API origin;
// images hosted elsewhere are fetched anonymously.
func (c *Client) ResolveAttachment(ctx context.Context, ref string) (string, error) {
	full, err := c.attachmentURL(ref)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, full, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	if c.trustedOrigin(req.URL) {
		if err := c.authorize(ctx, req, authCookie); err != nil {
			return "", err
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", full, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetching %s: status %d", full, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAttachmentSize+1))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", full, err)
	}
	if len(data) > maxAttachmentSize {
		return "", fmt.Errorf("attachment %s exceeds %d bytes", full, maxAttachmentSize)
	}

	contentType := mediaType(resp.Header.Get("Content-Type"))
	if looksLikeHTML(contentType, data) {
		return "", ErrHTMLAttachment
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// attachmentURL turns a root-relative reference into an absolute front URL.
func (c *Client) attachmentURL(ref string) (string, error) {
	if !strings.HasPrefix(ref, "/") {
		return ref, nil
	}
	front, err := c.Front()
	if err != nil {
		return "", err
	}
	return front + ref, nil
}

// trustedOrigin reports whether u shares scheme and host with the front or
// the API host.
func (c *Client) trustedOrigin(u *url.URL) bool {
	candidates := []string{c.host}
	if front, err := c.Front(); err == nil {
		candidates = append(candidates, front)
	}
	for _, cand := range candidates {
		o, err := url.Parse(cand)
		if err != nil || o.Host == "" {
			continue
		}
		if strings.EqualFold(o.Scheme, u.Scheme) && strings.EqualFold(o.Host, u.Host) {
			return true
		}
	}
	return false
}

// mediaType returns the media type of a Content-Type header value without
// parameters, or defaultAttachmentType when the header is empty.
func mediaType(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return defaultAttachmentType
	}
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		mt, _, _ = strings.Cut(header, ";")
		return strings.TrimSpace(mt)
	}
	return mt
}

// looksLikeHTML reports whether a response is an HTML page rather than the
// expected binary, judging by the declared type and the body prefix.
func looksLikeHTML(contentType string, body []byte) bool {
	if strings.Contains(contentType, "text/html") {
		return true
	}
	head := body
	if len(head) > htmlSniffLen {
		head = head[:htmlSniffLen]
	}
	return bytes.Contains(head, []byte("<!DOCTYPE")) || bytes.Contains(head, []byte("<html"))
}
