package invoker

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// artifact is a temporary file materialized from a multimodal argument
// reference (spec §4.4 "Multimodal dispatch"). Cleanup must run on every
// exit path.
type artifact struct {
	Path string
}

func (a *artifact) cleanup() {
	if a.Path != "" {
		_ = os.Remove(a.Path)
	}
}

// materializeArtifact downloads (http(s) URL) or decodes (base64) ref into
// a temporary file, returning an artifact whose cleanup must be deferred
// by the caller (spec §4.4: "guarantees cleanup of the temporary artifact
// on all exit paths").
func materializeArtifact(ctx context.Context, httpClient *http.Client, ref string) (*artifact, error) {
	tmp, err := os.CreateTemp("", "dialogengine-artifact-*")
	if err != nil {
		return nil, fmt.Errorf("create temp artifact: %w", err)
	}
	defer tmp.Close()

	switch {
	case strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://"):
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
		if err != nil {
			os.Remove(tmp.Name())
			return nil, err
		}
		resp, err := httpClient.Do(req)
		if err != nil {
			os.Remove(tmp.Name())
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			os.Remove(tmp.Name())
			return nil, fmt.Errorf("fetch artifact %s: status %d", ref, resp.StatusCode)
		}
		if _, err := io.Copy(tmp, resp.Body); err != nil {
			os.Remove(tmp.Name())
			return nil, err
		}
	default:
		decoded, err := base64.StdEncoding.DecodeString(ref)
		if err != nil {
			os.Remove(tmp.Name())
			return nil, fmt.Errorf("decode artifact reference: %w", err)
		}
		if _, err := tmp.Write(decoded); err != nil {
			os.Remove(tmp.Name())
			return nil, err
		}
	}

	return &artifact{Path: tmp.Name()}, nil
}

func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 20 * time.Second}
}
