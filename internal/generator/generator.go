// Package generator calls the external podcast generation service and
// stores the returned audio as the job's artifact.
package generator

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/joshu-sajeev/dailygist/internal/dto"
)

var ErrEmptyInput = errors.New("empty newsletter text")

type generateRequest struct {
	UserID         string `json:"user_id"`
	NewsletterText string `json:"newsletter_text"`
}

type generateResponse struct {
	AudioBase64       string   `json:"audio_base64"`
	Transcript        string   `json:"transcript"`
	SourceNewsletters []string `json:"source_newsletters"`
}

type HTTPGenerator struct {
	baseURL     string
	apiKey      string
	artifactDir string
	client      *http.Client
}

// NewHTTPGenerator talks to the service at baseURL. A nil client uses
// http.DefaultClient; deadlines come from the job context.
func NewHTTPGenerator(baseURL, apiKey, artifactDir string, client *http.Client) *HTTPGenerator {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPGenerator{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		artifactDir: artifactDir,
		client:      client,
	}
}

// Generate sends the job's newsletter text to the service and writes the
// returned MP3 to {artifactDir}/{owner}/{day}.mp3, returning that path.
func (g *HTTPGenerator) Generate(ctx context.Context, job *dto.ClaimedJobDTO, progress func(stage string)) (string, error) {
	var payload dto.GenerationPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return "", fmt.Errorf("decode payload: %w", err)
	}

	text := NewsletterText(payload.Inputs)
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyInput
	}

	progress("outline")

	resp, err := g.call(ctx, generateRequest{UserID: job.OwnerID, NewsletterText: text})
	if err != nil {
		return "", err
	}

	audio, err := base64.StdEncoding.DecodeString(resp.AudioBase64)
	if err != nil {
		return "", fmt.Errorf("decode audio: %w", err)
	}
	if len(audio) == 0 {
		return "", errors.New("generator returned no audio")
	}
	progress("audio")

	ref, err := g.store(job.OwnerID, job.SchedulingDay, audio, resp.Transcript)
	if err != nil {
		return "", err
	}
	progress("upload")

	slog.Info("artifact stored",
		"job_id", job.ID, "path", ref, "bytes", len(audio), "sources", len(resp.SourceNewsletters))
	return ref, nil
}

func (g *HTTPGenerator) call(ctx context.Context, body generateRequest) (*generateResponse, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/generate", bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	res, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call generator: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("generator returned %d: %s", res.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out generateResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode generator response: %w", err)
	}
	return &out, nil
}

// store writes the audio and, when present, a transcript beside it. Each
// file goes through its own temp file and is renamed into place, so readers
// never see a partial file and concurrent writers never share a temp path.
func (g *HTTPGenerator) store(ownerID, day string, audio []byte, transcript string) (string, error) {
	dir := filepath.Join(g.artifactDir, ownerID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}

	path := filepath.Join(dir, day+".mp3")
	if err := writeAtomic(dir, day+".mp3", audio); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}

	if transcript != "" {
		if err := writeAtomic(dir, day+".txt", []byte(transcript)); err != nil {
			return "", fmt.Errorf("write transcript: %w", err)
		}
	}
	return path, nil
}

func writeAtomic(dir, name string, data []byte) error {
	f, err := os.CreateTemp(dir, "."+name+"-*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp) // no-op after a successful rename

	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(dir, name))
}

// NewsletterText joins the inputs into the plain-text digest the generator
// expects, oldest first.
func NewsletterText(inputs []dto.InputSnapshot) string {
	var b strings.Builder
	for i, in := range inputs {
		if strings.TrimSpace(in.Body) == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n---\n\n")
		}
		fmt.Fprintf(&b, "Newsletter %d\nFrom: %s\nSubject: %s\n\n%s", i+1, in.Sender, in.Subject, strings.TrimSpace(in.Body))
	}
	return b.String()
}
