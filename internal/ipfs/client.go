package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/goblinlaunch/goblinbot/core/logger"
	"github.com/goblinlaunch/goblinbot/internal/wizard"
)

const maxDownloadBytes = wizard.ImageMaxBytes

// Client moves Telegram photos into IPFS: it resolves the file through the
// Bot API, streams it down, and pins it via the IPFS HTTP API's /api/v0/add.
type Client struct {
	apiURL   string // IPFS API, e.g. http://127.0.0.1:5001
	botToken string
	client   *http.Client
}

// NewClient builds an uploader backed by an IPFS node's HTTP API.
func NewClient(apiURL, botToken string, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{apiURL: apiURL, botToken: botToken, client: client}
}

type getFileResponse struct {
	OK     bool `json:"ok"`
	Result struct {
		FilePath string `json:"file_path"`
		FileSize int64  `json:"file_size"`
	} `json:"result"`
}

type addResponse struct {
	Hash string `json:"Hash"`
	Name string `json:"Name"`
}

// UploadTelegramPhoto downloads the photo identified by fileID and adds it
// to IPFS, returning the CID-based reference the deployer expects.
func (c *Client) UploadTelegramPhoto(ctx context.Context, fileID string) (wizard.Upload, error) {
	start := time.Now()

	path, err := c.resolveFilePath(ctx, fileID)
	if err != nil {
		return wizard.Upload{}, err
	}

	data, err := c.download(ctx, path)
	if err != nil {
		return wizard.Upload{}, err
	}

	cid, err := c.add(ctx, path, data)
	if err != nil {
		return wizard.Upload{}, err
	}

	logger.Info(ctx, "ipfs", "image.pinned",
		slog.String("cid", cid),
		slog.Int("bytes", len(data)),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return wizard.Upload{URL: "ipfs://" + cid, CID: cid}, nil
}

func (c *Client) resolveFilePath(ctx context.Context, fileID string) (string, error) {
	url := fmt.Sprintf("https://api.telegram.org/bot%s/getFile?file_id=%s", c.botToken, fileID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build getFile request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("telegram getFile: %w", err)
	}
	defer resp.Body.Close()

	var out getFileResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&out); err != nil {
		return "", fmt.Errorf("decode getFile response: %w", err)
	}
	if !out.OK || out.Result.FilePath == "" {
		return "", fmt.Errorf("telegram getFile: file %q not resolvable", fileID)
	}
	if out.Result.FileSize > maxDownloadBytes {
		return "", fmt.Errorf("telegram file too large: %d bytes", out.Result.FileSize)
	}
	return out.Result.FilePath, nil
}

func (c *Client) download(ctx context.Context, filePath string) ([]byte, error) {
	url := fmt.Sprintf("https://api.telegram.org/file/bot%s/%s", c.botToken, filePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download telegram file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download telegram file: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read telegram file: %w", err)
	}
	if len(data) > maxDownloadBytes {
		return nil, fmt.Errorf("telegram file too large: over %d bytes", maxDownloadBytes)
	}
	return data, nil
}

func (c *Client) add(ctx context.Context, name string, data []byte) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("build multipart: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("write multipart: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart: %w", err)
	}

	url := c.apiURL + "/api/v0/add?pin=true&cid-version=1"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return "", fmt.Errorf("build add request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ipfs add: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<12))
		return "", fmt.Errorf("ipfs add: status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var out addResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&out); err != nil {
		return "", fmt.Errorf("decode add response: %w", err)
	}
	if out.Hash == "" {
		return "", fmt.Errorf("ipfs add: empty hash in response")
	}
	return out.Hash, nil
}
