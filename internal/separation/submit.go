package separation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"stemdeck/internal/config"
	"stemdeck/internal/logging"
	"stemdeck/internal/media"
	"stemdeck/internal/services"
)

const separatePath = "/separate"

// SubmitResponse acknowledges a new job.
type SubmitResponse struct {
	JobID          string `json:"jobId"`
	StatusEndpoint string `json:"statusEndpoint,omitempty"`
}

type submitRequest struct {
	FileName  string `json:"fileName"`
	InputPath string `json:"inputPath"`
}

// Submit starts a separation job for file. It is never retried: a repeated
// POST would start a second job.
func (c *Client) Submit(ctx context.Context, file *media.AudioFile) (SubmitResponse, error) {
	if file == nil {
		return SubmitResponse{}, services.Wrap(services.ErrInput, "separation", "submit", "no file selected", nil)
	}
	var (
		req *http.Request
		err error
	)
	switch c.cfg.UploadMode {
	case config.UploadModePath:
		req, err = c.pathRequest(ctx, file)
	case config.UploadModeObjectStore:
		req, err = c.objectStoreRequest(ctx, file)
	default:
		req, err = c.multipartRequest(ctx, file)
	}
	if err != nil {
		return SubmitResponse{}, err
	}

	c.logger.Info("submitting separation job",
		logging.String("file", file.Name),
		logging.Int64("size_bytes", file.Size),
		logging.String("upload_mode", c.cfg.UploadMode),
	)
	body, err := c.send(req)
	if err != nil {
		return SubmitResponse{}, err
	}
	var resp SubmitResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return SubmitResponse{}, services.Wrap(services.ErrTransient, "separation", "submit", "decode response", err)
	}
	resp.JobID = strings.TrimSpace(resp.JobID)
	if resp.JobID == "" {
		return SubmitResponse{}, services.Wrap(services.ErrJob, "separation", "submit", "response missing jobId", nil)
	}
	return resp, nil
}

func (c *Client) multipartRequest(ctx context.Context, file *media.AudioFile) (*http.Request, error) {
	src, err := os.Open(file.Path)
	if err != nil {
		return nil, services.Wrap(services.ErrInput, "separation", "submit", "open input", err)
	}

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		defer src.Close()
		err := writeMultipart(writer, file, src)
		if err == nil {
			err = writer.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := c.newRequest(ctx, http.MethodPost, separatePath, pr)
	if err != nil {
		pr.CloseWithError(err)
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req, nil
}

func writeMultipart(writer *multipart.Writer, file *media.AudioFile, src io.Reader) error {
	if err := writer.WriteField("fileName", file.Name); err != nil {
		return err
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Name))
	header.Set("Content-Type", file.MIMEType())
	part, err := writer.CreatePart(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, src)
	return err
}

func (c *Client) pathRequest(ctx context.Context, file *media.AudioFile) (*http.Request, error) {
	abs, err := filepath.Abs(file.Path)
	if err != nil {
		return nil, services.Wrap(services.ErrInput, "separation", "submit", "resolve input path", err)
	}
	return c.jsonRequest(ctx, submitRequest{FileName: file.Name, InputPath: abs})
}

func (c *Client) objectStoreRequest(ctx context.Context, file *media.AudioFile) (*http.Request, error) {
	if c.store == nil {
		return nil, services.Wrap(services.ErrConfiguration, "separation", "submit", "object-store upload mode without a configured store", nil)
	}
	src, err := os.Open(file.Path)
	if err != nil {
		return nil, services.Wrap(services.ErrInput, "separation", "submit", "open input", err)
	}
	defer src.Close()

	key := c.cfg.InputPrefix + uuid.NewString() + "/" + file.Name
	location, err := c.store.Put(ctx, key, src, file.Size, file.MIMEType())
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "separation", "submit", "upload input to object store", err)
	}
	c.logger.Debug("uploaded input to object store", logging.String("object_url", location))
	return c.jsonRequest(ctx, submitRequest{FileName: file.Name, InputPath: location})
}

func (c *Client) jsonRequest(ctx context.Context, payload submitRequest) (*http.Request, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode submit request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, separatePath, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}
