package services

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-services-client/entities"
	"github.com/jrsteele09/go-services-client/envelope"
	svcerrors "github.com/jrsteele09/go-services-client/internal/errors"
	"github.com/pkg/errors"
)

// uploadFailed is the body the upload endpoint answers with when it rejects a file.
const uploadFailed = "0"

// GetFileDirectoryPath returns the site's public files directory, relative to the site root.
func (c *Client) GetFileDirectoryPath(ctx context.Context) (string, error) {
	return c.fetchString(ctx, OpFileGetDirectoryPath)
}

// GetFileUploadToken returns a single-use token for SaveFileStream.
func (c *Client) GetFileUploadToken(ctx context.Context) (string, error) {
	return c.fetchString(ctx, OpFileGetUploadToken)
}

func (c *Client) fetchString(ctx context.Context, operation string) (string, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	data, err := c.connectAndCall(ctx, operation, nil)
	if err != nil {
		return "", &FetchError{Op: operation, Err: err}
	}
	s, err := envelope.String(data)
	if err != nil {
		return "", &FetchError{Op: operation, Err: err}
	}
	return s, nil
}

// SaveFileStream uploads r as filename using a token from GetFileUploadToken.
func (c *Client) SaveFileStream(ctx context.Context, r io.Reader, filename, token string) (*entities.File, error) {
	if token == "" {
		return nil, &SaveError{Op: opFileUpload, Err: svcerrors.Classify(svcerrors.ErrConfiguration, errors.New("[Client.SaveFileStream] upload token is required"))}
	}

	counted := &countingReader{r: r}
	start := c.nowTime()
	body, err := c.transport.PostFile(ctx, c.siteURL+c.uploadPath+url.PathEscape(token), UploadField, counted, filename)
	if err != nil {
		c.record(opFileUpload, err, start)
		return nil, &SaveError{Op: opFileUpload, Err: err}
	}
	c.metrics.AddUploadBytes(counted.n)

	if strings.TrimSpace(string(body)) == uploadFailed {
		err := &envelope.RemoteError{Message: "unable to save file " + filename}
		c.record(opFileUpload, err, start)
		return nil, &SaveError{Op: opFileUpload, Err: err}
	}

	file, err := decodeUpload(body)
	c.record(opFileUpload, err, start)
	if err != nil {
		return nil, &SaveError{Op: opFileUpload, Err: err}
	}
	c.logger.Debug().Str("filename", filename).Int64("bytes", counted.n).Int("fid", int(file.FID)).Msg("file uploaded")
	return file, nil
}

// decodeUpload accepts either an envelope or the bare file object.
func decodeUpload(body []byte) (*entities.File, error) {
	resp, err := envelope.Parse(body)
	if err != nil {
		return nil, err
	}
	if resp.Error || resp.Data != nil {
		data, err := envelope.Decode(body)
		if err != nil {
			return nil, err
		}
		return entities.Unserialize[entities.File](data)
	}
	return entities.Unserialize[entities.File](bytes.TrimSpace(body))
}

// GetFileStream opens a file by its path relative to the site root. The caller
// closes the stream.
func (c *Client) GetFileStream(ctx context.Context, path string) (io.ReadCloser, error) {
	start := c.nowTime()
	rc, err := c.transport.GetStream(ctx, c.siteURL+"/"+strings.TrimLeft(path, "/"))
	c.record(opFileDownload, err, start)
	if err != nil {
		return nil, &FetchError{Op: opFileDownload, Err: err}
	}
	return rc, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	cr.n += int64(n)
	return n, err
}
