package cloud

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/joe/qfieldsync/pkg/fileops"
)

// UploadFile streams r as the new version of name (a slash-separated path
// inside the project) using a multipart "file" field. size is only used for
// progress reporting and may be -1.
func (c *Client) UploadFile(
	ctx context.Context,
	projectID, name string,
	r io.Reader,
	size int64,
	progress fileops.ProgressCallback,
) error {
	apiPath := filePath(projectID, name)

	bodyReader, bodyWriter := io.Pipe()
	form := multipart.NewWriter(bodyWriter)

	req, err := c.newRequest(ctx, http.MethodPost, apiPath, bodyReader, true)
	if err != nil {
		_ = bodyReader.Close()
		return err
	}

	req.Header.Set("Content-Type", form.FormDataContentType())

	go func() {
		part, err := form.CreateFormFile("file", path.Base(name))
		if err != nil {
			_ = bodyWriter.CloseWithError(err)
			return
		}

		_, err = fileops.CopyStream(ctx, part, r, size, name, progress)
		if err != nil {
			_ = bodyWriter.CloseWithError(err)
			return
		}

		_ = bodyWriter.CloseWithError(form.Close())
	}()

	resp, err := c.send(c.transfer, req, apiPath)
	if err != nil {
		return err
	}

	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.Body.Close() //nolint:wrapcheck // close error on a drained body
}

// DownloadFile writes the latest version of name to w and returns the
// number of bytes written.
func (c *Client) DownloadFile(
	ctx context.Context,
	projectID, name string,
	w io.Writer,
	progress fileops.ProgressCallback,
) (int64, error) {
	apiPath := filePath(projectID, name)

	req, err := c.newRequest(ctx, http.MethodGet, apiPath, nil, true)
	if err != nil {
		return 0, err
	}

	req.Header.Set("Accept", "*/*")

	resp, err := c.send(c.transfer, req, apiPath)
	if err != nil {
		return 0, err
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	written, err := fileops.CopyStream(ctx, w, resp.Body, resp.ContentLength, name, progress)
	if err != nil {
		return written, &APIError{Method: http.MethodGet, Path: apiPath, Err: err}
	}

	return written, nil
}

func filePath(projectID, name string) string {
	segments := strings.Split(strings.Trim(name, "/"), "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}

	return "/files/" + url.PathEscape(projectID) + "/" + strings.Join(segments, "/") + "/"
}
