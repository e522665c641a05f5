package transport

import (
	"bytes"
	"context"
	"mime"
	"net/http"
	"path"

	"github.com/pkg/errors"

	"github.com/trezcool/educloud/core/apierror"
)

// Download fetches a file and saves it through the Saver. It returns where the file was saved.
// filename may be empty, the server's Content-Disposition or the path's last segment is used then.
func (c *Client) Download(ctx context.Context, urlPath, filename string, opts ...CallOption) (string, error) {
	req := c.newRequest(http.MethodGet, urlPath, nil)
	req.Timeout = c.transferTimeout
	req.ResponseType = ResponseBlob
	req.Header.Set("Accept", "*/*")
	for _, opt := range opts {
		opt(req)
	}

	res, err := c.roundTrip(ctx, req)
	if err != nil {
		return "", err
	}

	if filename == "" {
		filename = attachmentName(res.Header.Get("Content-Disposition"))
	}
	if filename == "" {
		filename = path.Base(urlPath)
	}
	saved, err := c.saver.Save(filename, bytes.NewReader(res.Body))
	if err != nil {
		return "", apierror.Normalize(errors.Wrap(err, "saving download"))
	}
	return saved, nil
}

func attachmentName(disposition string) string {
	if disposition == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	return params["filename"]
}
