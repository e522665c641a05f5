package transport

import (
	"bytes"
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/pkg/errors"

	"github.com/trezcool/educloud/core"
	"github.com/trezcool/educloud/core/apierror"
)

// ProgressFunc receives the upload progress, in percent (0 to 100).
type ProgressFunc func(percent int)

// FormFile is a file part of an upload.
type FormFile struct {
	Field       string
	Filename    string
	ContentType string
	Content     io.Reader
}

// UploadForm is a multipart form.
type UploadForm struct {
	Fields map[string]string
	Files  []FormFile
}

// Upload posts form as multipart/form-data. The body is buffered so the request can be retried after a refresh.
func (c *Client) Upload(ctx context.Context, path string, form UploadForm, progress ProgressFunc, opts ...CallOption) (*core.Envelope, error) {
	body, contentType, err := encodeForm(form)
	if err != nil {
		return nil, apierror.Normalize(err)
	}

	req := c.newRequest(http.MethodPost, path, nil)
	req.Timeout = c.transferTimeout
	for _, opt := range opts {
		opt(req)
	}
	req.Body = body
	req.ContentType = contentType
	req.Progress = progress
	return c.call(ctx, req)
}

func encodeForm(form UploadForm) ([]byte, string, error) {
	buf := new(bytes.Buffer)
	w := multipart.NewWriter(buf)
	for key, val := range form.Fields {
		if err := w.WriteField(key, val); err != nil {
			return nil, "", errors.Wrap(err, "writing form field")
		}
	}
	for _, f := range form.Files {
		field := f.Field
		if field == "" {
			field = "file"
		}
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{"name": field, "filename": f.Filename}))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		header.Set("Content-Type", ct)
		part, err := w.CreatePart(header)
		if err != nil {
			return nil, "", errors.Wrap(err, "creating form file")
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, "", errors.Wrap(err, "copying form file")
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", errors.Wrap(err, "closing form")
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// progressReader reports the share of the body read so far. Each percentage is reported once.
type progressReader struct {
	r     *bytes.Reader
	total int64
	read  int64
	last  int
	fn    ProgressFunc
}

func newProgressReader(body []byte, fn ProgressFunc) *progressReader {
	return &progressReader{r: bytes.NewReader(body), total: int64(len(body)), last: -1, fn: fn}
}

func (p *progressReader) Read(b []byte) (int, error) {
	p.report(0)
	n, err := p.r.Read(b)
	p.read += int64(n)
	if p.total > 0 {
		p.report(int(p.read * 100 / p.total))
	}
	if err == io.EOF {
		p.report(100)
	}
	return n, err
}

func (p *progressReader) report(percent int) {
	if percent > p.last {
		p.last = percent
		p.fn(percent)
	}
}
