package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"

	"affconsole/internal/media/sniffer"
	"affconsole/internal/models"
)

// UploadProof sends a proof-of-payment image as multipart field "file" and
// returns the locator to store on the payment.
func (c *Client) UploadProof(ctx context.Context, filename string, content io.Reader) (models.StoredFile, error) {
	kind, head, err := sniffer.Detect(content)
	if err != nil {
		return models.StoredFile{}, newError(c.msgs, KindValidation, 0, fmt.Sprintf("file: %v", err), err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	partHeader := make(textproto.MIMEHeader)
	partHeader.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(filename)))
	partHeader.Set("Content-Type", kind.MIME)
	part, err := mw.CreatePart(partHeader)
	if err != nil {
		return models.StoredFile{}, fmt.Errorf("create part: %w", err)
	}
	if _, err := io.Copy(part, io.MultiReader(bytes.NewReader(head), content)); err != nil {
		return models.StoredFile{}, fmt.Errorf("read file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return models.StoredFile{}, fmt.Errorf("close multipart: %w", err)
	}

	resp, err := c.send(ctx, request{
		method:      http.MethodPost,
		path:        "/upload/proof-payment",
		body:        buf.Bytes(),
		contentType: mw.FormDataContentType(),
	})
	if err != nil {
		return models.StoredFile{}, err
	}

	var env models.Envelope[models.StoredFile]
	if err := c.decode(resp, &env); err != nil {
		return models.StoredFile{}, err
	}
	return env.Data, nil
}

// DownloadProof returns the raw proof image of a payment and its content
// type.
func (c *Client) DownloadProof(ctx context.Context, paymentID string) ([]byte, string, error) {
	if err := c.requireID(paymentID); err != nil {
		return nil, "", err
	}

	resp, err := c.send(ctx, request{
		method: http.MethodGet,
		path:   "/payment/proof-image/" + url.PathEscape(paymentID) + "/download",
		accept: "*/*",
	})
	if err != nil {
		return nil, "", err
	}
	if isHTML(resp.header) || resp.status < 200 || resp.status >= 300 {
		return nil, "", c.decode(resp, nil)
	}
	return resp.body, resp.header.Get("Content-Type"), nil
}
