package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"affconsole/internal/ids"
	"affconsole/internal/media/sniffer"
	"affconsole/internal/models"
	"affconsole/internal/repository"
	"affconsole/internal/storage"
)

const MaxProofSize = 5 << 20

var (
	ErrEmptyFile       = errors.New("empty file")
	ErrFileTooLarge    = errors.New("file exceeds 5 MB")
	ErrTypeMismatch    = errors.New("declared content type does not match file")
	ErrNoProof         = errors.New("payment has no proof image")
	ErrProofNotAllowed = errors.New("not allowed to read this proof")
)

type UploadInput struct {
	File   multipart.File
	Header *multipart.FileHeader
}

// ProofService stores proof-of-payment files and serves them back to the
// admin or the affiliator the payment belongs to.
type ProofService struct {
	payments    repository.PaymentStore
	affiliators repository.AffiliatorStore
	store       storage.ObjectStore
	log         zerolog.Logger
	now         func() time.Time
}

func NewProofService(payments repository.PaymentStore, affiliators repository.AffiliatorStore, store storage.ObjectStore, log zerolog.Logger) *ProofService {
	return &ProofService{
		payments:    payments,
		affiliators: affiliators,
		store:       store,
		log:         log,
		now:         time.Now,
	}
}

func (s *ProofService) Upload(ctx context.Context, input UploadInput) (models.StoredFile, error) {
	if input.File == nil || input.Header == nil {
		return models.StoredFile{}, errors.New("invalid file payload")
	}
	if input.Header.Size > MaxProofSize {
		return models.StoredFile{}, ErrFileTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(input.File, MaxProofSize+1))
	if err != nil {
		return models.StoredFile{}, fmt.Errorf("read file: %w", err)
	}
	if len(data) == 0 {
		return models.StoredFile{}, ErrEmptyFile
	}
	if len(data) > MaxProofSize {
		return models.StoredFile{}, ErrFileTooLarge
	}

	result, err := sniffer.DetectHead(data[:min(len(data), 512)])
	if err != nil {
		return models.StoredFile{}, fmt.Errorf("detect type: %w", err)
	}
	declared := sniffer.MimeTypeFromHTTP(http.Header(input.Header.Header))
	if declared != "" && declared != result.MIME {
		return models.StoredFile{}, fmt.Errorf("%w: declared %s, actual %s", ErrTypeMismatch, declared, result.MIME)
	}

	key := s.objectKey(ids.New(), result.Extension())
	if err := s.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), result.MIME); err != nil {
		return models.StoredFile{}, err
	}

	s.log.Info().Str("key", key).Int("size", len(data)).Str("type", result.MIME).Msg("proof stored")
	return models.StoredFile{Filename: key, URL: s.store.URL(key)}, nil
}

// Download opens the proof of payment paymentID on behalf of user.
func (s *ProofService) Download(ctx context.Context, user models.User, paymentID string) (storage.Object, string, error) {
	payment, err := s.payments.Get(ctx, paymentID)
	if err != nil {
		return storage.Object{}, "", err
	}
	if user.Role != models.RoleAdmin {
		aff, err := s.affiliators.GetByUserID(ctx, user.ID)
		if err != nil || aff.UUID != payment.AffiliatorUUID {
			return storage.Object{}, "", ErrProofNotAllowed
		}
	}
	if payment.ProofImage == "" {
		return storage.Object{}, "", ErrNoProof
	}

	obj, err := s.store.Get(ctx, payment.ProofImage)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return storage.Object{}, "", ErrNoProof
		}
		return storage.Object{}, "", err
	}
	return obj, path.Base(payment.ProofImage), nil
}

func (s *ProofService) objectKey(id, ext string) string {
	datePrefix := s.now().UTC().Format("2006/01/02")
	return path.Join("proofs", datePrefix, id+strings.ToLower(ext))
}
