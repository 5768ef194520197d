// Package storage provides the S3 gateway: presigned upload/download URLs and
// the JSON document namespace used to persist pipeline artifacts.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/amber-aim/ad-placement-go/internal/apperr"
	"github.com/amber-aim/ad-placement-go/pkg/logger"
)

const maxFilenameLength = 255

type objectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type presignAPI interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Gateway mints presigned S3 URLs and reads/writes small JSON documents.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Gateway struct {
	bucket    string
	basePath  string
	client    objectAPI
	presigner presignAPI
}

// New creates a Gateway using the default AWS credential chain.
func New(ctx context.Context, bucket, region, basePath string) (*Gateway, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeConfiguration, "failed to load AWS configuration", err)
	}

	client := s3.NewFromConfig(cfg)

	return &Gateway{
		bucket:    bucket,
		basePath:  strings.Trim(basePath, "/"),
		client:    client,
		presigner: s3.NewPresignClient(client),
	}, nil
}

// NewWithClients creates a Gateway with injected S3 clients.
func NewWithClients(bucket, basePath string, client objectAPI, presigner presignAPI) *Gateway {
	return &Gateway{
		bucket:    bucket,
		basePath:  strings.Trim(basePath, "/"),
		client:    client,
		presigner: presigner,
	}
}

// MintUploadURL generates a presigned PUT URL for a new video object. The
// object key is {basePath}/{uuid}.{ext}; the original filename only
// contributes its extension.
func (g *Gateway) MintUploadURL(ctx context.Context, filename string, ttl time.Duration) (string, string, error) {
	trimmed, err := validateFilename(filename)
	if err != nil {
		return "", "", err
	}

	extension := trimmed[strings.LastIndex(trimmed, ".")+1:]
	key := fmt.Sprintf("%s/%s.%s", g.basePath, uuid.NewString(), extension)

	req, err := g.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(g.bucket),
		Key:         aws.String(key),
		ContentType: aws.String("video/*"),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", "", classifyS3Error("failed to generate upload URL", err)
	}

	logger.Log.Info("Generated upload URL",
		zap.String("s3_path", key),
		zap.String("original_filename", trimmed),
		zap.Duration("expires_in", ttl),
	)

	return req.URL, key, nil
}

// MintDownloadURL generates a presigned GET URL for an existing object.
func (g *Gateway) MintDownloadURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := g.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", classifyS3Error("failed to generate download URL", err)
	}
	return req.URL, nil
}

// ReadJSON loads a JSON document into out. A missing key yields
// (false, nil); any other failure is a storage error, so callers can tell
// "not found" from a transient transport fault.
func (g *Gateway) ReadJSON(ctx context.Context, key string, out any) (bool, error) {
	resp, err := g.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, classifyS3Error("failed to read document "+key, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, apperr.Wrap(apperr.CodeS3Service, "failed to read document body "+key, err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return false, apperr.Wrap(apperr.CodeS3Service, "failed to decode document "+key, err)
	}

	return true, nil
}

// WriteJSON stores a JSON document, overwriting any existing object.
func (g *Gateway) WriteJSON(ctx context.Context, key string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return apperr.Wrap(apperr.CodeS3Service, "failed to encode document "+key, err)
	}

	_, err = g.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(g.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return classifyS3Error("failed to write document "+key, err)
	}

	logger.Log.Debug("Stored JSON document",
		zap.String("s3_path", key),
		zap.Int("bytes", len(body)),
	)

	return nil
}

func validateFilename(filename string) (string, error) {
	trimmed := strings.TrimSpace(filename)
	if trimmed == "" {
		return "", apperr.New(apperr.CodeInvalidFilename, "filename cannot be empty")
	}
	if !strings.Contains(trimmed, ".") {
		return "", apperr.New(apperr.CodeInvalidFilename, "filename must include extension")
	}
	if len(trimmed) > maxFilenameLength {
		return "", apperr.New(apperr.CodeInvalidFilename, fmt.Sprintf("filename too long (max %d chars)", maxFilenameLength))
	}
	return trimmed, nil
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NoSuchKey" || code == "NotFound"
	}
	return false
}

func classifyS3Error(message string, err error) error {
	if isCredentialError(err) {
		return apperr.Wrap(apperr.CodeConfiguration, "AWS credentials not configured", err)
	}
	return apperr.Wrap(apperr.CodeS3Service, message, err)
}

// isCredentialError reports whether err is an auth/credential failure rather
// than a transient S3 one. Rejected signatures come back as coded API errors;
// an empty credential chain fails before any request is sent, so for non-API
// errors the string check is the only signal the SDK gives us.
func isCredentialError(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken",
			"AccessDenied", "UnrecognizedClientException", "InvalidClientTokenId":
			return true
		default:
			return false
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		// The request went on the wire; the failure is transport, not config.
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "credential")
}
