package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// UploadFileIfAbsent copies the local file at localPath to objectName only if
// the object doesn't already exist. It reports false when the object was
// already there, which a redelivered event treats as done.
func UploadFileIfAbsent(ctx context.Context, bucket *storage.BucketHandle, objectName, localPath string) (bool, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return false, fmt.Errorf("could not open local file %s: %w", localPath, err)
	}
	defer f.Close()

	writer := bucket.Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = "application/pdf"

	if _, err := io.Copy(writer, f); err != nil {
		_ = writer.Close()
		if IsPreconditionFailed(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to copy %s to GCS: %w", localPath, err)
	}
	if err := writer.Close(); err != nil {
		if IsPreconditionFailed(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return true, nil
}

// IsPreconditionFailed reports whether err is a GCS 412, the answer to a
// DoesNotExist write against an existing object.
func IsPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}

// StreamObjectToFile downloads gs://bucket/object into destPath.
func StreamObjectToFile(ctx context.Context, client *storage.Client, bucket, object, destPath string) error {
	gcsReader, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return fmt.Errorf("failed to get GCS object reader for gs://%s/%s: %w", bucket, object, err)
	}
	defer gcsReader.Close()
	localFile, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file at %s: %w", destPath, err)
	}
	defer localFile.Close()
	if _, err := io.Copy(localFile, gcsReader); err != nil {
		return fmt.Errorf("failed to copy GCS object to local file: %w", err)
	}
	return nil
}
