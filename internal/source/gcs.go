package source

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// FetchGCS downloads a statement CSV from a GCS bucket and parses it.
// Used by the ingestion worker when files are uploaded through the API.
func FetchGCS(ctx context.Context, bucketName, objectName string) ([]Record, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("FetchGCS: create storage client: %w", err)
	}
	defer client.Close()

	r, err := client.Bucket(bucketName).Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("FetchGCS: open object %s/%s: %w", bucketName, objectName, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("FetchGCS: read object: %w", err)
	}

	records, err := ReadCSV(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("FetchGCS: %s/%s: %w", bucketName, objectName, err)
	}
	return records, nil
}
