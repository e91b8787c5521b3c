package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/Lllllllleong/posplitter/internal/services"
)

var (
	pdfSplitterInstance *services.PDFSplitterFunction
	once                sync.Once
	initErr             error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.CloudEvent("SplitPurchaseOrders", splitPurchaseOrders)
}

// main is required by the Go Functions Framework.
func main() {}

// splitPurchaseOrders handles a GCS object-finalized event.
func splitPurchaseOrders(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		pdfSplitterInstance, initErr = services.NewPDFSplitter(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var gcsEvent services.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	// Process logs its own failures with job context.
	return pdfSplitterInstance.Process(ctx, gcsEvent)
}
