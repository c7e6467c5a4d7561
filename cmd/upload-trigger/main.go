// Command upload-trigger is the storage-finalize entry point. Each
// CloudEvent names one uploaded object, which is enqueued for extraction.
package main

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/fhiba/2025Q2-G4/internal/api"
	"github.com/fhiba/2025Q2-G4/internal/config"
	"github.com/fhiba/2025Q2-G4/internal/data/redisStore"
	"github.com/fhiba/2025Q2-G4/internal/queue"
	"github.com/fhiba/2025Q2-G4/internal/trigger"
	"github.com/fhiba/2025Q2-G4/pkg/logger_i"
)

var (
	ingestion *trigger.Trigger
	once      sync.Once
	initErr   error
)

func init() {
	functions.CloudEvent("OnUpload", onUpload)
}

func setup() {
	cfg, err := config.Load("")
	if err != nil {
		initErr = err
		return
	}
	logger_i.Init(cfg.Prod)

	queueStore, err := redisStore.Connect(context.Background(), redisStore.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.QueueDB,
	})
	if err != nil {
		initErr = err
		return
	}
	ingestion = trigger.New(queue.NewRedisQueue(queueStore, queue.OptionsFromConfig(cfg)), cfg.Trigger.Concurrency)
}

func onUpload(ctx context.Context, e cloudevents.Event) error {
	once.Do(setup)
	logger := logger_i.NewLogger("Upload Function")
	if initErr != nil {
		logger.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var object api.StorageObjectData
	if err := e.DataAs(&object); err != nil {
		// a redelivery would fail the same way
		logger.Error("Failed to decode event data", "eventId", e.ID(), "error", err)
		return nil
	}
	if object.Bucket == "" || object.Name == "" {
		logger.Warn("Event does not name an object", "eventId", e.ID())
		return nil
	}

	ctx = context.WithValue(ctx, config.TRACE_ID_KEY, e.ID())
	res := ingestion.OnUploadNotification(ctx, []trigger.Notification{{Bucket: object.Bucket, Key: object.Name}})
	if len(res.Failed) > 0 {
		return fmt.Errorf("enqueue gs://%s/%s: %s", object.Bucket, object.Name, res.Failed[0].Error)
	}
	return nil
}

// main serves the function locally. Deployed builds use the platform's own
// entry point.
func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := funcframework.Start(port); err != nil {
		fmt.Fprintf(os.Stderr, "funcframework.Start: %v\n", err)
		os.Exit(1)
	}
}
