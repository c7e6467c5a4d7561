// Command invoicectl is the operator tool: it processes or enqueues stored
// documents by key, lists dead letters and exports an owner's records.
//
//	invoicectl process -bucket invoices alice/a.pdf alice/b.pdf
//	invoicectl enqueue -bucket invoices alice/a.pdf
//	invoicectl deadletters -limit 20
//	invoicectl export -owner alice -format xlsx -out alice.xlsx
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/fhiba/2025Q2-G4/internal/adapter"
	"github.com/fhiba/2025Q2-G4/internal/config"
	"github.com/fhiba/2025Q2-G4/internal/data/redisStore"
	"github.com/fhiba/2025Q2-G4/internal/data/store"
	"github.com/fhiba/2025Q2-G4/internal/document"
	"github.com/fhiba/2025Q2-G4/internal/queue"
	"github.com/fhiba/2025Q2-G4/internal/trigger"
	"github.com/fhiba/2025Q2-G4/internal/worker"
	"github.com/fhiba/2025Q2-G4/pkg/logger_i"
)

const usage = `usage: invoicectl <command> [flags]

commands:
  process      extract and store the given keys now
  enqueue      put the given keys on the work queue
  deadletters  list dead-lettered items
  export       write an owner's records as csv or xlsx
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "process":
		err = runProcess(ctx, os.Args[2:])
	case "enqueue":
		err = runEnqueue(ctx, os.Args[2:])
	case "deadletters":
		err = runDeadLetters(ctx, os.Args[2:])
	case "export":
		err = runExport(ctx, os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(fs *flag.FlagSet, args []string) (*config.Config, error) {
	configPath := fs.String("config", "", "path to a YAML config file")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}
	// logs stay quiet unless prod, the terminal is for operator output
	if cfg.Prod {
		logger_i.Init(true)
	} else {
		logger_i.InitTo(io.Discard, false)
	}
	return cfg, nil
}

func openQueue(ctx context.Context, cfg *config.Config) (*queue.RedisQueue, func() error, error) {
	queueStore, err := redisStore.Connect(ctx, redisStore.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.QueueDB,
	})
	if err != nil {
		return nil, nil, err
	}
	return queue.NewRedisQueue(queueStore, queue.OptionsFromConfig(cfg)), queueStore.Close, nil
}

func runProcess(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("process", flag.ExitOnError)
	bucket := fs.String("bucket", "", "bucket holding the documents")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	if *bucket == "" || fs.NArg() == 0 {
		return fmt.Errorf("process needs -bucket and at least one key")
	}

	records, closeRecords, err := store.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRecords()

	fetcher, closeFetcher, err := document.OpenFetcher(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFetcher()

	processor := worker.NewProcessor(document.ReaderFromConfig(fetcher, cfg), records)

	bar := getProgressBar(fs.NArg(), "Processing documents")
	var failed []string
	for _, key := range fs.Args() {
		if ctx.Err() != nil {
			break
		}
		if _, err := processor.Process(ctx, trigger.RefFor(*bucket, key)); err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", key, err))
		}
		_ = bar.Add(1)
	}

	color.Green("\n✓ Stored %d of %d documents\n", fs.NArg()-len(failed), fs.NArg())
	for _, f := range failed {
		color.Red("  ✗ %s\n", f)
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d documents failed", len(failed))
	}
	return ctx.Err()
}

func runEnqueue(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("enqueue", flag.ExitOnError)
	bucket := fs.String("bucket", "", "bucket holding the documents")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	if *bucket == "" || fs.NArg() == 0 {
		return fmt.Errorf("enqueue needs -bucket and at least one key")
	}

	q, closeQueue, err := openQueue(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeQueue()

	batch := make([]trigger.Notification, 0, fs.NArg())
	for _, key := range fs.Args() {
		batch = append(batch, trigger.Notification{Bucket: *bucket, Key: key})
	}
	res := trigger.New(q, cfg.Trigger.Concurrency).OnUploadNotification(ctx, batch)

	color.Green("✓ Enqueued %d items\n", res.Enqueued)
	for _, f := range res.Failed {
		color.Red("  ✗ %s: %s\n", f.Key, f.Error)
	}
	if len(res.Failed) > 0 {
		return fmt.Errorf("%d items were not enqueued", len(res.Failed))
	}
	return nil
}

func runDeadLetters(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("deadletters", flag.ExitOnError)
	limit := fs.Int64("limit", 50, "maximum entries to list")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}

	q, closeQueue, err := openQueue(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeQueue()

	entries, err := q.DeadLetters(ctx, *limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		color.Green("No dead letters\n")
		return nil
	}

	keyColor := color.New(color.FgYellow).SprintFunc()
	for _, dl := range entries {
		fmt.Printf("%s  %s  attempt=%d  %s\n",
			dl.FailedAt.Format("2006-01-02 15:04:05"),
			keyColor(dl.Item.Ref.Bucket+"/"+dl.Item.Ref.Key),
			dl.Item.Attempt,
			dl.Reason)
	}
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	owner := fs.String("owner", "", "owner whose records are exported")
	format := fs.String("format", "csv", "csv or xlsx")
	out := fs.String("out", "", "output file, stdout when empty")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	if *owner == "" {
		return fmt.Errorf("export needs -owner")
	}

	records, closeRecords, err := store.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRecords()

	found, err := records.QueryByOwner(ctx, *owner)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	switch *format {
	case "csv":
		err = adapter.WriteCSV(w, found)
	case "xlsx":
		var data []byte
		if data, err = adapter.BuildXLSX(found); err == nil {
			_, err = w.Write(data)
		}
	default:
		return fmt.Errorf("unknown format %q", *format)
	}
	if err != nil {
		return err
	}
	if *out != "" {
		color.Green("✓ Wrote %d records to %s\n", len(found), *out)
	}
	return nil
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("docs"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}
