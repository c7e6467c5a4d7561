package config

import (
	"log/slog"
	"time"
)

const (
	IS_PROD                         = false
	LOG_LEVEL_PROD                  = slog.LevelInfo
	FALLBACK_REDIS_TO_INTERNALSTORE = false //if redis init fails, records fall back to the in-memory store
	TRACE_ID_KEY                    = "traceId"
	OWNER_ID_KEY                    = "ownerId"
	RATE_LIMIT_PER_SECOND           = 20
	BURST_RATE_LIMIT_PER_SECOND     = 50

	//server timeouts
	ReadTimeout            = 5 * time.Second
	WriteTimeout           = 60 * time.Second
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	//server listening port
	ServerListenAddr = ":3000"

	//documents below this size cannot be a valid invoice
	MinDocumentBytes  = 100
	PageDecodeTimeout = 10 * time.Second
	MaxRequestBytes   = 1 << 20

	//worker pool
	RequestsPerNewWorkerCount int64 = 10 //queued items per extra worker
	MaxWorkerCount            int64 = 10
	MinWorkerCount            int64 = 1
	IdleWorkerTimeout               = 1 * time.Minute
	ClaimWait                       = 2 * time.Second
	ScaleInterval                   = 5 * time.Second
	ReapInterval                    = 15 * time.Second
	ItemProcessTimeout              = 60 * time.Second

	//queue redelivery
	VisibilityTimeout = 2 * time.Minute
	MaxDeliveries     = 5

	//trigger fan-out
	EnqueueConcurrency = 8

	//redis
	redisHost = "127.0.0.1"
	redisPort = "6379"
	RedisAddr = redisHost + ":" + redisPort

	//redis has 16 DB we can use
	RedisRecordStore = 0
	RedisQueueStore  = 1

	QueuePrefix  = "invoices:queue"
	RecordPrefix = "invoice"

	//store backends
	StoreBackendRedis     = "redis"
	StoreBackendFirestore = "firestore"
	StoreBackendMemory    = "memory"

	FirestoreCollection = "invoices"

	//fetch backends
	FetchBackendGCS  = "gcs"
	FetchBackendFile = "file"
)
