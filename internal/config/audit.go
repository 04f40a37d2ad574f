package config

import "time"

// AuditConfig selects how admin audit records leave the request path.
// With a broker URL they are published to RabbitMQ and persisted by the
// consumer; without one the async sink writes them straight to MySQL.
type AuditConfig struct {
	AMQPURL        string
	Queue          string
	BufferSize     int
	PublishTimeout time.Duration
	RunConsumer    bool
}

func LoadAuditConfig() AuditConfig {
	url := envStr("RABBITMQ_URL", "")
	if url == "" {
		url = envStr("AMQP_URL", "")
	}
	return AuditConfig{
		AMQPURL:        url,
		Queue:          envStr("AUDIT_QUEUE", "admin.audit"),
		BufferSize:     envInt("AUDIT_BUFFER_SIZE", 256),
		PublishTimeout: envDur("AUDIT_PUBLISH_TIMEOUT", 3*time.Second),
		RunConsumer:    envBool("AUDIT_CONSUMER_ENABLED", true),
	}
}

// StorageConfig chooses where vaccine certificates uploaded with an
// application are kept.
type StorageConfig struct {
	Backend   string // "local" or "s3"
	LocalPath string
	S3Bucket  string
	S3Region  string
	S3Prefix  string
	MaxBytes  int64
}

func LoadStorageConfig() StorageConfig {
	return StorageConfig{
		Backend:   envStr("STORAGE_BACKEND", "local"),
		LocalPath: envStr("STORAGE_LOCAL_PATH", "uploads"),
		S3Bucket:  envStr("STORAGE_S3_BUCKET", ""),
		S3Region:  envStr("STORAGE_S3_REGION", "ap-northeast-1"),
		S3Prefix:  envStr("STORAGE_S3_PREFIX", "certificates"),
		MaxBytes:  int64(envInt("STORAGE_MAX_BYTES", 10<<20)),
	}
}
