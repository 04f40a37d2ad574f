// Package queue moves admin audit records over RabbitMQ: the publisher
// side is used by the API, the consumer side stores records in MySQL.
package queue

import (
	"encoding/json"
	"fmt"

	"github.com/iliyamo/dogrun-backend/internal/model"
)

// DefaultAuditQueue is the durable queue carrying audit records.
const DefaultAuditQueue = "admin.audit"

// AdminLogEvent is the message body published for every audit record.
// Version lets consumers reject payloads they do not understand.
type AdminLogEvent struct {
	Version int            `json:"version"`
	Entry   model.AdminLog `json:"entry"`
}

const eventVersion = 1

func encodeEvent(entry model.AdminLog) ([]byte, error) {
	return json.Marshal(AdminLogEvent{Version: eventVersion, Entry: entry})
}

func decodeEvent(body []byte) (model.AdminLog, error) {
	var ev AdminLogEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return model.AdminLog{}, fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Version != eventVersion {
		return model.AdminLog{}, fmt.Errorf("unsupported event version %d", ev.Version)
	}
	if ev.Entry.ID == "" || ev.Entry.AdminUserID == "" || ev.Entry.Action == "" {
		return model.AdminLog{}, fmt.Errorf("incomplete audit record")
	}
	return ev.Entry, nil
}
