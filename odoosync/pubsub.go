package odoosync

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/mmbizsuite/console_backend/config"
)

// EnqueueSyncRun hands a sync run to the push worker via Pub/Sub. When the
// topic is not configured (local dev, single-instance deploys) the run is
// processed inline on a detached context instead.
func EnqueueSyncRun(msg SyncRunMessage) error {
	topic := os.Getenv("ODOO_SYNC_TOPIC")
	if topic == "" {
		go func() {
			_ = ProcessSyncRun(context.Background(), msg)
		}()
		return nil
	}
	return config.PublishJSON(topic, msg)
}

// pushEnvelope is the Pub/Sub push delivery wrapper.
type pushEnvelope struct {
	Message struct {
		Data      string `json:"data"`
		MessageId string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// PubSubPushHandler serves POST /pubsub/odoo-sync. Malformed messages are
// poison and get acked (204) so they are not redelivered forever. A run that
// failed before recording anything answers 503 so Pub/Sub redelivers it;
// once a run has started, failures are acked because the tracked job carries
// the outcome and a re-trigger resumes the remaining work.
func PubSubPushHandler(c *gin.Context) {
	logger := config.GetLogger()

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		config.LogError(logger, moduleName, "PubSubPushHandler", "read push body", nil, err)
		c.Status(http.StatusNoContent)
		return
	}

	var envelope pushEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		config.LogError(logger, moduleName, "PubSubPushHandler", "decode push envelope", string(body), err)
		c.Status(http.StatusNoContent)
		return
	}

	data, err := base64.StdEncoding.DecodeString(envelope.Message.Data)
	if err != nil {
		config.LogError(logger, moduleName, "PubSubPushHandler", "decode message data", envelope.Message.MessageId, err)
		c.Status(http.StatusNoContent)
		return
	}

	var msg SyncRunMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		config.LogError(logger, moduleName, "PubSubPushHandler", "decode sync run message", string(data), err)
		c.Status(http.StatusNoContent)
		return
	}

	if err := ProcessSyncRun(c.Request.Context(), msg); err != nil {
		config.LogError(logger, moduleName, "PubSubPushHandler", "process sync run", msg.JobId, err)
		if errors.Is(err, ErrRetryDelivery) {
			c.Status(http.StatusServiceUnavailable)
			return
		}
	}
	c.Status(http.StatusNoContent)
}
