package sheetsync

import (
	"context"
	"encoding/json"
	"net/http"
	"os"

	"cloud.google.com/go/pubsub"
	"github.com/gin-gonic/gin"

	"github.com/apexdental/practice_backend/config"
)

func ingestTopicName() string {
	if name := os.Getenv("PUBSUB_INGEST_TOPIC"); name != "" {
		return name
	}
	return "sheet-ingest"
}

// PublishIngest queues an ingest request on Pub/Sub so the push endpoint
// picks it up on a separate instance. Used by schedulers and the edit flow.
func PublishIngest(ctx context.Context, req IngestRequest) (string, error) {
	client, err := config.GetClient(ctx)
	if err != nil {
		return "", err
	}

	topic, err := config.CreateTopicIfNotExists(client, ingestTopicName())
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	result := topic.Publish(ctx, &pubsub.Message{Data: payload})
	return result.Get(ctx)
}

// PubSubPushHandler handles Pub/Sub push deliveries carrying an ingest
// request. It always returns 200 so Pub/Sub does not redeliver: a sync
// run records its own failures, and a malformed message can never
// succeed on retry.
func PubSubPushHandler(c *gin.Context) {
	logger := config.GetLogger()

	var envelope PubSubPushEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		config.LogError(logger, "sheetsync", "PubSubPushHandler", "decode push envelope", nil, err)
		c.JSON(http.StatusOK, gin.H{"status": "discarded"})
		return
	}

	var req IngestRequest
	if err := json.Unmarshal(envelope.Message.Data, &req); err != nil {
		config.LogError(logger, "sheetsync", "PubSubPushHandler", "decode ingest payload", envelope.Message.ID, err)
		c.JSON(http.StatusOK, gin.H{"status": "discarded"})
		return
	}

	summary, err := RunSync(c.Request.Context(), req)
	if err != nil {
		config.LogError(logger, "sheetsync", "PubSubPushHandler", "sync run", envelope.Message.ID, err)
		c.JSON(http.StatusOK, gin.H{"status": "failed", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}
