package main

import (
	"context"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"payflow/src/gateway"
	"payflow/src/payments"
	"payflow/src/types"
)

// webhookRoutes mounts the gateway callback endpoint. The body must reach
// signature verification byte-exact, so it is read raw and never re-encoded.
// After verification the answer is always 200: webhook delivery is
// at-least-once and a non-2xx only makes the gateway redeliver an event this
// service already decided how to treat.
func webhookRoutes(g *gin.Engine, gw gateway.Client, o *payments.Orchestrator) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.POST("/webhook/payments", func(ctx *gin.Context) {
		payload, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			log.Printf("Error reading request body: %s\n", err.Error())
			ctx.Status(http.StatusServiceUnavailable)
			return
		}
		event, err := gw.VerifyAndParseWebhook(payload, ctx.GetHeader("Stripe-Signature"))
		if err != nil {
			log.Printf("Error verifying webhook signature: %s\n", err.Error())
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "webhook signature verification failed"})
			return
		}
		log.Printf("[GatewayEvent] %s\n", event.RawType)
		// Detached context: once a delivery is verified the update runs to
		// completion, a half-applied update is worse than a slow response.
		if err := o.HandleWebhookEvent(context.WithoutCancel(ctx.Request.Context()), event); err != nil {
			log.Printf("[GatewayEvent] Error processing %s: %s\n", event.RawType, err.Error())
		}
		ctx.JSON(http.StatusOK, types.WebhookAck{Received: true})
	})
	return apiv1
}
