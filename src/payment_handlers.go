package main

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"payflow/src/middlewares"
	"payflow/src/payments"
	"payflow/src/types"
)

// respondError maps a domain error to the uniform JSON error envelope.
// Unknown errors stay opaque outside local/dev configuration.
func respondError(ctx *gin.Context, err error, exposeDetail bool) {
	var ae *types.AppError
	if errors.As(err, &ae) {
		body := gin.H{"error": ae.Message, "kind": string(ae.Kind)}
		if exposeDetail && ae.Err != nil {
			body["detail"] = ae.Err.Error()
		}
		ctx.JSON(ae.HTTPStatus(), body)
		return
	}
	log.Printf("Unhandled error: %s\n", err.Error())
	body := gin.H{"error": "internal server error"}
	if exposeDetail {
		body["detail"] = err.Error()
	}
	ctx.JSON(http.StatusInternalServerError, body)
}

func paymentHandlers(g *gin.RouterGroup, o *payments.Orchestrator, exposeDetail bool) *gin.RouterGroup {
	g.
		POST("/payments", func(ctx *gin.Context) {
			var body types.CreatePaymentRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			payment, err := o.CreatePayment(ctx, middlewares.ForwardedToken(ctx), &body)
			if err != nil {
				log.Printf("[CreatePayment] error: %s\n", err.Error())
				respondError(ctx, err, exposeDetail)
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": payment})
		}).
		GET("/payments", func(ctx *gin.Context) {
			var filters types.PaymentQueryFilters
			if err := ctx.ShouldBindQuery(&filters); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			page, err := o.ListPayments(ctx, middlewares.ForwardedToken(ctx), &filters)
			if err != nil {
				respondError(ctx, err, exposeDetail)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": page.Data, "pagination": page.Pagination})
		}).
		GET("/payments/stats", func(ctx *gin.Context) {
			var filters types.PaymentQueryFilters
			if err := ctx.ShouldBindQuery(&filters); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			stats, err := o.Stats(ctx, middlewares.ForwardedToken(ctx), &filters)
			if err != nil {
				respondError(ctx, err, exposeDetail)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": stats})
		}).
		GET("/payments/checkout/:sessionId", func(ctx *gin.Context) {
			var params types.SessionRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			status, err := o.CheckoutSessionStatus(ctx, params.SessionID)
			if err != nil {
				log.Printf("[CheckoutSessionStatus] error: %s\n", err.Error())
				respondError(ctx, err, exposeDetail)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": status})
		}).
		GET("/payments/reservation/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			list, err := o.ListByReservation(ctx, middlewares.ForwardedToken(ctx), params.ID)
			if err != nil {
				respondError(ctx, err, exposeDetail)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": list})
		}).
		GET("/payments/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			payment, err := o.GetPayment(ctx, middlewares.ForwardedToken(ctx), params.ID)
			if err != nil {
				respondError(ctx, err, exposeDetail)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": payment})
		}).
		PATCH("/payments/:id/status", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.UpdateStatusRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			payment, err := o.UpdateStatus(ctx, middlewares.ForwardedToken(ctx), params.ID, types.PaymentStatus(body.Status))
			if err != nil {
				log.Printf("[UpdateStatus] error: %s\n", err.Error())
				respondError(ctx, err, exposeDetail)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": payment})
		}).
		POST("/payments/:id/checkout", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.InitiateCheckoutRequestBody
			if ctx.Request.ContentLength > 0 {
				if err := ctx.ShouldBindJSON(&body); err != nil {
					ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
			}
			payment, err := o.InitiateCheckout(ctx, middlewares.ForwardedToken(ctx), params.ID, &body)
			if err != nil {
				log.Printf("[InitiateCheckout] error: %s\n", err.Error())
				respondError(ctx, err, exposeDetail)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": payment, "url": payment.CheckoutURL})
		}).
		POST("/payments/:id/refund", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.RefundRequestBody
			if ctx.Request.ContentLength > 0 {
				if err := ctx.ShouldBindJSON(&body); err != nil {
					ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
			}
			payment, err := o.RefundPayment(ctx, middlewares.ForwardedToken(ctx), params.ID, &body)
			if err != nil {
				log.Printf("[RefundPayment] error: %s\n", err.Error())
				respondError(ctx, err, exposeDetail)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": payment})
		}).
		POST("/payments/:id/cancel", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			payment, err := o.CancelPayment(ctx, middlewares.ForwardedToken(ctx), params.ID)
			if err != nil {
				log.Printf("[CancelPayment] error: %s\n", err.Error())
				respondError(ctx, err, exposeDetail)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": payment})
		}).
		DELETE("/payments/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if err := o.DeletePayment(ctx, middlewares.ForwardedToken(ctx), params.ID); err != nil {
				respondError(ctx, err, exposeDetail)
				return
			}
			ctx.Status(http.StatusNoContent)
		})
	return g
}
