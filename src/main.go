package main

import (
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"path"
	"strconv"

	"github.com/covalenthq/lumberjack"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"payflow/src/config"
	"payflow/src/gateway"
	"payflow/src/lib"
	"payflow/src/middlewares"
	"payflow/src/payments"
	"payflow/src/store"
	"payflow/src/types"
)

const apiPrefix string = "/api/v1"

var paymentMethodValidatorFunc validator.Func = func(fl validator.FieldLevel) bool {
	value, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	return types.PaymentMethod(value).Valid()
}

var paymentStatusValidatorFunc validator.Func = func(fl validator.FieldLevel) bool {
	value, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	return types.PaymentStatus(value).Valid()
}

func registerCustomValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("paymentmethod", paymentMethodValidatorFunc)
		v.RegisterValidation("paymentstatus", paymentStatusValidatorFunc)
	}
}

func setupRouter() *gin.Engine {
	router := gin.Default()
	router.Use(middlewares.SecureHeaders)
	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, "ok")
	})
	return router
}

func maintenanceModeMiddleware(g *gin.Engine) *gin.Engine {
	g.Use(func(ctx *gin.Context) {
		mm := os.Getenv("MAINTENANCE_MODE")
		enabled, err := strconv.ParseBool(mm)
		if err == nil && enabled {
			err := errors.New("server is under maintenance")
			log.Println(err.Error())
			ctx.AbortWithStatusJSON(http.StatusServiceUnavailable, err.Error())
			return
		}
	})
	return g
}

func apiv1Group(g *gin.Engine) *gin.RouterGroup {
	apiv1 := g.Group(apiPrefix)
	return apiv1
}

// buildRouter wires every component once and mounts the routes. Tests call
// this with a simulation-mode gateway and a stub persistence service.
func buildRouter(cfg *config.Config, orch *payments.Orchestrator, gw gateway.Client) *gin.Engine {
	registerCustomValidators()

	router := setupRouter()
	if cfg.APIEnv == "local" {
		router.Use(cors.Default())
	} else {
		cc := cors.DefaultConfig()
		cc.AllowMethods = append(cc.AllowMethods, "GET", "POST", "PATCH", "PUT", "DELETE", "HEAD")
		cc.AllowHeaders = append(cc.AllowHeaders, "Origin", "Authorization")
		cc.AllowOrigins = []string{cfg.FrontendURL}
		router.Use(cors.New(cc))
	}
	router = maintenanceModeMiddleware(router)

	webhookRoutes(router, gw, orch)

	authorized := router.Group(apiPrefix)
	authorized.Use(middlewares.AuthMiddleware(cfg.JWTSecret))
	paymentHandlers(authorized, orch, !cfg.IsProd())

	return router
}

func initLogger() {
	cwd, _ := os.Getwd()
	serverLogs := path.Join(cwd, "logs", "server.log")
	apiLogs := path.Join(cwd, "logs", "api.log")
	gin.ForceConsoleColor()

	f, _ := os.Create(apiLogs)
	gin.DefaultWriter = io.MultiWriter(f, os.Stdout)
	log.SetOutput(&lumberjack.Logger{
		Filename:   serverLogs,
		MaxSize:    500,
		MaxBackups: 3,
		MaxAge:     30,
		Compress:   true,
	})
}

func main() {
	if os.Getenv("API_ENV") == "local" || os.Getenv("API_ENV") == "" {
		cwd, _ := os.Getwd()
		if err := godotenv.Load(path.Join(cwd, ".env")); err != nil {
			log.Printf("No .env file loaded: %s\n", err.Error())
		}
	}
	initLogger()

	cfg := config.Load()

	var gw gateway.Client
	if cfg.SimulationMode {
		gw = gateway.New(gateway.Config{
			SimulationMode: true,
			FrontendURL:    cfg.FrontendURL,
		})
		log.Println("[Gateway] Running in simulation mode")
	} else {
		gw = gateway.New(gateway.Config{
			StripeClient:  lib.NewStripeClient(cfg.StripeSecretKey),
			WebhookSecret: cfg.StripeWebhookSecret,
			FrontendURL:   cfg.FrontendURL,
		})
	}

	st := store.New(cfg.DatabaseServiceURL, cfg.RequestTimeout)
	rdb := lib.NewRedisClient(cfg.RedisURL)

	orch := payments.NewOrchestrator(payments.OrchestratorConfig{
		Store:          st,
		Gateway:        gw,
		Fees:           payments.DefaultFeeSchedule().ApplyOverrides(cfg.FeeRateOverrides),
		Redis:          rdb,
		DirectCardFlow: cfg.EnableDirectCardFlow,
	})

	router := buildRouter(cfg, orch, gw)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %s", err)
	}
}
