package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/godishuset/box-orders/internal/catalog"
	"github.com/godishuset/box-orders/internal/config"
	"github.com/godishuset/box-orders/internal/httpx"
	kafkax "github.com/godishuset/box-orders/internal/kafka"
	"github.com/godishuset/box-orders/internal/loans"
	"github.com/godishuset/box-orders/internal/orders"
	"github.com/godishuset/box-orders/internal/postgres"
	"github.com/godishuset/box-orders/internal/redisx"
	"github.com/godishuset/box-orders/internal/swish"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	pPlaced := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPlaced, 1024)
	pPlaced.Start(ctx)
	pPayment := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicPaymentChanged, 256)
	pPayment.Start(ctx)
	pRefund := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicRefundCreated, 256)
	pRefund.Start(ctx)

	swishClient := &swish.Client{
		BaseURL:    cfg.SwishBaseURL,
		PayeeAlias: cfg.SwishPayeeAlias,
		PollEvery:  cfg.SwishPollEvery,
		PollMax:    cfg.SwishPollMax,
		Deadline:   cfg.SwishDeadline,
	}

	store := &orders.Store{DB: db}
	cat := &catalog.Repo{DB: db}
	rebates := &orders.RebateRepo{DB: db}

	router := httpx.NewRouter()
	oh := &httpx.OrdersHandler{
		Store:    store,
		Catalog:  cat,
		Rebates:  rebates,
		Swish:    swishClient,
		Producer: pPlaced,
		Redis:    rdb,
		Service:  cfg.ServiceName,
	}
	oh.Register(router)

	ah := &httpx.AdminHandler{
		Store:           store,
		Catalog:         cat,
		Rebates:         rebates,
		Loans:           &loans.Repo{DB: db},
		Swish:           swishClient,
		PaymentProducer: pPayment,
		RefundProducer:  pRefund,
		Service:         cfg.ServiceName,
	}
	ah.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	for _, p := range []*kafkax.Producer{pPlaced, pPayment, pRefund} {
		p.Close()
		p.WaitClosed()
	}
}
