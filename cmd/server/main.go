package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"tradecore/internal/api"
	"tradecore/internal/book"
	"tradecore/internal/broadcast"
	"tradecore/internal/config"
	"tradecore/internal/execution"
	"tradecore/internal/feed"
	"tradecore/internal/models"
	"tradecore/internal/orders"
	"tradecore/internal/repository"
	"tradecore/internal/venue"
	"tradecore/internal/websocket"
	"tradecore/pkg/crypto"
	"tradecore/pkg/utils"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Глобальный логгер
	logger := utils.InitGlobalLogger(utils.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// База данных: журнал отчётов и сделок
	db, err := initDatabase(cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", utils.Err(err))
	}
	defer db.Close()
	logger.Info("connected to database", utils.String("dsn", cfg.Database.DSNWithoutPassword()))

	reportRepo := repository.NewReportRepository(db)
	fillRepo := repository.NewFillRepository(db)

	// Секрет площадки: зашифрованная форма имеет приоритет
	if cfg.Execution.APISecretEnc != "" {
		secret, err := crypto.DecryptSecret(cfg.Execution.APISecretEnc, cfg.Security.EncryptionKey)
		if err != nil {
			logger.Fatal("failed to decrypt venue secret", utils.Err(err))
		}
		cfg.Execution.APISecret = secret
	}

	// Пул транспортов отмены
	var broadcaster *broadcast.Broadcaster
	if cfg.Execution.APIKey != "" && cfg.Execution.APISecret != "" {
		broadcaster, err = initBroadcaster(cfg)
		if err != nil {
			logger.Fatal("failed to create cancel pool", utils.Err(err))
		}
		broadcaster.Start(ctx)
		defer broadcaster.Stop()
	} else {
		logger.Warn("venue credentials are not set, cancel pool disabled")
	}

	// Движок исполнения
	var canceler execution.Canceler
	if broadcaster != nil {
		canceler = broadcaster
	}
	engine := execution.NewEngine(execution.Config{
		TraderID:   models.TraderID(cfg.Execution.TraderID),
		StrategyID: models.StrategyID(cfg.Execution.StrategyID),
		AccountID:  models.AccountID(cfg.Execution.AccountID),
	}, canceler, reportRepo, fillRepo)

	// Клиент рыночных данных
	feedClient, err := feed.NewClient(feed.Config{
		URL:            cfg.Feed.URL,
		Venue:          models.Venue(cfg.Feed.Venue),
		TopicDelimiter: cfg.Feed.TopicDelimiter,
		ReconnectDelay: cfg.Feed.ReconnectDelay,
		PingInterval:   cfg.Feed.PingInterval,
		ReadTimeout:    cfg.Feed.ReadTimeout,
		MaxReconnects:  cfg.Feed.MaxReconnects,
	})
	if err != nil {
		if cfg.Feed.URL != "" {
			logger.Fatal("failed to create feed client", utils.Err(err))
		}
		logger.Warn("feed url is not set, market data disabled")
		feedClient = nil
	}

	// Инструменты: движок, кодек стрима и транспорты отмены
	for _, symbol := range cfg.Feed.Symbols {
		instrument, err := defaultInstrument(symbol, cfg.Feed.Venue)
		if err != nil {
			logger.Fatal("failed to build instrument",
				utils.Symbol(symbol), utils.Err(err))
		}
		if err := engine.AddInstrument(instrument); err != nil {
			logger.Fatal("failed to register instrument",
				utils.Symbol(symbol), utils.Err(err))
		}
		if feedClient != nil {
			feedClient.Codec().RegisterInstrument(instrument)
		}
		logger.Info("instrument registered", utils.Symbol(symbol))
	}

	// WebSocket hub для стриминга клиентам
	hub := websocket.NewHub()
	go hub.Run()
	defer hub.Stop()

	engine.OnOrderUpdate(func(order orders.Order) {
		hub.BroadcastOrderUpdate(websocket.NewOrderUpdateMessage(order))
	})

	if feedClient != nil {
		wireFeed(feedClient, engine, hub)

		if cfg.Feed.URL != "" {
			if err := feedClient.Connect(ctx); err != nil {
				logger.Fatal("failed to connect to feed", utils.Err(err))
			}
			defer feedClient.Close()

			topics := feedTopics(cfg.Feed.Symbols, cfg.Feed.TopicDelimiter)
			if err := feedClient.Subscribe(topics...); err != nil {
				logger.Fatal("failed to subscribe", utils.Err(err))
			}
			logger.Info("feed subscriptions sent", utils.Int("topics", len(topics)))
		}
	}

	// HTTP роутер и стрим для клиентов
	router := api.SetupRoutes(&api.Dependencies{
		Engine:   engine,
		Reports:  reportRepo,
		Feed:     feedClient,
		APIToken: cfg.Security.APIToken,
	})
	router.HandleFunc("/ws/stream", func(w http.ResponseWriter, r *http.Request) {
		websocket.ServeWS(hub, w, r)
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", utils.String("addr", server.Addr))
		var err error
		if cfg.Server.UseHTTPS {
			err = server.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", utils.Err(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", utils.Err(err))
	}
	logger.Info("server exited")
}

// wireFeed направляет события стрима в движок и hub
func wireFeed(client *feed.Client, engine *execution.Engine, hub *websocket.Hub) {
	client.OnDelta(func(delta book.BookDelta) {
		engine.OnBookDelta(delta)
		if top, err := engine.Top(delta.InstrumentID); err == nil {
			hub.BroadcastBookTop(websocket.NewBookTopMessage(top))
		}
	})
	client.OnQuote(engine.OnQuote)
	client.OnTrade(func(trade models.TradeTick) {
		engine.OnTrade(trade)
		hub.BroadcastTrade(websocket.NewTradeMessage(trade))
	})
	client.OnDisconnect(func(err error) {
		utils.Warn("feed disconnected", utils.Err(err))
	})
}

// feedTopics строит топики подписки для всех символов
func feedTopics(symbols []string, delimiter string) []string {
	channels := []string{"orderBookL2", "quote", "trade"}
	topics := make([]string, 0, len(symbols)*len(channels))
	for _, symbol := range symbols {
		for _, channel := range channels {
			topics = append(topics, channel+delimiter+symbol)
		}
	}
	return topics
}

// defaultInstrument строит инструмент по символу площадки.
// Точности известных контрактов захардкожены; для остальных
// берётся консервативный шаг 0.01.
func defaultInstrument(symbol, venueName string) (models.Instrument, error) {
	base := models.InstrumentBase{
		InstrumentID:  models.NewInstrumentID(models.Symbol(symbol), models.Venue(venueName)),
		Symbol:        models.Symbol(symbol),
		PriceAccuracy: 2,
		SizeAccuracy:  0,
		PriceStep:     models.MustPrice(0.01, 2),
		SizeStep:      models.MustQuantity(1, 0),
	}

	switch symbol {
	case "XBTUSD":
		base.Base = "BTC"
		base.Quote = "USD"
		base.Settlement = "XBT"
		base.Inverse = true
		base.PriceAccuracy = 1
		base.PriceStep = models.MustPrice(0.5, 1)
	case "ETHUSD":
		base.Base = "ETH"
		base.Quote = "USD"
		base.Settlement = "XBT"
		base.PriceAccuracy = 2
		base.PriceStep = models.MustPrice(0.05, 2)
	}

	return models.NewPerpetualInstrument(base)
}

// initBroadcaster создаёт пул транспортов отмены поверх REST-адаптера
func initBroadcaster(cfg *config.Config) (*broadcast.Broadcaster, error) {
	bcfg := broadcast.DefaultConfig()
	bcfg.PoolSize = cfg.Execution.CancelPoolSize
	bcfg.BaseURL = cfg.Execution.BaseURL
	bcfg.APIKey = cfg.Execution.APIKey
	bcfg.APISecret = cfg.Execution.APISecret
	bcfg.Testnet = cfg.Execution.Testnet
	bcfg.RequestTimeout = cfg.Execution.RequestTimeout
	bcfg.HealthCheckInterval = cfg.Execution.HealthCheckInterval
	bcfg.HealthCheckTimeout = cfg.Execution.HealthCheckTimeout
	bcfg.RequestsPerSecond = cfg.Execution.RequestsPerSecond
	bcfg.Burst = cfg.Execution.Burst

	return broadcast.NewBroadcaster(bcfg, func(c broadcast.Config) (broadcast.CancelExecutor, error) {
		return venue.NewExecutor(venue.Config{
			Venue:          models.Venue(cfg.Feed.Venue),
			BaseURL:        c.BaseURL,
			APIKey:         c.APIKey,
			APISecret:      c.APISecret,
			Testnet:        c.Testnet,
			RequestTimeout: c.RequestTimeout,
		})
	})
}

// initDatabase открывает подключение к базе данных
func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
