package server

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/chupacabra07-bot/night-campus/internal/config"
	chatcommands "github.com/chupacabra07-bot/night-campus/internal/modules/chat/commands"
	chatqueries "github.com/chupacabra07-bot/night-campus/internal/modules/chat/queries"
	"github.com/chupacabra07-bot/night-campus/internal/modules/core"
	"github.com/chupacabra07-bot/night-campus/internal/modules/identity"
	matchingcommands "github.com/chupacabra07-bot/night-campus/internal/modules/matching/commands"
	matchingqueries "github.com/chupacabra07-bot/night-campus/internal/modules/matching/queries"
	"github.com/chupacabra07-bot/night-campus/internal/modules/matching/scoring"
	mutualcommands "github.com/chupacabra07-bot/night-campus/internal/modules/mutual/commands"
	mutualqueries "github.com/chupacabra07-bot/night-campus/internal/modules/mutual/queries"
	"github.com/chupacabra07-bot/night-campus/internal/modules/notifications"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/eskrenkovic/mediator-go"
	"github.com/eskrenkovic/migrate-go"
	"github.com/go-chi/chi"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

type Server interface {
	Start() error
	Stop() error
}

var _ Server = &HTTPServer{}

// HTTPServer acts as the composition root for the application.
type HTTPServer struct {
	server   *http.Server
	db       *sql.DB
	pubSub   *gochannel.GoChannel
	sessions *identity.Store
	logger   *zap.Logger

	stopSweeper context.CancelFunc
}

func NewHTTPServer(config config.Config) (*HTTPServer, error) {
	baseCtx := context.Background()

	core.SetLogger(config.Logger)

	db, err := sql.Open("postgres", config.DatabaseURL)
	if err != nil {
		return nil, err
	}

	if err := migrate.Run(baseCtx, db, config.MigrationsPath); err != nil {
		return nil, err
	}

	requestLoggingBehavior := core.RequestLoggingBehavior{Logger: config.Logger}
	handlerErrorLoggingBehavior := core.HandlerErrorLoggingBehavior{Logger: config.Logger}
	requestValidationBehavior := core.RequestValidationBehavior{}

	mediator.RegisterPipelineBehavior(&requestLoggingBehavior)
	mediator.RegisterPipelineBehavior(&handlerErrorLoggingBehavior)
	mediator.RegisterPipelineBehavior(&requestValidationBehavior)

	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermill.NewStdLogger(false, false),
	)
	fanout := notifications.NewWatermillFanout(pubSub)

	sessions := identity.NewStore(config.Matching.SessionTTL)
	meters := scoring.NewMeterProvider()

	// handler registration

	// matching

	getCurrentPoolHandler := matchingqueries.NewGetCurrentPoolQueryHandler(
		db,
		meters,
		config.Matching.PoolSize,
		config.Matching.PoolValidity,
	)
	err = mediator.RegisterRequestHandler[matchingqueries.GetCurrentPoolQuery, matchingqueries.CurrentPoolResponse](
		getCurrentPoolHandler,
	)
	if err != nil {
		return nil, err
	}

	submitRequestHandler := matchingcommands.NewSubmitRequestCommandHandler(
		db,
		config.Matching.RequestQuota,
		fanout,
	)
	err = mediator.RegisterRequestHandler[matchingcommands.SubmitRequestCommand, matchingcommands.SubmitRequestResponse](
		submitRequestHandler,
	)
	if err != nil {
		return nil, err
	}

	expirePoolsHandler := matchingcommands.NewExpirePoolsCommandHandler(db)
	err = mediator.RegisterRequestHandler[matchingcommands.ExpirePoolsCommand, matchingcommands.ExpirePoolsResponse](
		expirePoolsHandler,
	)
	if err != nil {
		return nil, err
	}

	// mutual

	recordAgreementHandler := mutualcommands.NewRecordAgreementCommandHandler(
		db,
		config.Matching.ChatTTL,
		fanout,
	)
	err = mediator.RegisterRequestHandler[mutualcommands.RecordAgreementCommand, mutualcommands.RecordAgreementResponse](
		recordAgreementHandler,
	)
	if err != nil {
		return nil, err
	}

	cancelMatchHandler := mutualcommands.NewCancelMatchCommandHandler(db)
	err = mediator.RegisterRequestHandler[mutualcommands.CancelMatchCommand, mutualcommands.CancelMatchResponse](
		cancelMatchHandler,
	)
	if err != nil {
		return nil, err
	}

	expireMatchesHandler := mutualcommands.NewExpireMatchesCommandHandler(db, fanout)
	err = mediator.RegisterRequestHandler[mutualcommands.ExpireMatchesCommand, mutualcommands.ExpireMatchesResponse](
		expireMatchesHandler,
	)
	if err != nil {
		return nil, err
	}

	listMatchesHandler := mutualqueries.NewListMatchesQueryHandler(db)
	err = mediator.RegisterRequestHandler[mutualqueries.ListMatchesQuery, []mutualqueries.MatchResponse](
		listMatchesHandler,
	)
	if err != nil {
		return nil, err
	}

	getMatchHandler := mutualqueries.NewGetMatchQueryHandler(db)
	err = mediator.RegisterRequestHandler[mutualqueries.GetMatchQuery, mutualqueries.MatchResponse](
		getMatchHandler,
	)
	if err != nil {
		return nil, err
	}

	// chat

	sendMessageHandler := chatcommands.NewSendMessageCommandHandler(db)
	err = mediator.RegisterRequestHandler[chatcommands.SendMessageCommand, chatcommands.MessageResponse](
		sendMessageHandler,
	)
	if err != nil {
		return nil, err
	}

	listMessagesHandler := chatqueries.NewListMessagesQueryHandler(db)
	err = mediator.RegisterRequestHandler[chatqueries.ListMessagesQuery, []chatqueries.MessageResponse](
		listMessagesHandler,
	)
	if err != nil {
		return nil, err
	}

	// http

	router := chi.NewRouter()
	router.Use(core.CorrelationIDHTTPMiddleware)
	router.Use(identity.Middleware(sessions))

	router.Get("/matching/current_pool/", matchingqueries.HandleGetCurrentPool)
	router.Post("/matching/request/", matchingcommands.HandleSubmitRequest)

	router.Get("/mutual/", mutualqueries.HandleListMatches)
	router.Get("/mutual/{id}/", mutualqueries.HandleGetMatch)
	router.Post("/mutual/{id}/agree/", mutualcommands.HandleRecordAgreement)
	router.Post("/mutual/{id}/cancel/", mutualcommands.HandleCancelMatch)
	router.Get("/mutual/{id}/messages/", chatqueries.HandleListMessages)
	router.Post("/mutual/{id}/send_message/", chatcommands.HandleSendMessage)

	server := http.Server{
		Addr:    net.JoinHostPort("", strconv.Itoa(config.Port)),
		Handler: router,
		BaseContext: func(net.Listener) context.Context {
			return baseCtx
		},
	}

	sweepCtx, stopSweeper := context.WithCancel(baseCtx)
	go sweep(sweepCtx, config.Matching.SweepInterval, config.Logger)

	return &HTTPServer{
		server:      &server,
		db:          db,
		pubSub:      pubSub,
		sessions:    sessions,
		logger:      config.Logger,
		stopSweeper: stopSweeper,
	}, nil
}

// Sessions exposes the session store so callers outside the HTTP surface
// (seeding scripts, tests) can issue tokens.
func (s *HTTPServer) Sessions() *identity.Store {
	return s.sessions
}

// LifecycleEvents subscribes to the match lifecycle topic. The channel closes
// when ctx is cancelled or the server stops.
func (s *HTTPServer) LifecycleEvents(ctx context.Context) (<-chan *message.Message, error) {
	return s.pubSub.Subscribe(ctx, notifications.Topic)
}

func (s *HTTPServer) Start() error {
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *HTTPServer) Stop() error {
	s.stopSweeper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}

	if err := s.pubSub.Close(); err != nil {
		return err
	}

	return s.db.Close()
}

// sweep periodically expires pools and matches whose deadlines passed. Both
// commands are idempotent, so overlapping runs are harmless.
func sweep(ctx context.Context, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, err := mediator.Send[matchingcommands.ExpirePoolsCommand, matchingcommands.ExpirePoolsResponse](
				ctx,
				matchingcommands.ExpirePoolsCommand{},
			)
			if err != nil {
				logger.Error("failed to expire pools", zap.Error(err))
			}

			_, err = mediator.Send[mutualcommands.ExpireMatchesCommand, mutualcommands.ExpireMatchesResponse](
				ctx,
				mutualcommands.ExpireMatchesCommand{},
			)
			if err != nil {
				logger.Error("failed to expire matches", zap.Error(err))
			}
		}
	}
}
